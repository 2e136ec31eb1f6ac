package server

import (
	"context"
	"fmt"

	"github.com/tablegate/tablegate/pkg/httperr"
)

type SchemaColumn struct {
	Name     string  `json:"column_name"`
	DataType string  `json:"data_type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

type TableSchema struct {
	Columns     []SchemaColumn
	PrimaryKeys []string
}

// CatalogStore reports a table's true schema from the database catalog,
// independent of the policy's allowed-column restriction.
type CatalogStore interface {
	DescribeTable(ctx context.Context, table string) (TableSchema, error)
}

func (s *pgStore) DescribeTable(ctx context.Context, table string) (TableSchema, error) {
	rows, err := s.pool.Query(ctx, `
	SELECT column_name, data_type, is_nullable, column_default
	FROM information_schema.columns
	WHERE table_name = $1
	ORDER BY ordinal_position
	`, table)
	if err != nil {
		return TableSchema{}, err
	}
	defer rows.Close()

	var schema TableSchema
	for rows.Next() {
		var col SchemaColumn
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.Default); err != nil {
			return TableSchema{}, err
		}
		col.Nullable = nullable == "YES"
		schema.Columns = append(schema.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return TableSchema{}, err
	}
	if len(schema.Columns) == 0 {
		return TableSchema{}, httperr.NewNotFound(fmt.Sprintf("table %q not found in catalog", table))
	}

	pkRows, err := s.pool.Query(ctx, `
	SELECT a.attname
	FROM pg_index i
	JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
	WHERE i.indrelid = $1::regclass AND i.indisprimary
	`, table)
	if err != nil {
		return TableSchema{}, err
	}
	defer pkRows.Close()

	for pkRows.Next() {
		var name string
		if err := pkRows.Scan(&name); err != nil {
			return TableSchema{}, err
		}
		schema.PrimaryKeys = append(schema.PrimaryKeys, name)
	}
	if err := pkRows.Err(); err != nil {
		return TableSchema{}, err
	}
	return schema, nil
}
