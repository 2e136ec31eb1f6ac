package server

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tablegate/tablegate/internal/query"
)

// RecordStore executes built statements for the policy-checked
// operations. Every statement the gate builds returns rows (reads
// select, writes use RETURNING), so one method covers all four.
type RecordStore interface {
	QueryRecords(ctx context.Context, stmt query.Statement) ([]map[string]any, error)
}

// RawResult is either a row set or an affected-row count.
type RawResult struct {
	Rows     []map[string]any
	HasRows  bool
	Affected int64
}

// RawQueryRunner executes caller-supplied SQL verbatim. Deliberately a
// separate contract from RecordStore: nothing on this path consults the
// table policy, and only the opt-in raw endpoint holds one.
type RawQueryRunner interface {
	RunRaw(ctx context.Context, sql string, params []any) (RawResult, error)
}

// pgStore is the live implementation of RecordStore, CatalogStore and
// RawQueryRunner. It holds only the pool and is safe for concurrent use.
type pgStore struct {
	pool *pgxpool.Pool
}

func newPGStore(pool *pgxpool.Pool) *pgStore {
	return &pgStore{pool: pool}
}

func (s *pgStore) QueryRecords(ctx context.Context, stmt query.Statement) ([]map[string]any, error) {
	rows, err := s.pool.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *pgStore) RunRaw(ctx context.Context, sql string, params []any) (RawResult, error) {
	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		return RawResult{}, err
	}
	defer rows.Close()

	// Statements that return no row set (plain INSERT/UPDATE/DELETE,
	// DDL) report their affected count instead.
	if len(rows.FieldDescriptions()) == 0 {
		for rows.Next() {
		}
		if err := rows.Err(); err != nil {
			return RawResult{}, err
		}
		return RawResult{Affected: rows.CommandTag().RowsAffected()}, nil
	}

	recs, err := collectRecords(rows)
	if err != nil {
		return RawResult{}, err
	}
	return RawResult{Rows: recs, HasRows: true}, nil
}

func collectRecords(rows pgx.Rows) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()
	out := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rec := make(map[string]any, len(fields))
		for i, f := range fields {
			rec[f.Name] = values[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
