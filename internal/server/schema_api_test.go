package server

import (
	"net/http"
	"testing"

	"github.com/tablegate/tablegate/pkg/httperr"
)

func TestTableSchema(t *testing.T) {
	t.Parallel()

	def := "nextval('users_id_seq'::regclass)"
	catalog := &fakeCatalogStore{schema: TableSchema{
		Columns: []SchemaColumn{
			{Name: "id", DataType: "integer", Nullable: false, Default: &def},
			{Name: "name", DataType: "text", Nullable: true},
			{Name: "ssn", DataType: "text", Nullable: true},
		},
		PrimaryKeys: []string{"id"},
	}}
	h := newTestHandler(t, nil, catalog, nil)

	rec, env := doJSON(t, h, http.MethodGet, "/v1/tables/users/schema", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if env.TableName != "users" {
		t.Fatalf("table_name=%q", env.TableName)
	}
	// True catalog schema, not the policy-filtered column set.
	if len(env.Columns) != 3 || env.Columns[2].Name != "ssn" {
		t.Fatalf("columns=%v", env.Columns)
	}
	if len(env.PrimaryKeys) != 1 || env.PrimaryKeys[0] != "id" {
		t.Fatalf("primary_keys=%v", env.PrimaryKeys)
	}
}

func TestTableSchemaNotFound(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalogStore{err: httperr.NewNotFound(`table "users" not found in catalog`)}
	h := newTestHandler(t, nil, catalog, nil)

	rec, _ := doJSON(t, h, http.MethodGet, "/v1/tables/users/schema", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestTableSchemaDenied(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalogStore{}
	h := newTestHandler(t, nil, catalog, nil)

	// Not configured at all.
	rec, _ := doJSON(t, h, http.MethodGet, "/v1/tables/secrets/schema", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rec.Code)
	}

	// Configured, but without read.
	rec, env := doJSON(t, h, http.MethodGet, "/v1/tables/audit/schema", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rec.Code)
	}
	if env.Message != "operation not permitted for table" {
		t.Fatalf("message=%q", env.Message)
	}

	if len(catalog.tables) != 0 {
		t.Fatalf("catalog reached on denial")
	}
}
