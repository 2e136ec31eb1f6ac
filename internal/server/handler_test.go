package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tablegate/tablegate/internal/policy"
	"github.com/tablegate/tablegate/internal/query"
)

func testPolicies(t *testing.T) *policy.Store {
	t.Helper()

	store, err := policy.ParseYAML([]byte(`
version: 1
defaults:
  read_limit: 10
tables:
  - name: users
    allowed_columns: [id, name, email]
    allowed_operations: [create, read]
  - name: notes
    allowed_columns: [id, body]
  - name: audit
    allowed_columns: [id, entry]
    allowed_operations: [create]
`))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

type fakeRecordStore struct {
	records []map[string]any
	err     error
	calls   []query.Statement
}

func (f *fakeRecordStore) QueryRecords(_ context.Context, stmt query.Statement) ([]map[string]any, error) {
	f.calls = append(f.calls, stmt)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeCatalogStore struct {
	schema TableSchema
	err    error
	tables []string
}

func (f *fakeCatalogStore) DescribeTable(_ context.Context, table string) (TableSchema, error) {
	f.tables = append(f.tables, table)
	if f.err != nil {
		return TableSchema{}, f.err
	}
	return f.schema, nil
}

type fakeRawRunner struct {
	res        RawResult
	err        error
	lastSQL    string
	lastParams []any
}

func (f *fakeRawRunner) RunRaw(_ context.Context, sql string, params []any) (RawResult, error) {
	f.lastSQL = sql
	f.lastParams = params
	if f.err != nil {
		return RawResult{}, f.err
	}
	return f.res, nil
}

func newTestHandler(t *testing.T, records RecordStore, catalog CatalogStore, raw RawQueryRunner) http.Handler {
	t.Helper()

	if records == nil {
		records = &fakeRecordStore{}
	}
	if catalog == nil {
		catalog = &fakeCatalogStore{}
	}
	h, err := NewHandlerWithOptions(HandlerOptions{
		Policies: testPolicies(t),
		Records:  records,
		Catalog:  catalog,
		Raw:      raw,
	})
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	newTestHandler(t, nil, nil, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "ok\n" {
		t.Fatalf("body=%q", string(body))
	}
}

func TestStartupFailsOnBadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte("version: 9\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POLICY_PATH", path)

	if _, err := NewHandlerWithOptions(HandlerOptions{
		Records: &fakeRecordStore{},
		Catalog: &fakeCatalogStore{},
	}); err == nil {
		t.Fatalf("expected startup error for malformed policy")
	}
}
