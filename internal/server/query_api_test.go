package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRawQueryRows(t *testing.T) {
	t.Parallel()

	runner := &fakeRawRunner{res: RawResult{
		Rows:    []map[string]any{{"n": float64(1)}},
		HasRows: true,
	}}
	h := newTestHandler(t, nil, nil, runner)

	rec, env := doJSON(t, h, http.MethodPost, "/v1/query", `{"sql":"SELECT 1 AS n","params":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if env.Count == nil || *env.Count != 1 {
		t.Fatalf("count=%v", env.Count)
	}
	if runner.lastSQL != "SELECT 1 AS n" {
		t.Fatalf("sql passed through modified: %q", runner.lastSQL)
	}
}

func TestRawQueryAffected(t *testing.T) {
	t.Parallel()

	runner := &fakeRawRunner{res: RawResult{Affected: 3}}
	h := newTestHandler(t, nil, nil, runner)

	rec, env := doJSON(t, h, http.MethodPost, "/v1/query", `{"sql":"DELETE FROM t WHERE x = $1","params":[5]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if env.Affected == nil || *env.Affected != 3 {
		t.Fatalf("affected=%v", env.Affected)
	}
	if len(runner.lastParams) != 1 || runner.lastParams[0] != float64(5) {
		t.Fatalf("params=%v", runner.lastParams)
	}
}

func TestRawQueryRequiresSQL(t *testing.T) {
	t.Parallel()

	runner := &fakeRawRunner{}
	h := newTestHandler(t, nil, nil, runner)

	rec, env := doJSON(t, h, http.MethodPost, "/v1/query", `{"sql":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
	if env.Message != "sql is required" {
		t.Fatalf("message=%q", env.Message)
	}
}

func TestRawQueryUnregisteredByDefault(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"sql":"SELECT 1"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
}
