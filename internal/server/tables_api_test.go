package server

import (
	"net/http"
	"testing"
)

func TestListTables(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil, nil, nil)

	rec, env := doJSON(t, h, http.MethodGet, "/v1/tables", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if len(env.Tables) != 3 {
		t.Fatalf("tables=%v", env.Tables)
	}
	// Declaration order is preserved.
	if env.Tables[0].Name != "users" || env.Tables[1].Name != "notes" || env.Tables[2].Name != "audit" {
		t.Fatalf("order=%v", env.Tables)
	}

	users := env.Tables[0]
	if len(users.AllowedOperations) != 2 || users.AllowedOperations[0] != "create" {
		t.Fatalf("operations=%v", users.AllowedOperations)
	}
	if len(users.AllowedColumns) != 3 {
		t.Fatalf("columns=%v", users.AllowedColumns)
	}
}
