package server

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tablegate/tablegate/internal/policy"
	"github.com/tablegate/tablegate/pkg/authz"
)

type HandlerOptions struct {
	Policies *policy.Store
	Records  RecordStore
	Catalog  CatalogStore

	// Raw enables the policy-bypassing query endpoint. Leaving it nil
	// keeps the endpoint unregistered unless RAW_QUERY_UNSAFE_ALLOW=1.
	Raw RawQueryRunner
}

// gate carries the per-request collaborators. It holds no mutable
// state; handlers are safe to invoke concurrently.
type gate struct {
	policies   *policy.Store
	authorizer *authz.Authorizer
	records    RecordStore
	catalog    CatalogStore
}

func NewHandler() (http.Handler, error) {
	return NewHandlerWithOptions(HandlerOptions{})
}

func NewHandlerWithOptions(opts HandlerOptions) (http.Handler, error) {
	policies := opts.Policies
	if policies == nil {
		path := os.Getenv("POLICY_PATH")
		if path == "" {
			path = "policy.yaml"
		}
		p, err := policy.Load(path)
		if err != nil {
			return nil, err
		}
		policies = p
	}

	authorizer, err := authz.New(policies)
	if err != nil {
		return nil, err
	}

	records := opts.Records
	catalog := opts.Catalog
	raw := opts.Raw
	rawEnabled := raw != nil || os.Getenv("RAW_QUERY_UNSAFE_ALLOW") == "1"

	if records == nil || catalog == nil || (raw == nil && rawEnabled) {
		pool, err := pgxpool.New(context.Background(), dbDSNFromEnv())
		if err != nil {
			return nil, err
		}
		pg := newPGStore(pool)
		if records == nil {
			records = pg
		}
		if catalog == nil {
			catalog = pg
		}
		if raw == nil && rawEnabled {
			raw = pg
		}
	}

	g := &gate{
		policies:   policies,
		authorizer: authorizer,
		records:    records,
		catalog:    catalog,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /v1/tables", g.handleListTables)
	mux.HandleFunc("POST /v1/tables/{table}/records", g.handleCreateRecord)
	mux.HandleFunc("GET /v1/tables/{table}/records", g.handleReadRecords)
	mux.HandleFunc("PATCH /v1/tables/{table}/records/{id}", g.handleUpdateRecord)
	mux.HandleFunc("DELETE /v1/tables/{table}/records/{id}", g.handleDeleteRecord)
	mux.HandleFunc("GET /v1/tables/{table}/schema", g.handleTableSchema)

	if rawEnabled {
		log.Printf("raw query endpoint enabled; statements on /v1/query bypass table policy")
		q := &rawQueryAPI{runner: raw}
		mux.HandleFunc("POST /v1/query", q.handleRawQuery)
	}

	return mux, nil
}
