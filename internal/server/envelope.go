package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tablegate/tablegate/pkg/httperr"
)

// envelope is the one terminal response shape for every operation.
// Exactly one of the payload groups is populated per request.
type envelope struct {
	Status      string           `json:"status"`
	TraceID     string           `json:"trace_id"`
	Message     string           `json:"message,omitempty"`
	Tables      []tableInfo      `json:"tables,omitempty"`
	Record      map[string]any   `json:"record,omitempty"`
	Records     []map[string]any `json:"records,omitempty"`
	Count       *int             `json:"count,omitempty"`
	Matched     *bool            `json:"matched,omitempty"`
	Affected    *int64           `json:"affected,omitempty"`
	TableName   string           `json:"table_name,omitempty"`
	Columns     []SchemaColumn   `json:"columns,omitempty"`
	PrimaryKeys []string         `json:"primary_keys,omitempty"`
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func int64Ptr(v int64) *int64 { return &v }

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	env.TraceID = uuid.NewString()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeSuccess(w http.ResponseWriter, status int, env envelope) {
	env.Status = "success"
	writeEnvelope(w, status, env)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeEnvelope(w, status, envelope{Status: "error", Message: msg})
}

// writeFailure maps the error taxonomy onto statuses. Anything outside
// the taxonomy is an internal fault, not an execution failure.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case httperr.IsBadRequest(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case httperr.IsForbidden(err):
		writeError(w, http.StatusForbidden, err.Error())
	case httperr.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeExecFailure reports an executor failure with the adapter's
// detail. Database errors are surfaced as-is and never retried.
func writeExecFailure(w http.ResponseWriter, err error) {
	if pgErr, ok := errors.AsType[*pgconn.PgError](err); ok && pgErr != nil {
		writeError(w, http.StatusBadGateway, pgErr.Message)
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}
