package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// rawQueryAPI executes caller-supplied SQL verbatim. It is wired apart
// from the gate on purpose: the policy store and authorizer are not
// reachable from here, and the endpoint only exists when explicitly
// enabled (see NewHandlerWithOptions).
type rawQueryAPI struct {
	runner RawQueryRunner
}

type rawQueryRequest struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

func (q *rawQueryAPI) handleRawQuery(w http.ResponseWriter, r *http.Request) {
	var req rawQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(w, http.StatusBadRequest, "sql is required")
		return
	}

	res, err := q.runner.RunRaw(r.Context(), req.SQL, req.Params)
	if err != nil {
		writeExecFailure(w, err)
		return
	}

	if res.HasRows {
		writeSuccess(w, http.StatusOK, envelope{Records: res.Rows, Count: intPtr(len(res.Rows))})
		return
	}
	writeSuccess(w, http.StatusOK, envelope{
		Affected: int64Ptr(res.Affected),
		Message:  fmt.Sprintf("query executed, %d rows affected", res.Affected),
	})
}
