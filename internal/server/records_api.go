package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/tablegate/tablegate/internal/policy"
	"github.com/tablegate/tablegate/internal/query"
	"github.com/tablegate/tablegate/pkg/httperr"
)

// payloadKeys returns the payload's column names sorted, so denial
// messages are deterministic.
func payloadKeys(payload map[string]any) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func decodePayload(r *http.Request) (map[string]any, error) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, httperr.NewBadRequest("invalid json body")
	}
	return payload, nil
}

func (g *gate) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	payload, err := decodePayload(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	if err := g.authorizer.Authorize(table, policy.OpCreate, payloadKeys(payload)); err != nil {
		writeFailure(w, err)
		return
	}
	t, _ := g.policies.Resolve(table)

	stmt, err := query.Insert(t, payload)
	if err != nil {
		writeFailure(w, err)
		return
	}
	recs, err := g.records.QueryRecords(r.Context(), stmt)
	if err != nil {
		writeExecFailure(w, err)
		return
	}

	env := envelope{Message: fmt.Sprintf("record created in table %q", table)}
	if len(recs) > 0 {
		env.Record = recs[0]
	}
	writeSuccess(w, http.StatusCreated, env)
}

func (g *gate) handleReadRecords(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	filters := map[string]any{}
	for key, vals := range r.URL.Query() {
		col, ok := strings.CutPrefix(key, "filter.")
		if !ok || len(vals) == 0 {
			continue
		}
		filters[col] = vals[0]
	}

	limit := g.policies.ReadLimit()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		offset = n
	}

	if err := g.authorizer.Authorize(table, policy.OpRead, payloadKeys(filters)); err != nil {
		writeFailure(w, err)
		return
	}
	t, _ := g.policies.Resolve(table)

	stmt, err := query.Select(t, filters, limit, offset)
	if err != nil {
		writeFailure(w, err)
		return
	}
	recs, err := g.records.QueryRecords(r.Context(), stmt)
	if err != nil {
		writeExecFailure(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{Records: recs, Count: intPtr(len(recs))})
}

func (g *gate) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	id := r.PathValue("id")

	idColumn := strings.TrimSpace(r.URL.Query().Get("id_column"))
	if idColumn == "" {
		idColumn = g.policies.IDColumn()
	}

	payload, err := decodePayload(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	columns := append(payloadKeys(payload), idColumn)
	if err := g.authorizer.Authorize(table, policy.OpUpdate, columns); err != nil {
		writeFailure(w, err)
		return
	}
	t, _ := g.policies.Resolve(table)

	stmt, err := query.Update(t, idColumn, id, payload)
	if err != nil {
		writeFailure(w, err)
		return
	}
	recs, err := g.records.QueryRecords(r.Context(), stmt)
	if err != nil {
		writeExecFailure(w, err)
		return
	}

	// Zero matched rows is reported, not treated as an error.
	env := envelope{Matched: boolPtr(len(recs) > 0)}
	if len(recs) > 0 {
		env.Record = recs[0]
		env.Message = fmt.Sprintf("record updated in table %q", table)
	} else {
		env.Message = fmt.Sprintf("no record with %s=%s in table %q", idColumn, id, table)
	}
	writeSuccess(w, http.StatusOK, env)
}

func (g *gate) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	id := r.PathValue("id")

	idColumn := strings.TrimSpace(r.URL.Query().Get("id_column"))
	if idColumn == "" {
		idColumn = g.policies.IDColumn()
	}

	if err := g.authorizer.Authorize(table, policy.OpDelete, []string{idColumn}); err != nil {
		writeFailure(w, err)
		return
	}
	t, _ := g.policies.Resolve(table)

	stmt, err := query.Delete(t, idColumn, id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	recs, err := g.records.QueryRecords(r.Context(), stmt)
	if err != nil {
		writeExecFailure(w, err)
		return
	}

	env := envelope{Matched: boolPtr(len(recs) > 0)}
	if len(recs) > 0 {
		env.Message = fmt.Sprintf("record with %s=%s deleted from table %q", idColumn, id, table)
	} else {
		env.Message = fmt.Sprintf("no record with %s=%s in table %q", idColumn, id, table)
	}
	writeSuccess(w, http.StatusOK, env)
}
