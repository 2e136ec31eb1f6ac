package server

import (
	"net/http"

	"github.com/tablegate/tablegate/internal/policy"
	"github.com/tablegate/tablegate/pkg/httperr"
)

// Schema describe is diagnostic: it requires read access to the table
// but reports the catalog's truth, not the policy-filtered column set.
func (g *gate) handleTableSchema(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	if err := g.authorizer.Authorize(table, policy.OpRead, nil); err != nil {
		writeFailure(w, err)
		return
	}

	schema, err := g.catalog.DescribeTable(r.Context(), table)
	if err != nil {
		if httperr.IsNotFound(err) {
			writeFailure(w, err)
			return
		}
		writeExecFailure(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{
		TableName:   table,
		Columns:     schema.Columns,
		PrimaryKeys: schema.PrimaryKeys,
	})
}
