package server

import "net/http"

type tableInfo struct {
	Name              string   `json:"name"`
	AllowedOperations []string `json:"allowed_operations"`
	AllowedColumns    []string `json:"allowed_columns"`
}

func (g *gate) handleListTables(w http.ResponseWriter, _ *http.Request) {
	tables := g.policies.Tables()
	infos := make([]tableInfo, 0, len(tables))
	for _, t := range tables {
		infos = append(infos, tableInfo{
			Name:              t.Name,
			AllowedOperations: t.Operations,
			AllowedColumns:    t.Columns,
		})
	}
	writeSuccess(w, http.StatusOK, envelope{Tables: infos})
}
