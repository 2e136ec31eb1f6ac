// Package authz decides whether an operation may touch a table and the
// columns it references, against the loaded table policy.
package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/tablegate/tablegate/internal/policy"
	"github.com/tablegate/tablegate/pkg/httperr"
)

// (table, operation) pairs from the policy store become casbin policy
// rows; requests are matched on exact table and operation.
const modelText = `
[request_definition]
r = obj, act

[policy_definition]
p = obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.obj == p.obj && r.act == p.act
`

type Authorizer struct {
	store    *policy.Store
	enforcer *casbin.Enforcer
}

func New(store *policy.Store) (*Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	for _, t := range store.Tables() {
		for _, op := range t.Operations {
			if _, err := enforcer.AddPolicy(t.Name, op); err != nil {
				return nil, err
			}
		}
	}
	return &Authorizer{store: store, enforcer: enforcer}, nil
}

// Authorize returns nil when operation on table may reference every
// column in columns, or a ForbiddenError naming the first violation.
// An unconfigured table is denied outright; the column check applies to
// create/update payload keys, read filter keys, and identifier columns
// alike.
func (a *Authorizer) Authorize(table string, operation string, columns []string) error {
	t, ok := a.store.Resolve(table)
	if !ok {
		return httperr.NewForbidden("table not configured")
	}

	allowed, err := a.enforcer.Enforce(table, operation)
	if err != nil {
		return err
	}
	if !allowed {
		return httperr.NewForbidden("operation not permitted for table")
	}

	for _, c := range columns {
		if !t.ColumnAllowed(c) {
			return httperr.NewForbidden(fmt.Sprintf("column %q not permitted for table %q", c, table))
		}
	}
	return nil
}
