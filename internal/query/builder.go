// Package query builds parameterized SQL statements for the
// policy-checked operations. Caller-supplied values never appear in the
// statement text; they travel as positional arguments. Identifiers have
// already passed the column allow-list and are additionally quoted.
package query

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/tablegate/tablegate/internal/policy"
	"github.com/tablegate/tablegate/pkg/httperr"
)

// Statement is SQL text with $n placeholders plus its ordered arguments.
type Statement struct {
	SQL  string
	Args []any
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote(n)
	}
	return strings.Join(quoted, ", ")
}

// payloadColumns restricts the policy's declared column order to the
// keys present in payload, so statement text is deterministic regardless
// of map iteration order.
func payloadColumns(t policy.Table, payload map[string]any) []string {
	cols := make([]string, 0, len(payload))
	for _, c := range t.Columns {
		if _, ok := payload[c]; ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// Insert builds INSERT ... RETURNING over the payload's columns. The
// returned row covers the table's allowed columns so the caller sees
// server-assigned fields without leaking unlisted ones.
func Insert(t policy.Table, payload map[string]any) (Statement, error) {
	if len(payload) == 0 {
		return Statement{}, httperr.NewBadRequest("payload is required")
	}
	cols := payloadColumns(t, payload)

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quote(t.Name))
	b.WriteString(" (")
	b.WriteString(quoteList(cols))
	b.WriteString(") VALUES (")

	args := make([]any, 0, len(cols))
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("$" + strconv.Itoa(i+1))
		args = append(args, payload[c])
	}
	b.WriteString(") RETURNING ")
	b.WriteString(quoteList(t.Columns))

	return Statement{SQL: b.String(), Args: args}, nil
}

// Select builds SELECT over the table's allowed columns with equality
// filters conjoined by AND, plus LIMIT/OFFSET as parameters. limit 0 is
// a legitimate empty page.
func Select(t policy.Table, filters map[string]any, limit int, offset int) (Statement, error) {
	if limit < 0 {
		return Statement{}, httperr.NewBadRequest("limit must be non-negative")
	}
	if offset < 0 {
		return Statement{}, httperr.NewBadRequest("offset must be non-negative")
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(quoteList(t.Columns))
	b.WriteString(" FROM ")
	b.WriteString(quote(t.Name))

	var args []any
	for _, c := range payloadColumns(t, filters) {
		if len(args) == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, filters[c])
		b.WriteString(quote(c))
		b.WriteString(" = $" + strconv.Itoa(len(args)))
	}

	args = append(args, limit)
	b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	args = append(args, offset)
	b.WriteString(" OFFSET $" + strconv.Itoa(len(args)))

	return Statement{SQL: b.String(), Args: args}, nil
}

// Update builds UPDATE ... WHERE idColumn = id RETURNING the allowed
// columns. A zero-row result means no match, which the caller reports as
// success rather than failure.
func Update(t policy.Table, idColumn string, id any, payload map[string]any) (Statement, error) {
	if len(payload) == 0 {
		return Statement{}, httperr.NewBadRequest("payload is required")
	}
	cols := payloadColumns(t, payload)

	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(quote(t.Name))
	b.WriteString(" SET ")

	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		args = append(args, payload[c])
		b.WriteString(quote(c))
		b.WriteString(" = $" + strconv.Itoa(len(args)))
	}

	args = append(args, id)
	b.WriteString(" WHERE ")
	b.WriteString(quote(idColumn))
	b.WriteString(" = $" + strconv.Itoa(len(args)))
	b.WriteString(" RETURNING ")
	b.WriteString(quoteList(t.Columns))

	return Statement{SQL: b.String(), Args: args}, nil
}

// Delete builds DELETE ... WHERE idColumn = id RETURNING the identifier,
// so a zero-row result distinguishes no-match from success.
func Delete(t policy.Table, idColumn string, id any) (Statement, error) {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(quote(t.Name))
	b.WriteString(" WHERE ")
	b.WriteString(quote(idColumn))
	b.WriteString(" = $1 RETURNING ")
	b.WriteString(quote(idColumn))

	return Statement{SQL: b.String(), Args: []any{id}}, nil
}
