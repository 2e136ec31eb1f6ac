// Package policy loads and serves the declarative table policy: which
// tables the gate may touch, which columns are visible, and which
// operations are permitted per table. The store is built once at startup
// and is immutable afterwards, so lookups need no locking.
package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	OpCreate = "create"
	OpRead   = "read"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Configuration-overridable defaults (see the `defaults` block).
const (
	DefaultIDColumn  = "id"
	DefaultReadLimit = 100
)

var allOperations = []string{OpCreate, OpRead, OpUpdate, OpDelete}

type document struct {
	Version  int         `yaml:"version"`
	Defaults defaults    `yaml:"defaults"`
	Tables   []tableDecl `yaml:"tables"`
}

type defaults struct {
	IDColumn  string `yaml:"id_column"`
	ReadLimit *int   `yaml:"read_limit"`
}

type tableDecl struct {
	Name              string   `yaml:"name"`
	AllowedColumns    []string `yaml:"allowed_columns"`
	AllowedOperations []string `yaml:"allowed_operations"`
}

// Table is one table's normalized rules. Columns keep declaration order
// (display order); membership checks use the sets below.
type Table struct {
	Name       string
	Columns    []string
	Operations []string

	columnSet    map[string]struct{}
	operationSet map[string]struct{}
}

func (t Table) ColumnAllowed(column string) bool {
	_, ok := t.columnSet[column]
	return ok
}

func (t Table) OperationAllowed(operation string) bool {
	_, ok := t.operationSet[operation]
	return ok
}

// Store resolves table names to their rules. A table absent from the
// store has zero allowed operations.
type Store struct {
	idColumn  string
	readLimit int
	tables    map[string]Table
	order     []string
}

// ParseYAML validates a policy document. Any violation here is a startup
// configuration error, never a per-request error.
func ParseYAML(b []byte) (*Store, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	if doc.Version != 1 {
		return nil, errors.New("policy: unsupported version")
	}
	if len(doc.Tables) == 0 {
		return nil, errors.New("policy: no tables declared")
	}

	s := &Store{
		idColumn:  strings.TrimSpace(doc.Defaults.IDColumn),
		readLimit: DefaultReadLimit,
		tables:    make(map[string]Table, len(doc.Tables)),
	}
	if s.idColumn == "" {
		s.idColumn = DefaultIDColumn
	}
	if doc.Defaults.ReadLimit != nil {
		if *doc.Defaults.ReadLimit <= 0 {
			return nil, errors.New("policy: defaults.read_limit must be positive")
		}
		s.readLimit = *doc.Defaults.ReadLimit
	}

	for _, decl := range doc.Tables {
		t, err := normalizeTable(decl)
		if err != nil {
			return nil, err
		}
		if _, dup := s.tables[t.Name]; dup {
			return nil, fmt.Errorf("policy: duplicate table %q", t.Name)
		}
		s.tables[t.Name] = t
		s.order = append(s.order, t.Name)
	}
	return s, nil
}

// Load reads and parses the policy document at path.
func Load(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(b)
}

func normalizeTable(decl tableDecl) (Table, error) {
	name := strings.TrimSpace(decl.Name)
	if name == "" {
		return Table{}, errors.New("policy: table name is required")
	}

	t := Table{
		Name:         name,
		columnSet:    make(map[string]struct{}),
		operationSet: make(map[string]struct{}),
	}

	for _, c := range decl.AllowedColumns {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := t.columnSet[c]; dup {
			return Table{}, fmt.Errorf("policy: table %q: duplicate column %q", name, c)
		}
		t.columnSet[c] = struct{}{}
		t.Columns = append(t.Columns, c)
	}
	if len(t.Columns) == 0 {
		return Table{}, fmt.Errorf("policy: table %q: no allowed columns", name)
	}

	// An omitted operation list means all four operations are allowed.
	ops := decl.AllowedOperations
	if ops == nil {
		ops = allOperations
	}
	for _, op := range ops {
		op = strings.ToLower(strings.TrimSpace(op))
		switch op {
		case OpCreate, OpRead, OpUpdate, OpDelete:
		case "":
			continue
		default:
			return Table{}, fmt.Errorf("policy: table %q: unknown operation %q", name, op)
		}
		if _, dup := t.operationSet[op]; dup {
			continue
		}
		t.operationSet[op] = struct{}{}
		t.Operations = append(t.Operations, op)
	}
	if len(t.Operations) == 0 {
		return Table{}, fmt.Errorf("policy: table %q: no allowed operations", name)
	}
	return t, nil
}

// Resolve returns the rules for table, or ok=false when the table is not
// configured.
func (s *Store) Resolve(table string) (Table, bool) {
	t, ok := s.tables[table]
	return t, ok
}

// Tables returns every configured table in declaration order.
func (s *Store) Tables() []Table {
	out := make([]Table, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tables[name])
	}
	return out
}

func (s *Store) IDColumn() string { return s.idColumn }

func (s *Store) ReadLimit() int { return s.readLimit }
