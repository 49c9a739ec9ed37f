// Package table holds the schema-less tabular values exchanged between the
// pipeline, the columnar store and the graph backend.
package table

import (
	"encoding/json"
	"fmt"
)

// Well-known column names
const (
	ColumnTitle  = "title"
	ColumnSource = "source"
	ColumnTarget = "target"
	ColumnWeight = "weight"
)

// Row maps column name to value. A missing key and a Null value are equivalent.
type Row map[string]Value

// Get returns the value stored under col (Null when absent)
func (r Row) Get(col string) Value {
	if r == nil {
		return Null()
	}
	return r[col]
}

// Has reports whether col carries a non-null value
func (r Row) Has(col string) bool {
	return !r.Get(col).IsNull()
}

// Clone returns a shallow copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered sequence of rows sharing a column superset.
// Columns are discovered as rows are appended.
type Table struct {
	Columns []string
	Rows    []Row

	index map[string]struct{}
}

// New creates an empty table with the given leading columns
func New(columns ...string) *Table {
	t := &Table{index: make(map[string]struct{}, len(columns))}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

func (t *Table) ensureIndex() {
	if t.index != nil {
		return
	}
	t.index = make(map[string]struct{}, len(t.Columns))
	for _, existing := range t.Columns {
		t.index[existing] = struct{}{}
	}
}

func (t *Table) addColumn(c string) {
	t.ensureIndex()
	if _, ok := t.index[c]; ok {
		return
	}
	t.index[c] = struct{}{}
	t.Columns = append(t.Columns, c)
}

// Append adds a row, extending Columns with keys not seen before.
// New keys are added in sorted order so column discovery is deterministic.
func (t *Table) Append(row Row) {
	for _, k := range sortedKeys(row) {
		t.addColumn(k)
	}
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumns reports whether every name is a declared column
func (t *Table) HasColumns(names ...string) bool {
	if t == nil {
		return false
	}
	for _, n := range names {
		if !t.hasColumn(n) {
			return false
		}
	}
	return true
}

// hasColumn does not build the index so read-only tables stay safe to share
func (t *Table) hasColumn(name string) bool {
	if t.index != nil {
		_, ok := t.index[name]
		return ok
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Filter returns a new table with the rows for which keep returns true.
// Columns are preserved even when no rows survive.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.Columns...)
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Clone deep-copies rows so the copy can be modified independently
func (t *Table) Clone() *Table {
	out := New(t.Columns...)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// FromRecords builds a table from native records such as driver results
func FromRecords(records []map[string]any, leading ...string) *Table {
	t := New(leading...)
	for _, rec := range records {
		row := make(Row, len(rec))
		for k, v := range rec {
			row[k] = ValueOf(v)
		}
		t.Append(row)
	}
	return t
}

// Records converts the table into native maps, dropping null cells
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, r := range t.Rows {
		rec := make(map[string]any, len(r))
		for k, v := range r {
			if !v.IsNull() {
				rec[k] = v.Native()
			}
		}
		out[i] = rec
	}
	return out
}

// Column returns every value of col in row order
func (t *Table) Column(col string) []Value {
	out := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Get(col)
	}
	return out
}

type wireTable struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// MarshalJSON implements json.Marshaler
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := t.Rows
	if rows == nil {
		rows = []Row{}
	}
	return json.Marshal(wireTable{Columns: t.Columns, Rows: rows})
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Table) UnmarshalJSON(data []byte) error {
	var w wireTable
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode table: %w", err)
	}
	*t = Table{}
	for _, c := range w.Columns {
		t.addColumn(c)
	}
	for _, r := range w.Rows {
		t.Append(r)
	}
	return nil
}
