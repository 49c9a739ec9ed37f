package resolver

import (
	"github.com/rohankatakam/graphbridge/internal/storage"
	"github.com/rohankatakam/graphbridge/internal/table"
)

// IndexDescriptor names one index and the store holding its tables
type IndexDescriptor struct {
	Name  string
	Store storage.TableStore
}

// Slot holds one resolved name: a single table in single-index mode, or one
// table per index that has it in multi-index mode
type Slot struct {
	Table  *table.Table
	Tables []*table.Table
}

// Bundle is the result of one Resolve call. It is built per call and never cached.
type Bundle struct {
	Tables     map[string]Slot
	MultiIndex bool
	IndexCount int
	IndexNames []string
}

func newBundle(multi bool, names []string) *Bundle {
	return &Bundle{
		Tables:     make(map[string]Slot),
		MultiIndex: multi,
		IndexCount: len(names),
		IndexNames: names,
	}
}

// Single returns the table for name in single-index mode; nil marks an absent optional table
func (b *Bundle) Single(name string) *table.Table {
	return b.Tables[name].Table
}

// List returns the per-index tables for name in multi-index mode, in index order.
// Indexes lacking an optional table are omitted, so the list may be shorter than IndexCount.
func (b *Bundle) List(name string) []*table.Table {
	return b.Tables[name].Tables
}

// Complete reports whether every index supplied name
func (b *Bundle) Complete(name string) bool {
	slot, ok := b.Tables[name]
	if !ok {
		return false
	}
	if !b.MultiIndex {
		return slot.Table != nil
	}
	return len(slot.Tables) == b.IndexCount
}

// Has reports whether name was requested
func (b *Bundle) Has(name string) bool {
	_, ok := b.Tables[name]
	return ok
}
