package storage

import (
	"context"
	"errors"

	"github.com/rohankatakam/graphbridge/internal/table"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// TableStore is the columnar snapshot store for one index.
// Tables are addressed by name; a write replaces any previous table of that name.
type TableStore interface {
	// Exists reports whether a table named name has been written
	Exists(ctx context.Context, name string) (bool, error)

	// Read loads a table; wraps ErrNotFound when absent
	Read(ctx context.Context, name string) (*table.Table, error)

	// Write stores t under name
	Write(ctx context.Context, t *table.Table, name string) error

	// WriteBlob stores an opaque artifact (e.g. a GraphML snapshot)
	WriteBlob(ctx context.Context, name string, data []byte) error

	// Close releases the underlying handle
	Close() error
}
