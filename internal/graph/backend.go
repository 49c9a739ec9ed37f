package graph

import (
	"context"

	"github.com/rohankatakam/graphbridge/internal/table"
)

// Driver opens sessions against a graph database.
// Implementations must be safe for concurrent use.
type Driver interface {
	// OpenSession opens a session routed by mode. An empty database selects the server default.
	OpenSession(ctx context.Context, database string, mode RoutingMode) (Session, error)

	// VerifyConnectivity checks that a server is reachable with the configured credentials
	VerifyConnectivity(ctx context.Context) error

	// Close releases pooled connections
	Close(ctx context.Context) error
}

// Session runs queries; each Run is one transaction.
// A session is used by a single goroutine.
type Session interface {
	Run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	Close(ctx context.Context) error
}

// TableSource yields entity and relationship tables as the graph currently holds them
type TableSource interface {
	LoadEntities(ctx context.Context) (*table.Table, error)
	LoadRelationships(ctx context.Context) (*table.Table, error)
}
