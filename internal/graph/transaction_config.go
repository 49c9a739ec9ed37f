package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Operation names used for transaction configs and metadata
const (
	OpEntityMerge       = "entity_merge"
	OpRelationshipMerge = "relationship_merge"
	OpIndexCreation     = "index_creation"
	OpGraphRead         = "graph_read"
	OpHealthCheck       = "health_check"
)

// TransactionConfig defines timeout and metadata for transactions.
// Metadata is logged by Neo4j and visible in query.log.
type TransactionConfig struct {
	Timeout  time.Duration
	Metadata map[string]any
}

// DefaultTransactionConfigs returns configs per operation type
func DefaultTransactionConfigs() map[string]TransactionConfig {
	return map[string]TransactionConfig{
		OpEntityMerge: {
			Timeout: 3 * time.Minute,
			Metadata: map[string]any{
				"operation": OpEntityMerge,
				"type":      "write",
			},
		},
		OpRelationshipMerge: {
			Timeout: 3 * time.Minute,
			Metadata: map[string]any{
				"operation": OpRelationshipMerge,
				"type":      "write",
			},
		},
		OpIndexCreation: {
			Timeout: 5 * time.Minute, // constraint creation scans existing nodes
			Metadata: map[string]any{
				"operation": OpIndexCreation,
				"type":      "schema",
			},
		},
		OpGraphRead: {
			Timeout: 2 * time.Minute,
			Metadata: map[string]any{
				"operation": OpGraphRead,
				"type":      "read",
			},
		},
		OpHealthCheck: {
			Timeout: 5 * time.Second,
			Metadata: map[string]any{
				"operation": OpHealthCheck,
				"type":      "read",
			},
		},
	}
}

// AsNeo4jConfig converts to Neo4j transaction config functions
func (tc TransactionConfig) AsNeo4jConfig() []func(*neo4j.TransactionConfig) {
	configs := []func(*neo4j.TransactionConfig){}

	if tc.Timeout > 0 {
		configs = append(configs, neo4j.WithTxTimeout(tc.Timeout))
	}
	if len(tc.Metadata) > 0 {
		configs = append(configs, neo4j.WithTxMetadata(tc.Metadata))
	}

	return configs
}

// GetConfigForOperation retrieves the transaction config for an operation.
// Unknown operations get a 60s timeout.
func GetConfigForOperation(operation string) TransactionConfig {
	if config, ok := DefaultTransactionConfigs()[operation]; ok {
		return config
	}

	return TransactionConfig{
		Timeout: 60 * time.Second,
		Metadata: map[string]any{
			"operation": operation,
			"type":      "unknown",
		},
	}
}

// WithCustomMetadata returns a copy of the config with one extra metadata entry
func (tc TransactionConfig) WithCustomMetadata(key string, value any) TransactionConfig {
	newConfig := TransactionConfig{
		Timeout:  tc.Timeout,
		Metadata: make(map[string]any, len(tc.Metadata)+1),
	}
	for k, v := range tc.Metadata {
		newConfig.Metadata[k] = v
	}
	newConfig.Metadata[key] = value
	return newConfig
}

type operationKey struct{}

// WithOperation tags ctx with the operation name used to pick a TransactionConfig
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey{}, operation)
}

// OperationFrom returns the operation tagged on ctx, if any
func OperationFrom(ctx context.Context) string {
	op, _ := ctx.Value(operationKey{}).(string)
	return op
}

type batchKey struct{}

// WithBatch tags ctx with the sequence number of a write batch. It is added to the
// transaction metadata as "batch".
func WithBatch(ctx context.Context, seq int) context.Context {
	return context.WithValue(ctx, batchKey{}, seq)
}

// configFor returns the TransactionConfig for op plus any batch tag carried by ctx
func configFor(ctx context.Context, op string) TransactionConfig {
	cfg := GetConfigForOperation(op)
	if seq, ok := ctx.Value(batchKey{}).(int); ok {
		cfg = cfg.WithCustomMetadata("batch", seq)
	}
	return cfg
}
