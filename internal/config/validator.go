package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rohankatakam/graphbridge/internal/storage"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  ! %s\n", warn))
		}
	}

	return sb.String()
}

// Validate checks the storage and graph sections. An incomplete graph connection is
// a warning: graph writing and reconciliation are disabled, nothing fails.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	c.validateStorage(result, "output", c.Output)
	for _, name := range c.IndexNames() {
		c.validateStorage(result, "outputs."+name, c.Outputs[name])
	}
	c.validateGraph(result)

	if c.Resolver.MaxParallel < 0 {
		result.AddError("resolver.max_parallel must be >= 0 (got %d)", c.Resolver.MaxParallel)
	}

	return result
}

func (c *Config) validateStorage(result *ValidationResult, section string, s StorageConfig) {
	switch s.Type {
	case "", storage.TypeBolt:
		if s.BaseDir == "" {
			result.AddError("%s.base_dir is required for bolt storage", section)
		}
	case storage.TypeSQLite:
		if s.BaseDir == "" && s.DSN == "" {
			result.AddError("%s requires base_dir or dsn for sqlite storage", section)
		}
	case storage.TypePostgres:
		if s.DSN == "" {
			result.AddError("%s.dsn is required for postgres storage", section)
		} else if !strings.HasPrefix(s.DSN, "postgres://") && !strings.HasPrefix(s.DSN, "postgresql://") {
			result.AddError("%s.dsn must start with postgres:// or postgresql://", section)
		} else if strings.Contains(s.DSN, "sslmode=disable") {
			result.AddWarning("%s.dsn has sslmode=disable", section)
		}
	case storage.TypeMemory:
		result.AddWarning("%s uses memory storage; tables are lost when the process exits", section)
	default:
		result.AddError("%s.type %q is not one of bolt, sqlite, postgres, memory", section, s.Type)
	}
}

var graphSchemes = map[string]bool{
	"bolt": true, "bolt+s": true, "bolt+ssc": true,
	"neo4j": true, "neo4j+s": true, "neo4j+ssc": true,
}

func (c *Config) validateGraph(result *ValidationResult) {
	switch c.Graph.QueryBackend {
	case "", QueryBackendColumnar, QueryBackendNeo4j, QueryBackendNeo4jOnly:
	default:
		result.AddError("graph.query_backend %q is not one of columnar, neo4j, neo4j-only", c.Graph.QueryBackend)
	}

	if c.Graph.URI != "" {
		u, err := url.Parse(c.Graph.URI)
		if err != nil {
			result.AddError("graph.uri is invalid: %v", err)
		} else if !graphSchemes[u.Scheme] {
			result.AddError("graph.uri scheme %q is not a bolt or neo4j scheme", u.Scheme)
		}
	}

	graphUsed := c.Graph.Enabled || c.Graph.Only || c.GraphQueryBackend() != QueryBackendColumnar
	if _, ok := c.GraphConnection(); graphUsed && !ok {
		var missing []string
		if c.Graph.URI == "" {
			missing = append(missing, EnvNeo4jURI)
		}
		if c.Graph.Username == "" {
			missing = append(missing, EnvNeo4jUsername)
		}
		if c.Graph.Password == "" {
			missing = append(missing, EnvNeo4jPassword)
		}
		result.AddWarning("graph backend requested but %s not set; graph features are disabled", strings.Join(missing, ", "))
	}

	if c.Graph.Only && !c.Graph.Enabled {
		result.AddWarning("graph.only is set without graph.enabled; no tables will be written")
	}

	for name, size := range map[string]int{
		"batch_size":              c.Graph.BatchSize,
		"entity_batch_size":       c.Graph.EntityBatchSize,
		"relationship_batch_size": c.Graph.RelationshipBatchSize,
	} {
		if size < 0 {
			result.AddError("graph.%s must be >= 0 (got %d)", name, size)
		}
	}
	if c.Graph.MaxBatchesPerSecond < 0 {
		result.AddError("graph.max_batches_per_second must be >= 0")
	}
}
