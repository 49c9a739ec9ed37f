package graph

// DefaultBatchSize is the row count per graph write transaction
const DefaultBatchSize = 1000

// BatchConfig defines batch sizes for entity and relationship writes.
// Edges carry few properties so they tolerate larger batches on big graphs.
type BatchConfig struct {
	EntityBatchSize       int
	RelationshipBatchSize int
}

// DefaultBatchConfig returns the default sizes for both kinds
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		EntityBatchSize:       DefaultBatchSize,
		RelationshipBatchSize: DefaultBatchSize,
	}
}

// UniformBatchConfig uses the same size for both kinds
func UniformBatchConfig(size int) BatchConfig {
	return BatchConfig{EntityBatchSize: size, RelationshipBatchSize: size}.normalized()
}

// normalized replaces non-positive sizes with the DefaultBatchConfig sizes
func (bc BatchConfig) normalized() BatchConfig {
	def := DefaultBatchConfig()
	if bc.EntityBatchSize <= 0 {
		bc.EntityBatchSize = def.EntityBatchSize
	}
	if bc.RelationshipBatchSize <= 0 {
		bc.RelationshipBatchSize = def.RelationshipBatchSize
	}
	return bc
}

// partition splits n items into consecutive [start, end) ranges of at most size
func partition(n, size int) [][2]int {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
