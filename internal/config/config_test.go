package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rohankatakam/graphbridge/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func clearGraphEnv(t *testing.T) {
	for _, key := range []string{
		EnvNeo4jEnable, EnvNeo4jOnly, EnvQueryBackend, EnvNeo4jURI,
		EnvNeo4jUsername, EnvNeo4jPassword, EnvNeo4jDatabase, EnvStorageType, EnvOutputDir, EnvBatchSize,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromFile(t *testing.T) {
	keyring.MockInit()
	clearGraphEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output:
  type: sqlite
  base_dir: /data/main
outputs:
  beta:
    type: bolt
    base_dir: /data/beta
  alpha:
    type: bolt
    base_dir: /data/alpha
graph:
  enabled: true
  uri: bolt://graph:7687
  username: neo4j
  password: secret
  batch_size: 250
  relationship_batch_size: 5000
resolver:
  max_parallel: 2
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Output.Type)
	assert.Equal(t, "/data/main", cfg.Output.BaseDir)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.IndexNames())
	assert.Equal(t, 2, cfg.Resolver.MaxParallel)

	info, ok := cfg.GraphConnection()
	assert.True(t, ok)
	assert.Equal(t, "bolt://graph:7687", info.URI)
	assert.Equal(t, "neo4j", info.Database)

	bc := cfg.BatchConfig()
	assert.Equal(t, 250, bc.EntityBatchSize)
	assert.Equal(t, 5000, bc.RelationshipBatchSize)

	assert.Equal(t, QueryBackendNeo4j, cfg.GraphQueryBackend())
}

func TestEnvOverrides(t *testing.T) {
	keyring.MockInit()
	clearGraphEnv(t)
	t.Setenv(EnvNeo4jEnable, "true")
	t.Setenv(EnvNeo4jOnly, "true")
	t.Setenv(EnvQueryBackend, "NEO4J-ONLY")
	t.Setenv(EnvNeo4jURI, "neo4j://db:7687")
	t.Setenv(EnvNeo4jUsername, "reader")
	t.Setenv(EnvNeo4jPassword, "pw")
	t.Setenv(EnvNeo4jDatabase, "graphs")
	t.Setenv(EnvStorageType, "memory")
	t.Setenv(EnvOutputDir, "/tmp/out")
	t.Setenv(EnvBatchSize, "250")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.True(t, cfg.Graph.Enabled)
	assert.True(t, cfg.Graph.Only)
	assert.Equal(t, QueryBackendNeo4jOnly, cfg.GraphQueryBackend())
	assert.Equal(t, "graphs", cfg.Graph.Database)
	assert.Equal(t, "memory", cfg.Output.Type)
	assert.Equal(t, "/tmp/out", cfg.Output.BaseDir)
	assert.Equal(t, 250, cfg.BatchConfig().EntityBatchSize)

	_, ok := cfg.GraphConnection()
	assert.True(t, ok)
}

func TestPasswordFallsBackToKeyring(t *testing.T) {
	keyring.MockInit()
	clearGraphEnv(t)
	require.NoError(t, NewKeyringManager().SetNeo4jPassword("from-keychain"))
	t.Cleanup(func() { NewKeyringManager().DeleteNeo4jPassword() })

	cfg := Default()
	cfg.Graph.URI = "bolt://localhost:7687"
	cfg.Graph.Username = "neo4j"
	applyEnvOverrides(cfg)
	assert.Equal(t, "from-keychain", cfg.Graph.Password)

	t.Setenv(EnvNeo4jPassword, "from-env")
	cfg = Default()
	cfg.Graph.URI = "bolt://localhost:7687"
	applyEnvOverrides(cfg)
	assert.Equal(t, "from-env", cfg.Graph.Password)
}

func TestGraphQueryBackendDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, QueryBackendColumnar, cfg.GraphQueryBackend())

	cfg.Graph.Enabled = true
	assert.Equal(t, QueryBackendNeo4j, cfg.GraphQueryBackend())

	cfg.Graph.QueryBackend = QueryBackendColumnar
	assert.Equal(t, QueryBackendColumnar, cfg.GraphQueryBackend())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	result := cfg.Validate()
	assert.False(t, result.HasErrors())
	assert.Empty(t, result.Warnings)

	// incomplete connection degrades to a warning
	cfg.Graph.Enabled = true
	cfg.Graph.URI = "bolt://localhost:7687"
	result = cfg.Validate()
	assert.False(t, result.HasErrors())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], EnvNeo4jUsername)
	assert.Contains(t, result.Warnings[0], EnvNeo4jPassword)

	cfg.Graph.URI = "http://localhost:7474"
	cfg.Graph.QueryBackend = "sql"
	cfg.Output = StorageConfig{Type: "postgres"}
	cfg.Outputs = map[string]StorageConfig{"x": {Type: "parquet"}}
	cfg.Graph.BatchSize = -1
	result = cfg.Validate()
	assert.True(t, result.HasErrors())
	assert.Len(t, result.Errors, 5)
	assert.Contains(t, result.Error(), "Configuration validation failed")
}

func TestSaveOmitsPassword(t *testing.T) {
	cfg := Default()
	cfg.Graph.URI = "bolt://localhost:7687"
	cfg.Graph.Password = "secret"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), "bolt://localhost:7687")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(not set)", MaskSecret(""))
	assert.Equal(t, "***", MaskSecret("short"))
	assert.Equal(t, "ab...yz", MaskSecret("abcdefwxyz"))
}

func TestBatchSizeEnvIgnoresGarbage(t *testing.T) {
	keyring.MockInit()
	clearGraphEnv(t)
	t.Setenv(EnvBatchSize, "lots")

	cfg := Default()
	applyEnvOverrides(cfg)
	assert.Equal(t, graph.DefaultBatchSize, cfg.Graph.BatchSize)
}
