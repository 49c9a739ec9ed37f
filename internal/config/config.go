package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rohankatakam/graphbridge/internal/graph"
	"github.com/rohankatakam/graphbridge/internal/storage"
	"github.com/spf13/viper"
)

// Query backends accepted by graph.query_backend
const (
	QueryBackendColumnar  = "columnar"
	QueryBackendNeo4j     = "neo4j"
	QueryBackendNeo4jOnly = "neo4j-only"
)

// Config holds all configuration settings
type Config struct {
	// Output is the single-index columnar store
	Output StorageConfig `yaml:"output" mapstructure:"output"`

	// Outputs holds named indexes; when non-empty, resolution runs in multi-index mode
	Outputs map[string]StorageConfig `yaml:"outputs" mapstructure:"outputs"`

	Graph     GraphConfig    `yaml:"graph" mapstructure:"graph"`
	Snapshots SnapshotConfig `yaml:"snapshots" mapstructure:"snapshots"`
	Resolver  ResolverConfig `yaml:"resolver" mapstructure:"resolver"`
	Logging   LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

type StorageConfig struct {
	Type    string `yaml:"type" mapstructure:"type"` // "bolt", "sqlite", "postgres", "memory"
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

type GraphConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"` // write the graph during materialize
	Only         bool   `yaml:"only" mapstructure:"only"`       // skip the columnar write
	QueryBackend string `yaml:"query_backend" mapstructure:"query_backend"`

	URI      string `yaml:"uri" mapstructure:"uri"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`

	BatchSize             int     `yaml:"batch_size" mapstructure:"batch_size"`
	EntityBatchSize       int     `yaml:"entity_batch_size" mapstructure:"entity_batch_size"`
	RelationshipBatchSize int     `yaml:"relationship_batch_size" mapstructure:"relationship_batch_size"`
	EnsureConstraints     bool    `yaml:"ensure_constraints" mapstructure:"ensure_constraints"`
	MaxBatchesPerSecond   float64 `yaml:"max_batches_per_second" mapstructure:"max_batches_per_second"`
}

type SnapshotConfig struct {
	GraphML bool `yaml:"graphml" mapstructure:"graphml"`
}

type ResolverConfig struct {
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	JSON   bool   `yaml:"json" mapstructure:"json"`
	LogDir string `yaml:"log_dir" mapstructure:"log_dir"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Output: StorageConfig{
			Type:    storage.TypeBolt,
			BaseDir: "output",
		},
		Graph: GraphConfig{
			Database:  "neo4j",
			BatchSize: graph.DefaultBatchSize,
		},
		Resolver: ResolverConfig{
			MaxParallel: 4,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// Load loads configuration from file, .env files and GRAPHBRIDGE_* variables
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	// Values absent from the file keep their defaults
	cfg := Default()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".graphbridge")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".graphbridge"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence; godotenv never overrides
// a variable that is already set
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	if found, err := findEnvFile(); err == nil {
		godotenv.Load(found)
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".graphbridge", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies the explicit GRAPHBRIDGE_* variables.
// Password precedence: env var, config file, OS keychain.
func applyEnvOverrides(cfg *Config) {
	cfg.Graph.Enabled = GetBool(EnvNeo4jEnable, cfg.Graph.Enabled)
	cfg.Graph.Only = GetBool(EnvNeo4jOnly, cfg.Graph.Only)
	cfg.Graph.QueryBackend = strings.ToLower(GetString(EnvQueryBackend, cfg.Graph.QueryBackend))
	cfg.Graph.URI = GetString(EnvNeo4jURI, cfg.Graph.URI)
	cfg.Graph.Username = GetString(EnvNeo4jUsername, cfg.Graph.Username)
	cfg.Graph.Database = GetString(EnvNeo4jDatabase, cfg.Graph.Database)
	cfg.Graph.BatchSize = GetInt(EnvBatchSize, cfg.Graph.BatchSize)

	if pwd := os.Getenv(EnvNeo4jPassword); pwd != "" {
		cfg.Graph.Password = pwd
	} else if cfg.Graph.Password == "" && cfg.Graph.URI != "" {
		km := NewKeyringManager()
		if km.IsAvailable() {
			if stored, err := km.GetNeo4jPassword(); err == nil && stored != "" {
				cfg.Graph.Password = stored
			}
		}
	}

	cfg.Output.Type = GetString(EnvStorageType, cfg.Output.Type)
	if dir := os.Getenv(EnvOutputDir); dir != "" {
		cfg.Output.BaseDir = expandPath(dir)
	}
	cfg.Output.BaseDir = expandPath(cfg.Output.BaseDir)
	for name, out := range cfg.Outputs {
		out.BaseDir = expandPath(out.BaseDir)
		cfg.Outputs[name] = out
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// GraphConnection returns the graph connection settings; ok is false when
// uri, username or password is missing
func (c *Config) GraphConnection() (graph.ConnectionInfo, bool) {
	info := graph.ConnectionInfo{
		URI:      c.Graph.URI,
		Username: c.Graph.Username,
		Password: c.Graph.Password,
		Database: c.Graph.Database,

		MaxPoolSize: graph.RecommendedPoolSize(c.Resolver.MaxParallel),
	}
	return info, info.Complete()
}

// GraphQueryBackend resolves the effective query backend. Unset means neo4j when
// graph writing is enabled, columnar otherwise.
func (c *Config) GraphQueryBackend() string {
	switch c.Graph.QueryBackend {
	case QueryBackendColumnar, QueryBackendNeo4j, QueryBackendNeo4jOnly:
		return c.Graph.QueryBackend
	case "":
		if c.Graph.Enabled {
			return QueryBackendNeo4j
		}
	}
	return QueryBackendColumnar
}

// BatchConfig converts the graph batch settings; per-kind sizes override batch_size
func (c *Config) BatchConfig() graph.BatchConfig {
	bc := graph.UniformBatchConfig(c.Graph.BatchSize)
	if c.Graph.EntityBatchSize > 0 {
		bc.EntityBatchSize = c.Graph.EntityBatchSize
	}
	if c.Graph.RelationshipBatchSize > 0 {
		bc.RelationshipBatchSize = c.Graph.RelationshipBatchSize
	}
	return bc
}

// MaterializerConfig converts the graph section into materializer settings
func (c *Config) MaterializerConfig() graph.MaterializerConfig {
	return graph.MaterializerConfig{
		Database:            c.Graph.Database,
		Batch:               c.BatchConfig(),
		EnsureConstraints:   c.Graph.EnsureConstraints,
		MaxBatchesPerSecond: c.Graph.MaxBatchesPerSecond,
	}
}

// StorageOptions converts a storage section into store options
func (s StorageConfig) StorageOptions() storage.Options {
	return storage.Options{Type: s.Type, BaseDir: s.BaseDir, DSN: s.DSN}
}

// IndexNames returns the configured multi-index names in resolution order (sorted)
func (c *Config) IndexNames() []string {
	names := make([]string, 0, len(c.Outputs))
	for name := range c.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save saves configuration to file. The graph password is never written.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	graphCfg := c.Graph
	graphCfg.Password = ""

	v.Set("output", c.Output)
	if len(c.Outputs) > 0 {
		v.Set("outputs", c.Outputs)
	}
	v.Set("graph", graphCfg)
	v.Set("snapshots", c.Snapshots)
	v.Set("resolver", c.Resolver)
	v.Set("logging", c.Logging)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
