package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// EnvPrefix is the viper prefix for GRAPHBRIDGE_* variables
const EnvPrefix = "GRAPHBRIDGE"

// Explicit environment overrides
const (
	EnvNeo4jEnable   = "GRAPHBRIDGE_NEO4J_ENABLE"
	EnvNeo4jOnly     = "GRAPHBRIDGE_NEO4J_ONLY"
	EnvQueryBackend  = "GRAPHBRIDGE_QUERY_BACKEND"
	EnvNeo4jURI      = "GRAPHBRIDGE_NEO4J_URI"
	EnvNeo4jUsername = "GRAPHBRIDGE_NEO4J_USERNAME"
	EnvNeo4jPassword = "GRAPHBRIDGE_NEO4J_PASSWORD"
	EnvNeo4jDatabase = "GRAPHBRIDGE_NEO4J_DATABASE"
	EnvBatchSize     = "GRAPHBRIDGE_BATCH_SIZE"
	EnvStorageType   = "GRAPHBRIDGE_STORAGE_TYPE"
	EnvOutputDir     = "GRAPHBRIDGE_OUTPUT_DIR"
)

// findEnvFile searches for .env file in current and parent directories
func findEnvFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Search up the directory tree (max 5 levels)
	searchPath := cwd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(searchPath, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}

		parent := filepath.Dir(searchPath)
		if parent == searchPath {
			break
		}
		searchPath = parent
	}

	return "", fmt.Errorf(".env file not found in %s or parent directories", cwd)
}

// Helper functions for type-safe environment variable access

// GetString returns string value or default
func GetString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// GetInt returns int value or default
func GetInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// GetBool returns bool value or default
func GetBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}
