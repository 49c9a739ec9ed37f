package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "graphbridge.log")
	logger, err := NewLogger(Config{Level: INFO, OutputFile: path, JSONFormat: true})
	require.NoError(t, err)

	logger.Slog().With("component", "test").Info("batch committed", "batch", 1)
	logger.Logrus().WithField("table", "entities").Info("table written")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"batch committed"`)
	assert.Contains(t, out, `"component":"test"`)
	assert.Contains(t, out, `"table":"entities"`)
}

func TestRotateIfNeeded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphbridge.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0644))

	logger, err := NewLogger(Config{Level: INFO, OutputFile: path, MaxSize: 32})
	require.NoError(t, err)
	defer logger.Close()

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "oversized log should have been rotated to .1")
}

func TestLogrusLevelFollowsConfig(t *testing.T) {
	logger, err := NewLogger(Config{Level: DEBUG})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.Logrus().GetLevel())

	logger, err = NewLogger(Config{Level: ParseLevel("warn")})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.Logrus().GetLevel())
}
