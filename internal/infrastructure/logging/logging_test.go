package logging

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreDefaultLogger(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	})
}

func TestInitWritesLogFile(t *testing.T) {
	restoreDefaultLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "gateway.log")

	closer, err := Init(Config{Service: "storage-gateway", Level: "debug", Format: "json", File: path, MaxSizeMB: 1, MaxBackups: 2})
	require.NoError(t, err)
	require.NotNil(t, closer)

	slog.Debug("rpc call", "method", "eth_call")
	log.Print("from std logger")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"rpc call"`)
	assert.Contains(t, string(content), `"service":"storage-gateway"`)
	assert.Contains(t, string(content), "from std logger")
}

func TestInitWithoutFile(t *testing.T) {
	restoreDefaultLogger(t)

	closer, err := Init(Config{Level: "warn"})
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.False(t, slog.Default().Enabled(t.Context(), slog.LevelInfo))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel(" Warning ").String())
	assert.Equal(t, "INFO", parseLevel("").String())
}
