package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeConsole(t *testing.T) {
	require.NoError(t, Initialize(false))
	assert.False(t, JSONOutput)
	assert.NotNil(t, Logger)

	// Wrappers must not panic regardless of state
	Infow("test message", "key", "value")
	Warnf("warning %d", 1)
	Cleanup()
}

func TestInitializeJSON(t *testing.T) {
	require.NoError(t, Initialize(true))
	assert.True(t, JSONOutput)
	assert.NotNil(t, Logger)
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.log")

	log, closeFn, err := NewFileLogger(path)
	require.NoError(t, err)
	require.NotNil(t, log)

	log.Infow("import started", "nodes", 3)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "import started")
}

func TestNewFileLoggerBadPath(t *testing.T) {
	_, _, err := NewFileLogger(filepath.Join(t.TempDir(), "missing", "store.log"))
	require.Error(t, err)
}
