package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitWritesToFile(t *testing.T) {
	t.Cleanup(func() {
		globalLogger = zap.NewNop()
	})
	path := filepath.Join(t.TempDir(), "logs", "cachier.log")

	require.NoError(t, Init(path, "debug"))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))

	Info("hello", zap.String("k", "v"))
	_ = Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"msg":"hello"`)
	require.Contains(t, string(b), `"k":"v"`)
}

func TestInitFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() {
		globalLogger = zap.NewNop()
	})
	require.NoError(t, Init(filepath.Join(t.TempDir(), "c.log"), "loud"))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestDefaultPathFromEnv(t *testing.T) {
	t.Setenv(envLogPath, "/tmp/custom.log")
	require.Equal(t, "/tmp/custom.log", DefaultPath())
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(func() {
		globalLogger = zap.NewNop()
	})
	globalLogger = zap.New(core)

	WithModule("cache").Info("module test")
	Warn("warn message")
	Debug("filtered")

	entries := recorded.All()
	require.Len(t, entries, 2)
	require.Equal(t, "cache", entries[0].ContextMap()["module"])
	require.Equal(t, "warn message", entries[1].Message)
}
