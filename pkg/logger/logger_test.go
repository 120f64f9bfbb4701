package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	restore := Replace(zap.NewNop())
	t.Cleanup(restore)

	require.NoError(t, Init("debug", WithConsoleEncoding(), WithOutputPaths("stderr")))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestInitFallsBackToInfo(t *testing.T) {
	restore := Replace(zap.NewNop())
	t.Cleanup(restore)

	require.NoError(t, Init("chatty"))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestLoggingHelpersEmitEntries(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(Replace(zap.New(core)))

	Info("guest claimed", zap.String("code", "ABC123"))
	Error("broadcast failed")
	Warn("whatsapp disabled")
	Debug("auto login skipped")

	entries := recorded.All()
	require.Len(t, entries, 4)

	want := []string{"guest claimed", "broadcast failed", "whatsapp disabled", "auto login skipped"}
	for i, entry := range entries {
		require.Equal(t, want[i], entry.Message)
	}
	require.Equal(t, "ABC123", entries[0].ContextMap()["code"])
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(Replace(zap.New(core)))

	WithModule("registry").Info("module test")

	entries := recorded.All()
	require.Len(t, entries, 1)
	require.Equal(t, "registry", entries[0].ContextMap()["module"])
}
