package observability

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel(true, "error"))
	require.Equal(t, slog.LevelDebug, ParseLevel(false, "DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel(false, "warning"))
	require.Equal(t, slog.LevelError, ParseLevel(false, " error "))
	require.Equal(t, slog.LevelInfo, ParseLevel(false, ""))
	require.Equal(t, slog.LevelInfo, ParseLevel(false, "loud"))
}

func TestSetup_WritesToStderrAndFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stderr bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "docverify.log")
	logger, closer, err := Setup(LogOptions{Level: "warn", File: file, Stderr: &stderr})
	require.NoError(t, err)

	logger.Info("hidden")
	slog.Warn("shown", "check", "assets_copied")
	require.NoError(t, closer.Close())

	require.NotContains(t, stderr.String(), "hidden")
	require.Contains(t, stderr.String(), "check=assets_copied")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(data), "msg=shown")
}

func TestSetup_JSONAndEnv(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	t.Setenv(LevelEnv, "debug")

	var stderr bytes.Buffer
	_, closer, err := Setup(LogOptions{JSON: true, Stderr: &stderr})
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	slog.Debug("detail")
	require.Contains(t, stderr.String(), `"msg":"detail"`)
}
