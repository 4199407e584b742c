package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestFanout_RespectsLevels(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	h := Fanout(
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h).With("cycle", "abc")

	logger.Info("polled", "category", "build")
	logger.Error("fault", "err", "boom")

	assert.Contains(t, infoBuf.String(), "polled")
	assert.Contains(t, infoBuf.String(), "cycle=abc")
	assert.Contains(t, infoBuf.String(), "fault")
	assert.NotContains(t, errBuf.String(), "polled")
	assert.Contains(t, errBuf.String(), "err=boom")
}

func TestSetup_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mondrian.log")

	logger, err := Setup(path, "info", true)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("monitor started", "categories", 5)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "monitor started")
	assert.NotContains(t, string(data), "hidden")
}
