package log_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/entropy-keeper/log"
)

func TestNewRootLoggerFormats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := log.NewRootLogger("json", "info", &buf)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("revealed", zap.Uint64("sequence_number", 7))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "revealed", entry["msg"])
	require.Equal(t, "info", entry["lvl"])
	require.EqualValues(t, 7, entry["sequence_number"])

	buf.Reset()
	logger, err = log.NewRootLogger("logfmt", "debug", &buf)
	require.NoError(t, err)
	logger.Debug("scanning", zap.String("chain_id", "blast"))
	require.Contains(t, buf.String(), "chain_id=blast")

	_, err = log.NewRootLogger("xml", "info", &buf)
	require.Error(t, err)
	_, err = log.NewRootLogger("json", "loud", &buf)
	require.Error(t, err)
}

func TestNewRootLoggerWithFile(t *testing.T) {
	t.Parallel()

	logFile := filepath.Join(t.TempDir(), "logs", "keeperd.log")
	logger, err := log.NewRootLoggerWithFile(logFile, "console", "info")
	require.NoError(t, err)
	logger.Info("keeper started")
	require.NoError(t, logger.Sync())

	bz, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(bz), "keeper started")
}
