package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// GetTestLogger returns a development logger that only prints errors. It
// does not write through t, so goroutines may outlive the test.
func GetTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	loggerConfig.OutputPaths = []string{"stderr"}
	logger, err := loggerConfig.Build()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = logger.Sync()
	})

	return logger
}

// GetObservedLogger returns a logger whose entries at level and above are
// recorded for assertions.
func GetObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)

	return zap.New(core), logs
}
