package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/keeper/service"
	"github.com/babylonlabs-io/entropy-keeper/metrics"
	"github.com/babylonlabs-io/entropy-keeper/testutil"
	"github.com/babylonlabs-io/entropy-keeper/types"
)

func TestKeeperServerRunsUntilShutdown(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(40))
	logger, logs := testutil.GetObservedLogger(zapcore.DebugLevel)

	cfg := config.DefaultConfigWithHome(t.TempDir())
	cfg.Metrics.Port = testutil.AllocateUniquePort(t)
	db, err := cfg.DatabaseConfig.GetDBBackend()
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	km := metrics.NewKeeperMetrics(registry)
	km.RecordSafeBlock(testChainID, 5)
	app := service.NewKeeperApp(&cfg, nil, km, logger)

	observations := make(chan *types.SubmitTxResult, 2)
	observations <- &types.SubmitTxResult{
		ChainID:        testChainID,
		SequenceNumber: 7,
		Receipt:        testutil.GenReceipt(r, 100),
	}
	observations <- &types.SubmitTxResult{
		ChainID:        testChainID,
		SequenceNumber: 8,
		Err:            errors.New("gas limit exceeded"),
	}

	server := service.NewKeeperServer(&cfg, app, db, registry, observations, logger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.RunUntilShutdown(ctx)
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/metrics", cfg.Metrics.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:gosec,noctx
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}

		return resp.StatusCode == http.StatusOK &&
			strings.Contains(string(body), `keeper_safe_block{chain_id="ethereum"} 5`)
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("submission result").Len() == 2
	}, 5*time.Second, 10*time.Millisecond)

	// a second run is refused
	require.Error(t, server.RunUntilShutdown(ctx))

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("the server did not shut down")
	}
	require.Equal(t, 1, logs.FilterMessage("Shutdown complete").Len())
}
