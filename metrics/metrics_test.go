package metrics_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/entropy-keeper/metrics"
	keepertestutil "github.com/babylonlabs-io/entropy-keeper/testutil"
	"github.com/babylonlabs-io/entropy-keeper/types"
)

func TestRecordSubmitTxResult(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m := metrics.NewKeeperMetrics(registry)

	m.RecordSubmitTxResult(&types.SubmitTxResult{
		ChainID:          "blast",
		NumRetries:       2,
		GasMultiplierPct: 151,
		FeeMultiplierPct: 121,
		Duration:         3 * time.Second,
		Receipt:          &types.Receipt{GasUsed: 80_000, Status: 1},
	})
	m.RecordSubmitTxResult(&types.SubmitTxResult{
		ChainID: "blast",
		Err:     errors.New("gas limit exceeded"),
	})
	m.RecordBlockRangeProcessed("blast", types.NewBlockRange(100, 199))

	count, err := testutil.GatherAndCount(registry,
		"keeper_requests_processed_total",
		"keeper_requests_failed_total",
		"keeper_last_processed_block",
	)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(`
# HELP keeper_reveal_gas_used_total The total gas used by reveal transactions
# TYPE keeper_reveal_gas_used_total counter
keeper_reveal_gas_used_total{chain_id="blast"} 80000
`), "keeper_reveal_gas_used_total"))
}

func TestPullServerServesMetrics(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m := metrics.NewKeeperMetrics(registry)
	m.RecordSafeBlock("ethereum", 50_000)

	addr := fmt.Sprintf("127.0.0.1:%d", keepertestutil.AllocateUniquePort(t))
	server := metrics.NewPullServer(addr, registry, keepertestutil.GetTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(ctx)
	}()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		bz, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(bz)

		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
	require.Contains(t, body, `keeper_safe_block{chain_id="ethereum"} 50000`)

	cancel()
	require.NoError(t, <-errCh)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	cfg := metrics.DefaultConfig()
	addr, err := cfg.Address()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:2112", addr)

	cfg.Host = "localhost:1"
	require.Error(t, cfg.Validate())
}
