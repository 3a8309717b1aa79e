package service_test

import (
	"os"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/entropy-keeper/hashchain"
	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/keeper/service"
	"github.com/babylonlabs-io/entropy-keeper/keeper/store"
	"github.com/babylonlabs-io/entropy-keeper/metrics"
)

const testChainID = "ethereum"

var (
	testProvider = common.HexToAddress("0x6CC14824Ea2918f5De5C2f75A9Da968ad4BD6344")
	testContract = common.HexToAddress("0x4821932D0CDd71225A6d914706A621e0389D7061")
)

func TestMain(m *testing.M) {
	service.SubmitRetryDelay = 10 * time.Millisecond
	service.SubmitRetryMaxDelay = 50 * time.Millisecond
	service.RtyDel = retry.Delay(10 * time.Millisecond)

	os.Exit(m.Run())
}

func newTestChainConfig() *config.ChainConfig {
	cfg := config.DefaultChainConfig()
	cfg.RPCAddr = "http://127.0.0.1:8545"
	cfg.ContractAddr = testContract.Hex()
	cfg.ConfirmationTimeout = 100 * time.Millisecond
	cfg.MaxElapsedTime = 5 * time.Second
	cfg.PollInterval = 10 * time.Millisecond

	return &cfg
}

func newTestRevealStore(t *testing.T) *store.RevealStore {
	t.Helper()
	dbCfg := config.DefaultDBConfigWithHomePath(t.TempDir())
	db, err := dbCfg.GetDBBackend()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	s, err := store.NewRevealStore(db)
	require.NoError(t, err)

	return s
}

// newTestHashChainState returns a single chain of the given length that is
// active from offset.
func newTestHashChainState(t *testing.T, offset, length uint64) *hashchain.State {
	t.Helper()
	chain, err := hashchain.Generate([]byte("secret"), testChainID, testProvider, testContract, hashchain.Digest{}, length)
	require.NoError(t, err)

	return hashchain.NewSingleState(offset, chain)
}

func newTestMetrics() *metrics.KeeperMetrics {
	return metrics.NewKeeperMetrics(prometheus.NewRegistry())
}
