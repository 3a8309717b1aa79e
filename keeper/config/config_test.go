package config_test

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/testutil"
)

const (
	testProviderAddr = "0x6CC14824Ea2918f5De5C2f75A9Da968ad4BD6344"
	testContractAddr = "0x4821932D0CDd71225A6d914706A621e0389D7061"
)

func validConfig(homePath string) *config.Config {
	cfg := config.DefaultConfigWithHome(homePath)
	cfg.Provider.Address = testProviderAddr
	chainCfg := config.DefaultChainConfig()
	chainCfg.RPCAddr = "http://127.0.0.1:8545"
	chainCfg.ContractAddr = testContractAddr
	cfg.Chains["ethereum"] = &chainCfg

	return &cfg
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(cfg *config.Config)
		wantErr string
	}{
		{
			name:    "valid config",
			modify:  func(_ *config.Config) {},
			wantErr: "",
		},
		{
			name:    "invalid provider address",
			modify:  func(cfg *config.Config) { cfg.Provider.Address = "0x1234" },
			wantErr: "provider configuration validation failed: invalid provider address",
		},
		{
			name:    "no chains",
			modify:  func(cfg *config.Config) { cfg.Chains = map[string]*config.ChainConfig{} },
			wantErr: "at least one chain must be configured",
		},
		{
			name:    "zero restart cooldown",
			modify:  func(cfg *config.Config) { cfg.RestartCooldown = 0 },
			wantErr: "restart cooldown must be positive, got 0s",
		},
		{
			name:    "unsupported rpc scheme",
			modify:  func(cfg *config.Config) { cfg.Chains["ethereum"].RPCAddr = "tcp://127.0.0.1:8545" },
			wantErr: "configuration of chain ethereum validation failed: rpc address tcp://127.0.0.1:8545 must use one of",
		},
		{
			name:    "unknown block status",
			modify:  func(cfg *config.Config) { cfg.Chains["ethereum"].ConfirmedBlockStatus = "pending" },
			wantErr: "unsupported block status \"pending\"",
		},
		{
			name:    "zero backlog batch size",
			modify:  func(cfg *config.Config) { cfg.Chains["ethereum"].BacklogBatchSize = 0 },
			wantErr: "backlog batch size must be positive",
		},
		{
			name: "fee multiplier below 100",
			modify: func(cfg *config.Config) {
				cfg.Chains["ethereum"].Escalation.FeeMultiplierPct = 90
			},
			wantErr: "invalid escalation policy: fee multiplier must be at least 100%, got 90%",
		},
		{
			name: "gas cap below initial multiplier",
			modify: func(cfg *config.Config) {
				cfg.Chains["ethereum"].Escalation.GasMultiplierCapPct = 120
			},
			wantErr: "gas multiplier cap 120% must not be less than the initial gas multiplier 125%",
		},
		{
			name: "max elapsed time shorter than confirmation timeout",
			modify: func(cfg *config.Config) {
				cfg.Chains["ethereum"].MaxElapsedTime = time.Second
			},
			wantErr: "max elapsed time 1s must not be shorter than the confirmation timeout 30s",
		},
		{
			name: "unknown failed event policy",
			modify: func(cfg *config.Config) {
				cfg.Chains["ethereum"].FailedEventPolicy = "retry"
			},
			wantErr: "unsupported failed event policy \"retry\"",
		},
		{
			name: "duplicate commitment offsets",
			modify: func(cfg *config.Config) {
				seed := "0x" + testutil.GenRandomHexStr(rand.New(rand.NewSource(1)), 32)
				cfg.Chains["ethereum"].Commitments = []config.HistoricalCommitment{
					{Seed: seed, ChainLength: 10, OriginalSequenceNumber: 0},
					{Seed: seed, ChainLength: 10, OriginalSequenceNumber: 0},
				}
			},
			wantErr: "invalid commitments: duplicate sequence number detected: 0",
		},
		{
			name: "short commitment seed",
			modify: func(cfg *config.Config) {
				cfg.Chains["ethereum"].Commitments = []config.HistoricalCommitment{
					{Seed: "0xabcd", ChainLength: 10},
				}
			},
			wantErr: "invalid commitment 0: seed must be 32 bytes, got 2",
		},
		{
			name:    "zero max chain length",
			modify:  func(cfg *config.Config) { cfg.Chains["ethereum"].MaxChainLength = 0 },
			wantErr: "max chain length must be in [1, 16777216], got 0",
		},
		{
			name:    "max chain length above the hash chain limit",
			modify:  func(cfg *config.Config) { cfg.Chains["ethereum"].MaxChainLength = 1 << 62 },
			wantErr: "max chain length must be in [1, 16777216]",
		},
		{
			name: "commitment longer than the max chain length",
			modify: func(cfg *config.Config) {
				seed := "0x" + testutil.GenRandomHexStr(rand.New(rand.NewSource(2)), 32)
				cfg.Chains["ethereum"].MaxChainLength = 100
				cfg.Chains["ethereum"].Commitments = []config.HistoricalCommitment{
					{Seed: seed, ChainLength: 101},
				}
			},
			wantErr: "invalid commitment 0: chain length 101 exceeds the max chain length 100",
		},
		{
			name:    "invalid metrics port",
			modify:  func(cfg *config.Config) { cfg.Metrics.Port = 70000 },
			wantErr: "metrics configuration validation failed: invalid port: 70000",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig(t.TempDir())
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNilConfig_Validate(t *testing.T) {
	t.Parallel()
	var cfg *config.Config
	require.EqualError(t, cfg.Validate(), "config cannot be nil")
}

// FuzzEscalationPolicyIsMonotonic checks that the multipliers never decrease
// with the retry count and never exceed their caps
func FuzzEscalationPolicyIsMonotonic(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)
	f.Fuzz(func(t *testing.T, seed int64) {
		t.Parallel()
		r := rand.New(rand.NewSource(seed))

		policy := config.EscalationPolicyConfig{
			GasLimitTolerancePct:    100 + uint64(r.Intn(100)),
			InitialGasMultiplierPct: 100 + uint64(r.Intn(100)),
			GasMultiplierPct:        100 + uint64(r.Intn(100)),
			FeeMultiplierPct:        100 + uint64(r.Intn(100)),
			FeeMultiplierCapPct:     100 + uint64(r.Intn(500)),
		}
		policy.GasMultiplierCapPct = policy.InitialGasMultiplierPct + uint64(r.Intn(1000))
		require.NoError(t, policy.Validate())

		r1 := uint64(r.Intn(50))
		r2 := r1 + uint64(r.Intn(50)) + 1

		gas1, gas2 := policy.GetGasMultiplierPct(r1), policy.GetGasMultiplierPct(r2)
		require.GreaterOrEqual(t, gas1, uint64(100))
		require.LessOrEqual(t, gas1, gas2)
		require.LessOrEqual(t, gas2, policy.GasMultiplierCapPct)

		fee1, fee2 := policy.GetFeeMultiplierPct(r1), policy.GetFeeMultiplierPct(r2)
		require.GreaterOrEqual(t, fee1, uint64(100))
		require.LessOrEqual(t, fee1, fee2)
		require.LessOrEqual(t, fee2, policy.FeeMultiplierCapPct)
	})
}

func TestDefaultEscalationPolicy(t *testing.T) {
	t.Parallel()
	policy := config.DefaultEscalationPolicyConfig()

	require.Equal(t, uint64(125), policy.GetGasMultiplierPct(0))
	require.Equal(t, uint64(137), policy.GetGasMultiplierPct(1))
	require.Equal(t, uint64(600), policy.GetGasMultiplierPct(100))

	require.Equal(t, uint64(100), policy.GetFeeMultiplierPct(0))
	require.Equal(t, uint64(110), policy.GetFeeMultiplierPct(1))
	require.Equal(t, uint64(121), policy.GetFeeMultiplierPct(2))
	require.Equal(t, uint64(200), policy.GetFeeMultiplierPct(100))

	require.Equal(t, uint64(550_000), policy.GetMaxGasLimit(500_000))
}

func TestLoadConfig(t *testing.T) {
	homePath := t.TempDir()

	_, err := config.LoadConfig(homePath)
	require.ErrorContains(t, err, "specified config file does not exist")

	require.NoError(t, config.WriteConfigFile(homePath, validConfig(homePath)))

	t.Setenv("KEEPERD_CHAINS__ETHEREUM__GAS_LIMIT", "750000")
	t.Setenv("KEEPERD_RESTART_COOLDOWN", "9s")

	cfg, err := config.LoadConfig(homePath)
	require.NoError(t, err)
	require.Equal(t, 9*time.Second, cfg.RestartCooldown)
	require.Len(t, cfg.Chains, 1)

	chainCfg := cfg.Chains["ethereum"]
	require.NotNil(t, chainCfg)
	require.Equal(t, uint64(750_000), chainCfg.GasLimit)
	require.Equal(t, config.DefaultEscalationPolicyConfig(), chainCfg.Escalation)
	require.Equal(t, 30*time.Second, chainCfg.ConfirmationTimeout)
	require.Equal(t, config.FailedEventSkip, chainCfg.FailedEventPolicy)
	require.Equal(t, config.DataDir(homePath), cfg.DatabaseConfig.DBPath)
}

func TestLoadConfigFillsChainDefaults(t *testing.T) {
	t.Parallel()
	homePath := t.TempDir()

	raw := `
provider:
  address: ` + testProviderAddr + `
chains:
  blast:
    rpc_addr: wss://blast.example.org
    contract_addr: ` + testContractAddr + `
    reveal_delay_blocks: 3
    escalation:
      fee_multiplier_cap_pct: 300
`
	require.NoError(t, os.WriteFile(filepath.Join(homePath, "keeperd.yml"), []byte(raw), 0o600))

	cfg, err := config.LoadConfig(homePath)
	require.NoError(t, err)

	chainCfg := cfg.Chains["blast"]
	require.NotNil(t, chainCfg)
	require.Equal(t, uint64(3), chainCfg.RevealDelayBlocks)
	require.Equal(t, uint64(10_000), chainCfg.BacklogWindow)
	require.Equal(t, uint64(300), chainCfg.Escalation.FeeMultiplierCapPct)
	require.Equal(t, uint64(125), chainCfg.Escalation.InitialGasMultiplierPct)
	require.True(t, config.IsWebsocketAddr(chainCfg.RPCAddr))
	require.Equal(t, 5*time.Second, cfg.RestartCooldown)
}

func TestProviderConfigLoadsKeys(t *testing.T) {
	t.Parallel()
	homePath := t.TempDir()
	cfg := validConfig(homePath)

	require.NoError(t, os.WriteFile(cfg.Provider.SecretFile, []byte("0x73656372657400\n"), 0o600))
	require.NoError(t, os.WriteFile(cfg.Provider.SignerKeyFile,
		[]byte("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"), 0o600))

	secret, err := cfg.Provider.LoadSecret()
	require.NoError(t, err)
	require.Equal(t, []byte("secret\x00"), secret)

	key, err := cfg.Provider.LoadSignerKey()
	require.NoError(t, err)
	require.NotNil(t, key)
}
