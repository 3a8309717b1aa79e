package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/babylonlabs-io/entropy-keeper/hashchain"
	"github.com/babylonlabs-io/entropy-keeper/types"
	"github.com/babylonlabs-io/entropy-keeper/util"
)

const (
	defaultConfirmedBlockStatus = "latest"
	defaultConfirmationDepth    = uint64(0)
	defaultRevealDelayBlocks    = uint64(0)
	// roughly one day of blocks on a chain with a 10s block time
	defaultBacklogWindow       = uint64(10_000)
	defaultBacklogBatchSize    = uint64(100)
	defaultEventBatchSize      = uint64(100)
	defaultBufferSize          = uint32(1000)
	defaultPollInterval        = 2 * time.Second
	defaultGasLimit            = uint64(500_000)
	defaultConfirmationTimeout = 30 * time.Second
	defaultMaxElapsedTime      = 5 * time.Minute
	defaultRPCTimeout          = 10 * time.Second
	defaultMaxChainLength      = uint64(1_000_000)
)

// FailedEventPolicy decides what happens to a request whose reveal could not
// be submitted.
type FailedEventPolicy string

const (
	// FailedEventSkip logs the failure and moves on to the next request
	FailedEventSkip FailedEventPolicy = "skip"
	// FailedEventHalt stops the pipeline so that the request is picked up
	// again by the backlog scan after the restart
	FailedEventHalt FailedEventPolicy = "halt"
)

// ChainConfig configures the pipeline of one chain.
type ChainConfig struct {
	// RPCAddr is an http(s) or ws(s) endpoint. Websocket endpoints
	// subscribe to new heads, http endpoints poll for them.
	RPCAddr      string `koanf:"rpc_addr" yaml:"rpc_addr"`
	ContractAddr string `koanf:"contract_addr" yaml:"contract_addr"`

	ConfirmedBlockStatus string `koanf:"confirmed_block_status" yaml:"confirmed_block_status"`
	ConfirmationDepth    uint64 `koanf:"confirmation_depth" yaml:"confirmation_depth"`
	RevealDelayBlocks    uint64 `koanf:"reveal_delay_blocks" yaml:"reveal_delay_blocks"`

	BacklogWindow    uint64        `koanf:"backlog_window" yaml:"backlog_window"`
	BacklogBatchSize uint64        `koanf:"backlog_batch_size" yaml:"backlog_batch_size"`
	EventBatchSize   uint64        `koanf:"event_batch_size" yaml:"event_batch_size"`
	BufferSize       uint32        `koanf:"buffer_size" yaml:"buffer_size"`
	PollInterval     time.Duration `koanf:"poll_interval" yaml:"poll_interval"`
	RPCTimeout       time.Duration `koanf:"rpc_timeout" yaml:"rpc_timeout"`

	GasLimit            uint64                 `koanf:"gas_limit" yaml:"gas_limit"`
	LegacyTx            bool                   `koanf:"legacy_tx" yaml:"legacy_tx"`
	Escalation          EscalationPolicyConfig `koanf:"escalation" yaml:"escalation"`
	ConfirmationTimeout time.Duration          `koanf:"confirmation_timeout" yaml:"confirmation_timeout"`
	MaxElapsedTime      time.Duration          `koanf:"max_elapsed_time" yaml:"max_elapsed_time"`
	FailedEventPolicy   FailedEventPolicy      `koanf:"failed_event_policy" yaml:"failed_event_policy"`

	// MaxChainLength bounds the length of every hash chain the pipeline
	// rebuilds, including the one read from the on-chain commitment
	MaxChainLength uint64 `koanf:"max_chain_length" yaml:"max_chain_length"`

	// Commitments lists earlier commitments of the provider that may still
	// have unrevealed requests. The on-chain commitment is always added.
	Commitments []HistoricalCommitment `koanf:"commitments" yaml:"commitments,omitempty"`
}

// HistoricalCommitment describes a hash chain the provider used before
// rotating its commitment.
type HistoricalCommitment struct {
	// Seed is the hex encoded 32 byte seed of the chain
	Seed                   string `koanf:"seed" yaml:"seed"`
	ChainLength            uint64 `koanf:"chain_length" yaml:"chain_length"`
	OriginalSequenceNumber uint64 `koanf:"original_sequence_number" yaml:"original_sequence_number"`
}

func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		ConfirmedBlockStatus: defaultConfirmedBlockStatus,
		ConfirmationDepth:    defaultConfirmationDepth,
		RevealDelayBlocks:    defaultRevealDelayBlocks,
		BacklogWindow:        defaultBacklogWindow,
		BacklogBatchSize:     defaultBacklogBatchSize,
		EventBatchSize:       defaultEventBatchSize,
		BufferSize:           defaultBufferSize,
		PollInterval:         defaultPollInterval,
		RPCTimeout:           defaultRPCTimeout,
		GasLimit:             defaultGasLimit,
		Escalation:           DefaultEscalationPolicyConfig(),
		ConfirmationTimeout:  defaultConfirmationTimeout,
		MaxElapsedTime:       defaultMaxElapsedTime,
		FailedEventPolicy:    FailedEventSkip,
		MaxChainLength:       defaultMaxChainLength,
	}
}

func (c *ChainConfig) Validate() error {
	if c.RPCAddr == "" {
		return fmt.Errorf("rpc address cannot be empty")
	}
	if !IsWebsocketAddr(c.RPCAddr) && !strings.HasPrefix(c.RPCAddr, "http://") && !strings.HasPrefix(c.RPCAddr, "https://") {
		return fmt.Errorf("rpc address %s must use one of the http, https, ws or wss schemes", c.RPCAddr)
	}
	if !common.IsHexAddress(c.ContractAddr) {
		return fmt.Errorf("invalid contract address: %q", c.ContractAddr)
	}
	if _, err := types.ParseBlockStatus(c.ConfirmedBlockStatus); err != nil {
		return err
	}

	if c.BacklogBatchSize == 0 {
		return fmt.Errorf("backlog batch size must be positive")
	}
	if c.EventBatchSize == 0 {
		return fmt.Errorf("event batch size must be positive")
	}
	if c.BufferSize == 0 {
		return fmt.Errorf("buffer size must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if c.RPCTimeout <= 0 {
		return fmt.Errorf("rpc timeout must be positive, got %v", c.RPCTimeout)
	}

	if c.GasLimit == 0 {
		return fmt.Errorf("gas limit must be positive")
	}
	if err := c.Escalation.Validate(); err != nil {
		return fmt.Errorf("invalid escalation policy: %w", err)
	}
	if c.ConfirmationTimeout <= 0 {
		return fmt.Errorf("confirmation timeout must be positive, got %v", c.ConfirmationTimeout)
	}
	if c.MaxElapsedTime < c.ConfirmationTimeout {
		return fmt.Errorf("max elapsed time %v must not be shorter than the confirmation timeout %v",
			c.MaxElapsedTime, c.ConfirmationTimeout)
	}

	switch c.FailedEventPolicy {
	case FailedEventSkip, FailedEventHalt:
	default:
		return fmt.Errorf("unsupported failed event policy %q", c.FailedEventPolicy)
	}

	if c.MaxChainLength == 0 || c.MaxChainLength > hashchain.MaxLength {
		return fmt.Errorf("max chain length must be in [1, %d], got %d", hashchain.MaxLength, c.MaxChainLength)
	}

	offsets := make([]uint64, 0, len(c.Commitments))
	for i, hc := range c.Commitments {
		offsets = append(offsets, hc.OriginalSequenceNumber)
		if _, err := hc.GetSeed(); err != nil {
			return fmt.Errorf("invalid commitment %d: %w", i, err)
		}
		if hc.ChainLength == 0 {
			return fmt.Errorf("invalid commitment %d: chain length must be positive", i)
		}
		if hc.ChainLength > c.MaxChainLength {
			return fmt.Errorf("invalid commitment %d: chain length %d exceeds the max chain length %d",
				i, hc.ChainLength, c.MaxChainLength)
		}
	}
	if err := util.ValidateNoDuplicateSequenceNumbers(offsets); err != nil {
		return fmt.Errorf("invalid commitments: %w", err)
	}

	return nil
}

func (c *ChainConfig) GetContractAddr() common.Address {
	return common.HexToAddress(c.ContractAddr)
}

func (c *ChainConfig) GetConfirmedBlockStatus() types.BlockStatus {
	status, err := types.ParseBlockStatus(c.ConfirmedBlockStatus)
	if err != nil {
		// Validate rejects unknown statuses
		return types.BlockStatusLatest
	}

	return status
}

func IsWebsocketAddr(addr string) bool {
	return strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://")
}

func (hc HistoricalCommitment) GetSeed() ([32]byte, error) {
	var seed [32]byte
	b, err := hex.DecodeString(strings.TrimPrefix(hc.Seed, "0x"))
	if err != nil {
		return seed, fmt.Errorf("seed must be hex encoded: %w", err)
	}
	if len(b) != len(seed) {
		return seed, fmt.Errorf("seed must be %d bytes, got %d", len(seed), len(b))
	}
	copy(seed[:], b)

	return seed, nil
}
