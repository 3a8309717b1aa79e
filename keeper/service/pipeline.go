package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/babylonlabs-io/entropy-keeper/clientcontroller/api"
	"github.com/babylonlabs-io/entropy-keeper/hashchain"
	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/metrics"
	"github.com/babylonlabs-io/entropy-keeper/types"
)

var ErrPipelineNotReady = errors.New("the hash chain of the pipeline is not loaded yet")

// ChainPipeline runs the scanner and the processor of one chain.
type ChainPipeline struct {
	chainID  string
	cfg      *config.ChainConfig
	provider common.Address
	secret   []byte

	client       api.ChainClient
	scanner      *BlockRangeScanner
	submitter    *TxSubmitter
	store        RevealStore
	metrics      *metrics.KeeperMetrics
	observations chan<- *types.SubmitTxResult
	logger       *zap.Logger

	// replaced on every run
	state     *atomic.Pointer[hashchain.State]
	processor *atomic.Pointer[EventProcessor]
}

func NewChainPipeline(
	chainID string,
	cfg *config.ChainConfig,
	provider common.Address,
	secret []byte,
	client api.ChainClient,
	store RevealStore,
	km *metrics.KeeperMetrics,
	observations chan<- *types.SubmitTxResult,
	logger *zap.Logger,
) *ChainPipeline {
	return &ChainPipeline{
		chainID:      chainID,
		cfg:          cfg,
		provider:     provider,
		secret:       secret,
		client:       client,
		scanner:      NewBlockRangeScanner(chainID, client, cfg, logger),
		submitter:    NewTxSubmitter(chainID, client, cfg, logger),
		store:        store,
		metrics:      km,
		observations: observations,
		logger:       logger.With(zap.String("module", "pipeline"), zap.String("chain_id", chainID)),
		state:        atomic.NewPointer[hashchain.State](nil),
		processor:    atomic.NewPointer[EventProcessor](nil),
	}
}

func (p *ChainPipeline) ChainID() string {
	return p.chainID
}

// Reveal returns the revelation of a request of this chain.
func (p *ChainPipeline) Reveal(seq uint64) (hashchain.Digest, error) {
	state := p.state.Load()
	if state == nil {
		return hashchain.Digest{}, ErrPipelineNotReady
	}

	return state.Reveal(seq)
}

func (p *ChainPipeline) LastSafeBlock() uint64 {
	return p.scanner.LastSafeBlock()
}

func (p *ChainPipeline) LastProcessedBlock() uint64 {
	processor := p.processor.Load()
	if processor == nil {
		return 0
	}

	return processor.LastProcessedBlock()
}

// Close closes the chain client. The pipeline must not be running.
func (p *ChainPipeline) Close() error {
	return p.client.Close()
}

func (p *ChainPipeline) SubmitterState() SubmitterState {
	return p.submitter.State()
}

// Run loads and verifies the hash chain and then runs the scanner and the
// processor until one of them fails or ctx is done. It returns nil on
// shutdown and ErrCommitmentMismatch if the local hash chain does not
// match the on-chain commitment.
func (p *ChainPipeline) Run(ctx context.Context) error {
	state, err := p.LoadHashChainState(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return err
	}
	p.state.Store(state)

	processor := NewEventProcessor(
		p.chainID, p.provider, p.client, p.cfg, state, p.submitter, p.store, p.metrics, p.observations, p.logger,
	)
	p.processor.Store(processor)

	ranges := make(chan types.BlockRange, p.cfg.BufferSize)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.scanner.Run(gctx, ranges)
	})
	g.Go(func() error {
		return processor.Run(gctx, ranges)
	})

	return g.Wait()
}

// LoadHashChainState fetches the provider's commitment and rebuilds every
// hash chain that may still have unrevealed requests. The chain of the
// on-chain commitment must reproduce the committed root.
func (p *ChainPipeline) LoadHashChainState(ctx context.Context) (*hashchain.State, error) {
	commitment, err := p.getProviderCommitment(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get the provider commitment: %w", err)
	}

	p.logger.Info(
		"loaded the provider commitment",
		zap.Uint64("original_sequence_number", commitment.OriginalSequenceNumber),
		zap.Uint64("chain_length", commitment.ChainLength),
		zap.Uint64("current_sequence_number", commitment.CurrentSequenceNumber),
	)

	if commitment.ChainLength > p.cfg.MaxChainLength {
		return nil, fmt.Errorf("%w: chain %s, provider %s, committed length %d, max %d",
			ErrChainLengthExceeded, p.chainID, p.provider.Hex(), commitment.ChainLength, p.cfg.MaxChainLength)
	}

	type chainParams struct {
		offset uint64
		seed   hashchain.Digest
		length uint64
	}
	params := []chainParams{{
		offset: commitment.OriginalSequenceNumber,
		seed:   commitment.Seed,
		length: commitment.ChainLength,
	}}
	for _, hc := range p.cfg.Commitments {
		// the on-chain commitment wins over a stale config entry
		if hc.OriginalSequenceNumber == commitment.OriginalSequenceNumber {
			continue
		}
		seed, err := hc.GetSeed()
		if err != nil {
			return nil, err
		}
		params = append(params, chainParams{
			offset: hc.OriginalSequenceNumber,
			seed:   seed,
			length: hc.ChainLength,
		})
	}
	sort.Slice(params, func(i, j int) bool {
		return params[i].offset < params[j].offset
	})

	offsets := make([]uint64, 0, len(params))
	chains := make([]*hashchain.HashChain, 0, len(params))
	contract := p.cfg.GetContractAddr()
	for _, cp := range params {
		chain, err := hashchain.Generate(p.secret, p.chainID, p.provider, contract, cp.seed, cp.length)
		if err != nil {
			return nil, fmt.Errorf("failed to generate the hash chain at offset %d: %w", cp.offset, err)
		}
		offsets = append(offsets, cp.offset)
		chains = append(chains, chain)
	}

	state, err := hashchain.NewState(offsets, chains)
	if err != nil {
		return nil, err
	}

	if !hashchain.VerifyCommitment(state, commitment.OriginalCommitment, commitment.OriginalSequenceNumber) {
		return nil, fmt.Errorf("%w: chain %s, provider %s, offset %d",
			ErrCommitmentMismatch, p.chainID, p.provider.Hex(), commitment.OriginalSequenceNumber)
	}

	return state, nil
}

func (p *ChainPipeline) getProviderCommitment(ctx context.Context) (*types.ProviderCommitment, error) {
	var commitment *types.ProviderCommitment
	err := retry.Do(func() error {
		var err error
		commitment, err = p.client.GetProviderCommitment(ctx)

		return err
	}, RtyAtt, RtyDel, RtyErr, retry.Context(ctx), retry.OnRetry(func(n uint, err error) {
		p.logger.Debug(
			"failed to get the provider commitment",
			zap.Uint("attempt", n+1),
			zap.Uint("max_attempts", RtyAttNum),
			zap.Error(err),
		)
	}))

	return commitment, err
}
