package service

import (
	"context"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/entropy-keeper/clientcontroller/api"
	"github.com/babylonlabs-io/entropy-keeper/hashchain"
	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/metrics"
	"github.com/babylonlabs-io/entropy-keeper/types"
)

const (
	skipReasonRevealed   = "already_revealed"
	skipReasonOutOfRange = "out_of_range"
	skipReasonFailed     = "submission_failed"
	skipReasonReverted   = "reverted"
)

// RevealStore remembers which requests were revealed.
type RevealStore interface {
	IsRevealed(chainID string, provider common.Address, seq uint64) (bool, error)
	SaveReveal(chainID string, provider common.Address, seq uint64, txHash common.Hash, blockNumber uint64) error
}

// EventProcessor reveals the randomness of every request found in the
// block ranges it consumes. Requests are handled one at a time.
type EventProcessor struct {
	chainID  string
	provider common.Address
	client   api.EntropyQuerier
	cfg      *config.ChainConfig

	state     *hashchain.State
	submitter *TxSubmitter
	store     RevealStore
	metrics   *metrics.KeeperMetrics
	// observations receives every submission result, may be nil
	observations chan<- *types.SubmitTxResult
	logger       *zap.Logger

	lastProcessedBlock *atomic.Uint64
}

func NewEventProcessor(
	chainID string,
	provider common.Address,
	client api.EntropyQuerier,
	cfg *config.ChainConfig,
	state *hashchain.State,
	submitter *TxSubmitter,
	store RevealStore,
	km *metrics.KeeperMetrics,
	observations chan<- *types.SubmitTxResult,
	logger *zap.Logger,
) *EventProcessor {
	return &EventProcessor{
		chainID:            chainID,
		provider:           provider,
		client:             client,
		cfg:                cfg,
		state:              state,
		submitter:          submitter,
		store:              store,
		metrics:            km,
		observations:       observations,
		logger:             logger.With(zap.String("module", "processor"), zap.String("chain_id", chainID)),
		lastProcessedBlock: atomic.NewUint64(0),
	}
}

// LastProcessedBlock returns the end of the last fully processed range.
func (p *EventProcessor) LastProcessedBlock() uint64 {
	return p.lastProcessedBlock.Load()
}

// Run processes ranges from in until in is closed or ctx is done, in which
// case it returns nil. An error is returned only when a range could not be
// processed and the pipeline has to be restarted.
func (p *EventProcessor) Run(ctx context.Context, in <-chan types.BlockRange) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case br, ok := <-in:
			if !ok {
				return nil
			}
			if err := p.ProcessBlockRange(ctx, br); err != nil {
				return err
			}
		}
	}
}

// ProcessBlockRange fetches the requests of br in batches of at most
// EventBatchSize blocks and processes each of them.
func (p *EventProcessor) ProcessBlockRange(ctx context.Context, br types.BlockRange) error {
	p.logger.Debug("processing block range", zap.Stringer("range", br))

	for _, batch := range br.Split(p.cfg.EventBatchSize) {
		if ctx.Err() != nil {
			return nil
		}

		events, err := p.getRequestEvents(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("failed to get the requests of %s: %w", batch, err)
		}

		for _, event := range events {
			if event.Provider != p.provider {
				continue
			}
			if err := p.ProcessEvent(ctx, event); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
		}

		p.lastProcessedBlock.Store(batch.To)
		p.metrics.RecordBlockRangeProcessed(p.chainID, batch)
	}

	return nil
}

func (p *EventProcessor) getRequestEvents(ctx context.Context, br types.BlockRange) ([]*types.RequestEvent, error) {
	var events []*types.RequestEvent
	err := retry.Do(func() error {
		var err error
		events, err = p.client.GetRequestEvents(ctx, br.From, br.To)

		return err
	}, RtyAtt, RtyDel, RtyErr, retry.Context(ctx), retry.OnRetry(func(n uint, err error) {
		p.logger.Debug(
			"failed to get request events",
			zap.Stringer("range", br),
			zap.Uint("attempt", n+1),
			zap.Uint("max_attempts", RtyAttNum),
			zap.Error(err),
		)
	}))

	return events, err
}

// ProcessEvent reveals the randomness of a single request unless it was
// revealed before. The returned error is non-nil only if the pipeline
// should stop.
func (p *EventProcessor) ProcessEvent(ctx context.Context, event *types.RequestEvent) error {
	logger := p.logger.With(
		zap.Uint64("sequence_number", event.SequenceNumber),
		zap.Uint64("block_number", event.BlockNumber),
	)

	revealed, err := p.store.IsRevealed(p.chainID, p.provider, event.SequenceNumber)
	if err != nil {
		return fmt.Errorf("failed to check the reveal of request %d: %w", event.SequenceNumber, err)
	}
	if revealed {
		logger.Debug("the request was already revealed")
		p.metrics.IncRequestsSkipped(p.chainID, skipReasonRevealed)

		return nil
	}

	revelation, err := p.state.Reveal(event.SequenceNumber)
	if err != nil {
		if hashchain.IsOutOfRange(err) {
			logger.Warn("the request is not covered by any known hash chain", zap.Error(err))
			p.metrics.IncRequestsSkipped(p.chainID, skipReasonOutOfRange)

			return nil
		}

		return fmt.Errorf("failed to derive the reveal of request %d: %w", event.SequenceNumber, err)
	}

	call, err := p.client.RevealCall(event, revelation)
	if err != nil {
		return p.handleFailure(logger, event, fmt.Errorf("failed to build the reveal call: %w", err))
	}

	res, err := p.submitter.SubmitTx(ctx, call)
	res.SequenceNumber = event.SequenceNumber
	p.metrics.RecordSubmitTxResult(res)
	p.publish(res)

	if err != nil {
		if ctx.Err() != nil {
			// the backlog scan after the restart covers it
			logger.Info("stopped revealing the request on shutdown", zap.Error(err))

			return nil
		}

		return p.handleFailure(logger, event, err)
	}

	if !res.Receipt.Succeeded() {
		// recorded as revealed below, the contract rejected this reveal for good
		p.metrics.IncRequestsSkipped(p.chainID, skipReasonReverted)
	}

	logger.Info(
		"revealed the request",
		zap.String("tx_hash", res.Receipt.TxHash.Hex()),
		zap.Uint64("included_in", res.Receipt.BlockNumber),
		zap.Stringer("fee_wei", res.Receipt.Fee()),
		zap.Bool("reverted", !res.Receipt.Succeeded()),
		zap.Uint64("num_retries", res.NumRetries),
		zap.Duration("duration", res.Duration),
	)

	if err := p.store.SaveReveal(p.chainID, p.provider, event.SequenceNumber, res.Receipt.TxHash, res.Receipt.BlockNumber); err != nil {
		// the reveal landed, the worst case is a reverted duplicate later
		logger.Error("failed to record the reveal", zap.Error(err))
	}

	return nil
}

func (p *EventProcessor) handleFailure(logger *zap.Logger, event *types.RequestEvent, err error) error {
	if p.cfg.FailedEventPolicy == config.FailedEventHalt {
		return fmt.Errorf("failed to reveal request %d: %w", event.SequenceNumber, err)
	}

	logger.Error("failed to reveal the request, skipping it", zap.Error(err))
	p.metrics.IncRequestsSkipped(p.chainID, skipReasonFailed)

	return nil
}

// publish hands res to the observer without ever blocking the pipeline.
func (p *EventProcessor) publish(res *types.SubmitTxResult) {
	if p.observations == nil {
		return
	}

	select {
	case p.observations <- res:
	default:
		p.logger.Warn("the observation channel is full, dropping a submission result",
			zap.Uint64("sequence_number", res.SequenceNumber))
	}
}
