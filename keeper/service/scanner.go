package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/babylonlabs-io/entropy-keeper/clientcontroller/api"
	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/types"
	"github.com/babylonlabs-io/entropy-keeper/util"
)

var (
	// retry options of plain RPC reads
	RtyAttNum = uint(5)
	RtyAtt    = retry.Attempts(RtyAttNum)
	RtyDel    = retry.Delay(time.Millisecond * 400)
	RtyErr    = retry.LastErrorOnly(true)
)

var ErrBlockStreamClosed = errors.New("the block stream was closed")

// BlockRangeScanner turns the chain into an ordered stream of block ranges
// whose events are safe to act on. It replays a backlog of recent blocks
// first and then follows new blocks. Successive ranges are contiguous.
type BlockRangeScanner struct {
	chainID string
	client  api.BlockQuerier
	cfg     *config.ChainConfig
	logger  *zap.Logger

	lastSafeBlock *atomic.Uint64
}

func NewBlockRangeScanner(chainID string, client api.BlockQuerier, cfg *config.ChainConfig, logger *zap.Logger) *BlockRangeScanner {
	return &BlockRangeScanner{
		chainID:       chainID,
		client:        client,
		cfg:           cfg,
		logger:        logger.With(zap.String("module", "scanner"), zap.String("chain_id", chainID)),
		lastSafeBlock: atomic.NewUint64(0),
	}
}

// LastSafeBlock returns the safe block seen by the last successful query.
func (s *BlockRangeScanner) LastSafeBlock() uint64 {
	return s.lastSafeBlock.Load()
}

// SafeBlock returns the highest block whose events can be revealed, which
// is the confirmed head minus the reveal delay and the confirmation depth.
func (s *BlockRangeScanner) SafeBlock(ctx context.Context) (uint64, error) {
	var (
		head uint64
		err  error
	)
	status := s.cfg.GetConfirmedBlockStatus()
	if err := retry.Do(func() error {
		head, err = s.client.GetBlockNumber(ctx, status)
		if err != nil {
			return fmt.Errorf("failed to query the %s block number: %w", status, err)
		}

		return nil
	}, RtyAtt, RtyDel, RtyErr, retry.Context(ctx), retry.OnRetry(func(n uint, err error) {
		s.logger.Debug(
			"failed to query the block number",
			zap.Uint("attempt", n+1),
			zap.Uint("max_attempts", RtyAttNum),
			zap.Error(err),
		)
	})); err != nil {
		return 0, err
	}

	return s.safeBlockFromHead(head), nil
}

func (s *BlockRangeScanner) safeBlockFromHead(head uint64) uint64 {
	safe := util.SaturatingSub(head, s.cfg.RevealDelayBlocks+s.cfg.ConfirmationDepth)
	s.lastSafeBlock.Store(safe)

	return safe
}

// Run computes the safe block and then runs the backlog and live phases
// concurrently. Ranges are sent on out in chain order and out is closed
// when Run returns. Run returns nil when ctx is done.
func (s *BlockRangeScanner) Run(ctx context.Context, out chan<- types.BlockRange) error {
	defer close(out)

	safeBlock, err := s.SafeBlock(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("failed to get the safe block: %w", err)
	}

	s.logger.Info("starting to scan blocks", zap.Uint64("safe_block", safeBlock))

	backlogDone := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.RunBacklog(gctx, safeBlock, out, backlogDone)
	})
	g.Go(func() error {
		return s.RunLive(gctx, safeBlock, backlogDone, out)
	})

	return g.Wait()
}

// RunBacklog emits the blocks of the backlog window that precede safeBlock
// in batches and closes done once every batch was handed over.
func (s *BlockRangeScanner) RunBacklog(
	ctx context.Context,
	safeBlock uint64,
	out chan<- types.BlockRange,
	done chan<- struct{},
) error {
	from := util.SaturatingSub(safeBlock, s.cfg.BacklogWindow)
	if from < safeBlock {
		backlog := types.NewBlockRange(from, safeBlock-1)
		s.logger.Info("processing the backlog", zap.Stringer("range", backlog))

		for _, br := range backlog.Split(s.cfg.BacklogBatchSize) {
			if ctx.Err() != nil {
				s.logger.Info("backlog processing stopped", zap.Uint64("next_block", br.From))

				return nil
			}

			select {
			case out <- br:
			case <-ctx.Done():
				return nil
			}
		}
	}

	close(done)
	s.logger.Info("backlog processing completed")

	return nil
}

// RunLive follows new blocks and emits every block from startBlock onwards
// once it becomes safe. Ranges are held back until done is closed so that
// they follow the backlog on out.
func (s *BlockRangeScanner) RunLive(
	ctx context.Context,
	startBlock uint64,
	done <-chan struct{},
	out chan<- types.BlockRange,
) error {
	heads, err := s.client.WatchBlocks(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("failed to watch blocks: %w", err)
	}

	// watermark is the next block to emit
	watermark := startBlock
	latestSafe := startBlock
	hasSafe := false
	backlogDone := done

	emit := func() bool {
		if backlogDone != nil || !hasSafe || latestSafe < watermark {
			return true
		}

		br := types.NewBlockRange(watermark, latestSafe)
		select {
		case out <- br:
		case <-ctx.Done():
			return false
		}
		s.logger.Debug("emitted a live block range", zap.Stringer("range", br))
		watermark = latestSafe + 1

		return true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-backlogDone:
			backlogDone = nil
			if !emit() {
				return nil
			}
		case head, ok := <-heads:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}

				return ErrBlockStreamClosed
			}

			safe, err := s.safeBlockForHead(ctx, head)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Warn("failed to get the safe block, waiting for the next block",
					zap.Uint64("head", head), zap.Error(err))

				continue
			}

			latestSafe = safe
			hasSafe = true
			if !emit() {
				return nil
			}
		}
	}
}

func (s *BlockRangeScanner) safeBlockForHead(ctx context.Context, head uint64) (uint64, error) {
	if s.cfg.GetConfirmedBlockStatus() == types.BlockStatusLatest {
		return s.safeBlockFromHead(head), nil
	}

	return s.SafeBlock(ctx)
}
