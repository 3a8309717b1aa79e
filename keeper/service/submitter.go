package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/entropy-keeper/clientcontroller/api"
	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/types"
)

var (
	SubmitRetryDelay    = 500 * time.Millisecond
	SubmitRetryMaxDelay = 30 * time.Second
)

// SubmitterState is the step a submission attempt is at.
type SubmitterState int32

const (
	StateIdle SubmitterState = iota
	StateEstimating
	StateFilling
	StateSent
	StateConfirmed
	StateTimedOut
	StateFailed
)

func (s SubmitterState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEstimating:
		return "estimating"
	case StateFilling:
		return "filling"
	case StateSent:
		return "sent"
	case StateConfirmed:
		return "confirmed"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// TxSubmitter lands one transaction at a time on a chain. Each submission
// is retried with exponential backoff and gets more aggressive gas and fee
// multipliers on every retry. A TxSubmitter owns the nonce cache of its
// client and must not be shared between pipelines.
type TxSubmitter struct {
	chainID string
	client  api.TxSender
	cfg     *config.ChainConfig
	logger  *zap.Logger

	state *atomic.Int32
}

func NewTxSubmitter(chainID string, client api.TxSender, cfg *config.ChainConfig, logger *zap.Logger) *TxSubmitter {
	return &TxSubmitter{
		chainID: chainID,
		client:  client,
		cfg:     cfg,
		logger:  logger.With(zap.String("module", "submitter"), zap.String("chain_id", chainID)),
		state:   atomic.NewInt32(int32(StateIdle)),
	}
}

func (s *TxSubmitter) State() SubmitterState {
	return SubmitterState(s.state.Load())
}

func (s *TxSubmitter) setState(state SubmitterState) {
	s.state.Store(int32(state))
}

// SubmitTx submits call until it is confirmed, a permanent error occurs,
// the retry budget runs out, or ctx is done. An attempt that is in flight
// when ctx is done runs to completion, but no new attempt is started.
// The returned result is never nil and its Err is the returned error.
func (s *TxSubmitter) SubmitTx(ctx context.Context, call *types.Call) (*types.SubmitTxResult, error) {
	start := time.Now()
	res := &types.SubmitTxResult{ChainID: s.chainID}

	budgetCtx, cancel := context.WithTimeout(ctx, s.cfg.MaxElapsedTime)
	defer cancel()

	var (
		// attempt is the number of failed attempts so far, set by the
		// retry callback before the next attempt starts
		attempt  uint64
		attempts uint64
		lastErr  error
	)
	err := retry.Do(func() error {
		if ctx.Err() != nil {
			return retry.Unrecoverable(ErrKeeperShutDown)
		}

		attempts++
		res.GasMultiplierPct = s.cfg.Escalation.GetGasMultiplierPct(attempt)
		res.FeeMultiplierPct = s.cfg.Escalation.GetFeeMultiplierPct(attempt)

		receipt, resets, err := s.submitOnce(ctx, call, res.GasMultiplierPct, res.FeeMultiplierPct)
		res.NonceResets += resets
		if err != nil {
			lastErr = err
			if IsPermanent(err) {
				return retry.Unrecoverable(err)
			}

			return err
		}
		res.Receipt = receipt

		return nil
	},
		retry.Context(budgetCtx),
		retry.Attempts(0),
		retry.Delay(SubmitRetryDelay),
		retry.MaxDelay(SubmitRetryMaxDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			attempt = uint64(n) + 1
			s.logger.Debug(
				"failed to submit the transaction",
				zap.Uint64("attempt", attempt),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
		}),
	)

	if attempts > 0 {
		res.NumRetries = attempts - 1
	}
	res.Duration = time.Since(start)

	if err != nil {
		switch {
		case lastErr == nil:
			res.Err = err
		case IsPermanent(lastErr):
			res.Err = lastErr
		case ctx.Err() != nil:
			res.Err = fmt.Errorf("%w: %w", ErrKeeperShutDown, lastErr)
		default:
			res.Err = fmt.Errorf("failed to submit the transaction within %v: %w", s.cfg.MaxElapsedTime, lastErr)
		}

		return res, res.Err
	}

	return res, nil
}

// submitOnce runs a single attempt and reports how many times it reset the
// nonce cache.
func (s *TxSubmitter) submitOnce(
	ctx context.Context,
	call *types.Call,
	gasMultiplierPct uint64,
	feeMultiplierPct uint64,
) (*types.Receipt, uint64, error) {
	// the attempt outlives a shutdown signal; its own timeouts bound it
	attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*s.cfg.ConfirmationTimeout)
	defer cancel()

	s.setState(StateEstimating)
	gasEstimate, err := s.client.EstimateGas(attemptCtx, call)
	if err != nil {
		s.setState(StateFailed)

		return nil, 0, fmt.Errorf("failed to estimate gas: %w", err)
	}

	if gasEstimate > s.cfg.GasLimit {
		s.setState(StateFailed)

		return nil, 0, fmt.Errorf("%w: estimate %d, limit %d", ErrGasLimitExceeded, gasEstimate, s.cfg.GasLimit)
	}

	gasLimit := gasEstimate * gasMultiplierPct / 100
	if maxGasLimit := s.cfg.Escalation.GetMaxGasLimit(s.cfg.GasLimit); gasLimit > maxGasLimit {
		gasLimit = maxGasLimit
	}
	tx := types.NewTransaction(*call, gasLimit)

	s.setState(StateFilling)
	if err := s.client.FillTransaction(attemptCtx, tx); err != nil {
		s.setState(StateFailed)

		return nil, 0, fmt.Errorf("failed to fill the transaction: %w", err)
	}
	tx.ScaleFees(feeMultiplierPct)

	txHash, err := s.client.SendTransaction(attemptCtx, tx)
	if err != nil {
		s.setState(StateFailed)

		return nil, 0, fmt.Errorf("failed to send the transaction: %w", err)
	}
	s.setState(StateSent)

	s.logger.Debug(
		"sent the transaction",
		zap.String("tx_hash", txHash.Hex()),
		zap.Uint64("nonce", tx.Nonce),
		zap.Uint64("gas_limit", tx.GasLimit),
		zap.Uint64("gas_multiplier_pct", gasMultiplierPct),
		zap.Uint64("fee_multiplier_pct", feeMultiplierPct),
	)

	waitCtx, cancelWait := context.WithTimeout(attemptCtx, s.cfg.ConfirmationTimeout)
	defer cancelWait()
	receipt, err := s.client.WaitForReceipt(waitCtx, txHash)

	switch {
	case err != nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded):
		// probably stuck behind a wrong nonce
		s.setState(StateTimedOut)
		s.client.ResetNonce()

		return nil, 1, fmt.Errorf("%w: %s after %v", ErrTxStuck, txHash.Hex(), s.cfg.ConfirmationTimeout)
	case err != nil:
		s.setState(StateFailed)

		return nil, 0, fmt.Errorf("failed to wait for the receipt of %s: %w", txHash.Hex(), err)
	case receipt == nil:
		s.setState(StateFailed)
		s.client.ResetNonce()

		return nil, 1, fmt.Errorf("%w: %s", ErrReceiptMissing, txHash.Hex())
	}

	s.setState(StateConfirmed)
	if !receipt.Succeeded() {
		s.logger.Warn(
			"the transaction was included but reverted",
			zap.String("tx_hash", txHash.Hex()),
			zap.Uint64("block_number", receipt.BlockNumber),
		)
	}

	return receipt, 0, nil
}
