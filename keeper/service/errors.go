package service

import (
	"errors"
)

var (
	// ErrGasLimitExceeded is returned when the gas estimate of a reveal is
	// above the configured gas limit. Retrying cannot fix it.
	ErrGasLimitExceeded = errors.New("the gas estimate exceeds the gas limit")
	// ErrTxStuck is returned when no receipt arrived within the confirmation
	// timeout. The nonce cache is reset before the next attempt.
	ErrTxStuck = errors.New("the transaction was not confirmed in time")
	// ErrReceiptMissing is returned when the node no longer knows a sent
	// transaction. The nonce cache is reset before the next attempt.
	ErrReceiptMissing = errors.New("the transaction was dropped before it was included")
	// ErrCommitmentMismatch is returned when the local hash chain does not
	// reproduce the on-chain commitment. The pipeline is not restarted.
	ErrCommitmentMismatch = errors.New("the hash chain does not match the on-chain commitment")
	// ErrChainLengthExceeded is returned when the on-chain commitment
	// declares a hash chain longer than the configured max chain length.
	// The pipeline is not restarted.
	ErrChainLengthExceeded = errors.New("the committed hash chain is longer than the max chain length")
	ErrKeeperShutDown      = errors.New("the keeper is shutting down")
)

// IsPermanent reports whether err is known to fail again on retry.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrGasLimitExceeded) || haltsPipeline(err)
}

// haltsPipeline reports whether err can only be fixed by the operator.
func haltsPipeline(err error) bool {
	return errors.Is(err, ErrCommitmentMismatch) || errors.Is(err, ErrChainLengthExceeded)
}
