package api

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/babylonlabs-io/entropy-keeper/types"
)

// ChainClient is the capability set the keeper needs from one chain.
// Implementations must be safe for concurrent use.
type ChainClient interface {
	BlockQuerier
	EntropyQuerier
	TxSender

	// Close cleanly shuts down the client
	Close() error
}

type BlockQuerier interface {
	// GetBlockNumber returns the number of the chain head with the given status
	GetBlockNumber(ctx context.Context, status types.BlockStatus) (uint64, error)

	// WatchBlocks streams new head numbers until ctx is done. The returned
	// channel is closed when the stream ends, either because ctx is done or
	// because the underlying connection failed.
	WatchBlocks(ctx context.Context) (<-chan uint64, error)
}

// EntropyQuerier reads the state of the entropy contract for the configured provider
type EntropyQuerier interface {
	// GetRequestEvents returns the request events for the provider within
	// the inclusive block interval [from, to]
	GetRequestEvents(ctx context.Context, from, to uint64) ([]*types.RequestEvent, error)

	// GetProviderCommitment returns the provider's commitment stored in the contract
	GetProviderCommitment(ctx context.Context) (*types.ProviderCommitment, error)

	// RevealCall builds the call that reveals revelation for the request
	RevealCall(event *types.RequestEvent, revelation [32]byte) (*types.Call, error)
}

// TxSender owns the write path of the client, including its nonce cache
type TxSender interface {
	// EstimateGas simulates the call and returns its gas usage
	EstimateGas(ctx context.Context, call *types.Call) (uint64, error)

	// GetFeeEstimate returns the current fee suggestion of the chain
	GetFeeEstimate(ctx context.Context) (*types.FeeEstimate, error)

	// FillTransaction sets the nonce and fee fields of tx
	FillTransaction(ctx context.Context, tx *types.Transaction) error

	// SendTransaction signs and broadcasts tx and returns its hash
	SendTransaction(ctx context.Context, tx *types.Transaction) (common.Hash, error)

	// WaitForReceipt blocks until the transaction is included or ctx is done.
	// A nil receipt with a nil error means the node no longer knows the
	// transaction.
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)

	// ResetNonce drops the cached nonce so the next fill reads it from the chain
	ResetNonce()
}
