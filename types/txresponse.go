package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Call is a contract call that has not been turned into a transaction yet.
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Transaction is a call with the fields needed to sign and broadcast it.
// For legacy chains GasTipCap is nil and GasFeeCap carries the gas price.
type Transaction struct {
	Call

	GasLimit  uint64
	Nonce     uint64
	GasFeeCap *big.Int
	GasTipCap *big.Int
}

func NewTransaction(call Call, gasLimit uint64) *Transaction {
	return &Transaction{Call: call, GasLimit: gasLimit}
}

func (tx *Transaction) IsDynamicFee() bool {
	return tx.GasTipCap != nil
}

// ScaleFees multiplies the fee fields by pct/100.
func (tx *Transaction) ScaleFees(pct uint64) {
	tx.GasFeeCap = scalePct(tx.GasFeeCap, pct)
	tx.GasTipCap = scalePct(tx.GasTipCap, pct)
}

func scalePct(v *big.Int, pct uint64) *big.Int {
	if v == nil {
		return nil
	}
	scaled := new(big.Int).Mul(v, new(big.Int).SetUint64(pct))

	return scaled.Div(scaled, big.NewInt(100))
}

// FeeEstimate is the fee market suggestion of a chain.
type FeeEstimate struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

type Receipt struct {
	TxHash            common.Hash
	BlockNumber       uint64
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	// Status is 1 for success and 0 for a reverted transaction.
	Status uint64
}

func (r *Receipt) Succeeded() bool {
	return r.Status == 1
}

// Fee is the amount in wei paid for the transaction.
func (r *Receipt) Fee() *big.Int {
	if r.EffectiveGasPrice == nil {
		return new(big.Int)
	}

	return new(big.Int).Mul(r.EffectiveGasPrice, new(big.Int).SetUint64(r.GasUsed))
}

// SubmitTxResult describes one logical submission, including all of its
// retries. It is only used for observability.
type SubmitTxResult struct {
	ChainID          string
	SequenceNumber   uint64
	NumRetries       uint64
	GasMultiplierPct uint64
	FeeMultiplierPct uint64
	NonceResets      uint64
	Duration         time.Duration
	Receipt          *Receipt
	Err              error
}

func (r *SubmitTxResult) Succeeded() bool {
	return r.Err == nil && r.Receipt != nil
}
