package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// RequestEvent is a randomness request emitted by the entropy contract.
type RequestEvent struct {
	Provider         common.Address
	Requester        common.Address
	SequenceNumber   uint64
	UserRandomNumber [32]byte
	BlockNumber      uint64
	TxHash           common.Hash
	UseCallback      bool
}

// ProviderCommitment is the provider's commitment as stored by the contract.
type ProviderCommitment struct {
	// OriginalCommitment is the root of the active hash chain.
	OriginalCommitment [32]byte
	// OriginalSequenceNumber is the sequence number at which the chain became active.
	OriginalSequenceNumber uint64
	Seed                   [32]byte
	ChainLength            uint64

	CurrentSequenceNumber uint64
	EndSequenceNumber     uint64
}
