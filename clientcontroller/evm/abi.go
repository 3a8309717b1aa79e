package evm

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/babylonlabs-io/entropy-keeper/types"
)

const (
	requestedWithCallbackEvent = "RequestedWithCallback"
	revealWithCallbackMethod   = "revealWithCallback"
	getProviderInfoMethod      = "getProviderInfo"
)

// entropyABI is the part of the entropy contract interface the keeper uses
const entropyABI = `[
  {
    "type": "event",
    "name": "RequestedWithCallback",
    "anonymous": false,
    "inputs": [
      {"name": "provider", "type": "address", "indexed": true},
      {"name": "requestor", "type": "address", "indexed": true},
      {"name": "sequenceNumber", "type": "uint64", "indexed": true},
      {"name": "userRandomNumber", "type": "bytes32", "indexed": false},
      {
        "name": "request", "type": "tuple", "indexed": false,
        "components": [
          {"name": "provider", "type": "address"},
          {"name": "sequenceNumber", "type": "uint64"},
          {"name": "numHashes", "type": "uint32"},
          {"name": "commitment", "type": "bytes32"},
          {"name": "blockNumber", "type": "uint64"},
          {"name": "requester", "type": "address"},
          {"name": "useBlockhash", "type": "bool"},
          {"name": "isRequestWithCallback", "type": "bool"}
        ]
      }
    ]
  },
  {
    "type": "function",
    "name": "revealWithCallback",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "provider", "type": "address"},
      {"name": "sequenceNumber", "type": "uint64"},
      {"name": "userRandomNumber", "type": "bytes32"},
      {"name": "providerRevelation", "type": "bytes32"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "getProviderInfo",
    "stateMutability": "view",
    "inputs": [
      {"name": "provider", "type": "address"}
    ],
    "outputs": [
      {
        "name": "info", "type": "tuple",
        "components": [
          {"name": "feeInWei", "type": "uint128"},
          {"name": "accruedFeesInWei", "type": "uint128"},
          {"name": "originalCommitment", "type": "bytes32"},
          {"name": "originalCommitmentSequenceNumber", "type": "uint64"},
          {"name": "commitmentMetadata", "type": "bytes"},
          {"name": "uri", "type": "bytes"},
          {"name": "endSequenceNumber", "type": "uint64"},
          {"name": "sequenceNumber", "type": "uint64"},
          {"name": "currentCommitment", "type": "bytes32"},
          {"name": "currentCommitmentSequenceNumber", "type": "uint64"}
        ]
      }
    ]
  }
]`

// commitmentMetadataSize is seed (32) || little endian chain length (8)
const commitmentMetadataSize = 32 + 8

// providerInfo mirrors the getProviderInfo tuple
type providerInfo struct {
	FeeInWei                         *big.Int
	AccruedFeesInWei                 *big.Int
	OriginalCommitment               [32]byte
	OriginalCommitmentSequenceNumber uint64
	CommitmentMetadata               []byte
	Uri                              []byte //nolint:revive // must match the abi field name
	EndSequenceNumber                uint64
	SequenceNumber                   uint64
	CurrentCommitment                [32]byte
	CurrentCommitmentSequenceNumber  uint64
}

// request mirrors the request tuple of RequestedWithCallback
type request struct {
	Provider              common.Address
	SequenceNumber        uint64
	NumHashes             uint32
	Commitment            [32]byte
	BlockNumber           uint64
	Requester             common.Address
	UseBlockhash          bool
	IsRequestWithCallback bool
}

type entropyContract struct {
	abi abi.ABI
}

func newEntropyContract() (*entropyContract, error) {
	parsed, err := abi.JSON(strings.NewReader(entropyABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse the entropy abi: %w", err)
	}

	return &entropyContract{abi: parsed}, nil
}

func (c *entropyContract) requestedWithCallbackID() common.Hash {
	return c.abi.Events[requestedWithCallbackEvent].ID
}

func (c *entropyContract) packReveal(provider common.Address, seq uint64, userRandomNumber, revelation [32]byte) ([]byte, error) {
	return c.abi.Pack(revealWithCallbackMethod, provider, seq, userRandomNumber, revelation)
}

func (c *entropyContract) packGetProviderInfo(provider common.Address) ([]byte, error) {
	return c.abi.Pack(getProviderInfoMethod, provider)
}

func (c *entropyContract) unpackProviderCommitment(data []byte) (*types.ProviderCommitment, error) {
	out, err := c.abi.Unpack(getProviderInfoMethod, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack the provider info: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("expected one provider info, got %d values", len(out))
	}
	info, ok := abi.ConvertType(out[0], new(providerInfo)).(*providerInfo)
	if !ok {
		return nil, fmt.Errorf("unexpected provider info type %T", out[0])
	}

	seed, chainLength, err := decodeCommitmentMetadata(info.CommitmentMetadata)
	if err != nil {
		return nil, err
	}

	return &types.ProviderCommitment{
		OriginalCommitment:     info.OriginalCommitment,
		OriginalSequenceNumber: info.OriginalCommitmentSequenceNumber,
		Seed:                   seed,
		ChainLength:            chainLength,
		CurrentSequenceNumber:  info.SequenceNumber,
		EndSequenceNumber:      info.EndSequenceNumber,
	}, nil
}

func decodeCommitmentMetadata(metadata []byte) ([32]byte, uint64, error) {
	var seed [32]byte
	if len(metadata) != commitmentMetadataSize {
		return seed, 0, fmt.Errorf("commitment metadata must be %d bytes, got %d", commitmentMetadataSize, len(metadata))
	}
	copy(seed[:], metadata[:32])

	return seed, binary.LittleEndian.Uint64(metadata[32:]), nil
}

func encodeCommitmentMetadata(seed [32]byte, chainLength uint64) []byte {
	metadata := make([]byte, 0, commitmentMetadataSize)
	metadata = append(metadata, seed[:]...)

	return binary.LittleEndian.AppendUint64(metadata, chainLength)
}

func (c *entropyContract) unpackRequestEvent(log *ethtypes.Log) (*types.RequestEvent, error) {
	if len(log.Topics) != 4 || log.Topics[0] != c.requestedWithCallbackID() {
		return nil, fmt.Errorf("log %s:%d is not a %s event", log.TxHash.Hex(), log.Index, requestedWithCallbackEvent)
	}

	values, err := c.abi.Events[requestedWithCallbackEvent].Inputs.Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack the request event: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("expected 2 non-indexed values in the request event, got %d", len(values))
	}
	userRandomNumber, ok := values[0].([32]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected user random number type %T", values[0])
	}
	req, ok := abi.ConvertType(values[1], new(request)).(*request)
	if !ok {
		return nil, fmt.Errorf("unexpected request type %T", values[1])
	}

	seq := new(big.Int).SetBytes(log.Topics[3].Bytes())
	if !seq.IsUint64() {
		return nil, fmt.Errorf("sequence number %s overflows uint64", seq)
	}

	return &types.RequestEvent{
		Provider:         common.BytesToAddress(log.Topics[1].Bytes()),
		Requester:        common.BytesToAddress(log.Topics[2].Bytes()),
		SequenceNumber:   seq.Uint64(),
		UserRandomNumber: userRandomNumber,
		BlockNumber:      log.BlockNumber,
		TxHash:           log.TxHash,
		UseCallback:      req.IsRequestWithCallback,
	}, nil
}
