package testutil

import (
	"encoding/hex"
	"math/big"
	"math/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/babylonlabs-io/entropy-keeper/types"
)

func GenRandomByteArray(r *rand.Rand, length uint64) []byte {
	newHeaderBytes := make([]byte, length)
	r.Read(newHeaderBytes)

	return newHeaderBytes
}

func GenRandomHexStr(r *rand.Rand, length uint64) string {
	randBytes := GenRandomByteArray(r, length)

	return hex.EncodeToString(randBytes)
}

func GenRandomDigest(r *rand.Rand) [32]byte {
	var d [32]byte
	r.Read(d[:])

	return d
}

func GenRandomAddress(r *rand.Rand) common.Address {
	return common.BytesToAddress(GenRandomByteArray(r, common.AddressLength))
}

func GenRandomHash(r *rand.Rand) common.Hash {
	return common.BytesToHash(GenRandomByteArray(r, common.HashLength))
}

func AddRandomSeedsToFuzzer(f *testing.F, num uint) {
	// Seed based on the current time
	r := rand.New(rand.NewSource(time.Now().Unix()))
	var idx uint
	for idx = 0; idx < num; idx++ {
		f.Add(r.Int63())
	}
}

// GenRequestEvents generates one request event per sequence number in
// [startSeq, startSeq+num) spread over the blocks of br.
func GenRequestEvents(r *rand.Rand, provider common.Address, br types.BlockRange, startSeq, num uint64) []*types.RequestEvent {
	events := make([]*types.RequestEvent, 0, num)
	for i := uint64(0); i < num; i++ {
		events = append(events, &types.RequestEvent{
			Provider:         provider,
			Requester:        GenRandomAddress(r),
			SequenceNumber:   startSeq + i,
			UserRandomNumber: GenRandomDigest(r),
			BlockNumber:      br.From + uint64(r.Int63n(int64(br.Len()))),
			TxHash:           GenRandomHash(r),
			UseCallback:      true,
		})
	}

	return events
}

func GenReceipt(r *rand.Rand, blockNumber uint64) *types.Receipt {
	return &types.Receipt{
		TxHash:            GenRandomHash(r),
		BlockNumber:       blockNumber,
		GasUsed:           uint64(r.Int63n(200_000)) + 21_000,
		EffectiveGasPrice: big.NewInt(r.Int63n(100_000_000_000) + 1),
		Status:            1,
	}
}
