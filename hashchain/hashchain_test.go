package hashchain_test

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/entropy-keeper/hashchain"
	"github.com/babylonlabs-io/entropy-keeper/testutil"
)

const testChainID = "ethereum"

var (
	testProvider = common.HexToAddress("0x6CC14824Ea2918f5De5C2f75A9Da968ad4BD6344")
	testContract = common.HexToAddress("0x4821932D0CDd71225A6d914706A621e0389D7061")
)

// FuzzRevealIsPure checks that revealing the same index twice gives the
// same digest and that every element hashes to its predecessor
func FuzzRevealIsPure(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)
	f.Fuzz(func(t *testing.T, seed int64) {
		t.Parallel()
		r := rand.New(rand.NewSource(seed))

		secret := testutil.GenRandomByteArray(r, 32)
		chainSeed := testutil.GenRandomDigest(r)
		length := uint64(r.Intn(500)) + 2

		hc, err := hashchain.Generate(secret, testChainID, testProvider, testContract, chainSeed, length)
		require.NoError(t, err)
		require.Equal(t, length, hc.Len())

		again, err := hashchain.Generate(secret, testChainID, testProvider, testContract, chainSeed, length)
		require.NoError(t, err)

		idx := int64(r.Intn(int(length) - 1))
		first, err := hc.Reveal(idx)
		require.NoError(t, err)
		second, err := again.Reveal(idx)
		require.NoError(t, err)
		require.Equal(t, first, second)

		next, err := hc.Reveal(idx + 1)
		require.NoError(t, err)
		require.Equal(t, first, hashchain.Digest(crypto.Keccak256Hash(next[:])))
		require.True(t, hashchain.VerifyReveal(next, first, 1))
	})
}

// FuzzVerifyCommitment checks that a chain verifies against its own root
// and that changing any byte of the secret or the seed breaks verification
func FuzzVerifyCommitment(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)
	f.Fuzz(func(t *testing.T, seed int64) {
		t.Parallel()
		r := rand.New(rand.NewSource(seed))

		secret := testutil.GenRandomByteArray(r, uint64(r.Intn(64))+1)
		chainSeed := testutil.GenRandomDigest(r)
		length := uint64(r.Intn(200)) + 1
		offset := uint64(r.Intn(1000))

		hc, err := hashchain.Generate(secret, testChainID, testProvider, testContract, chainSeed, length)
		require.NoError(t, err)
		state := hashchain.NewSingleState(offset, hc)

		root, err := state.Reveal(offset)
		require.NoError(t, err)
		require.Equal(t, hc.Root(), root)
		require.True(t, hashchain.VerifyCommitment(state, root, offset))

		mutatedSecret := append([]byte(nil), secret...)
		mutatedSecret[r.Intn(len(mutatedSecret))] ^= byte(r.Intn(255) + 1)
		hc2, err := hashchain.Generate(mutatedSecret, testChainID, testProvider, testContract, chainSeed, length)
		require.NoError(t, err)
		require.False(t, hashchain.VerifyCommitment(hashchain.NewSingleState(offset, hc2), root, offset))

		mutatedSeed := chainSeed
		mutatedSeed[r.Intn(len(mutatedSeed))] ^= byte(r.Intn(255) + 1)
		hc3, err := hashchain.Generate(secret, testChainID, testProvider, testContract, mutatedSeed, length)
		require.NoError(t, err)
		require.False(t, hashchain.VerifyCommitment(hashchain.NewSingleState(offset, hc3), root, offset))
	})
}

func TestGenerateIsDomainSeparated(t *testing.T) {
	t.Parallel()
	secret := []byte("s")
	var seed hashchain.Digest

	base, err := hashchain.Generate(secret, testChainID, testProvider, testContract, seed, 10)
	require.NoError(t, err)

	otherChain, err := hashchain.Generate(secret, "blast", testProvider, testContract, seed, 10)
	require.NoError(t, err)
	require.NotEqual(t, base.Root(), otherChain.Root())

	otherProvider, err := hashchain.Generate(secret, testChainID, testContract, testContract, seed, 10)
	require.NoError(t, err)
	require.NotEqual(t, base.Root(), otherProvider.Root())

	otherContract, err := hashchain.Generate(secret, testChainID, testProvider, testProvider, seed, 10)
	require.NoError(t, err)
	require.NotEqual(t, base.Root(), otherContract.Root())
}

func TestGenerateInvalidInput(t *testing.T) {
	t.Parallel()
	var seed hashchain.Digest

	_, err := hashchain.Generate(nil, testChainID, testProvider, testContract, seed, 10)
	require.ErrorIs(t, err, hashchain.ErrEmptySecret)

	_, err = hashchain.Generate([]byte("s"), testChainID, testProvider, testContract, seed, 0)
	require.ErrorIs(t, err, hashchain.ErrZeroLength)

	// lengths read from a corrupt commitment must not reach the allocation
	for _, length := range []uint64{hashchain.MaxLength + 1, 1 << 62, math.MaxUint64} {
		_, err = hashchain.Generate([]byte("s"), testChainID, testProvider, testContract, seed, length)
		require.ErrorIs(t, err, hashchain.ErrTooLong)
		_, err = hashchain.FromTip(seed, length)
		require.ErrorIs(t, err, hashchain.ErrTooLong)
	}
}

func TestRevealOutOfRange(t *testing.T) {
	t.Parallel()
	hc, err := hashchain.Generate([]byte("s"), testChainID, testProvider, testContract, hashchain.Digest{}, 10)
	require.NoError(t, err)

	_, err = hc.Reveal(-1)
	require.True(t, hashchain.IsOutOfRange(err))
	_, err = hc.Reveal(10)
	require.True(t, hashchain.IsOutOfRange(err))

	state := hashchain.NewSingleState(100, hc)
	_, err = state.Reveal(99)
	require.True(t, hashchain.IsOutOfRange(err))
	_, err = state.Reveal(110)
	require.True(t, hashchain.IsOutOfRange(err))
	_, err = state.Reveal(109)
	require.NoError(t, err)
	require.Equal(t, uint64(109), state.LastSequenceNumber())
	require.False(t, hashchain.VerifyCommitment(state, hc.Root(), 200))
}

func TestLongChainMatchesIndependentDerivation(t *testing.T) {
	t.Parallel()
	const (
		length = uint64(100_000)
		offset = uint64(5)
	)
	secret := []byte("s")
	var seed hashchain.Digest

	hc, err := hashchain.Generate(secret, testChainID, testProvider, testContract, seed, length)
	require.NoError(t, err)
	state := hashchain.NewSingleState(offset, hc)

	// rebuild the last element from its preimage and walk down to index 0
	preimage := append([]byte{}, secret...)
	preimage = append(preimage, testChainID...)
	preimage = append(preimage, testProvider.Bytes()...)
	preimage = append(preimage, testContract.Bytes()...)
	preimage = append(preimage, seed[:]...)
	preimage = binary.BigEndian.AppendUint64(preimage, length)
	current := crypto.Keccak256(preimage)
	for i := uint64(0); i < length-1; i++ {
		current = crypto.Keccak256(current)
	}

	revealed, err := state.Reveal(offset)
	require.NoError(t, err)
	require.Equal(t, current, revealed[:])
	require.True(t, hashchain.VerifyCommitment(state, hashchain.Digest(current), offset))

	later, err := state.Reveal(offset + 99_994)
	require.NoError(t, err)
	require.True(t, hashchain.VerifyReveal(later, revealed, 99_994))

	tip, err := state.Reveal(offset + length - 1)
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256(preimage), tip[:])
}

func TestStateSelectsActiveChain(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(1))
	secret := testutil.GenRandomByteArray(r, 32)

	first, err := hashchain.Generate(secret, testChainID, testProvider, testContract, testutil.GenRandomDigest(r), 50)
	require.NoError(t, err)
	second, err := hashchain.Generate(secret, testChainID, testProvider, testContract, testutil.GenRandomDigest(r), 50)
	require.NoError(t, err)

	state, err := hashchain.NewState([]uint64{0, 30}, []*hashchain.HashChain{first, second})
	require.NoError(t, err)

	v, err := state.Reveal(29)
	require.NoError(t, err)
	expected, err := first.Reveal(29)
	require.NoError(t, err)
	require.Equal(t, expected, v)

	v, err = state.Reveal(30)
	require.NoError(t, err)
	require.Equal(t, second.Root(), v)
	require.True(t, hashchain.VerifyCommitment(state, second.Root(), 30))
	require.Equal(t, uint64(79), state.LastSequenceNumber())

	_, err = hashchain.NewState([]uint64{30, 30}, []*hashchain.HashChain{first, second})
	require.Error(t, err)
	_, err = hashchain.NewState([]uint64{0}, []*hashchain.HashChain{first, second})
	require.Error(t, err)
}
