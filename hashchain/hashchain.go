// Package hashchain implements the provider side of the commit-reveal protocol.
//
// A hash chain of length N is generated from a secret so that
// chain[i] = keccak256(chain[i+1]). The provider commits chain[0] on-chain
// and later reveals chain[1], chain[2], ... one per request. Anyone holding an
// earlier value can hash a revelation forward to check it, but nobody can
// derive later values from earlier ones.
package hashchain

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DigestSize is the size in bytes of every element of a hash chain.
const DigestSize = 32

// MaxLength caps the length of a hash chain held in memory (512 MiB of digests).
const MaxLength = uint64(1) << 24

type Digest = [DigestSize]byte

var (
	ErrEmptySecret = errors.New("the hash chain secret cannot be empty")
	ErrZeroLength  = errors.New("the hash chain length must be positive")
	ErrTooLong     = fmt.Errorf("the hash chain length must not exceed %d", MaxLength)
)

// OutOfRangeError is returned when a revelation is requested for an index the
// chain does not cover.
type OutOfRangeError struct {
	Index  int64
	Length uint64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("index %d is out of range for a hash chain of length %d", e.Index, e.Length)
}

// IsOutOfRange reports whether err is an *OutOfRangeError.
func IsOutOfRange(err error) bool {
	var target *OutOfRangeError

	return errors.As(err, &target)
}

// HashChain is an immutable sequence of digests.
type HashChain struct {
	hashes []Digest
}

// Generate deterministically builds the hash chain for a (chain, provider,
// contract) tuple. The last element is derived from a domain-separated
// preimage so that the same secret never produces colliding chains for two
// different deployments.
func Generate(
	secret []byte,
	chainID string,
	provider common.Address,
	contract common.Address,
	seed Digest,
	length uint64,
) (*HashChain, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	tip := crypto.Keccak256Hash(preimage(secret, chainID, provider, contract, seed, length))

	return FromTip(tip, length)
}

// FromTip builds a chain of the given length whose last element is tip.
func FromTip(tip Digest, length uint64) (*HashChain, error) {
	if length == 0 {
		return nil, ErrZeroLength
	}
	if length > MaxLength {
		return nil, fmt.Errorf("%w: got %d", ErrTooLong, length)
	}

	hashes := make([]Digest, length)
	hashes[length-1] = tip
	for i := length - 1; i > 0; i-- {
		hashes[i-1] = crypto.Keccak256Hash(hashes[i][:])
	}

	return &HashChain{hashes: hashes}, nil
}

func preimage(
	secret []byte,
	chainID string,
	provider common.Address,
	contract common.Address,
	seed Digest,
	length uint64,
) []byte {
	buf := make([]byte, 0, len(secret)+len(chainID)+2*common.AddressLength+DigestSize+8)
	buf = append(buf, secret...)
	buf = append(buf, chainID...)
	buf = append(buf, provider.Bytes()...)
	buf = append(buf, contract.Bytes()...)
	buf = append(buf, seed[:]...)
	buf = binary.BigEndian.AppendUint64(buf, length)

	return buf
}

// Len returns the number of digests in the chain.
func (hc *HashChain) Len() uint64 {
	return uint64(len(hc.hashes))
}

// Root returns the first element of the chain, which is the value committed on-chain.
func (hc *HashChain) Root() Digest {
	return hc.hashes[0]
}

// Reveal returns the digest at the given index.
func (hc *HashChain) Reveal(index int64) (Digest, error) {
	if index < 0 || uint64(index) >= hc.Len() {
		return Digest{}, &OutOfRangeError{Index: index, Length: hc.Len()}
	}

	return hc.hashes[index], nil
}

// VerifyReveal hashes revelation forward numHashes times and reports whether
// the result equals commitment. This is the check the contract performs.
func VerifyReveal(revelation Digest, commitment Digest, numHashes uint64) bool {
	current := revelation
	for i := uint64(0); i < numHashes; i++ {
		current = crypto.Keccak256Hash(current[:])
	}

	return current == commitment
}
