package hashchain

import (
	"errors"
	"fmt"
	"sort"
)

// State serves revelations for a provider that may have rotated its
// commitment over time. Each chain becomes active at its offset and stays
// active until the next chain's offset.
type State struct {
	offsets []uint64
	chains  []*HashChain
}

// NewState builds a state from chains and their offsets. Offsets must be
// strictly ascending and each chain must cover its slot.
func NewState(offsets []uint64, chains []*HashChain) (*State, error) {
	if len(offsets) == 0 {
		return nil, errors.New("the hash chain state needs at least one chain")
	}
	if len(offsets) != len(chains) {
		return nil, fmt.Errorf("got %d offsets for %d hash chains", len(offsets), len(chains))
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] <= offsets[i-1] {
			return nil, fmt.Errorf("hash chain offsets must be strictly ascending: %d follows %d", offsets[i], offsets[i-1])
		}
	}

	return &State{
		offsets: append([]uint64(nil), offsets...),
		chains:  append([]*HashChain(nil), chains...),
	}, nil
}

// NewSingleState is a shorthand for a state with exactly one chain.
func NewSingleState(offset uint64, chain *HashChain) *State {
	return &State{
		offsets: []uint64{offset},
		chains:  []*HashChain{chain},
	}
}

// Reveal returns the value to reveal for the given sequence number, which is
// chain[sequenceNumber - offset] of the chain active at that sequence number.
func (s *State) Reveal(sequenceNumber uint64) (Digest, error) {
	// index of the last chain whose offset is <= sequenceNumber
	i := sort.Search(len(s.offsets), func(i int) bool {
		return s.offsets[i] > sequenceNumber
	}) - 1
	if i < 0 {
		return Digest{}, &OutOfRangeError{
			Index:  int64(sequenceNumber) - int64(s.offsets[0]),
			Length: s.chains[0].Len(),
		}
	}

	return s.chains[i].Reveal(int64(sequenceNumber - s.offsets[i]))
}

// LastSequenceNumber returns the last sequence number covered by the state.
func (s *State) LastSequenceNumber() uint64 {
	last := len(s.offsets) - 1

	return s.offsets[last] + s.chains[last].Len() - 1
}

// VerifyCommitment reports whether the state reproduces the committed root
// at the committed offset. A false result means the local secret or the
// on-chain metadata is wrong and reveals must not be served.
func VerifyCommitment(s *State, committedRoot Digest, committedOffset uint64) bool {
	revealed, err := s.Reveal(committedOffset)
	if err != nil {
		return false
	}

	return revealed == committedRoot
}
