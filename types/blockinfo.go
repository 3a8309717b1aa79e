package types

import (
	"fmt"
	"strings"
)

// BlockStatus selects which head of the chain a block number query refers to.
type BlockStatus int

const (
	BlockStatusLatest BlockStatus = iota
	BlockStatusSafe
	BlockStatusFinalized
)

func (s BlockStatus) String() string {
	switch s {
	case BlockStatusLatest:
		return "latest"
	case BlockStatusSafe:
		return "safe"
	case BlockStatusFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func ParseBlockStatus(s string) (BlockStatus, error) {
	switch strings.ToLower(s) {
	case "latest", "":
		return BlockStatusLatest, nil
	case "safe":
		return BlockStatusSafe, nil
	case "finalized":
		return BlockStatusFinalized, nil
	default:
		return 0, fmt.Errorf("unsupported block status %q", s)
	}
}

// BlockRange is an inclusive interval of block numbers.
type BlockRange struct {
	From uint64
	To   uint64
}

func NewBlockRange(from, to uint64) BlockRange {
	return BlockRange{From: from, To: to}
}

func (r BlockRange) Len() uint64 {
	if r.To < r.From {
		return 0
	}

	return r.To - r.From + 1
}

func (r BlockRange) IsValid() bool {
	return r.From <= r.To
}

// Split cuts the range into consecutive sub-ranges of at most size blocks.
func (r BlockRange) Split(size uint64) []BlockRange {
	if size == 0 || !r.IsValid() {
		return nil
	}

	ranges := make([]BlockRange, 0, (r.Len()+size-1)/size)
	for from := r.From; from <= r.To; {
		to := from + size - 1
		if to > r.To || to < from {
			to = r.To
		}
		ranges = append(ranges, BlockRange{From: from, To: to})
		if to == r.To {
			break
		}
		from = to + 1
	}

	return ranges
}

func (r BlockRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.From, r.To)
}
