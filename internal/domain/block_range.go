package domain

import (
	"errors"
	"fmt"
)

// DefaultMaxBlockSpan bounds toBlock-fromBlock for a single log query.
const DefaultMaxBlockSpan uint64 = 2048

var (
	ErrRangeInverted = errors.New("toBlock must be greater than or equal to fromBlock")
	ErrRangeTooWide  = errors.New("block range too wide")
)

// BlockRange is an inclusive [From, To] range of block heights.
type BlockRange struct {
	From uint64
	To   uint64
}

// NewBlockRange validates ordering and span. A zero maxSpan means DefaultMaxBlockSpan.
func NewBlockRange(from, to, maxSpan uint64) (BlockRange, error) {
	if maxSpan == 0 {
		maxSpan = DefaultMaxBlockSpan
	}
	if to < from {
		return BlockRange{}, ErrRangeInverted
	}
	if span := to - from; span > maxSpan {
		return BlockRange{}, fmt.Errorf("%w: span %d exceeds maximum allowed (%d), please request a smaller range", ErrRangeTooWide, span, maxSpan)
	}
	return BlockRange{From: from, To: to}, nil
}

func (r BlockRange) Span() uint64 {
	return r.To - r.From
}
