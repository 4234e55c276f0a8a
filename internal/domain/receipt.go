package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Receipt summarizes the mined outcome of a submitted transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Status      uint64
	GasUsed     uint64
}

// Succeeded reports whether the transaction executed without reverting.
func (r Receipt) Succeeded() bool {
	return r.Status == 1
}

// PendingTransaction is a broadcast transaction awaiting its receipt.
// It is never retried; polling stops on confirmation or teardown.
type PendingTransaction struct {
	Hash        common.Hash
	SubmittedAt time.Time
}
