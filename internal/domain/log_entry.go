package domain

import "github.com/ethereum/go-ethereum/common"

// LogEntry represents a contract log returned by the chain.
type LogEntry struct {
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint64
	Address     common.Address
	Data        []byte
	Topics      []common.Hash
	Removed     bool
}

// Before reports whether l precedes other in chain log order.
func (l LogEntry) Before(other LogEntry) bool {
	if l.BlockNumber != other.BlockNumber {
		return l.BlockNumber < other.BlockNumber
	}
	return l.LogIndex < other.LogIndex
}
