package domain

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// StoredValue is the unsigned integer held by the storage contract.
// Every read is a fresh chain query; there is no local authoritative copy.
type StoredValue struct {
	Value *big.Int
}

// String renders the value in base 10 so large integers survive JSON intact.
func (v StoredValue) String() string {
	if v.Value == nil {
		return "0"
	}
	return v.Value.String()
}

// ValueUpdatedEvent is one ValueUpdated log emitted by a successful setValue.
type ValueUpdatedEvent struct {
	BlockNumber uint64
	LogIndex    uint64
	NewValue    *big.Int
	TxHash      common.Hash
}

// ValueUpdatedView is the wire shape of a ValueUpdatedEvent.
type ValueUpdatedView struct {
	BlockNumber string `json:"blockNumber" example:"100042"`
	Value       string `json:"value" example:"12345"`
	TxHash      string `json:"txHash" example:"0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"`
}

func (e ValueUpdatedEvent) View() ValueUpdatedView {
	value := "0"
	if e.NewValue != nil {
		value = e.NewValue.String()
	}
	return ValueUpdatedView{
		BlockNumber: strconv.FormatUint(e.BlockNumber, 10),
		Value:       value,
		TxHash:      e.TxHash.Hex(),
	}
}
