package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const nativeDecimals = 18

// Balance is the native coin balance of an address, in wei.
type Balance struct {
	Wei *big.Int
}

// Format renders the balance in whole coins rounded to places decimals.
func (b Balance) Format(places int32) string {
	if b.Wei == nil {
		return decimal.Zero.StringFixed(places)
	}
	return decimal.NewFromBigInt(b.Wei, -nativeDecimals).StringFixed(places)
}
