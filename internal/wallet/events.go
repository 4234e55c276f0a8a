package wallet

import (
	"math/big"
	"time"

	"simplestorage/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

// Event is anything the client loop applies to State. The exported events
// can be queued from outside with Client.Notify.
type Event interface {
	isEvent()
}

type ConnectRequested struct{}

type DisconnectRequested struct{}

type InputChanged struct {
	Value string
}

type SubmitRequested struct{}

type RefreshRequested struct{}

// AccountChanged is fired by the wallet when the active account switches.
// A zero address means the wallet dropped every account.
type AccountChanged struct {
	Address common.Address
}

// ChainChanged is fired by the wallet when the user switches networks.
type ChainChanged struct {
	ChainID uint64
}

// Disconnected is fired by the wallet when the session ends on its side.
type Disconnected struct{}

type sessionOpened struct {
	session   Session
	connector string
	address   common.Address
	chainID   uint64
}

type connectFailed struct {
	err error
}

type txSubmitted struct {
	hash common.Hash
	at   time.Time
}

type submitFailed struct {
	err *WriteError
}

type receiptMined struct {
	receipt domain.Receipt
}

type valueRead struct {
	value *big.Int
}

type valueReadFailed struct {
	err error
}

type balanceRead struct {
	account common.Address
	wei     *big.Int
}

type balanceReadFailed struct {
	account common.Address
	err     error
}

func (ConnectRequested) isEvent()    {}
func (DisconnectRequested) isEvent() {}
func (InputChanged) isEvent()        {}
func (SubmitRequested) isEvent()     {}
func (RefreshRequested) isEvent()    {}
func (AccountChanged) isEvent()      {}
func (ChainChanged) isEvent()        {}
func (Disconnected) isEvent()        {}
func (sessionOpened) isEvent()       {}
func (connectFailed) isEvent()       {}
func (txSubmitted) isEvent()         {}
func (submitFailed) isEvent()        {}
func (receiptMined) isEvent()        {}
func (valueRead) isEvent()           {}
func (valueReadFailed) isEvent()     {}
func (balanceRead) isEvent()         {}
func (balanceReadFailed) isEvent()   {}
