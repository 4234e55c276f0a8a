// Package wallet drives the signing side of the storage contract: it
// connects a wallet, reads the stored value, submits setValue transactions
// and follows each one until its receipt is mined.
//
// All state lives in one State value owned by Client.Run. Wallet
// notifications, user intents and async results are queued as events and
// applied one at a time by transition.
package wallet

import (
	"math/big"

	"simplestorage/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseWrongNetwork
	PhaseReady
	PhaseSubmitting
	PhaseConfirming
	PhaseConfirmed
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseWrongNetwork:
		return "wrong_network"
	case PhaseReady:
		return "ready"
	case PhaseSubmitting:
		return "submitting"
	case PhaseConfirming:
		return "confirming"
	case PhaseConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Connected reports whether a wallet session is live in this phase.
func (p Phase) Connected() bool {
	return p >= PhaseWrongNetwork
}

type State struct {
	Phase      Phase
	Connection domain.ConnectionState
	Connector  string
	Input      string

	Value        *big.Int
	ReadError    string
	Balance      *big.Int
	BalanceError string

	PendingTx *domain.PendingTransaction
	LastTx    common.Hash
	LastError string
}

// CanSubmit reports whether a submit would pass the guards.
func (s State) CanSubmit(requiredChainID uint64) bool {
	if s.Input == "" || !s.Connection.OnChain(requiredChainID) {
		return false
	}
	return s.Phase == PhaseReady || s.Phase == PhaseConfirmed
}

// WrongNetwork is true while connected to any chain other than the required one.
func (s State) WrongNetwork(requiredChainID uint64) bool {
	return s.Connection.IsConnected && s.Connection.ChainID != requiredChainID
}

func (s State) clone() State {
	out := s
	if s.Value != nil {
		out.Value = new(big.Int).Set(s.Value)
	}
	if s.Balance != nil {
		out.Balance = new(big.Int).Set(s.Balance)
	}
	if s.PendingTx != nil {
		pending := *s.PendingTx
		out.PendingTx = &pending
	}
	return out
}

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyInfo    NotificationKind = "info"
)

type Notification struct {
	Kind    NotificationKind
	Message string
}

type Notifier interface {
	Notify(Notification)
}

type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) {
	f(n)
}
