package wallet

import (
	"math/big"
	"strings"

	"simplestorage/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

const (
	MessageSubmitted     = "Transaction submitted!"
	MessageConfirmed     = "Transaction confirmed!"
	MessageReverted      = "Transaction reverted. Check your input."
	MessageMissingInput  = "Please enter a value and connect wallet"
	MessagePending       = "A transaction is already pending"
	MessageReadFailed    = "Error reading contract"
	MessageBalanceFailed = "Error reading balance"
	messageConnectFailed = "Failed to connect wallet: "
)

type effectKind int

const (
	effectConnect effectKind = iota
	effectAdoptSession
	effectCloseSession
	effectReadValue
	effectReadBalance
	effectSubmit
	effectPollReceipt
	effectStopPolling
	effectRefetch
	effectNotify
)

type effect struct {
	kind    effectKind
	session Session
	account common.Address
	value   *big.Int
	hash    common.Hash
	note    Notification
}

func notify(kind NotificationKind, message string) effect {
	return effect{kind: effectNotify, note: Notification{Kind: kind, Message: message}}
}

// machine holds the fixed inputs of transition.
type machine struct {
	chainID uint64
	network string
}

// transition applies one event. It never performs I/O; work to be done is
// returned as effects for the client loop.
func (m machine) transition(s State, ev Event) (State, []effect) {
	switch ev := ev.(type) {
	case ConnectRequested:
		if s.Phase != PhaseDisconnected {
			return s, nil
		}
		s.Phase = PhaseConnecting
		s.LastError = ""
		return s, []effect{{kind: effectConnect}}

	case sessionOpened:
		if s.Phase != PhaseConnecting {
			return s, []effect{{kind: effectCloseSession, session: ev.session}}
		}
		s.Connection = domain.ConnectionState{Address: ev.address, ChainID: ev.chainID, IsConnected: true}
		s.Connector = ev.connector
		s.Phase = m.networkPhase(s)
		effects := []effect{
			{kind: effectAdoptSession, session: ev.session},
			{kind: effectReadBalance, account: ev.address},
		}
		return s, append(effects, m.readValue(s)...)

	case connectFailed:
		if s.Phase != PhaseConnecting {
			return s, nil
		}
		s.Phase = PhaseDisconnected
		s.LastError = messageConnectFailed + ev.err.Error()
		return s, []effect{notify(NotifyError, s.LastError)}

	case DisconnectRequested, Disconnected:
		return m.disconnect(s)

	case AccountChanged:
		if !s.Phase.Connected() {
			return s, nil
		}
		if ev.Address == (common.Address{}) {
			return m.disconnect(s)
		}
		if ev.Address == s.Connection.Address {
			return s, nil
		}
		s.Connection.Address = ev.Address
		s.Balance = nil
		s.BalanceError = ""
		return s, []effect{{kind: effectReadBalance, account: ev.Address}}

	case ChainChanged:
		if !s.Phase.Connected() || ev.ChainID == s.Connection.ChainID {
			return s, nil
		}
		s.Connection.ChainID = ev.ChainID
		switch s.Phase {
		case PhaseWrongNetwork, PhaseReady, PhaseConfirmed:
			s.Phase = m.networkPhase(s)
		}
		effects := []effect{{kind: effectReadBalance, account: s.Connection.Address}}
		return s, append(effects, m.readValue(s)...)

	case InputChanged:
		s.Input = strings.TrimSpace(ev.Value)
		return s, nil

	case SubmitRequested:
		return m.submit(s)

	case txSubmitted:
		if s.Phase != PhaseSubmitting {
			return s, nil
		}
		s.Phase = PhaseConfirming
		s.PendingTx = &domain.PendingTransaction{Hash: ev.hash, SubmittedAt: ev.at}
		s.LastTx = ev.hash
		s.Input = ""
		s.LastError = ""
		return s, []effect{
			notify(NotifyInfo, MessageSubmitted),
			{kind: effectPollReceipt, hash: ev.hash},
		}

	case submitFailed:
		if s.Phase != PhaseSubmitting {
			return s, nil
		}
		failure := *ev.err
		failure.Network = m.network
		s.Phase = m.networkPhase(s)
		s.LastError = failure.Inline()
		return s, []effect{notify(NotifyError, failure.Notification())}

	case receiptMined:
		if s.Phase != PhaseConfirming || s.PendingTx == nil || s.PendingTx.Hash != ev.receipt.TxHash {
			return s, nil
		}
		s.PendingTx = nil
		effects := []effect{{kind: effectStopPolling}}
		if !ev.receipt.Succeeded() {
			s.Phase = m.networkPhase(s)
			s.LastError = "Transaction reverted"
			return s, append(effects, notify(NotifyError, MessageReverted))
		}
		s.Phase = PhaseConfirmed
		if s.WrongNetwork(m.chainID) {
			s.Phase = PhaseWrongNetwork
		}
		return s, append(effects, notify(NotifySuccess, MessageConfirmed), effect{kind: effectRefetch})

	case valueRead:
		// reads that land after a disconnect or a network switch are stale
		if !s.Connection.OnChain(m.chainID) {
			return s, nil
		}
		s.Value = ev.value
		s.ReadError = ""
		return s, nil

	case valueReadFailed:
		if !s.Connection.OnChain(m.chainID) {
			return s, nil
		}
		s.ReadError = MessageReadFailed
		return s, nil

	case balanceRead:
		if !s.Phase.Connected() || ev.account != s.Connection.Address {
			return s, nil
		}
		s.Balance = ev.wei
		s.BalanceError = ""
		return s, nil

	case balanceReadFailed:
		if !s.Phase.Connected() || ev.account != s.Connection.Address {
			return s, nil
		}
		s.BalanceError = MessageBalanceFailed
		return s, nil

	case RefreshRequested:
		if !s.Phase.Connected() {
			return s, nil
		}
		effects := []effect{{kind: effectReadBalance, account: s.Connection.Address}}
		return s, append(effects, m.readValue(s)...)
	}
	return s, nil
}

func (m machine) submit(s State) (State, []effect) {
	if s.Input == "" || !s.Connection.IsConnected {
		s.LastError = MessageMissingInput
		return s, nil
	}
	if s.WrongNetwork(m.chainID) {
		failure := WriteError{Kind: WriteWrongNetwork, Network: m.network}
		s.LastError = "Please switch to " + m.network + " network"
		return s, []effect{notify(NotifyError, failure.Notification())}
	}
	if s.Phase != PhaseReady && s.Phase != PhaseConfirmed {
		s.LastError = MessagePending
		return s, nil
	}
	value, ok := new(big.Int).SetString(s.Input, 10)
	if !ok || value.Sign() < 0 {
		failure := WriteError{Kind: WriteOther, Network: m.network, Err: ErrInvalidAmount}
		s.LastError = failure.Inline()
		return s, []effect{notify(NotifyError, failure.Notification())}
	}
	s.Phase = PhaseSubmitting
	s.LastError = ""
	return s, []effect{{kind: effectSubmit, account: s.Connection.Address, value: value}}
}

// disconnect drops the session from any phase. A broadcast transaction
// cannot be recalled; only its receipt polling stops.
func (m machine) disconnect(s State) (State, []effect) {
	if s.Phase == PhaseDisconnected {
		return s, nil
	}
	s.Phase = PhaseDisconnected
	s.Connection = domain.ConnectionState{}
	s.Connector = ""
	s.Balance = nil
	s.BalanceError = ""
	s.PendingTx = nil
	s.Input = ""
	return s, []effect{{kind: effectStopPolling}, {kind: effectCloseSession}}
}

func (m machine) networkPhase(s State) Phase {
	if s.WrongNetwork(m.chainID) {
		return PhaseWrongNetwork
	}
	return PhaseReady
}

// readValue reads the contract only while connected to the required chain.
func (m machine) readValue(s State) []effect {
	if !s.Connection.OnChain(m.chainID) {
		return nil
	}
	return []effect{{kind: effectReadValue}}
}
