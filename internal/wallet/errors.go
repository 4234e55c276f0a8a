package wallet

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrUserRejected  = errors.New("user rejected the request")
	ErrWrongNetwork  = errors.New("wallet is connected to the wrong network")
	ErrNoConnector   = errors.New("no wallet connector available")
	ErrNoAccounts    = errors.New("wallet exposes no accounts")
	ErrInvalidAmount = errors.New("value must be a non-negative integer")
	ErrClosed        = errors.New("wallet client is not running")
)

// EIP-1193 provider error codes.
const (
	codeUserRejected      = 4001
	codeChainDisconnected = 4901
	codeUnknownChain      = 4902
	codeExecutionReverted = 3
)

type WriteErrorKind int

const (
	WriteOther WriteErrorKind = iota
	WriteRejected
	WriteWrongNetwork
	WriteReverted
)

func (k WriteErrorKind) String() string {
	switch k {
	case WriteRejected:
		return "rejected"
	case WriteWrongNetwork:
		return "wrong_network"
	case WriteReverted:
		return "reverted"
	default:
		return "other"
	}
}

// WriteError is a classified failure of a contract write.
type WriteError struct {
	Kind    WriteErrorKind
	Network string
	Err     error
}

func (e *WriteError) Error() string {
	return e.Notification()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Notification is the toast text shown for the failure.
func (e *WriteError) Notification() string {
	switch e.Kind {
	case WriteRejected:
		return "Transaction rejected by user"
	case WriteWrongNetwork:
		return "Wrong network. Please switch to " + e.network()
	case WriteReverted:
		return "Transaction reverted. Check your input."
	default:
		return "Transaction error: " + e.detail()
	}
}

// Inline is the shorter text kept next to the input.
func (e *WriteError) Inline() string {
	switch e.Kind {
	case WriteRejected:
		return "User rejected the transaction"
	case WriteWrongNetwork:
		return "Wrong network. Please switch to " + e.network()
	case WriteReverted:
		return "Transaction reverted"
	default:
		return e.detail()
	}
}

func (e *WriteError) network() string {
	if e.Network == "" {
		return "the required network"
	}
	return e.Network
}

func (e *WriteError) detail() string {
	if e.Err == nil {
		return "Transaction failed"
	}
	return e.Err.Error()
}

// ClassifyWriteError sorts a write failure into rejected, wrong network,
// reverted or other. Sentinel errors and RPC error codes are checked before
// the error text.
func ClassifyWriteError(err error) *WriteError {
	if err == nil {
		return nil
	}
	var typed *WriteError
	if errors.As(err, &typed) {
		return typed
	}
	return &WriteError{Kind: classifyWrite(err), Err: err}
}

func classifyWrite(err error) WriteErrorKind {
	switch {
	case errors.Is(err, ErrUserRejected):
		return WriteRejected
	case errors.Is(err, ErrWrongNetwork):
		return WriteWrongNetwork
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeUserRejected:
			return WriteRejected
		case codeChainDisconnected, codeUnknownChain:
			return WriteWrongNetwork
		case codeExecutionReverted:
			return WriteReverted
		}
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && strings.Contains(strings.ToLower(dataErr.Error()), "revert") {
		return WriteReverted
	}

	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "rejected"), strings.Contains(message, "denied"):
		return WriteRejected
	case strings.Contains(message, "network"):
		return WriteWrongNetwork
	case strings.Contains(message, "revert"):
		return WriteReverted
	default:
		return WriteOther
	}
}
