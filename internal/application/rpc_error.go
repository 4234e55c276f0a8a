package application

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/rpc"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidInput
	KindTimeout
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Retryable reports whether the caller may re-invoke the operation unchanged.
func (k ErrorKind) Retryable() bool {
	return k == KindTimeout || k == KindUnavailable
}

const (
	MessageTimeout     = "RPC timeout, retry later."
	MessageUnavailable = "cannot reach RPC."
	MessageInternal    = "failed to read blockchain data."
)

// Error is the only error type the gateway returns to its callers.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalidInput(err error) *Error {
	return &Error{Kind: KindInvalidInput, Message: err.Error(), Err: err}
}

// NormalizeRPCError maps an upstream failure onto timeout, unavailable or
// internal. Structured signals win; free-text matching is the last resort.
func NormalizeRPCError(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	kind, ok := classifyStructured(err)
	if !ok {
		kind = classifyMessage(err.Error())
	}
	return newKindError(kind, err)
}

func newKindError(kind ErrorKind, err error) *Error {
	switch kind {
	case KindTimeout:
		return &Error{Kind: KindTimeout, Message: MessageTimeout, Err: err}
	case KindUnavailable:
		return &Error{Kind: KindUnavailable, Message: MessageUnavailable, Err: err}
	default:
		return &Error{Kind: KindInternal, Message: MessageInternal, Err: err}
	}
}

func classifyStructured(err error) (ErrorKind, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout, true
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return KindTimeout, true
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
			return KindUnavailable, true
		}
		return KindInternal, true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return KindUnavailable, true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindUnavailable, true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindUnavailable, true
	}
	return KindInternal, false
}

func classifyMessage(message string) ErrorKind {
	message = strings.ToLower(message)
	switch {
	case strings.Contains(message, "timeout"):
		return KindTimeout
	case strings.Contains(message, "network"),
		strings.Contains(message, "fetch"),
		strings.Contains(message, "failed"):
		return KindUnavailable
	default:
		return KindInternal
	}
}
