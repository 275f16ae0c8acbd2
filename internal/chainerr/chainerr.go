// Package chainerr defines the categorized error kinds surfaced across the
// chain-client and scanner boundary.
package chainerr

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Kind tags the category of a chain-boundary failure.
type Kind int

const (
	// KindUnknown wraps an upstream failure that does not fit another kind.
	KindUnknown Kind = iota
	KindBlockUnavailable
	KindTimeout
	KindUpstreamProtocol
	KindABIError
	KindCallTypeMismatch
	KindReverted
	KindInvalidRange
)

func (k Kind) String() string {
	switch k {
	case KindBlockUnavailable:
		return "block_unavailable"
	case KindTimeout:
		return "timeout"
	case KindUpstreamProtocol:
		return "upstream_protocol"
	case KindABIError:
		return "abi_error"
	case KindCallTypeMismatch:
		return "call_type_mismatch"
	case KindReverted:
		return "reverted"
	case KindInvalidRange:
		return "invalid_range"
	default:
		return "unknown"
	}
}

// Error is the concrete error type carried across the chain-client boundary.
// It wraps an underlying cause (if any) and exposes its Kind via errors.As.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, chainerr.New(chainerr.KindInvalidRange, "")) style
// checks against sentinels built with New.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Kind == e.Kind
	}
	return false
}

// New builds a bare sentinel of the given kind, usable with errors.Is.
func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// Wrap builds an Error of the given kind around cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// BlockUnavailable reports that hash was reorged away between discovery and fetch.
func BlockUnavailable(hash common.Hash) *Error {
	return New(KindBlockUnavailable, fmt.Sprintf("block %s no longer available", hash.Hex()))
}

// Timeout reports that an upstream call exceeded its deadline.
func Timeout(op string, cause error) *Error {
	return Wrap(KindTimeout, fmt.Sprintf("%s exceeded deadline", op), cause)
}

// UpstreamProtocol reports a malformed or out-of-range upstream response.
func UpstreamProtocol(msg string) *Error {
	return New(KindUpstreamProtocol, msg)
}

// ABIErrorf reports an ABI encode/decode failure for a contract call.
func ABIErrorf(cause error) *Error {
	return Wrap(KindABIError, "failed to encode/decode ABI value", cause)
}

// CallTypeMismatch reports a decoded token with an unexpected kind.
func CallTypeMismatch(token interface{}, expected abi.Type) *Error {
	return New(KindCallTypeMismatch, fmt.Sprintf("token %v is not of kind %s", token, expected.String()))
}

// Reverted reports a contract call that reverted on-chain.
func Reverted(reason string) *Error {
	return New(KindReverted, reason)
}

// InvalidRange reports a caller-supplied range with from > to.
func InvalidRange(from, to uint64) *Error {
	return New(KindInvalidRange, fmt.Sprintf("invalid range [%d,%d]: from > to", from, to))
}

// Unknown wraps an unrecognized upstream failure.
func Unknown(cause error) *Error {
	return Wrap(KindUnknown, "unrecognized upstream failure", cause)
}

// Is reports whether err is a chainerr.Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
