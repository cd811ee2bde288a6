package vm

import (
	"errors"
	"fmt"
)

// Decoding errors of the tokens precompile. DecodeError values match these
// with errors.Is.
var (
	ErrUnknownSelector = errors.New("unknown selector")
	ErrTruncated       = errors.New("truncated calldata")
	ErrMalformed       = errors.New("malformed calldata")
	ErrLengthMismatch  = errors.New("length mismatch")
	ErrBatchTooLarge   = errors.New("batch too large")
)

// Execution errors of the tokens precompile.
var (
	ErrStateChangeInReadOnlyCall = errors.New("state change in read-only call")
	ErrNonPayable                = errors.New("tokens precompile is not payable")
)

// DecodeError reports calldata that could not be turned into a TokensCall.
type DecodeError struct {
	Method string // empty when the selector itself was not recognised
	Kind   error  // one of the Err* decoding sentinels
	Detail string
}

func (e *DecodeError) Error() string {
	msg := "decode"
	if e.Method != "" {
		msg += " " + e.Method
	}
	msg += ": " + e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Kind }

func decodeErr(method string, kind error, format string, args ...any) *DecodeError {
	return &DecodeError{Method: method, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// NativeError wraps a failure reported by the native ledger, or a call the
// bridge refused to forward.
type NativeError struct {
	Op  TokensOp
	Err error
}

func (e *NativeError) Error() string {
	return e.Op.String() + ": " + e.Err.Error()
}

func (e *NativeError) Unwrap() error { return e.Err }

// ExecutionError is returned by Router.Route when a standard precompile
// fails. All gas supplied to the call is consumed.
type ExecutionError struct {
	Precompile string
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("precompile %s: %v", e.Precompile, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
