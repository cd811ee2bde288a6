package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// CallContext describes the EVM frame that is calling a precompile.
type CallContext struct {
	Caller common.Address // msg.sender of the calling frame
	Value  *uint256.Int   // value sent with the call, nil means zero
	Static bool           // true inside STATICCALL
}

// Outcome is the result of a precompile call that produced output. A
// reverted call has Succeeded unset, Output holding the revert payload and
// Err holding the structured cause.
type Outcome struct {
	Succeeded bool
	Output    []byte
	GasUsed   uint64
	Err       error
}

// GasLimit returns a gas limit pointer for use with Router.Route.
func GasLimit(gas uint64) *uint64 {
	return &gas
}
