package vm

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// revertSelector is the selector of Error(string), the revert payload
// Solidity produces for require and revert with a reason.
var revertSelector = []byte{0x08, 0xc3, 0x79, 0xa0}

var revertReasonArgs = abi.Arguments{{Type: mustNewType("string")}}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// EncodeRevert builds the Error(string) payload carrying reason.
func EncodeRevert(reason string) []byte {
	packed, err := revertReasonArgs.Pack(reason)
	if err != nil {
		// Packing a string cannot fail.
		panic(err)
	}
	return append(append([]byte{}, revertSelector...), packed...)
}

// EncodeResult turns the result of a tokens call into an Outcome. A nil err
// succeeds with empty output; anything else reverts with the error text as
// the reason.
func EncodeResult(err error, gasUsed uint64) *Outcome {
	if err == nil {
		return &Outcome{Succeeded: true, Output: []byte{}, GasUsed: gasUsed}
	}
	return &Outcome{
		Output:  EncodeRevert(err.Error()),
		GasUsed: gasUsed,
		Err:     err,
	}
}
