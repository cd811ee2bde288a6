package vm

import (
	gethvm "github.com/ethereum/go-ethereum/core/vm"
)

// standardPrecompiles holds go-ethereum's implementations of the reserved
// standard precompiles, with Berlin pricing (EIP-2565 modexp, EIP-1108 bn256).
var standardPrecompiles = func() map[ReservedAddress]gethvm.PrecompiledContract {
	m := make(map[ReservedAddress]gethvm.PrecompiledContract)
	for _, id := range []ReservedAddress{
		AddrECRecover, AddrSha256, AddrRipemd160, AddrIdentity,
		AddrModExp, AddrBn256Add, AddrBn256ScalarMul, AddrBn256Pairing,
	} {
		m[id] = gethvm.PrecompiledContractsBerlin[id.Address()]
	}
	return m
}()

// runStandard executes a standard precompile under go-ethereum's gas rules.
// Any failure, including insufficient gas, is an *ExecutionError.
func runStandard(id ReservedAddress, input []byte, gas *uint64) (*Outcome, error) {
	p := standardPrecompiles[id]
	required := p.RequiredGas(input)
	if gas != nil && required > *gas {
		standardFailureCounter.Inc(1)
		return nil, &ExecutionError{Precompile: id.String(), Err: ErrOutOfGas}
	}
	output, err := p.Run(input)
	if err != nil {
		standardFailureCounter.Inc(1)
		return nil, &ExecutionError{Precompile: id.String(), Err: err}
	}
	standardCallCounter.Inc(1)
	return &Outcome{Succeeded: true, Output: output, GasUsed: required}, nil
}
