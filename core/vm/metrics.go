package vm

import "github.com/ethereum/go-ethereum/metrics"

var (
	tokensCallCounter   = metrics.NewRegisteredCounter("precompile/tokens/calls", nil)
	tokensRevertCounter = metrics.NewRegisteredCounter("precompile/tokens/reverts", nil)
	tokensGasCounter    = metrics.NewRegisteredCounter("precompile/tokens/gas", nil)

	standardCallCounter    = metrics.NewRegisteredCounter("precompile/standard/calls", nil)
	standardFailureCounter = metrics.NewRegisteredCounter("precompile/standard/failures", nil)

	tokensOpCounters = func() [numTokensOps]*metrics.Counter {
		var counters [numTokensOps]*metrics.Counter
		for _, op := range AllTokensOps() {
			counters[op] = metrics.NewRegisteredCounter("precompile/tokens/op/"+op.String(), nil)
		}
		return counters
	}()
)
