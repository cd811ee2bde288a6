package vm

// precompile_tokens.go implements the multi-token precompile: contracts call
// the native multi-token ledger at TokensPrecompileAddress using ordinary
// Solidity calldata. A call is decoded, admitted against a fixed gas cost,
// forwarded to the ledger under the caller's native identity and encoded back
// as empty output on success or an Error(string) revert on failure.

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/web3games/evmbridge/core/multitoken"
)

// TokensOp enumerates the ledger operations reachable through the
// precompile. The set is closed.
type TokensOp uint8

const (
	OpCreate TokensOp = iota
	OpMint
	OpMintBatch
	OpSetApprovalForAll
	OpBurn
	OpBurnBatch
	OpTransferFrom
	OpBatchTransferFrom

	numTokensOps
)

// tokensOpMethods maps every op to its ABI method name.
var tokensOpMethods = [numTokensOps]string{
	OpCreate:            "create",
	OpMint:              "mint",
	OpMintBatch:         "mintBatch",
	OpSetApprovalForAll: "setApprovalForAll",
	OpBurn:              "burn",
	OpBurnBatch:         "burnBatch",
	OpTransferFrom:      "transferFrom",
	OpBatchTransferFrom: "batchTransferFrom",
}

// String returns the ABI method name of the op.
func (op TokensOp) String() string {
	if op >= numTokensOps {
		return "unknown"
	}
	return tokensOpMethods[op]
}

// IsBatch reports whether the op carries parallel lists.
func (op TokensOp) IsBatch() bool {
	return op == OpMintBatch || op == OpBurnBatch || op == OpBatchTransferFrom
}

// AllTokensOps returns every op in enumeration order.
func AllTokensOps() []TokensOp {
	ops := make([]TokensOp, numTokensOps)
	for i := range ops {
		ops[i] = TokensOp(i)
	}
	return ops
}

// TokensABI is the Solidity interface of the tokens precompile.
const TokensABI = `[
	{"type":"function","name":"create","stateMutability":"nonpayable","outputs":[],"inputs":[
		{"name":"id","type":"uint256"},{"name":"uri","type":"bytes"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","outputs":[],"inputs":[
		{"name":"to","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"}]},
	{"type":"function","name":"mintBatch","stateMutability":"nonpayable","outputs":[],"inputs":[
		{"name":"id","type":"uint256"},{"name":"to","type":"address[]"},{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"setApprovalForAll","stateMutability":"nonpayable","outputs":[],"inputs":[
		{"name":"operator","type":"address"},{"name":"approved","type":"bool"}]},
	{"type":"function","name":"burn","stateMutability":"nonpayable","outputs":[],"inputs":[
		{"name":"from","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"}]},
	{"type":"function","name":"burnBatch","stateMutability":"nonpayable","outputs":[],"inputs":[
		{"name":"id","type":"uint256"},{"name":"from","type":"address[]"},{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","outputs":[],"inputs":[
		{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"}]},
	{"type":"function","name":"batchTransferFrom","stateMutability":"nonpayable","outputs":[],"inputs":[
		{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"ids","type":"uint256[]"},{"name":"amounts","type":"uint256[]"}]}
]`

var (
	tokensABI abi.ABI

	// tokensSelectors is the selector lookup table of the decoder.
	tokensSelectors = make(map[[4]byte]TokensOp, numTokensOps)
	// tokensMethods holds the parsed method of every op.
	tokensMethods [numTokensOps]abi.Method
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(TokensABI))
	if err != nil {
		panic("tokens precompile: bad ABI: " + err.Error())
	}
	tokensABI = parsed
	for _, op := range AllTokensOps() {
		method, ok := parsed.Methods[op.String()]
		if !ok {
			panic("tokens precompile: ABI has no method " + op.String())
		}
		if tokensDecoders[op] == nil {
			panic("tokens precompile: no decoder for " + op.String())
		}
		tokensMethods[op] = method
		tokensSelectors[[4]byte(method.ID)] = op
	}
	if len(parsed.Methods) != int(numTokensOps) {
		panic("tokens precompile: ABI declares methods outside the op set")
	}
}

// Selector returns the 4-byte selector of op.
func (op TokensOp) Selector() [4]byte {
	return [4]byte(tokensMethods[op].ID)
}

// Signature returns the canonical signature of op, e.g. "mint(address,uint256,uint256)".
func (op TokensOp) Signature() string {
	return tokensMethods[op].Sig
}

// PackTokensCall ABI-encodes a call to op. It is the inverse of
// DecodeTokensCall for well-formed arguments and is meant for tooling and
// tests; argument types follow go-ethereum's abi conventions (*big.Int for
// uint256, common.Address, []common.Address, []*big.Int, []byte, bool).
func PackTokensCall(op TokensOp, args ...interface{}) ([]byte, error) {
	return tokensABI.Pack(op.String(), args...)
}

// tokensPrecompile runs the decode, admit, execute, encode pipeline. It holds
// only read-only configuration and may serve concurrent calls.
type tokensPrecompile struct {
	costs  *CostTable
	bridge *NativeBridge
	log    log.Logger
}

func newTokensPrecompile(ledger multitoken.Ledger, costs *CostTable) *tokensPrecompile {
	return &tokensPrecompile{
		costs:  costs,
		bridge: NewNativeBridge(ledger),
		log:    log.New("precompile", "tokens"),
	}
}

// Run executes one call. Every failure is reported as a reverted Outcome;
// decoding and gas admission happen before the ledger is touched.
func (p *tokensPrecompile) Run(input []byte, gas *uint64, ctx *CallContext) *Outcome {
	tokensCallCounter.Inc(1)

	if ctx.Value != nil && !ctx.Value.IsZero() {
		return p.revert(nil, ErrNonPayable, 0, ctx)
	}
	call, err := DecodeTokensCall(input, p.costs)
	if err != nil {
		return p.revert(nil, err, 0, ctx)
	}
	receipt, err := p.costs.Charge(call.Op(), gas)
	if err != nil {
		// Charge only fails against a bounded limit.
		return p.revert(call, err, *gas, ctx)
	}
	tokensGasCounter.Inc(int64(receipt.Cost))
	tokensOpCounters[call.Op()].Inc(1)

	if err := p.bridge.Execute(call, NativeAccount(ctx.Caller), ctx); err != nil {
		return p.revert(call, err, receipt.Cost, ctx)
	}
	return EncodeResult(nil, receipt.Cost)
}

func (p *tokensPrecompile) revert(call TokensCall, err error, gasUsed uint64, ctx *CallContext) *Outcome {
	tokensRevertCounter.Inc(1)
	op := "none"
	if call != nil {
		op = call.Op().String()
	}
	p.log.Debug("Tokens precompile reverted", "op", op, "caller", ctx.Caller, "gas", gasUsed, "err", err)
	return EncodeResult(err, gasUsed)
}
