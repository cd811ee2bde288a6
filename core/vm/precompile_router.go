package vm

// precompile_router.go dispatches calls to the reserved precompile addresses:
// the eight standard Ethereum precompiles and the multi-token bridge. The set
// is fixed at compile time; any other address is left to ordinary contract
// execution.

import (
	"encoding/binary"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/web3games/evmbridge/core/multitoken"
)

// ReservedAddress identifies a claimed precompile by the numeric value of its
// address. Every reserved address fits in the low two bytes.
type ReservedAddress uint16

const (
	AddrECRecover      ReservedAddress = 1
	AddrSha256         ReservedAddress = 2
	AddrRipemd160      ReservedAddress = 3
	AddrIdentity       ReservedAddress = 4
	AddrModExp         ReservedAddress = 5
	AddrBn256Add       ReservedAddress = 6
	AddrBn256ScalarMul ReservedAddress = 7
	AddrBn256Pairing   ReservedAddress = 8
	AddrTokens         ReservedAddress = 10001
)

// TokensPrecompileAddress is the address of the multi-token bridge.
var TokensPrecompileAddress = AddrTokens.Address()

var reservedNames = map[ReservedAddress]string{
	AddrECRecover:      "ecrecover",
	AddrSha256:         "sha256",
	AddrRipemd160:      "ripemd160",
	AddrIdentity:       "identity",
	AddrModExp:         "modexp",
	AddrBn256Add:       "bn256Add",
	AddrBn256ScalarMul: "bn256ScalarMul",
	AddrBn256Pairing:   "bn256Pairing",
	AddrTokens:         "tokens",
}

// reservedAddresses lists every claimed address in ascending order.
var reservedAddresses = []ReservedAddress{
	AddrECRecover, AddrSha256, AddrRipemd160, AddrIdentity,
	AddrModExp, AddrBn256Add, AddrBn256ScalarMul, AddrBn256Pairing,
	AddrTokens,
}

func init() {
	claimed := mapset.NewThreadUnsafeSet[common.Address]()
	for _, id := range reservedAddresses {
		if !claimed.Add(id.Address()) {
			panic(fmt.Sprintf("precompile router: %s claimed twice", id.Address()))
		}
		if back, ok := reservedOf(id.Address()); !ok || back != id {
			panic(fmt.Sprintf("precompile router: %s does not route to itself", id))
		}
		if _, ok := reservedNames[id]; !ok {
			panic(fmt.Sprintf("precompile router: address %d has no name", uint16(id)))
		}
		if id != AddrTokens && standardPrecompiles[id] == nil {
			panic(fmt.Sprintf("precompile router: no implementation for %s", id))
		}
	}
}

// Address returns the 20-byte address of id.
func (id ReservedAddress) Address() common.Address {
	var addr common.Address
	binary.BigEndian.PutUint16(addr[common.AddressLength-2:], uint16(id))
	return addr
}

func (id ReservedAddress) String() string {
	if name, ok := reservedNames[id]; ok {
		return name
	}
	return fmt.Sprintf("reserved(%d)", uint16(id))
}

// reservedOf maps addr to its claimed precompile, if any.
func reservedOf(addr common.Address) (ReservedAddress, bool) {
	if !isZero(addr[:common.AddressLength-2]) {
		return 0, false
	}
	id := ReservedAddress(binary.BigEndian.Uint16(addr[common.AddressLength-2:]))
	switch id {
	case AddrECRecover, AddrSha256, AddrRipemd160, AddrIdentity,
		AddrModExp, AddrBn256Add, AddrBn256ScalarMul, AddrBn256Pairing,
		AddrTokens:
		return id, true
	}
	return 0, false
}

// IsReserved reports whether addr is claimed by a precompile.
func IsReserved(addr common.Address) bool {
	_, ok := reservedOf(addr)
	return ok
}

// Router resolves precompile calls by address. It is immutable after
// construction and safe for concurrent use as long as the ledger is.
type Router struct {
	tokens *tokensPrecompile
	log    log.Logger
}

// NewRouter creates a router whose tokens precompile forwards to ledger. A
// nil costs uses DefaultCostTable.
func NewRouter(ledger multitoken.Ledger, costs *CostTable) *Router {
	if costs == nil {
		costs = DefaultCostTable()
	}
	return &Router{
		tokens: newTokensPrecompile(ledger, costs),
		log:    log.New("precompile", "router"),
	}
}

// Route runs the precompile claimed at addr. handled is false when addr is
// not reserved, in which case the call belongs to regular contract code.
//
// Failures of a standard precompile are returned as *ExecutionError and
// consume all gas. The tokens precompile never errors: its failures are
// reverted Outcomes.
func (r *Router) Route(addr common.Address, input []byte, gas *uint64, ctx *CallContext) (out *Outcome, handled bool, err error) {
	id, ok := reservedOf(addr)
	if !ok {
		return nil, false, nil
	}
	if ctx == nil {
		ctx = new(CallContext)
	}
	switch id {
	case AddrTokens:
		return r.tokens.Run(input, gas, ctx), true, nil
	default:
		out, err = runStandard(id, input, gas)
		if err != nil {
			r.log.Debug("Standard precompile failed", "precompile", id, "err", err)
		}
		return out, true, err
	}
}

// Addresses returns the claimed addresses in ascending order.
func (r *Router) Addresses() []common.Address {
	addrs := make([]common.Address, 0, len(reservedAddresses))
	for _, id := range reservedAddresses {
		addrs = append(addrs, id.Address())
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Cmp(addrs[j]) < 0
	})
	return addrs
}

// ReservedAddresses returns the claimed precompiles in ascending order.
func ReservedAddresses() []ReservedAddress {
	return append([]ReservedAddress(nil), reservedAddresses...)
}
