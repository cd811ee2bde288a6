package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/crypto/blake2b"

	"github.com/web3games/evmbridge/core/multitoken"
)

// nativeAccountPrefix domain-separates EVM-derived accounts from other
// account kinds of the native chain.
var nativeAccountPrefix = []byte("evm:")

// NativeAccount derives the native ledger identity of an EVM address as
// blake2b-256("evm:" || addr). The mapping is one way.
func NativeAccount(addr common.Address) multitoken.AccountID {
	buf := make([]byte, 0, len(nativeAccountPrefix)+common.AddressLength)
	buf = append(buf, nativeAccountPrefix...)
	buf = append(buf, addr.Bytes()...)
	return blake2b.Sum256(buf)
}

func nativeAccounts(addrs []common.Address) []multitoken.AccountID {
	out := make([]multitoken.AccountID, len(addrs))
	for i, addr := range addrs {
		out[i] = NativeAccount(addr)
	}
	return out
}

// NativeBridge forwards decoded calls to the ledger.
type NativeBridge struct {
	ledger multitoken.Ledger
	log    log.Logger
}

// NewNativeBridge returns a bridge that executes calls against ledger.
func NewNativeBridge(ledger multitoken.Ledger) *NativeBridge {
	return &NativeBridge{
		ledger: ledger,
		log:    log.New("precompile", "tokens", "stage", "bridge"),
	}
}

// Execute performs call on behalf of origin. Every op mutates the ledger, so
// all of them are refused inside a static frame. Ledger failures are returned
// as *NativeError.
func (b *NativeBridge) Execute(call TokensCall, origin multitoken.AccountID, ctx *CallContext) error {
	op := call.Op()
	if ctx != nil && ctx.Static {
		return &NativeError{Op: op, Err: ErrStateChangeInReadOnlyCall}
	}
	b.log.Trace("Forwarding call to ledger", "op", op, "origin", origin)
	if err := call.dispatch(b.ledger, origin); err != nil {
		return &NativeError{Op: op, Err: err}
	}
	return nil
}

func (c *CreateCall) dispatch(l multitoken.Ledger, origin multitoken.AccountID) error {
	return l.CreateToken(origin, c.ID, c.URI)
}

func (c *MintCall) dispatch(l multitoken.Ledger, origin multitoken.AccountID) error {
	return l.Mint(origin, NativeAccount(c.To), c.ID, c.Amount)
}

func (c *MintBatchCall) dispatch(l multitoken.Ledger, origin multitoken.AccountID) error {
	return l.MintBatch(origin, c.ID, nativeAccounts(c.To), c.Amounts)
}

func (c *SetApprovalForAllCall) dispatch(l multitoken.Ledger, origin multitoken.AccountID) error {
	return l.SetApprovalForAll(origin, NativeAccount(c.Operator), c.Approved)
}

func (c *BurnCall) dispatch(l multitoken.Ledger, origin multitoken.AccountID) error {
	return l.Burn(origin, NativeAccount(c.From), c.ID, c.Amount)
}

func (c *BurnBatchCall) dispatch(l multitoken.Ledger, origin multitoken.AccountID) error {
	return l.BurnBatch(origin, c.ID, nativeAccounts(c.From), c.Amounts)
}

func (c *TransferFromCall) dispatch(l multitoken.Ledger, origin multitoken.AccountID) error {
	return l.TransferFrom(origin, NativeAccount(c.From), NativeAccount(c.To), c.ID, c.Amount)
}

func (c *BatchTransferFromCall) dispatch(l multitoken.Ledger, origin multitoken.AccountID) error {
	return l.BatchTransferFrom(origin, NativeAccount(c.From), NativeAccount(c.To), c.IDs, c.Amounts)
}
