// Package multitoken defines the native multi-token ledger that the EVM
// tokens precompile forwards calls to, and ships a reference implementation
// of it on top of a go-ethereum key-value store.
//
// The ledger owns all token semantics: who may mint, who may move or burn a
// balance, and how supplies are tracked. Callers identify themselves with a
// native AccountID; the mapping from EVM addresses to AccountIDs lives with
// the precompile, not here.
package multitoken

import (
	"encoding/hex"
	"errors"

	"github.com/holiman/uint256"
)

// AccountIDLength is the byte length of a native account identity.
const AccountIDLength = 32

// AccountID identifies an account on the native ledger.
type AccountID [AccountIDLength]byte

// Hex returns the 0x-prefixed hex form of the account.
func (a AccountID) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String implements fmt.Stringer.
func (a AccountID) String() string { return a.Hex() }

// Ledger is the set of native operations reachable from the EVM. Every
// method executes on behalf of origin and either applies completely or
// returns an error without touching state.
//
// List arguments are positional: element i of one list belongs to element i
// of its partner list. Implementations must reject lists of unequal length.
type Ledger interface {
	// CreateToken registers token id with origin as its owner.
	CreateToken(origin AccountID, id *uint256.Int, uri []byte) error

	// Mint credits amount of token id to account to. Only the token owner
	// may mint.
	Mint(origin, to AccountID, id, amount *uint256.Int) error

	// MintBatch credits amounts[i] of token id to to[i].
	MintBatch(origin AccountID, id *uint256.Int, to []AccountID, amounts []*uint256.Int) error

	// SetApprovalForAll grants or revokes operator's right to move and burn
	// every balance held by origin.
	SetApprovalForAll(origin, operator AccountID, approved bool) error

	// Burn destroys amount of token id held by from.
	Burn(origin, from AccountID, id, amount *uint256.Int) error

	// BurnBatch destroys amounts[i] of token id held by from[i].
	BurnBatch(origin AccountID, id *uint256.Int, from []AccountID, amounts []*uint256.Int) error

	// TransferFrom moves amount of token id from from to to.
	TransferFrom(origin, from, to AccountID, id, amount *uint256.Int) error

	// BatchTransferFrom moves amounts[i] of token ids[i] from from to to.
	BatchTransferFrom(origin, from, to AccountID, ids, amounts []*uint256.Int) error
}

// Errors returned by ledger operations. Implementations wrap these with
// call-specific context; match them with errors.Is.
var (
	ErrTokenExists         = errors.New("token already exists")
	ErrTokenNotFound       = errors.New("token not found")
	ErrNoPermission        = errors.New("no permission")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
	ErrSelfApproval        = errors.New("cannot approve self as operator")
	ErrInvalidArguments    = errors.New("invalid arguments")
)
