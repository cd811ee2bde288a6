package multitoken

import (
	"github.com/holiman/uint256"
)

// Key prefixes of the reference ledger's database schema.
var (
	tokenPrefix    = []byte("mt-t") // mt-t + id (32 bytes) -> tokenRecord RLP
	balancePrefix  = []byte("mt-b") // mt-b + id (32 bytes) + account -> balance (big-endian, trimmed)
	approvalPrefix = []byte("mt-a") // mt-a + owner + operator -> 0x01
)

// tokenRecord is the stored form of a token.
type tokenRecord struct {
	Owner  AccountID
	URI    []byte
	Supply *uint256.Int
}

// Token is the read-only view of a registered token.
type Token struct {
	ID     *uint256.Int
	Owner  AccountID
	URI    []byte
	Supply *uint256.Int
}

func concatKey(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	key := make([]byte, 0, n)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

// tokenKey = tokenPrefix + id
func tokenKey(id *uint256.Int) []byte {
	b := id.Bytes32()
	return concatKey(tokenPrefix, b[:])
}

// balanceKey = balancePrefix + id + account
func balanceKey(id *uint256.Int, account AccountID) []byte {
	b := id.Bytes32()
	return concatKey(balancePrefix, b[:], account[:])
}

// approvalKey = approvalPrefix + owner + operator
func approvalKey(owner, operator AccountID) []byte {
	return concatKey(approvalPrefix, owner[:], operator[:])
}
