package vm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/web3games/evmbridge/core/multitoken"
)

func TestNativeAccount(t *testing.T) {
	require.Equal(t, NativeAccount(addrA), NativeAccount(addrA))
	require.NotEqual(t, NativeAccount(addrA), NativeAccount(addrB))

	// The derivation is domain separated from a plain hash of the address.
	require.NotEqual(t, multitoken.AccountID(blake2b.Sum256(addrA.Bytes())), NativeAccount(addrA))

	seen := make(map[multitoken.AccountID]common.Address)
	for i := 0; i < 256; i++ {
		addr := common.BytesToAddress([]byte{byte(i), 0x01})
		id := NativeAccount(addr)
		prev, dup := seen[id]
		require.False(t, dup, "%s and %s map to the same account", addr, prev)
		seen[id] = addr
	}
}

func decodeValid(t *testing.T, op TokensOp) TokensCall {
	t.Helper()
	call, err := DecodeTokensCall(validCalls(t)[op], DefaultCostTable())
	require.NoError(t, err)
	return call
}

func TestBridgeTranslatesAddresses(t *testing.T) {
	ledger := new(recordingLedger)
	bridge := NewNativeBridge(ledger)
	origin := NativeAccount(addrC)
	ctx := &CallContext{Caller: addrC}
	u := uint256.NewInt

	for _, op := range AllTokensOps() {
		require.NoError(t, bridge.Execute(decodeValid(t, op), origin, ctx), "op %s", op)
	}
	a, b := NativeAccount(addrA), NativeAccount(addrB)
	want := []ledgerCall{
		{"CreateToken", origin, []interface{}{u(7), validCalls(t)[OpCreate][4+3*32 : 4+3*32+40]}},
		{"Mint", origin, []interface{}{a, u(7), u(100)}},
		{"MintBatch", origin, []interface{}{u(7), []multitoken.AccountID{a, b}, []*uint256.Int{u(1), u(2)}}},
		{"SetApprovalForAll", origin, []interface{}{b, true}},
		{"Burn", origin, []interface{}{a, u(7), u(1)}},
		{"BurnBatch", origin, []interface{}{u(7), []multitoken.AccountID{a, b}, []*uint256.Int{u(1), u(2)}}},
		{"TransferFrom", origin, []interface{}{a, b, u(7), u(50)}},
		{"BatchTransferFrom", origin, []interface{}{a, b, []*uint256.Int{u(1), u(2)}, []*uint256.Int{u(3), u(4)}}},
	}
	require.Equal(t, want, ledger.calls)
}

func TestBridgePreservesListOrder(t *testing.T) {
	ledger := new(recordingLedger)
	bridge := NewNativeBridge(ledger)

	to := []common.Address{addrC, addrA, addrB, addrA}
	input := mustPack(t, OpMintBatch, bn(9), to, bns(40, 10, 30, 20))
	call, err := DecodeTokensCall(input, DefaultCostTable())
	require.NoError(t, err)
	require.NoError(t, bridge.Execute(call, NativeAccount(addrA), nil))

	require.Len(t, ledger.calls, 1)
	gotTo := ledger.calls[0].Args[1].([]multitoken.AccountID)
	gotAmounts := ledger.calls[0].Args[2].([]*uint256.Int)
	for i := range to {
		require.Equal(t, NativeAccount(to[i]), gotTo[i], "item %d", i)
	}
	require.Equal(t, []uint64{40, 10, 30, 20}, []uint64{
		gotAmounts[0].Uint64(), gotAmounts[1].Uint64(), gotAmounts[2].Uint64(), gotAmounts[3].Uint64(),
	})
}

func TestBridgeRefusesStaticCalls(t *testing.T) {
	ledger := new(recordingLedger)
	bridge := NewNativeBridge(ledger)

	for _, op := range AllTokensOps() {
		err := bridge.Execute(decodeValid(t, op), NativeAccount(addrA), &CallContext{Static: true})
		require.ErrorIs(t, err, ErrStateChangeInReadOnlyCall, "op %s", op)

		var nerr *NativeError
		require.ErrorAs(t, err, &nerr)
		require.Equal(t, op, nerr.Op)
	}
	require.Empty(t, ledger.calls)
}

func TestBridgeWrapsLedgerErrors(t *testing.T) {
	ledger := &recordingLedger{err: multitoken.ErrInsufficientBalance}
	bridge := NewNativeBridge(ledger)

	err := bridge.Execute(decodeValid(t, OpBurn), NativeAccount(addrA), &CallContext{})
	require.ErrorIs(t, err, multitoken.ErrInsufficientBalance)
	require.Equal(t, "burn: insufficient balance", err.Error())
}
