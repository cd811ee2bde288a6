package vm

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// TestRouterUnclaimedAddresses verifies that every address outside the
// reserved set is left to contract execution.
func TestRouterUnclaimedAddresses(t *testing.T) {
	r := NewRouter(new(recordingLedger), nil)
	unclaimed := []common.Address{
		{},
		common.BytesToAddress([]byte{0x09}), // blake2f, not reserved here
		common.BytesToAddress([]byte{0x0a}),
		common.BytesToAddress([]byte{0x27, 0x10}),
		common.BytesToAddress([]byte{0x27, 0x12}),
		common.BytesToAddress([]byte{0x01, 0x00, 0x01}),
		common.HexToAddress("0x0100000000000000000000000000000000002711"),
		addrA,
	}
	for _, addr := range unclaimed {
		out, handled, err := r.Route(addr, []byte{1, 2, 3}, GasLimit(1_000_000), &CallContext{})
		require.False(t, handled, "%s", addr)
		require.Nil(t, out, "%s", addr)
		require.NoError(t, err, "%s", addr)
		require.False(t, IsReserved(addr), "%s reported as reserved", addr)
	}
}

// TestRouterAddresses checks the claimed set and its order.
func TestRouterAddresses(t *testing.T) {
	r := NewRouter(new(recordingLedger), nil)
	want := []common.Address{
		common.HexToAddress("0x0000000000000000000000000000000000000001"),
		common.HexToAddress("0x0000000000000000000000000000000000000002"),
		common.HexToAddress("0x0000000000000000000000000000000000000003"),
		common.HexToAddress("0x0000000000000000000000000000000000000004"),
		common.HexToAddress("0x0000000000000000000000000000000000000005"),
		common.HexToAddress("0x0000000000000000000000000000000000000006"),
		common.HexToAddress("0x0000000000000000000000000000000000000007"),
		common.HexToAddress("0x0000000000000000000000000000000000000008"),
		common.HexToAddress("0x0000000000000000000000000000000000002711"),
	}
	got := r.Addresses()
	require.Equal(t, want, got)
	for _, addr := range got {
		require.True(t, IsReserved(addr), "%s not reserved", addr)
	}
	require.Equal(t, want[8], TokensPrecompileAddress)
}

// TestRouterStandardPrecompiles runs identity and sha256 through the router.
func TestRouterStandardPrecompiles(t *testing.T) {
	r := NewRouter(new(recordingLedger), nil)
	input := []byte("abc")

	out, handled, err := r.Route(AddrIdentity.Address(), input, GasLimit(100), nil)
	require.NoError(t, err)
	require.True(t, handled)
	require.True(t, out.Succeeded)
	require.Equal(t, input, out.Output)
	// 15 base + 3 per word.
	require.Equal(t, uint64(18), out.GasUsed)

	out, _, err = r.Route(AddrSha256.Address(), input, nil, nil)
	require.NoError(t, err)
	want := sha256.Sum256(input)
	require.Equal(t, want[:], out.Output)
	require.Equal(t, uint64(72), out.GasUsed)
}

// TestRouterStandardOutOfGas checks that running short of gas is an
// execution error rather than a revert.
func TestRouterStandardOutOfGas(t *testing.T) {
	r := NewRouter(new(recordingLedger), nil)
	out, handled, err := r.Route(AddrECRecover.Address(), make([]byte, 128), GasLimit(2999), nil)
	require.True(t, handled)
	require.Nil(t, out)
	require.ErrorIs(t, err, ErrOutOfGas)

	var xerr *ExecutionError
	require.ErrorAs(t, err, &xerr)
	require.Equal(t, "ecrecover", xerr.Precompile)
}

// TestRouterStandardFailure checks that a precompile rejecting its input
// surfaces as an execution error.
func TestRouterStandardFailure(t *testing.T) {
	r := NewRouter(new(recordingLedger), nil)
	// A point not on the curve.
	input := make([]byte, 128)
	input[31] = 1
	input[63] = 1
	_, handled, err := r.Route(AddrBn256Add.Address(), input, nil, nil)
	require.True(t, handled)

	var xerr *ExecutionError
	require.ErrorAs(t, err, &xerr)
}

// TestRouterTokensNeverErrors checks that garbage sent to the tokens
// precompile reverts instead of failing execution.
func TestRouterTokensNeverErrors(t *testing.T) {
	r := NewRouter(new(recordingLedger), nil)
	for _, input := range [][]byte{nil, {0x01}, bytes.Repeat([]byte{0xff}, 300)} {
		out, handled, err := r.Route(TokensPrecompileAddress, input, GasLimit(0), nil)
		require.NoError(t, err, "input %x", input)
		require.True(t, handled, "input %x", input)
		require.False(t, out.Succeeded, "input %x", input)
	}
}

// TestReservedAddressNames checks the printable names used in logs.
func TestReservedAddressNames(t *testing.T) {
	for _, id := range ReservedAddresses() {
		require.NotContains(t, id.String(), "reserved(", "address %d has no name", uint16(id))
	}
	require.Equal(t, "tokens", AddrTokens.String())
}
