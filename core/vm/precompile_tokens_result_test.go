package vm

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/require"
)

func TestEncodeResultSuccess(t *testing.T) {
	out := EncodeResult(nil, 21)
	require.True(t, out.Succeeded)
	require.NotNil(t, out.Output)
	require.Empty(t, out.Output)
	require.NoError(t, out.Err)
	require.Equal(t, uint64(21), out.GasUsed)
}

func TestEncodeResultRevert(t *testing.T) {
	cause := &NativeError{Op: OpMint, Err: errors.New("no permission")}
	out := EncodeResult(cause, 13721)
	require.False(t, out.Succeeded)
	require.Equal(t, uint64(13721), out.GasUsed)
	require.Equal(t, []byte{0x08, 0xc3, 0x79, 0xa0}, out.Output[:4])
	require.Same(t, cause, out.Err)

	reason, err := abi.UnpackRevert(out.Output)
	require.NoError(t, err)
	require.Equal(t, "mint: no permission", reason)
}

func TestEncodeRevertLongReason(t *testing.T) {
	reason := string(make([]byte, 100))
	payload := EncodeRevert(reason)
	// selector + offset + length + 4 padded words
	require.Len(t, payload, 4+32+32+128)

	got, err := abi.UnpackRevert(payload)
	require.NoError(t, err)
	require.Equal(t, reason, got)
}

func TestOutcomesAreFresh(t *testing.T) {
	a := EncodeResult(nil, 1)
	b := EncodeResult(nil, 1)
	require.NotSame(t, a, b)

	c := EncodeResult(errors.New("x"), 1)
	c.Output[4] = 0xff
	require.Equal(t, byte(0x00), EncodeResult(errors.New("x"), 1).Output[4])
}
