package vm

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/web3games/evmbridge/core/multitoken"
)

// TokensCall is a decoded call to the tokens precompile. The concrete types
// below are the only implementations; each knows how to forward itself to
// the ledger, so adding an op without a dispatch path does not compile.
type TokensCall interface {
	Op() TokensOp
	dispatch(l multitoken.Ledger, origin multitoken.AccountID) error
}

// CreateCall registers token ID with metadata URI.
type CreateCall struct {
	ID  *uint256.Int
	URI []byte
}

// MintCall mints Amount of token ID to To.
type MintCall struct {
	To     common.Address
	ID     *uint256.Int
	Amount *uint256.Int
}

// MintBatchCall mints Amounts[i] of token ID to To[i].
type MintBatchCall struct {
	ID      *uint256.Int
	To      []common.Address
	Amounts []*uint256.Int
}

// SetApprovalForAllCall grants or revokes Operator's right to move the
// caller's tokens.
type SetApprovalForAllCall struct {
	Operator common.Address
	Approved bool
}

// BurnCall burns Amount of token ID held by From.
type BurnCall struct {
	From   common.Address
	ID     *uint256.Int
	Amount *uint256.Int
}

// BurnBatchCall burns Amounts[i] of token ID held by From[i].
type BurnBatchCall struct {
	ID      *uint256.Int
	From    []common.Address
	Amounts []*uint256.Int
}

// TransferFromCall moves Amount of token ID from From to To.
type TransferFromCall struct {
	From   common.Address
	To     common.Address
	ID     *uint256.Int
	Amount *uint256.Int
}

// BatchTransferFromCall moves Amounts[i] of token IDs[i] from From to To.
type BatchTransferFromCall struct {
	From    common.Address
	To      common.Address
	IDs     []*uint256.Int
	Amounts []*uint256.Int
}

func (*CreateCall) Op() TokensOp            { return OpCreate }
func (*MintCall) Op() TokensOp              { return OpMint }
func (*MintBatchCall) Op() TokensOp         { return OpMintBatch }
func (*SetApprovalForAllCall) Op() TokensOp { return OpSetApprovalForAll }
func (*BurnCall) Op() TokensOp              { return OpBurn }
func (*BurnBatchCall) Op() TokensOp         { return OpBurnBatch }
func (*TransferFromCall) Op() TokensOp      { return OpTransferFrom }
func (*BatchTransferFromCall) Op() TokensOp { return OpBatchTransferFrom }

// BatchLimits bounds the number of list items accepted per op. Zero means
// unbounded.
type BatchLimits interface {
	MaxItems(op TokensOp) int
}

// DecodeTokensCall parses calldata into a TokensCall. It is pure and never
// reads past the end of input: the head/tail layout is bounds-checked before
// the arguments are unpacked.
func DecodeTokensCall(input []byte, limits BatchLimits) (TokensCall, error) {
	if len(input) < 4 {
		return nil, decodeErr("", ErrTruncated, "%d bytes, selector needs 4", len(input))
	}
	op, ok := tokensSelectors[[4]byte(input[:4])]
	if !ok {
		return nil, decodeErr("", ErrUnknownSelector, "%#x", input[:4])
	}
	var (
		method   = &tokensMethods[op]
		args     = input[4:]
		maxItems int
	)
	if limits != nil {
		maxItems = limits.MaxItems(op)
	}
	if err := checkLayout(method.Inputs, args, maxItems); err != nil {
		err.Method = op.String()
		return nil, err
	}
	values, err := method.Inputs.Unpack(args)
	if err != nil {
		return nil, decodeErr(op.String(), ErrMalformed, "%v", err)
	}
	r := &argReader{method: op.String(), values: values}
	call := tokensDecoders[op](r)
	if r.err != nil {
		return nil, r.err
	}
	return call, nil
}

// tokensDecoders builds the typed call of every op from unpacked arguments.
var tokensDecoders = [numTokensOps]func(r *argReader) TokensCall{
	OpCreate: func(r *argReader) TokensCall {
		return &CreateCall{ID: r.u256(0), URI: r.bytes(1)}
	},
	OpMint: func(r *argReader) TokensCall {
		return &MintCall{To: r.address(0), ID: r.u256(1), Amount: r.u256(2)}
	},
	OpMintBatch: func(r *argReader) TokensCall {
		call := &MintBatchCall{ID: r.u256(0), To: r.addresses(1), Amounts: r.u256s(2)}
		r.parallel("accounts", len(call.To), len(call.Amounts))
		return call
	},
	OpSetApprovalForAll: func(r *argReader) TokensCall {
		return &SetApprovalForAllCall{Operator: r.address(0), Approved: r.bool(1)}
	},
	OpBurn: func(r *argReader) TokensCall {
		return &BurnCall{From: r.address(0), ID: r.u256(1), Amount: r.u256(2)}
	},
	OpBurnBatch: func(r *argReader) TokensCall {
		call := &BurnBatchCall{ID: r.u256(0), From: r.addresses(1), Amounts: r.u256s(2)}
		r.parallel("accounts", len(call.From), len(call.Amounts))
		return call
	},
	OpTransferFrom: func(r *argReader) TokensCall {
		return &TransferFromCall{From: r.address(0), To: r.address(1), ID: r.u256(2), Amount: r.u256(3)}
	},
	OpBatchTransferFrom: func(r *argReader) TokensCall {
		call := &BatchTransferFromCall{From: r.address(0), To: r.address(1), IDs: r.u256s(2), Amounts: r.u256s(3)}
		r.parallel("ids", len(call.IDs), len(call.Amounts))
		return call
	},
}

// checkLayout verifies that every region the argument schema refers to lies
// within data, that address words carry clean padding, that parallel lists
// agree in length and that list lengths respect maxItems.
func checkLayout(inputs abi.Arguments, data []byte, maxItems int) *DecodeError {
	if head := 32 * len(inputs); len(data) < head {
		return decodeErr("", ErrTruncated, "%d argument bytes, head needs %d", len(data), head)
	}
	var lists []listHeader
	for i, arg := range inputs {
		word := data[i*32 : (i+1)*32]
		switch arg.Type.T {
		case abi.AddressTy:
			if !isZero(word[:12]) {
				return decodeErr("", ErrMalformed, "argument %s: dirty address padding", arg.Name)
			}

		case abi.BytesTy:
			off, err := readOffset(word, len(data), arg.Name)
			if err != nil {
				return err
			}
			n, ok := readLength(data[off : off+32])
			if !ok || n > uint64(len(data)) {
				return decodeErr("", ErrTruncated, "argument %s: length exceeds calldata", arg.Name)
			}
			if end := off + 32 + (n+31)/32*32; end > uint64(len(data)) {
				return decodeErr("", ErrTruncated, "argument %s: needs %d bytes, have %d", arg.Name, end, len(data))
			}

		case abi.SliceTy:
			off, err := readOffset(word, len(data), arg.Name)
			if err != nil {
				return err
			}
			n, ok := readLength(data[off : off+32])
			lists = append(lists, listHeader{arg: arg, off: off, n: n, ok: ok})
		}
	}
	// Every batch op takes exactly two positional lists.
	if len(lists) == 2 && lists[0].ok && lists[1].ok && lists[0].n != lists[1].n {
		return decodeErr("", ErrLengthMismatch, "%d %s, %d %s", lists[0].n, lists[0].arg.Name, lists[1].n, lists[1].arg.Name)
	}
	for _, l := range lists {
		if maxItems > 0 && (!l.ok || l.n > uint64(maxItems)) {
			return decodeErr("", ErrBatchTooLarge, "argument %s: more than %d items", l.arg.Name, maxItems)
		}
		if !l.ok || l.n > uint64(len(data))/32 {
			return decodeErr("", ErrTruncated, "argument %s: length exceeds calldata", l.arg.Name)
		}
		start := l.off + 32
		if end := start + l.n*32; end > uint64(len(data)) {
			return decodeErr("", ErrTruncated, "argument %s: needs %d bytes, have %d", l.arg.Name, end, len(data))
		}
		if l.arg.Type.Elem != nil && l.arg.Type.Elem.T == abi.AddressTy {
			for j := uint64(0); j < l.n; j++ {
				if elem := data[start+j*32 : start+j*32+32]; !isZero(elem[:12]) {
					return decodeErr("", ErrMalformed, "argument %s[%d]: dirty address padding", l.arg.Name, j)
				}
			}
		}
	}
	return nil
}

// listHeader is the offset and declared length of a dynamic list argument.
type listHeader struct {
	arg abi.Argument
	off uint64
	n   uint64
	ok  bool
}

// readOffset reads a tail offset and checks that the 32-byte length word it
// points at is present.
func readOffset(word []byte, size int, name string) (uint64, *DecodeError) {
	if !isZero(word[:24]) {
		return 0, decodeErr("", ErrMalformed, "argument %s: offset out of range", name)
	}
	off := binary.BigEndian.Uint64(word[24:])
	if off > uint64(size) || uint64(size)-off < 32 {
		return 0, decodeErr("", ErrTruncated, "argument %s: offset %d past end of %d bytes", name, off, size)
	}
	return off, nil
}

// readLength reads a 32-byte length word, reporting false when it does not
// fit in 64 bits.
func readLength(word []byte) (uint64, bool) {
	if !isZero(word[:24]) {
		return 0, false
	}
	return binary.BigEndian.Uint64(word[24:]), true
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// argReader converts go-ethereum's unpacked argument values into the types
// of the typed calls, recording the first mismatch instead of panicking.
type argReader struct {
	method string
	values []interface{}
	err    *DecodeError
}

func (r *argReader) value(i int) interface{} {
	if r.err != nil {
		return nil
	}
	if i >= len(r.values) {
		r.err = decodeErr(r.method, ErrMalformed, "missing argument %d", i)
		return nil
	}
	return r.values[i]
}

func (r *argReader) mismatch(i int, want string) {
	if r.err == nil {
		r.err = decodeErr(r.method, ErrMalformed, "argument %d is not %s", i, want)
	}
}

func (r *argReader) u256(i int) *uint256.Int {
	v, ok := r.value(i).(*big.Int)
	if !ok {
		r.mismatch(i, "uint256")
		return new(uint256.Int)
	}
	out, overflow := uint256.FromBig(v)
	if overflow || v.Sign() < 0 {
		r.mismatch(i, "uint256")
		return new(uint256.Int)
	}
	return out
}

func (r *argReader) u256s(i int) []*uint256.Int {
	vs, ok := r.value(i).([]*big.Int)
	if !ok {
		r.mismatch(i, "uint256[]")
		return nil
	}
	out := make([]*uint256.Int, len(vs))
	for j, v := range vs {
		u, overflow := uint256.FromBig(v)
		if overflow || v.Sign() < 0 {
			r.mismatch(i, "uint256[]")
			return nil
		}
		out[j] = u
	}
	return out
}

func (r *argReader) address(i int) common.Address {
	v, ok := r.value(i).(common.Address)
	if !ok {
		r.mismatch(i, "address")
	}
	return v
}

func (r *argReader) addresses(i int) []common.Address {
	v, ok := r.value(i).([]common.Address)
	if !ok {
		r.mismatch(i, "address[]")
	}
	return v
}

func (r *argReader) bytes(i int) []byte {
	v, ok := r.value(i).([]byte)
	if !ok {
		r.mismatch(i, "bytes")
	}
	return v
}

func (r *argReader) bool(i int) bool {
	v, ok := r.value(i).(bool)
	if !ok {
		r.mismatch(i, "bool")
	}
	return v
}

// parallel records a length mismatch between two positional lists.
func (r *argReader) parallel(what string, n, amounts int) {
	if r.err == nil && n != amounts {
		r.err = decodeErr(r.method, ErrLengthMismatch, "%d %s, %d amounts", n, what, amounts)
	}
}
