package vm

import (
	"bufio"
	"errors"
	"fmt"
	gomath "math"
	"os"
	"reflect"
	"unicode"

	"github.com/ethereum/go-ethereum/common/math"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/naoina/toml"
)

// ErrOutOfGas is returned by CostTable.Charge when the fixed cost of an op
// exceeds the gas supplied to the call.
var ErrOutOfGas = gethvm.ErrOutOfGas

// Benchmarked weights of the native ledger operations, in weight units
// (picoseconds of reference hardware), together with the database accesses
// each performs in the worst case of MaxItems list entries.
var defaultOperationWeights = OperationWeights{
	Create:            OpWeight{Base: 31_210_000, Reads: 2, Writes: 2},
	Mint:              OpWeight{Base: 24_415_000, Reads: 2, Writes: 2},
	MintBatch:         OpWeight{Base: 50_137_000, Reads: 6, Writes: 6, MaxItems: 5},
	SetApprovalForAll: OpWeight{Base: 18_618_000, Reads: 1, Writes: 1},
	Burn:              OpWeight{Base: 22_537_000, Reads: 2, Writes: 2},
	BurnBatch:         OpWeight{Base: 54_225_000, Reads: 6, Writes: 6, MaxItems: 5},
	TransferFrom:      OpWeight{Base: 25_134_000, Reads: 2, Writes: 2},
	BatchTransferFrom: OpWeight{Base: 74_825_000, Reads: 10, Writes: 10, MaxItems: 5},
}

const (
	defaultWeightPerGas = 20_000
	defaultDBRead       = 25_000_000
	defaultDBWrite      = 100_000_000
)

// OpWeight is the benchmarked cost of one op.
type OpWeight struct {
	Base     uint64
	Reads    uint64
	Writes   uint64
	MaxItems int `toml:",omitempty"` // longest accepted list, batch ops only
}

// DBWeight is the weight of a single database access.
type DBWeight struct {
	Read  uint64
	Write uint64
}

// OperationWeights holds one OpWeight per op.
type OperationWeights struct {
	Create            OpWeight
	Mint              OpWeight
	MintBatch         OpWeight
	SetApprovalForAll OpWeight
	Burn              OpWeight
	BurnBatch         OpWeight
	TransferFrom      OpWeight
	BatchTransferFrom OpWeight
}

func (w *OperationWeights) get(op TokensOp) *OpWeight {
	switch op {
	case OpCreate:
		return &w.Create
	case OpMint:
		return &w.Mint
	case OpMintBatch:
		return &w.MintBatch
	case OpSetApprovalForAll:
		return &w.SetApprovalForAll
	case OpBurn:
		return &w.Burn
	case OpBurnBatch:
		return &w.BurnBatch
	case OpTransferFrom:
		return &w.TransferFrom
	case OpBatchTransferFrom:
		return &w.BatchTransferFrom
	}
	return nil
}

// CostConfig is the file form of a CostTable.
type CostConfig struct {
	WeightPerGas uint64
	DBWeight     DBWeight
	Operations   OperationWeights
}

// DefaultCostConfig returns the benchmarked cost configuration.
func DefaultCostConfig() CostConfig {
	return CostConfig{
		WeightPerGas: defaultWeightPerGas,
		DBWeight:     DBWeight{Read: defaultDBRead, Write: defaultDBWrite},
		Operations:   defaultOperationWeights,
	}
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		id := fmt.Sprintf("%s.%s", rt.String(), field)
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, id, link)
	},
}

// CostTable resolves the fixed gas cost of every op. It is read-only after
// construction.
type CostTable struct {
	config CostConfig
	gas    [numTokensOps]uint64
}

// DefaultCostTable returns the table built from DefaultCostConfig.
func DefaultCostTable() *CostTable {
	t, err := NewCostTable(DefaultCostConfig())
	if err != nil {
		panic(err)
	}
	return t
}

// NewCostTable validates cfg and precomputes the gas cost of every op.
func NewCostTable(cfg CostConfig) (*CostTable, error) {
	if cfg.WeightPerGas == 0 {
		return nil, errors.New("cost table: WeightPerGas must be positive")
	}
	t := &CostTable{config: cfg}
	for _, op := range AllTokensOps() {
		w := cfg.Operations.get(op)
		switch {
		case w.MaxItems < 0:
			return nil, fmt.Errorf("cost table: %s: negative MaxItems", op)
		case op.IsBatch() && w.MaxItems == 0:
			return nil, fmt.Errorf("cost table: %s: batch op needs MaxItems", op)
		case !op.IsBatch() && w.MaxItems != 0:
			return nil, fmt.Errorf("cost table: %s: MaxItems set on a single-item op", op)
		}
		gas := weightToGas(*w, cfg.DBWeight, cfg.WeightPerGas)
		if gas > gomath.MaxInt64 {
			return nil, fmt.Errorf("cost table: %s: gas cost %d out of range", op, gas)
		}
		t.gas[op] = gas
	}
	return t, nil
}

// LoadCostTable reads a TOML cost file. Keys absent from the file keep their
// default values.
func LoadCostTable(path string) (*CostTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := DefaultCostConfig()
	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	if err != nil {
		return nil, err
	}
	return NewCostTable(cfg)
}

// weightToGas converts the weight of an op into gas, rounding up so an
// admitted call always covers its benchmarked weight.
func weightToGas(w OpWeight, db DBWeight, perGas uint64) uint64 {
	total := w.Base
	total = saturatingAdd(total, saturatingMul(w.Reads, db.Read))
	total = saturatingAdd(total, saturatingMul(w.Writes, db.Write))
	gas := total / perGas
	if total%perGas != 0 {
		gas++
	}
	return gas
}

func saturatingAdd(a, b uint64) uint64 {
	if s, overflow := math.SafeAdd(a, b); !overflow {
		return s
	}
	return ^uint64(0)
}

func saturatingMul(a, b uint64) uint64 {
	if p, overflow := math.SafeMul(a, b); !overflow {
		return p
	}
	return ^uint64(0)
}

// Config returns a copy of the configuration the table was built from.
func (t *CostTable) Config() CostConfig { return t.config }

// Weight returns the configured weight of op.
func (t *CostTable) Weight(op TokensOp) OpWeight {
	return *t.config.Operations.get(op)
}

// Gas returns the fixed gas cost of op.
func (t *CostTable) Gas(op TokensOp) uint64 { return t.gas[op] }

// MaxItems returns the longest list accepted by op, zero for single-item ops.
// A nil table accepts lists of any length.
func (t *CostTable) MaxItems(op TokensOp) int {
	if t == nil || op >= numTokensOps {
		return 0
	}
	return t.config.Operations.get(op).MaxItems
}

// GasReceipt records an admitted charge.
type GasReceipt struct {
	Op   TokensOp
	Cost uint64
}

// Charge admits op against gas. A nil limit is unbounded. The cost does not
// depend on the input size.
func (t *CostTable) Charge(op TokensOp, gas *uint64) (GasReceipt, error) {
	cost := t.gas[op]
	if gas != nil && cost > *gas {
		return GasReceipt{}, fmt.Errorf("%w: %s costs %d, have %d", ErrOutOfGas, op, cost, *gas)
	}
	return GasReceipt{Op: op, Cost: cost}, nil
}

// MarshalCostConfig renders cfg in the format read by LoadCostTable.
func MarshalCostConfig(cfg CostConfig) ([]byte, error) {
	return tomlSettings.Marshal(&cfg)
}
