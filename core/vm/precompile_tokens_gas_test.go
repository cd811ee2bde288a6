package vm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultGas(t *testing.T) {
	want := map[TokensOp]uint64{
		OpCreate:            14061,
		OpMint:              13721,
		OpMintBatch:         40007,
		OpSetApprovalForAll: 7181,
		OpBurn:              13627,
		OpBurnBatch:         40212,
		OpTransferFrom:      13757,
		OpBatchTransferFrom: 66242,
	}
	costs := DefaultCostTable()
	for _, op := range AllTokensOps() {
		require.Equal(t, want[op], costs.Gas(op), "op %s", op)
		if op.IsBatch() {
			require.Equal(t, 5, costs.MaxItems(op), "op %s", op)
		} else {
			require.Zero(t, costs.MaxItems(op), "op %s", op)
		}
	}
}

func TestChargeIsMonotonic(t *testing.T) {
	costs := DefaultCostTable()
	for _, op := range AllTokensOps() {
		cost := costs.Gas(op)
		for _, limit := range []uint64{0, 1, cost / 2, cost - 1} {
			_, err := costs.Charge(op, &limit)
			require.ErrorIs(t, err, ErrOutOfGas, "op %s limit %d", op, limit)
		}
		for _, limit := range []uint64{cost, cost + 1, 2 * cost, ^uint64(0)} {
			receipt, err := costs.Charge(op, &limit)
			require.NoError(t, err, "op %s limit %d", op, limit)
			require.Equal(t, GasReceipt{Op: op, Cost: cost}, receipt)
		}
		receipt, err := costs.Charge(op, nil)
		require.NoError(t, err)
		require.Equal(t, cost, receipt.Cost)
	}
}

func TestChargeDoesNotMutateLimit(t *testing.T) {
	limit := uint64(1_000_000)
	_, err := DefaultCostTable().Charge(OpMint, &limit)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), limit)
}

func TestWeightToGasSaturates(t *testing.T) {
	gas := weightToGas(OpWeight{Base: ^uint64(0), Reads: ^uint64(0), Writes: 2}, DBWeight{Read: 2, Write: 2}, 1)
	require.Equal(t, ^uint64(0), gas)

	require.Equal(t, uint64(1), weightToGas(OpWeight{Base: 1}, DBWeight{}, 20_000))
	require.Equal(t, uint64(2), weightToGas(OpWeight{Base: 40_000}, DBWeight{}, 20_000))
}

func TestNewCostTableValidation(t *testing.T) {
	cfg := DefaultCostConfig()
	cfg.WeightPerGas = 0
	_, err := NewCostTable(cfg)
	require.Error(t, err)

	cfg = DefaultCostConfig()
	cfg.Operations.BurnBatch.MaxItems = 0
	_, err = NewCostTable(cfg)
	require.ErrorContains(t, err, "burnBatch")

	cfg = DefaultCostConfig()
	cfg.Operations.Mint.MaxItems = 3
	_, err = NewCostTable(cfg)
	require.ErrorContains(t, err, "mint")

	cfg = DefaultCostConfig()
	cfg.Operations.MintBatch.MaxItems = -1
	_, err = NewCostTable(cfg)
	require.Error(t, err)

	// A weight that saturates the gas conversion is rejected.
	cfg = DefaultCostConfig()
	cfg.WeightPerGas = 1
	cfg.Operations.Burn = OpWeight{Base: ^uint64(0)}
	_, err = NewCostTable(cfg)
	require.ErrorContains(t, err, "burn: gas cost")

	cfg.Operations.Burn = OpWeight{Base: 1 << 63}
	_, err = NewCostTable(cfg)
	require.ErrorContains(t, err, "out of range")

	cfg.Operations.Burn = OpWeight{Base: 1<<63 - 1}
	costs, err := NewCostTable(cfg)
	require.NoError(t, err)
	require.Equal(t, uint64(1<<63-1), costs.Gas(OpBurn))
}

func TestNilCostTableMaxItems(t *testing.T) {
	var costs *CostTable
	for _, op := range AllTokensOps() {
		require.Zero(t, costs.MaxItems(op), "op %s", op)
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "costs.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCostTable(t *testing.T) {
	path := writeFile(t, `
WeightPerGas = 10000

[Operations.Mint]
Base = 1000000
Reads = 0
Writes = 0

[Operations.MintBatch]
MaxItems = 20
`)
	costs, err := LoadCostTable(path)
	require.NoError(t, err)
	require.Equal(t, uint64(100), costs.Gas(OpMint))
	require.Equal(t, uint64(28121), costs.Gas(OpCreate))
	require.Equal(t, 20, costs.MaxItems(OpMintBatch))
	// Weights not named in the file keep their defaults.
	require.Equal(t, uint64(50_137_000), costs.Weight(OpMintBatch).Base)
	require.Equal(t, 5, costs.MaxItems(OpBurnBatch))
}

func TestLoadCostTableErrors(t *testing.T) {
	_, err := LoadCostTable(writeFile(t, "Bogus = 1\n"))
	require.ErrorContains(t, err, "Bogus")

	_, err = LoadCostTable(writeFile(t, "WeightPerGas = 0\n"))
	require.ErrorContains(t, err, "WeightPerGas")

	_, err = LoadCostTable(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCostConfigRoundTrip(t *testing.T) {
	cfg := DefaultCostConfig()
	cfg.Operations.Burn.Base = 1
	cfg.DBWeight.Write = 7

	data, err := MarshalCostConfig(cfg)
	require.NoError(t, err)
	costs, err := LoadCostTable(writeFile(t, string(data)))
	require.NoError(t, err)
	require.Equal(t, cfg, costs.Config())

	want, err := NewCostTable(cfg)
	require.NoError(t, err)
	for _, op := range AllTokensOps() {
		require.Equal(t, want.Gas(op), costs.Gas(op), "op %s", op)
	}
}
