package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/web3games/evmbridge/core/vm"
)

var (
	selectorsCommand = &cli.Command{
		Action: listSelectors,
		Name:   "selectors",
		Usage:  "List the operations of the tokens precompile and their selectors",
	}
	costsCommand = &cli.Command{
		Action: listCosts,
		Name:   "costs",
		Usage:  "Show the gas schedule of the tokens precompile",
		Flags:  []cli.Flag{costsFlag, tomlFlag},
	}
	accountCommand = &cli.Command{
		Action:    showAccount,
		Name:      "account",
		ArgsUsage: "<address>",
		Usage:     "Derive the native ledger account of an EVM address",
	}
	decodeCommand = &cli.Command{
		Action:    decodeCalldata,
		Name:      "decode",
		ArgsUsage: "<calldata>",
		Usage:     "Decode tokens precompile calldata",
		Description: `Decodes hex calldata exactly as the precompile does and prints the
operation, its arguments, the native accounts involved and the gas it costs.
A call the precompile would reject prints the decode error instead.`,
		Flags: []cli.Flag{costsFlag},
	}
	addressesCommand = &cli.Command{
		Action: listAddresses,
		Name:   "addresses",
		Usage:  "List the reserved precompile addresses",
	}
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	return table
}

func listSelectors(ctx *cli.Context) error {
	table := newTable(ctx.App.Writer, "Op", "Signature", "Selector")
	for _, op := range vm.AllTokensOps() {
		sel := op.Selector()
		table.Append([]string{op.String(), op.Signature(), hexutil.Encode(sel[:])})
	}
	table.Render()
	return nil
}

func loadCosts(ctx *cli.Context) (*vm.CostTable, error) {
	path := ctx.String(costsFlag.Name)
	if path == "" {
		return vm.DefaultCostTable(), nil
	}
	costs, err := vm.LoadCostTable(path)
	if err != nil {
		return nil, err
	}
	log.Info("Loaded cost file", "path", path)
	return costs, nil
}

func listCosts(ctx *cli.Context) error {
	costs, err := loadCosts(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool(tomlFlag.Name) {
		data, err := vm.MarshalCostConfig(costs.Config())
		if err != nil {
			return err
		}
		_, err = ctx.App.Writer.Write(data)
		return err
	}
	table := newTable(ctx.App.Writer, "Op", "Base weight", "Reads", "Writes", "Gas", "Max items")
	for _, op := range vm.AllTokensOps() {
		w := costs.Weight(op)
		maxItems := "-"
		if op.IsBatch() {
			maxItems = strconv.Itoa(w.MaxItems)
		}
		table.Append([]string{
			op.String(),
			strconv.FormatUint(w.Base, 10),
			strconv.FormatUint(w.Reads, 10),
			strconv.FormatUint(w.Writes, 10),
			strconv.FormatUint(costs.Gas(op), 10),
			maxItems,
		})
	}
	table.Render()
	return nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func showAccount(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("need exactly one address")
	}
	addr, err := parseAddress(ctx.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, vm.NativeAccount(addr).Hex())
	return nil
}

func decodeCalldata(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("need exactly one calldata argument")
	}
	input, err := hexutil.Decode(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("invalid calldata: %w", err)
	}
	costs, err := loadCosts(ctx)
	if err != nil {
		return err
	}
	call, err := vm.DecodeTokensCall(input, costs)
	if err != nil {
		return err
	}
	fields, addrs := describeCall(call)

	table := newTable(ctx.App.Writer, "Field", "Value")
	table.Append([]string{"op", call.Op().String()})
	table.AppendBulk(fields)
	table.Append([]string{"gas", strconv.FormatUint(costs.Gas(call.Op()), 10)})
	table.Render()

	if addrs.Cardinality() == 0 {
		return nil
	}
	accounts := newTable(ctx.App.Writer, "Address", "Native account")
	sorted := addrs.ToSlice()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cmp(sorted[j]) < 0 })
	for _, addr := range sorted {
		accounts.Append([]string{addr.Hex(), vm.NativeAccount(addr).Hex()})
	}
	accounts.Render()
	return nil
}

// describeCall lists the arguments of call as printable rows and collects
// the distinct EVM addresses it names.
func describeCall(call vm.TokensCall) ([][]string, mapset.Set[common.Address]) {
	var (
		rows  [][]string
		addrs = mapset.NewThreadUnsafeSet[common.Address]()
	)
	address := func(name string, a common.Address) {
		rows = append(rows, []string{name, a.Hex()})
		addrs.Add(a)
	}
	number := func(name string, v *uint256.Int) {
		rows = append(rows, []string{name, v.Dec()})
	}
	addresses := func(name string, as []common.Address) {
		for i, a := range as {
			address(fmt.Sprintf("%s[%d]", name, i), a)
		}
	}
	numbers := func(name string, vs []*uint256.Int) {
		for i, v := range vs {
			number(fmt.Sprintf("%s[%d]", name, i), v)
		}
	}
	switch c := call.(type) {
	case *vm.CreateCall:
		number("id", c.ID)
		rows = append(rows, []string{"uri", string(c.URI)})
	case *vm.MintCall:
		address("to", c.To)
		number("id", c.ID)
		number("amount", c.Amount)
	case *vm.MintBatchCall:
		number("id", c.ID)
		addresses("to", c.To)
		numbers("amounts", c.Amounts)
	case *vm.SetApprovalForAllCall:
		address("operator", c.Operator)
		rows = append(rows, []string{"approved", strconv.FormatBool(c.Approved)})
	case *vm.BurnCall:
		address("from", c.From)
		number("id", c.ID)
		number("amount", c.Amount)
	case *vm.BurnBatchCall:
		number("id", c.ID)
		addresses("from", c.From)
		numbers("amounts", c.Amounts)
	case *vm.TransferFromCall:
		address("from", c.From)
		address("to", c.To)
		number("id", c.ID)
		number("amount", c.Amount)
	case *vm.BatchTransferFromCall:
		address("from", c.From)
		address("to", c.To)
		numbers("ids", c.IDs)
		numbers("amounts", c.Amounts)
	}
	return rows, addrs
}

func listAddresses(ctx *cli.Context) error {
	table := newTable(ctx.App.Writer, "Address", "Precompile")
	for _, id := range vm.ReservedAddresses() {
		table.Append([]string{id.Address().Hex(), id.String()})
	}
	table.Render()
	return nil
}
