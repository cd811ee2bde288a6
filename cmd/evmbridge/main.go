// Command evmbridge inspects the multi-token precompile: its selectors, its
// gas schedule, the reserved addresses and the account mapping, and decodes
// calldata the way the precompile would.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var (
	version = "v0.1.0"
	commit  = "unknown"
)

var (
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Log level 0-5 (0=silent, 5=trace)",
		Value: 3,
	}
	costsFlag = &cli.StringFlag{
		Name:      "costs",
		Usage:     "TOML cost file overriding the benchmarked gas schedule",
		TakesFile: true,
	}
	tomlFlag = &cli.BoolFlag{
		Name:  "toml",
		Usage: "Print the schedule as a TOML cost file",
	}
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	if err := app.Run(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "evmbridge",
		Usage:     "inspect the multi-token precompile",
		Version:   fmt.Sprintf("%s (commit %s)", version, commit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     []cli.Flag{verbosityFlag},
		Before: func(ctx *cli.Context) error {
			setupLogging(stderr, ctx.Int(verbosityFlag.Name))
			return nil
		},
		Commands: []*cli.Command{
			selectorsCommand,
			costsCommand,
			accountCommand,
			decodeCommand,
			addressesCommand,
		},
	}
}

// setupLogging installs the go-ethereum root logger at the given verbosity.
func setupLogging(w io.Writer, verbosity int) {
	var lvl slog.Level
	switch {
	case verbosity <= 0:
		log.SetDefault(log.NewLogger(log.DiscardHandler()))
		return
	case verbosity == 1:
		lvl = slog.LevelError
	case verbosity == 2:
		lvl = slog.LevelWarn
	case verbosity == 3:
		lvl = slog.LevelInfo
	case verbosity == 4:
		lvl = slog.LevelDebug
	default:
		lvl = log.LevelTrace
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(w, lvl, false)))
}
