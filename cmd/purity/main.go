// Command purity scans Go sources for functions that reach package-level state and
// lists the capabilities a side-effect sandbox traps.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/on-the-ground/purity/cmd/purity/commands"
	"github.com/on-the-ground/purity/diag"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := commands.New()
	cli.SetArgs(args)
	cli.SetOutput(stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		logger := diag.New(stderr, zap.InfoLevel)
		logger.Error("command failed", zap.Error(err))
		return 1
	}
	return 0
}
