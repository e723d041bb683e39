package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/perbu/jasmine-browser-runner/pkg/cli"
)

//go:embed .version
var embeddedVersion string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()

	if cli.ShouldPrint(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}

func run(ctx context.Context, args []string) error {
	cmd := cli.NewRootCommand(cli.Deps{
		Version: strings.TrimSpace(embeddedVersion),
	})
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
