// Package cli implements the jasmine-browser-runner command line.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/borud/broker"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/perbu/jasmine-browser-runner/pkg/config"
	"github.com/perbu/jasmine-browser-runner/pkg/events"
	"github.com/perbu/jasmine-browser-runner/pkg/harness"
	"github.com/perbu/jasmine-browser-runner/pkg/jasmine"
	"github.com/perbu/jasmine-browser-runner/pkg/reporter"
	"github.com/perbu/jasmine-browser-runner/pkg/server"
)

// Deps are the operations the commands delegate to. Nil fields get the
// real implementations.
type Deps struct {
	// BaseDir is the project directory. Defaults to the working directory.
	BaseDir string
	Version string
	Stdout  io.Writer
	Stderr  io.Writer

	Serve       func(ctx context.Context, opts *config.RunOptions, logger *slog.Logger) error
	RunSpecs    func(ctx context.Context, opts *config.RunOptions, logger *slog.Logger, setExitCode func(int)) (*jasmine.RunDetails, error)
	CoreVersion func(opts *config.RunOptions) (string, error)
}

func (d *Deps) setDefaults() {
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.BaseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			d.BaseDir = wd
		}
	}
	if d.Serve == nil {
		stdout := d.Stdout
		d.Serve = func(ctx context.Context, opts *config.RunOptions, logger *slog.Logger) error {
			return harness.Serve(ctx, opts, harness.Deps{Logger: logger, Stdout: stdout})
		}
	}
	if d.RunSpecs == nil {
		d.RunSpecs = runSpecsWith(d.Stdout, d.BaseDir)
	}
	if d.CoreVersion == nil {
		d.CoreVersion = func(opts *config.RunOptions) (string, error) {
			return server.Core{Root: opts.Path(opts.JasmineCorePath)}.Version()
		}
	}
}

// NewRootCommand creates the root command. Without a subcommand it serves.
func NewRootCommand(deps Deps) *cobra.Command {
	deps.setDefaults()

	cmd := &cobra.Command{
		Use:           "jasmine-browser-runner",
		Short:         "Run Jasmine specs in a browser",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &deps)
		},
	}
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		writeHelp(c.OutOrStdout())
	})

	cmd.AddCommand(newServeCommand(&deps))
	cmd.AddCommand(newRunSpecsCommand(&deps))
	cmd.AddCommand(newInitCommand(&deps))
	cmd.AddCommand(newVersionCommand(&deps))

	return cmd
}

// newLogger logs to stderr, at debug level with --verbose
func newLogger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool(config.FlagVerbose); verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// colorEnabled honours --[no-]color and otherwise detects a terminal
func colorEnabled(opt *bool, w io.Writer) bool {
	if opt != nil {
		return *opt
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runSpecsWith wires the real harness with the built-in reporters.
// Reporter module paths resolve against workingDir.
func runSpecsWith(stdout io.Writer, workingDir string) func(context.Context, *config.RunOptions, *slog.Logger, func(int)) (*jasmine.RunDetails, error) {
	return func(ctx context.Context, opts *config.RunOptions, logger *slog.Logger, setExitCode func(int)) (*jasmine.RunDetails, error) {
		color := colorEnabled(opts.Color, stdout)
		defaults := reporter.DefaultOptions{
			Print: reporter.WriterPrint(stdout),
			Color: &color,
		}
		resolver := reporter.NewResolver(reporter.BuiltinRegistry(defaults, stdout, logger), func() reporter.Reporter {
			return reporter.NewDefault(defaults)
		})

		deps := harness.Deps{
			Reporters:   resolver,
			SetExitCode: setExitCode,
			Logger:      logger,
			Stdout:      stdout,
			WorkingDir:  workingDir,
		}

		if logger.Enabled(ctx, slog.LevelDebug) {
			b := broker.New(broker.Config{
				DownStreamChanLen:  10,
				PublishChanLen:     10,
				SubscribeChanLen:   10,
				UnsubscribeChanLen: 10,
				DeliveryTimeout:    100 * time.Millisecond,
			})
			watchCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			if err := events.Watch(watchCtx, b, logger); err != nil {
				logger.Warn("Lifecycle events unavailable", "error", err)
			} else {
				deps.Broker = b
			}
		}

		return harness.RunSpecs(ctx, opts, deps)
	}
}
