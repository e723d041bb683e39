package reporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// DefaultOptions configures the default reporter adapter.
type DefaultOptions struct {
	// Print receives all output. Defaults to writing to stdout.
	Print func(string)
	// Color enables coloured output. Nil means on.
	Color *bool
	// RandomSeedReproductionCmd overrides the rerun hint shown for random runs.
	RandomSeedReproductionCmd func(seed string) string
}

// DefaultReporter adapts ConsoleReporter to the runner's defaults.
type DefaultReporter struct {
	*ConsoleReporter
}

// NewDefault creates the reporter used when none is configured.
func NewDefault(opts DefaultOptions) *DefaultReporter {
	printFn := opts.Print
	if printFn == nil {
		printFn = WriterPrint(os.Stdout)
	}
	showColors := true
	if opts.Color != nil {
		showColors = *opts.Color
	}
	seedCmd := opts.RandomSeedReproductionCmd
	if seedCmd == nil {
		seedCmd = ReproductionCmd
	}
	return &DefaultReporter{
		ConsoleReporter: NewConsole(ConsoleOptions{
			Print:                     printFn,
			ShowColors:                showColors,
			RandomSeedReproductionCmd: seedCmd,
		}),
	}
}

// ReproductionCmd returns the command line that reruns specs in the given order.
func ReproductionCmd(seed string) string {
	return fmt.Sprintf("jasmine-browser-runner runSpecs --seed=%s", seed)
}

// WriterPrint adapts an io.Writer to a print sink.
func WriterPrint(w io.Writer) func(string) {
	return func(s string) {
		_, _ = io.WriteString(w, s)
	}
}

// BuiltinRegistry returns a registry with the "console" and "json" reporters.
// Both write to out; the console reporter uses opts for everything else.
// JSON write errors go to logger.
func BuiltinRegistry(opts DefaultOptions, out io.Writer, logger *slog.Logger) *Registry {
	if out == nil {
		out = os.Stdout
	}
	if opts.Print == nil {
		opts.Print = WriterPrint(out)
	}
	r := NewRegistry()
	r.Register("console", func() (Reporter, error) {
		return NewDefault(opts), nil
	})
	r.Register("json", func() (Reporter, error) {
		return NewJSON(out, logger), nil
	})
	return r
}
