package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/go-wordwrap"

	"github.com/perbu/jasmine-browser-runner/pkg/config"
)

const (
	helpWidth       = 80
	helpUsageIndent = 6
)

var helpCommands = []struct {
	name, usage string
}{
	{"serve", "Start a server that serves the specs, for running them in a browser you open yourself. This is the default."},
	{"runSpecs", "Run the specs in a browser and report the results. The exit code is 0 when all specs pass, 2 when the run is incomplete and 3 when specs fail."},
	{"init", "Write a default config file to " + config.DefaultConfigPath + " unless one exists."},
	{"version", "Print version information."},
	{"help", "Print this help."},
}

// flagSyntax renders a flag the way users type it.
func flagSyntax(f config.FlagUsage) string {
	switch {
	case f.Negatable:
		return "--[no-]" + f.Name
	case f.Arg != "":
		return "--" + f.Name + "=<" + f.Arg + ">"
	default:
		return "--" + f.Name
	}
}

// writeWrapped writes text wrapped to the help width at the given indent.
func writeWrapped(w io.Writer, text string, indent int) {
	pad := strings.Repeat(" ", indent)
	for _, line := range strings.Split(wordwrap.WrapString(text, uint(helpWidth-indent)), "\n") {
		fmt.Fprintln(w, pad+line)
	}
}

// writeHelp prints usage for the whole program, wrapped to 80 columns.
func writeHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: jasmine-browser-runner <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range helpCommands {
		fmt.Fprintf(w, "  %s\n", c.name)
		writeWrapped(w, c.usage, helpUsageIndent)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	for _, f := range config.Flags {
		fmt.Fprintf(w, "  %s\n", flagSyntax(f))
		writeWrapped(w, f.Usage, helpUsageIndent)
	}
	fmt.Fprintln(w)
	writeWrapped(w, "Options given on the command line override those in the config file.", 0)
}
