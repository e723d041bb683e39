package config

import (
	"strings"

	"github.com/knadh/koanf/providers/posflag"
	"github.com/spf13/pflag"
)

// Flag names shared by the CLI and the loader.
const (
	FlagConfig   = "config"
	FlagReporter = "reporter"
	FlagVerbose  = "verbose"
)

// negatable flags have a --no- twin that writes the inverse to the same key.
var negatable = map[string]string{
	"color":           "color",
	"random":          "random",
	"clear-reporters": "clearReporters",
}

// flagKeys maps plain flags onto config keys.
var flagKeys = map[string]string{
	"port":      "port",
	"browser":   "browser.name",
	"seed":      "seed",
	"fail-fast": "failFast",
	"filter":    "filter",
	"timeout":   "timeout",
}

// FlagUsage documents a flag for the help output.
type FlagUsage struct {
	Name      string
	Arg       string
	Usage     string
	Negatable bool
}

// Flags lists the option flags in the order help shows them.
var Flags = []FlagUsage{
	{Name: FlagConfig, Arg: "path", Usage: "path to the jasmine-browser config file (default " + DefaultConfigPath + ")"},
	{Name: "port", Arg: "port", Usage: "run the server on a specific port"},
	{Name: "browser", Arg: "name", Usage: "run the specs in this browser, e.g. firefox, headlessChrome, safari or MicrosoftEdge"},
	{Name: "seed", Arg: "seed", Usage: "use the given seed when randomizing spec order"},
	{Name: "random", Negatable: true, Usage: "turn on or off randomization of spec order"},
	{Name: "fail-fast", Usage: "stop execution of the suite after the first spec failure or expectation failure"},
	{Name: "filter", Arg: "regex", Usage: "only run specs whose full name matches the regular expression"},
	{Name: "color", Negatable: true, Usage: "turn on or off colored output (auto-detected by default)"},
	{Name: FlagReporter, Arg: "path", Usage: "add a reporter by registered name or plugin path; may be repeated"},
	{Name: "clear-reporters", Negatable: true, Usage: "drop reporters named in the config file and only use those given with --reporter"},
	{Name: "timeout", Arg: "duration", Usage: "abort runSpecs when it takes longer than this, e.g. 10m (default: no limit)"},
	{Name: FlagVerbose, Usage: "enable debug logging"},
}

// RegisterFlags adds the option flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "path to the config file")
	fs.Int("port", 0, "server port")
	fs.String("browser", "", "browser name")
	fs.String("seed", "", "random seed")
	fs.Bool("fail-fast", false, "stop on first failure")
	fs.String("filter", "", "spec filter")
	fs.StringArray(FlagReporter, nil, "reporter name or plugin path")
	fs.Duration("timeout", 0, "run timeout")
	fs.Bool(FlagVerbose, false, "debug logging")

	for name := range negatable {
		fs.Bool(name, false, "")
		fs.Bool("no-"+name, false, "")
		_ = fs.MarkHidden("no-" + name)
	}
}

// flagValue is the posflag callback. Only flags the user set are
// returned; everything else keeps the value from lower layers.
func flagValue(fs *pflag.FlagSet) func(f *pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		if !f.Changed {
			return "", nil
		}

		if key, ok := flagKeys[f.Name]; ok {
			return key, posflag.FlagVal(fs, f)
		}

		name, inverted := strings.CutPrefix(f.Name, "no-")
		if key, ok := negatable[name]; ok {
			v, err := fs.GetBool(f.Name)
			if err != nil {
				return "", nil
			}
			if inverted {
				v = !v
			}
			return key, v
		}

		return "", nil
	}
}

// cliReporters returns the --reporter values, if given.
func cliReporters(fs *pflag.FlagSet) []string {
	if fs == nil {
		return nil
	}
	f := fs.Lookup(FlagReporter)
	if f == nil || !f.Changed {
		return nil
	}
	values, err := fs.GetStringArray(FlagReporter)
	if err != nil {
		return nil
	}
	return values
}
