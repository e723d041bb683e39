// Package config resolves RunOptions from built-in defaults, a JSON or
// YAML config file and command line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/perbu/jasmine-browser-runner/pkg/reporter"
	"github.com/spf13/pflag"
)

// DefaultConfigPath is where init writes and commands look for the config.
const DefaultConfigPath = "spec/support/jasmine-browser.json"

// defaultConfigPaths are tried in order when --config is not given.
var defaultConfigPaths = []string{
	DefaultConfigPath,
	"spec/support/jasmine-browser.yaml",
}

var (
	// ErrConfigNotFound is returned when no config file exists.
	ErrConfigNotFound = errors.New("could not find a config file")
	// ErrInvalidConfig wraps validation failures.
	ErrInvalidConfig = errors.New("invalid config")
)

// Defaults returns the built-in option layer.
func Defaults(baseDir string) map[string]interface{} {
	return map[string]interface{}{
		"projectBaseDir":  baseDir,
		"srcDir":          ".",
		"specDir":         ".",
		"jasmineCorePath": "node_modules/jasmine-core",
		"hostname":        "localhost",
		"listenAddress":   "localhost",
	}
}

// Load merges defaults, the config file and flags into RunOptions.
// baseDir is the invocation directory that relative paths are resolved
// against. fs may be nil.
func Load(baseDir string, fs *pflag.FlagSet) (*RunOptions, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(baseDir), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	path, err := findConfigFile(baseDir, fs)
	if err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf("loading config file %s: %w", path, err)
	}
	if err := normalizeBrowser(k); err != nil {
		return nil, err
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", nil, flagValue(fs)), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var opts RunOptions
	if err := unmarshal(k, &opts); err != nil {
		return nil, fmt.Errorf("decoding options: %w", err)
	}

	mergeReporters(&opts, cliReporters(fs))
	applyFailFast(&opts)

	if !filepath.IsAbs(opts.ProjectBaseDir) {
		opts.ProjectBaseDir = filepath.Join(baseDir, opts.ProjectBaseDir)
	}

	if err := validate(&opts); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &opts, nil
}

// ConfigPath returns the config file path the given flags select,
// whether or not it exists.
func ConfigPath(baseDir string, fs *pflag.FlagSet) string {
	if fs != nil {
		if f := fs.Lookup(FlagConfig); f != nil && f.Value.String() != "" {
			return resolve(baseDir, f.Value.String())
		}
	}
	return filepath.Join(baseDir, DefaultConfigPath)
}

func findConfigFile(baseDir string, fs *pflag.FlagSet) (string, error) {
	if fs != nil {
		if f := fs.Lookup(FlagConfig); f != nil && f.Value.String() != "" {
			path := resolve(baseDir, f.Value.String())
			if _, err := os.Stat(path); err != nil {
				return "", fmt.Errorf("reading config file %s: %w", path, err)
			}
			return path, nil
		}
	}

	tried := make([]string, 0, len(defaultConfigPaths))
	for _, candidate := range defaultConfigPaths {
		path := filepath.Join(baseDir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		tried = append(tried, candidate)
	}
	return "", fmt.Errorf("%w (tried %s); run `jasmine-browser-runner init` to create one",
		ErrConfigNotFound, strings.Join(tried, ", "))
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return json.Parser()
	}
}

// normalizeBrowser turns "browser": "chrome" into "browser": {"name": "chrome"}.
func normalizeBrowser(k *koanf.Koanf) error {
	name, ok := k.Get("browser").(string)
	if !ok {
		return nil
	}
	k.Delete("browser")
	return k.Load(confmap.Provider(map[string]interface{}{"browser.name": name}, "."), nil)
}

func unmarshal(k *koanf.Koanf, opts *RunOptions) error {
	return k.UnmarshalWithConf("", opts, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Metadata:         nil,
			Result:           opts,
			WeaklyTypedInput: true,
		},
	})
}

// mergeReporters appends CLI reporters to those from the file, or replaces
// them when clearReporters is set.
func mergeReporters(opts *RunOptions, cli []string) {
	if opts.ClearReporters {
		opts.Reporters = nil
	}
	for _, ref := range cli {
		opts.Reporters = append(opts.Reporters, reporter.Module(ref))
	}
}

// applyFailFast forces both stop flags and nothing else.
func applyFailFast(opts *RunOptions) {
	if !opts.FailFast {
		return
	}
	opts.Env.StopOnSpecFailure = Bool(true)
	opts.Env.StopSpecOnExpectationFailure = Bool(true)
}

// validate checks values that would otherwise fail late, after
// resources have been acquired.
func validate(opts *RunOptions) error {
	if opts.Port < 0 || opts.Port > 65535 {
		return fmt.Errorf("port %d out of range", opts.Port)
	}
	if opts.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if opts.SrcDir == "" {
		return fmt.Errorf("srcDir is required")
	}
	if opts.SpecDir == "" {
		return fmt.Errorf("specDir is required")
	}
	for i, spec := range opts.Reporters {
		if !spec.IsInline() && spec.Module == "" {
			return fmt.Errorf("reporters[%d] is empty", i)
		}
	}
	if opts.Browser.UseRemoteSeleniumGrid && opts.Browser.RemoteSeleniumGrid.URL == "" {
		return fmt.Errorf("browser.remoteSeleniumGrid.url is required when useRemoteSeleniumGrid is set")
	}
	return nil
}
