package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/perbu/jasmine-browser-runner/pkg/reporter"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// parseFlags registers the option flags on a fresh set and parses args.
func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_DefaultConfigFile(t *testing.T) {
	baseDir := t.TempDir()
	writeFile(t, filepath.Join(baseDir, DefaultConfigPath), `{
		"srcDir": "src",
		"srcFiles": ["**/*.js"],
		"specDir": "spec",
		"specFiles": ["**/*Spec.js"],
		"port": 1234,
		"browser": {"name": "headlessChrome"},
		"env": {"random": false}
	}`)

	opts, err := Load(baseDir, parseFlags(t))
	require.NoError(t, err)

	assert.Equal(t, baseDir, opts.ProjectBaseDir)
	assert.Equal(t, "src", opts.SrcDir)
	assert.Equal(t, []string{"**/*.js"}, opts.SrcFiles)
	assert.Equal(t, "spec", opts.SpecDir)
	assert.Equal(t, 1234, opts.Port)
	assert.Equal(t, "headlessChrome", opts.Browser.Name)
	require.NotNil(t, opts.Env.Random)
	assert.False(t, *opts.Env.Random)
	assert.Nil(t, opts.Env.StopOnSpecFailure)
	assert.Nil(t, opts.Random)
	assert.Nil(t, opts.Color)

	// Built-in defaults fill what the file leaves out
	assert.Equal(t, "localhost", opts.Hostname)
	assert.Equal(t, "node_modules/jasmine-core", opts.JasmineCorePath)
}

func TestLoad_ExplicitConfigFlag(t *testing.T) {
	baseDir := t.TempDir()
	writeFile(t, filepath.Join(baseDir, DefaultConfigPath), `{"srcDir": "default"}`)
	writeFile(t, filepath.Join(baseDir, "custom", "runner.json"), `{"srcDir": "custom"}`)

	opts, err := Load(baseDir, parseFlags(t, "--config=custom/runner.json"))
	require.NoError(t, err)
	assert.Equal(t, "custom", opts.SrcDir)
}

func TestLoad_ExplicitConfigMissing(t *testing.T) {
	baseDir := t.TempDir()
	_, err := Load(baseDir, parseFlags(t, "--config=nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_NoConfigFile(t *testing.T) {
	_, err := Load(t.TempDir(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigNotFound))
	assert.Contains(t, err.Error(), "jasmine-browser-runner init")
}

func TestLoad_YAMLConfig(t *testing.T) {
	baseDir := t.TempDir()
	writeFile(t, filepath.Join(baseDir, "spec/support/jasmine-browser.yaml"), `
srcDir: lib
specDir: test
specFiles:
  - "**/*.test.js"
browser: safari
timeout: 90s
`)

	opts, err := Load(baseDir, nil)
	require.NoError(t, err)
	assert.Equal(t, "lib", opts.SrcDir)
	assert.Equal(t, "test", opts.SpecDir)
	assert.Equal(t, []string{"**/*.test.js"}, opts.SpecFiles)
	assert.Equal(t, "safari", opts.Browser.Name)
	assert.Equal(t, 90*time.Second, opts.Timeout)
}

func TestLoad_MalformedConfig(t *testing.T) {
	baseDir := t.TempDir()
	writeFile(t, filepath.Join(baseDir, DefaultConfigPath), `{"srcDir": `)

	_, err := Load(baseDir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config file")
}

func TestLoad_BrowserString(t *testing.T) {
	baseDir := t.TempDir()
	writeFile(t, filepath.Join(baseDir, DefaultConfigPath), `{"browser": "chrome"}`)

	opts, err := Load(baseDir, nil)
	require.NoError(t, err)
	assert.Equal(t, "chrome", opts.Browser.Name)
}

func TestLoad_FlagPrecedence(t *testing.T) {
	baseDir := t.TempDir()
	writeFile(t, filepath.Join(baseDir, DefaultConfigPath), `{
		"port": 1234,
		"seed": "1",
		"filter": "from file",
		"browser": {"name": "firefox", "driverPath": "/opt/geckodriver"}
	}`)

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, opts *RunOptions)
	}{
		{
			name: "no flags keeps file values",
			args: nil,
			check: func(t *testing.T, opts *RunOptions) {
				assert.Equal(t, 1234, opts.Port)
				assert.Equal(t, "1", opts.Seed)
				assert.Equal(t, "from file", opts.Filter)
				assert.Equal(t, "firefox", opts.Browser.Name)
				assert.False(t, opts.FailFast)
			},
		},
		{
			name: "port override",
			args: []string{"--port=4321"},
			check: func(t *testing.T, opts *RunOptions) {
				assert.Equal(t, 4321, opts.Port)
				assert.Equal(t, "1", opts.Seed)
			},
		},
		{
			name: "browser override keeps other browser keys",
			args: []string{"--browser=headlessFirefox"},
			check: func(t *testing.T, opts *RunOptions) {
				assert.Equal(t, "headlessFirefox", opts.Browser.Name)
				assert.Equal(t, "/opt/geckodriver", opts.Browser.DriverPath)
			},
		},
		{
			name: "seed and filter",
			args: []string{"--seed=999", "--filter=only this"},
			check: func(t *testing.T, opts *RunOptions) {
				assert.Equal(t, "999", opts.Seed)
				assert.Equal(t, "only this", opts.Filter)
			},
		},
		{
			name: "negated booleans",
			args: []string{"--no-color", "--no-random"},
			check: func(t *testing.T, opts *RunOptions) {
				require.NotNil(t, opts.Color)
				assert.False(t, *opts.Color)
				require.NotNil(t, opts.Random)
				assert.False(t, *opts.Random)
			},
		},
		{
			name: "positive booleans",
			args: []string{"--color", "--random"},
			check: func(t *testing.T, opts *RunOptions) {
				require.NotNil(t, opts.Color)
				assert.True(t, *opts.Color)
				require.NotNil(t, opts.Random)
				assert.True(t, *opts.Random)
			},
		},
		{
			name: "timeout",
			args: []string{"--timeout=5m"},
			check: func(t *testing.T, opts *RunOptions) {
				assert.Equal(t, 5*time.Minute, opts.Timeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := Load(baseDir, parseFlags(t, tt.args...))
			require.NoError(t, err)
			tt.check(t, opts)
		})
	}
}

func TestLoad_FailFastSetsOnlyStopFlags(t *testing.T) {
	baseDir := t.TempDir()
	writeFile(t, filepath.Join(baseDir, DefaultConfigPath), `{}`)

	opts, err := Load(baseDir, parseFlags(t, "--fail-fast"))
	require.NoError(t, err)

	assert.True(t, opts.FailFast)
	assert.Equal(t, Env{
		StopOnSpecFailure:            Bool(true),
		StopSpecOnExpectationFailure: Bool(true),
	}, opts.Env)
}

func TestLoad_Reporters(t *testing.T) {
	baseDir := t.TempDir()
	writeFile(t, filepath.Join(baseDir, DefaultConfigPath), `{
		"reporters": ["./file-reporter.so", {"module": "json"}]
	}`)

	tests := []struct {
		name string
		args []string
		want []reporter.Spec
	}{
		{
			name: "file only",
			want: []reporter.Spec{reporter.Module("./file-reporter.so"), reporter.Module("json")},
		},
		{
			name: "cli appends",
			args: []string{"--reporter=console", "--reporter=./extra.so"},
			want: []reporter.Spec{
				reporter.Module("./file-reporter.so"),
				reporter.Module("json"),
				reporter.Module("console"),
				reporter.Module("./extra.so"),
			},
		},
		{
			name: "clear reporters",
			args: []string{"--clear-reporters", "--reporter=console"},
			want: []reporter.Spec{reporter.Module("console")},
		},
		{
			name: "clear without replacements",
			args: []string{"--clear-reporters"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := Load(baseDir, parseFlags(t, tt.args...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, opts.Reporters)
		})
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		args    []string
		wantErr string
	}{
		{"negative port", `{"port": -1}`, nil, "port -1 out of range"},
		{"port from flag", `{}`, []string{"--port=70000"}, "port 70000 out of range"},
		{"grid without url", `{"browser": {"name": "chrome", "useRemoteSeleniumGrid": true}}`, nil, "remoteSeleniumGrid.url"},
		{"empty reporter", `{"reporters": [""]}`, nil, "reporters[0] is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseDir := t.TempDir()
			writeFile(t, filepath.Join(baseDir, DefaultConfigPath), tt.config)

			_, err := Load(baseDir, parseFlags(t, tt.args...))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ProjectBaseDir(t *testing.T) {
	baseDir := t.TempDir()
	writeFile(t, filepath.Join(baseDir, DefaultConfigPath), `{"projectBaseDir": "web"}`)

	opts, err := Load(baseDir, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(baseDir, "web"), opts.ProjectBaseDir)
	assert.Equal(t, filepath.Join(baseDir, "web", "src"), opts.Path("src"))
	assert.Equal(t, "/abs", opts.Path("/abs"))
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/p", DefaultConfigPath), ConfigPath("/p", nil))
	assert.Equal(t, "/p/x.yaml", ConfigPath("/p", parseFlags(t, "--config=x.yaml")))
	assert.Equal(t, "/abs/x.json", ConfigPath("/p", parseFlags(t, "--config=/abs/x.json")))
}
