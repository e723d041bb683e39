package config

import (
	"path/filepath"
	"time"

	"github.com/perbu/jasmine-browser-runner/pkg/reporter"
)

// RunOptions is the fully merged configuration for serve and runSpecs.
// Fields are tagged for koanf (loading) and json/yaml (scaffolding).
type RunOptions struct {
	// ProjectBaseDir is the directory other paths are relative to.
	// Defaults to the working directory at invocation time.
	ProjectBaseDir string `koanf:"projectBaseDir" json:"projectBaseDir,omitempty" yaml:"projectBaseDir,omitempty"`
	// SrcDir holds the code under test, served under /__src__/
	SrcDir string `koanf:"srcDir" json:"srcDir" yaml:"srcDir"`
	// SrcFiles are glob patterns relative to SrcDir
	SrcFiles []string `koanf:"srcFiles" json:"srcFiles" yaml:"srcFiles"`
	// SpecDir holds specs and helpers, served under /__spec__/
	SpecDir string `koanf:"specDir" json:"specDir" yaml:"specDir"`
	// SpecFiles are glob patterns relative to SpecDir
	SpecFiles []string `koanf:"specFiles" json:"specFiles" yaml:"specFiles"`
	// Helpers are glob patterns relative to SpecDir, loaded before specs
	Helpers []string `koanf:"helpers" json:"helpers" yaml:"helpers"`
	// CSSFiles are glob patterns relative to SrcDir
	CSSFiles []string `koanf:"cssFiles" json:"cssFiles,omitempty" yaml:"cssFiles,omitempty"`
	// JasmineCorePath points at a jasmine-core package checkout
	JasmineCorePath string `koanf:"jasmineCorePath" json:"jasmineCorePath,omitempty" yaml:"jasmineCorePath,omitempty"`

	// Reporters are resolved in order. Empty means the default console reporter.
	Reporters      []reporter.Spec `koanf:"reporters" json:"reporters,omitempty" yaml:"reporters,omitempty"`
	ClearReporters bool            `koanf:"clearReporters" json:"clearReporters,omitempty" yaml:"clearReporters,omitempty"`

	// Random and Seed override the env settings for a single run
	Random   *bool  `koanf:"random" json:"random,omitempty" yaml:"random,omitempty"`
	Seed     string `koanf:"seed" json:"seed,omitempty" yaml:"seed,omitempty"`
	FailFast bool   `koanf:"failFast" json:"failFast,omitempty" yaml:"failFast,omitempty"`
	// Filter only runs specs whose full name matches
	Filter string `koanf:"filter" json:"filter,omitempty" yaml:"filter,omitempty"`
	// Color forces coloured output on or off. Nil auto-detects.
	Color *bool `koanf:"color" json:"color,omitempty" yaml:"color,omitempty"`

	// Port to listen on. 0 picks an ephemeral port.
	Port          int    `koanf:"port" json:"port,omitempty" yaml:"port,omitempty"`
	Hostname      string `koanf:"hostname" json:"hostname,omitempty" yaml:"hostname,omitempty"`
	ListenAddress string `koanf:"listenAddress" json:"listenAddress,omitempty" yaml:"listenAddress,omitempty"`

	// Timeout bounds a whole runSpecs invocation. 0 means no limit.
	Timeout time.Duration `koanf:"timeout" json:"timeout,omitempty" yaml:"timeout,omitempty"`

	Browser Browser `koanf:"browser" json:"browser" yaml:"browser"`
	Env     Env     `koanf:"env" json:"env" yaml:"env"`
}

// Browser selects and configures the browser a run uses.
type Browser struct {
	// Name is e.g. "firefox", "headlessChrome", "safari", "MicrosoftEdge"
	Name string `koanf:"name" json:"name" yaml:"name"`
	// Binary overrides the browser executable
	Binary string `koanf:"binary" json:"binary,omitempty" yaml:"binary,omitempty"`
	// DriverPath overrides the WebDriver executable
	DriverPath string `koanf:"driverPath" json:"driverPath,omitempty" yaml:"driverPath,omitempty"`
	// DebuggerURL attaches to an already running Chrome over the DevTools protocol
	DebuggerURL string `koanf:"debuggerUrl" json:"debuggerUrl,omitempty" yaml:"debuggerUrl,omitempty"`
	// Capabilities are merged into the W3C capabilities of a new session
	Capabilities map[string]any `koanf:"capabilities" json:"capabilities,omitempty" yaml:"capabilities,omitempty"`

	UseRemoteSeleniumGrid bool       `koanf:"useRemoteSeleniumGrid" json:"useRemoteSeleniumGrid,omitempty" yaml:"useRemoteSeleniumGrid,omitempty"`
	RemoteSeleniumGrid    RemoteGrid `koanf:"remoteSeleniumGrid" json:"remoteSeleniumGrid,omitempty" yaml:"remoteSeleniumGrid,omitempty"`
}

// RemoteGrid describes a remote WebDriver endpoint such as a Selenium grid.
type RemoteGrid struct {
	URL          string         `koanf:"url" json:"url,omitempty" yaml:"url,omitempty"`
	Capabilities map[string]any `koanf:"capabilities" json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
}

// Env is passed to the in-page framework's configure call.
// Nil fields keep the framework's defaults.
type Env struct {
	StopOnSpecFailure            *bool  `koanf:"stopOnSpecFailure" json:"stopOnSpecFailure,omitempty" yaml:"stopOnSpecFailure,omitempty"`
	StopSpecOnExpectationFailure *bool  `koanf:"stopSpecOnExpectationFailure" json:"stopSpecOnExpectationFailure,omitempty" yaml:"stopSpecOnExpectationFailure,omitempty"`
	Random                       *bool  `koanf:"random" json:"random,omitempty" yaml:"random,omitempty"`
	Seed                         string `koanf:"seed" json:"seed,omitempty" yaml:"seed,omitempty"`
	HideDisabled                 *bool  `koanf:"hideDisabled" json:"hideDisabled,omitempty" yaml:"hideDisabled,omitempty"`
}

// Path resolves p against the project base directory.
func (o *RunOptions) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.ProjectBaseDir, p)
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}
