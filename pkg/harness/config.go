package harness

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/borud/broker"

	"github.com/perbu/jasmine-browser-runner/pkg/browser"
	"github.com/perbu/jasmine-browser-runner/pkg/config"
	"github.com/perbu/jasmine-browser-runner/pkg/jasmine"
	"github.com/perbu/jasmine-browser-runner/pkg/reporter"
	"github.com/perbu/jasmine-browser-runner/pkg/runner"
	"github.com/perbu/jasmine-browser-runner/pkg/server"
)

// DefaultTeardownTimeout bounds closing the browser and stopping the server.
const DefaultTeardownTimeout = 30 * time.Second

// Server is the file server a run is served from.
type Server interface {
	Start(ctx context.Context) error
	Port() int
	Stop(ctx context.Context) error
}

// Runner waits for a suite to finish in the browser.
type Runner interface {
	Run(ctx context.Context, opts runner.Options) (*jasmine.RunDetails, error)
}

// Deps are the collaborators of a run. Nil fields get the production
// implementations, so tests replace only what they need.
type Deps struct {
	NewServer    func(opts *config.RunOptions, logger *slog.Logger) Server
	BuildBrowser func(ctx context.Context, cfg config.Browser, logger *slog.Logger) (browser.Session, error)
	NewRunner    func(cfg runner.Config) (Runner, error)

	// Reporters resolves the configured reporter specs
	Reporters *reporter.Resolver

	// SetExitCode receives the exit code derived from a completed run
	SetExitCode func(code int)

	// WorkingDir is where reporter module paths are resolved from.
	// Defaults to the process working directory.
	WorkingDir string

	// Broker receives lifecycle events when set
	Broker *broker.Broker

	Logger          *slog.Logger
	Stdout          io.Writer
	TeardownTimeout time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.NewServer == nil {
		d.NewServer = func(opts *config.RunOptions, logger *slog.Logger) Server {
			return server.New(opts, logger)
		}
	}
	if d.BuildBrowser == nil {
		d.BuildBrowser = browser.Build
	}
	if d.NewRunner == nil {
		d.NewRunner = func(cfg runner.Config) (Runner, error) {
			r, err := runner.New(cfg)
			if err != nil {
				return nil, err
			}
			return r, nil
		}
	}
	if d.Reporters == nil {
		d.Reporters = reporter.NewResolver(nil, nil)
	}
	if d.SetExitCode == nil {
		d.SetExitCode = func(int) {}
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.WorkingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			d.WorkingDir = wd
		}
	}
	if d.TeardownTimeout <= 0 {
		d.TeardownTimeout = DefaultTeardownTimeout
	}
	return d
}
