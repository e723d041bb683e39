// Package runner collects reporter events from the page a browser session
// is showing and dispatches them to host-side reporters.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/perbu/jasmine-browser-runner/pkg/config"
	"github.com/perbu/jasmine-browser-runner/pkg/jasmine"
	"github.com/perbu/jasmine-browser-runner/pkg/reporter"
)

// DefaultPollInterval is how often the page is asked for new events.
const DefaultPollInterval = 200 * time.Millisecond

// ErrNoSession is returned by New without a browser session.
var ErrNoSession = errors.New("runner requires a browser session")

const (
	batchScript = `return window.jasmineBrowserReporter && window.jasmineBrowserReporter.batch ? window.jasmineBrowserReporter.batch() : null;`

	jsonDomScript = `var el = document.getElementById('jasmine-browser-runner-events');
if (!el) { return null; }
var events = el.getAttribute('data-events');
el.setAttribute('data-events', '[]');
return events;`
)

// Session is the part of a browser session the runner needs.
type Session interface {
	ExecuteScript(ctx context.Context, script string, out any) error
}

// Config configures a Runner.
type Config struct {
	Session      Session
	Reporters    []reporter.Reporter
	Logger       *slog.Logger
	PollInterval time.Duration
}

// Options control a single run. They end up in the harness URL query.
type Options struct {
	// BatchReporter collects structured events from batch()
	BatchReporter bool
	// JSONDomReporter collects events serialized into a DOM attribute,
	// for drivers that cannot return structured script results
	JSONDomReporter bool

	Random *bool
	Seed   string
	Filter string
	Env    config.Env
}

// Runner polls the page for reporter events until the suite is done.
type Runner struct {
	session      Session
	reporters    []reporter.Reporter
	logger       *slog.Logger
	pollInterval time.Duration
}

// New creates a runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Session == nil {
		return nil, ErrNoSession
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Runner{
		session:      cfg.Session,
		reporters:    cfg.Reporters,
		logger:       cfg.Logger,
		pollInterval: cfg.PollInterval,
	}, nil
}

// Run waits for the suite loaded in the session to finish, forwarding
// every event to the reporters in order. There is no built-in timeout;
// ctx bounds the wait.
func (r *Runner) Run(ctx context.Context, opts Options) (*jasmine.RunDetails, error) {
	r.logger.Debug("Waiting for suite", "transport", opts.Transport())

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		events, err := r.fetch(ctx, opts)
		if err != nil {
			return nil, err
		}
		for _, evt := range events {
			details, err := r.dispatch(evt)
			if err != nil {
				return nil, err
			}
			if details != nil {
				r.logger.Debug("Suite done", "status", details.OverallStatus)
				return details, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) fetch(ctx context.Context, opts Options) ([]jasmine.Event, error) {
	var events []jasmine.Event
	if opts.JSONDomReporter {
		var raw *string
		if err := r.session.ExecuteScript(ctx, jsonDomScript, &raw); err != nil {
			return nil, r.fetchError(ctx, err)
		}
		if raw == nil || *raw == "" {
			return nil, nil
		}
		if err := json.Unmarshal([]byte(*raw), &events); err != nil {
			return nil, fmt.Errorf("decoding reporter events: %w", err)
		}
		return events, nil
	}

	if err := r.session.ExecuteScript(ctx, batchScript, &events); err != nil {
		return nil, r.fetchError(ctx, err)
	}
	return events, nil
}

func (r *Runner) fetchError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("fetching reporter events: %w", err)
}

// dispatch forwards one event and returns the run details on jasmineDone.
func (r *Runner) dispatch(evt jasmine.Event) (*jasmine.RunDetails, error) {
	payload, err := evt.Decode()
	if err != nil {
		return nil, err
	}

	for _, rep := range r.reporters {
		switch p := payload.(type) {
		case jasmine.SuiteInfo:
			rep.JasmineStarted(p)
		case jasmine.SuiteResult:
			if evt.Name == jasmine.EventSuiteStarted {
				rep.SuiteStarted(p)
			} else {
				rep.SuiteDone(p)
			}
		case jasmine.SpecResult:
			if evt.Name == jasmine.EventSpecStarted {
				rep.SpecStarted(p)
			} else {
				rep.SpecDone(p)
			}
		case *jasmine.RunDetails:
			rep.JasmineDone(*p)
		}
	}

	if details, ok := payload.(*jasmine.RunDetails); ok {
		return details, nil
	}
	return nil, nil
}
