// Package harness orchestrates a run: it serves the suite, points a
// browser at it, collects the results and releases everything again.
package harness

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/perbu/jasmine-browser-runner/pkg/browser"
	"github.com/perbu/jasmine-browser-runner/pkg/config"
	"github.com/perbu/jasmine-browser-runner/pkg/events"
	"github.com/perbu/jasmine-browser-runner/pkg/jasmine"
	"github.com/perbu/jasmine-browser-runner/pkg/runner"
)

// Process exit codes for a completed run
const (
	ExitPassed     = 0
	ExitError      = 1
	ExitIncomplete = 2
	ExitFailed     = 3
)

// ExitCodeFor maps an overall status to a process exit code.
// Unrecognized statuses map to ExitError.
func ExitCodeFor(status jasmine.Status) int {
	switch status {
	case jasmine.StatusPassed:
		return ExitPassed
	case jasmine.StatusIncomplete:
		return ExitIncomplete
	case jasmine.StatusFailed:
		return ExitFailed
	default:
		return ExitError
	}
}

// RunnerOptions derives the in-page options for a run. Fail-fast forces
// both stop flags on; the transport depends on the browser.
func RunnerOptions(opts *config.RunOptions) runner.Options {
	env := opts.Env
	if opts.FailFast {
		env.StopOnSpecFailure = config.Bool(true)
		env.StopSpecOnExpectationFailure = config.Bool(true)
	}

	ro := runner.Options{
		Random: opts.Random,
		Seed:   opts.Seed,
		Filter: opts.Filter,
		Env:    env,
	}
	if browser.IsInternetExplorer(opts.Browser.Name) {
		ro.JSONDomReporter = true
	} else {
		ro.BatchReporter = true
	}
	return ro
}

// baseURL is where the browser finds the server
func baseURL(opts *config.RunOptions, port int) string {
	host := opts.Hostname
	if host == "" {
		host = "localhost"
	}
	return "http://" + host + ":" + strconv.Itoa(port)
}

// RunSpecs runs the suite once in a browser and returns the details the
// page reported. Whatever was acquired is released before returning, on
// success and failure alike. On success SetExitCode receives the exit
// code for the overall status.
func RunSpecs(ctx context.Context, opts *config.RunOptions, deps Deps) (details *jasmine.RunDetails, err error) {
	deps = deps.withDefaults()
	runID := uuid.NewString()
	logger := deps.Logger.With("run", runID)
	pub := events.NewPublisher(deps.Broker)
	publish := func(evt any) {
		if perr := pub.Publish(evt); perr != nil {
			logger.Debug("Dropped lifecycle event", "error", perr)
		}
	}

	td := newTeardown(logger)
	defer func() {
		if err != nil {
			publish(events.RunFailed{RunID: runID, Error: err.Error()})
		}

		// Release on a context that survives cancellation of the run
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deps.TeardownTimeout)
		defer cancel()

		failures := 0
		if terr := td.run(tctx); terr != nil {
			var merr *multierror.Error
			if errors.As(terr, &merr) {
				failures = len(merr.Errors)
			} else {
				failures = 1
			}
			logger.Warn("Teardown incomplete", "error", terr)
		}
		publish(events.TeardownComplete{RunID: runID, Errors: failures})

		if err == nil && details != nil {
			code := ExitCodeFor(details.OverallStatus)
			if code == ExitError {
				logger.Warn("Unrecognized overall status", "status", details.OverallStatus)
			}
			deps.SetExitCode(code)
		}
	}()

	srv := deps.NewServer(opts, logger)
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting server: %w", err)
	}
	td.push("server", srv.Stop)

	base := baseURL(opts, srv.Port())
	logger.Debug("Server started", "url", base)
	publish(events.ServerStarted{RunID: runID, URL: base, Port: srv.Port()})

	ropts := RunnerOptions(opts)

	session, err := deps.BuildBrowser(ctx, opts.Browser, logger)
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	td.push("browser", session.Close)

	browserName := opts.Browser.Name
	if browserName == "" {
		browserName = browser.DefaultBrowser
	}
	publish(events.BrowserLaunched{RunID: runID, Browser: browserName})

	if err := session.Navigate(ctx, runner.HarnessURL(base, ropts)); err != nil {
		return nil, err
	}

	reporters, err := deps.Reporters.Resolve(opts.Reporters, deps.WorkingDir)
	if err != nil {
		return nil, err
	}

	r, err := deps.NewRunner(runner.Config{
		Session:   session,
		Reporters: reporters,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	publish(events.RunStarted{RunID: runID, Transport: ropts.Transport()})
	details, err = r.Run(ctx, ropts)
	if err != nil {
		return nil, err
	}
	if details == nil {
		// A runner with nothing to report completed with an unknown status
		details = &jasmine.RunDetails{}
	}
	publish(events.RunFinished{RunID: runID, Status: string(details.OverallStatus)})
	return details, nil
}
