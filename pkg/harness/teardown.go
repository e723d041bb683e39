package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
)

// releaser tracks one acquired resource
type releaser struct {
	name    string
	release func(ctx context.Context) error
}

// teardown releases resources in reverse order of acquisition.
type teardown struct {
	stack  []releaser
	logger *slog.Logger
}

func newTeardown(logger *slog.Logger) *teardown {
	return &teardown{logger: logger}
}

// push registers a resource. Later resources are released first.
func (t *teardown) push(name string, release func(ctx context.Context) error) {
	t.stack = append(t.stack, releaser{name: name, release: release})
	t.logger.Debug("Registered for teardown", "resource", name)
}

// run releases everything exactly once. A failure does not stop the
// remaining releases; all failures are returned together.
func (t *teardown) run(ctx context.Context) error {
	var result *multierror.Error

	for i := len(t.stack) - 1; i >= 0; i-- {
		r := t.stack[i]
		start := time.Now()
		if err := r.release(ctx); err != nil {
			t.logger.Debug("Release failed", "resource", r.name, "duration", time.Since(start), "error", err)
			result = multierror.Append(result, fmt.Errorf("releasing %s: %w", r.name, err))
			continue
		}
		t.logger.Debug("Released", "resource", r.name, "duration", time.Since(start))
	}
	t.stack = nil

	return result.ErrorOrNil()
}
