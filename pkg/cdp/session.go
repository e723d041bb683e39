// Package cdp drives Chrome directly over the DevTools protocol, without a
// chromedriver in between.
package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Options select how Chrome is obtained.
type Options struct {
	// Headless runs Chrome without a window. Ignored with DebuggerURL.
	Headless bool
	// Binary overrides the Chrome executable.
	Binary string
	// DebuggerURL attaches to an already running Chrome, e.g.
	// "ws://127.0.0.1:9222/devtools/browser/<id>" or "http://127.0.0.1:9222".
	DebuggerURL string
}

// Session is one Chrome tab.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Launch starts (or attaches to) Chrome and opens a tab. The browser lives
// until Close, independent of ctx; ctx only bounds the launch itself.
func Launch(ctx context.Context, opts Options, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	base := context.WithoutCancel(ctx)
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.DebuggerURL != "" {
		logger.Debug("Attaching to Chrome", "url", opts.DebuggerURL)
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(base, opts.DebuggerURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
		)
		if opts.Binary != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.Binary))
		}
		logger.Debug("Launching Chrome", "headless", opts.Headless, "binary", opts.Binary)
		allocCtx, allocCancel = chromedp.NewExecAllocator(base, allocOpts...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(debugf(logger)),
		chromedp.WithErrorf(debugf(logger)),
	)

	s := &Session{
		ctx:     tabCtx,
		cancels: []context.CancelFunc{tabCancel, allocCancel},
		logger:  logger,
	}

	chromedp.ListenTarget(tabCtx, s.onEvent)

	// The first Run allocates the browser and the tab
	if err := s.run(ctx); err != nil {
		_ = s.Close(context.Background())
		return nil, fmt.Errorf("starting chrome: %w", err)
	}
	return s, nil
}

func debugf(logger *slog.Logger) func(string, ...any) {
	return func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...), "source", "chromedp")
	}
}

// onEvent mirrors the page console into the debug log
func (s *Session) onEvent(ev any) {
	switch e := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		parts := make([]string, 0, len(e.Args))
		for _, arg := range e.Args {
			if len(arg.Value) > 0 {
				parts = append(parts, string(arg.Value))
			} else {
				parts = append(parts, arg.Description)
			}
		}
		s.logger.Debug("Browser console", "type", string(e.Type), "message", strings.Join(parts, " "))
	case *runtime.EventExceptionThrown:
		if e.ExceptionDetails != nil {
			s.logger.Debug("Browser exception", "text", e.ExceptionDetails.Text)
		}
	}
}

// run executes actions on the tab, giving up when ctx is done. The tab
// context outlives ctx, so the actions are run on their own goroutine.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(s.ctx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Navigate loads url in the tab.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", "url", url)
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// ExecuteScript runs a function body in the page and decodes its return
// value into out. A null or undefined result leaves out untouched.
func (s *Session) ExecuteScript(ctx context.Context, script string, out any) error {
	var raw []byte
	err := s.run(ctx, chromedp.Evaluate(wrapScript(script), &raw))
	if err != nil && !errors.Is(err, chromedp.ErrJSNull) && !errors.Is(err, chromedp.ErrJSUndefined) {
		return fmt.Errorf("executing script: %w", err)
	}
	return decodeResult(raw, out)
}

// wrapScript turns a WebDriver style function body into an expression.
func wrapScript(body string) string {
	return "(function(){\n" + body + "\n})()"
}

func decodeResult(raw []byte, out any) error {
	if out == nil || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding script result: %w", err)
	}
	return nil
}

// Close shuts the tab and, if we launched it, the browser.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing Chrome")
		done := make(chan error, 1)
		go func() {
			done <- chromedp.Cancel(s.ctx)
		}()

		var err error
		select {
		case err = <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		for _, cancel := range s.cancels {
			cancel()
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("closing chrome: %w", err)
		}
	})
	return s.closeErr
}
