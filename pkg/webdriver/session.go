package webdriver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Session is an open WebDriver session. If it owns a driver process,
// Close stops that too.
type Session struct {
	client *Client
	id     string
	logger *slog.Logger

	driver    *Driver
	closeOnce sync.Once
	closeErr  error
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// OwnDriver makes Close stop the driver process after quitting.
func (s *Session) OwnDriver(d *Driver) {
	s.driver = d
}

func (s *Session) path(suffix string) string {
	return "/session/" + url.PathEscape(s.id) + suffix
}

// Navigate loads url in the current window.
func (s *Session) Navigate(ctx context.Context, target string) error {
	s.logger.Debug("Navigating", "url", target)
	if err := s.client.do(ctx, http.MethodPost, s.path("/url"), map[string]string{"url": target}, nil); err != nil {
		return fmt.Errorf("navigating to %s: %w", target, err)
	}
	return nil
}

// ExecuteScript runs a function body synchronously in the page and
// decodes its return value into out. out may be nil.
func (s *Session) ExecuteScript(ctx context.Context, script string, out any) error {
	body := map[string]any{
		"script": script,
		"args":   []any{},
	}
	var raw json.RawMessage
	if err := s.client.doOnce(ctx, http.MethodPost, s.path("/execute/sync"), body, &raw); err != nil {
		return fmt.Errorf("executing script: %w", err)
	}
	if out == nil || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding script result: %w", err)
	}
	return nil
}

// Close deletes the session and stops an owned driver. Both are
// attempted; errors are combined. Later calls return the first result.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		var result *multierror.Error
		s.logger.Debug("Deleting session")
		if err := s.client.do(ctx, http.MethodDelete, s.path(""), nil, nil); err != nil {
			result = multierror.Append(result, fmt.Errorf("deleting session: %w", err))
		}
		if s.driver != nil {
			if err := s.driver.Stop(); err != nil {
				result = multierror.Append(result, err)
			}
		}
		s.closeErr = result.ErrorOrNil()
	})
	return s.closeErr
}
