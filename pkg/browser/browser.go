// Package browser turns the browser section of the configuration into a
// live automation session.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/perbu/jasmine-browser-runner/pkg/cdp"
	"github.com/perbu/jasmine-browser-runner/pkg/config"
	"github.com/perbu/jasmine-browser-runner/pkg/webdriver"
)

// Session is a browser under automation.
type Session interface {
	// Navigate loads url.
	Navigate(ctx context.Context, url string) error
	// ExecuteScript runs a function body (using return) in the page and
	// JSON-decodes the returned value into out.
	ExecuteScript(ctx context.Context, script string, out any) error
	// Close releases the browser and anything started for it.
	Close(ctx context.Context) error
}

// DefaultBrowser is used when the configuration names none.
const DefaultBrowser = "firefox"

// IsInternetExplorer reports whether name selects Internet Explorer.
func IsInternetExplorer(name string) bool {
	return strings.EqualFold(name, "internet explorer")
}

// Build creates a session for cfg:
//   - a remote Selenium grid when enabled,
//   - Chrome over the DevTools protocol unless a chromedriver is configured,
//   - otherwise the browser's local WebDriver executable.
func Build(ctx context.Context, cfg config.Browser, logger *slog.Logger) (Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.Name
	if name == "" {
		name = DefaultBrowser
	}

	if cfg.UseRemoteSeleniumGrid {
		if cfg.RemoteSeleniumGrid.URL == "" {
			return nil, fmt.Errorf("remoteSeleniumGrid.url is required when useRemoteSeleniumGrid is set")
		}
		caps, err := Capabilities(name, cfg)
		if err != nil {
			return nil, err
		}
		caps = merge(caps, cfg.RemoteSeleniumGrid.Capabilities)
		logger.Debug("Using remote Selenium grid", "url", cfg.RemoteSeleniumGrid.URL, "browser", name)
		session, err := webdriver.NewClient(cfg.RemoteSeleniumGrid.URL, logger).NewSession(ctx, caps)
		if err != nil {
			return nil, fmt.Errorf("connecting to selenium grid: %w", err)
		}
		return session, nil
	}

	if isChrome(name) && cfg.DriverPath == "" {
		session, err := cdp.Launch(ctx, cdp.Options{
			Headless:    name == "headlessChrome",
			Binary:      cfg.Binary,
			DebuggerURL: cfg.DebuggerURL,
		}, logger)
		if err != nil {
			return nil, err
		}
		return session, nil
	}

	d, ok := LocalDriver(name)
	if !ok {
		return nil, fmt.Errorf("unsupported browser %q", name)
	}
	path := d.Executable
	if cfg.DriverPath != "" {
		path = cfg.DriverPath
	}

	caps, err := Capabilities(name, cfg)
	if err != nil {
		return nil, err
	}

	driver, err := webdriver.StartDriver(ctx, path, d.Args, logger)
	if err != nil {
		return nil, fmt.Errorf("starting %s: %w", d.Executable, err)
	}
	session, err := webdriver.NewClient(driver.URL(), logger).NewSession(ctx, caps)
	if err != nil {
		_ = driver.Stop()
		return nil, err
	}
	session.OwnDriver(driver)
	return session, nil
}

func isChrome(name string) bool {
	return name == "chrome" || name == "headlessChrome"
}
