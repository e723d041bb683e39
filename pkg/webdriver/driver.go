package webdriver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

const (
	readyTimeout      = 20 * time.Second
	readyPollInterval = 100 * time.Millisecond
)

// PortArgs renders the command line that makes a driver listen on port.
type PortArgs func(port int) []string

// Driver is a running WebDriver executable such as geckodriver.
type Driver struct {
	name   string
	cmd    *exec.Cmd
	port   int
	logger *slog.Logger

	done    chan struct{}
	waitErr error

	stopOnce sync.Once
	stopErr  error
}

// StartDriver launches the driver on a free loopback port and waits until
// it reports ready. On failure the process is killed.
func StartDriver(ctx context.Context, path string, args PortArgs, logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", path, err)
	}

	port, err := freePort("127.0.0.1")
	if err != nil {
		return nil, fmt.Errorf("finding driver port: %w", err)
	}

	name := filepath.Base(path)
	argv := args(port)
	logger.Debug("Starting WebDriver", "cmd", resolved, "args", argv)

	cmd := exec.Command(resolved, argv...)
	cmd.Env = os.Environ()

	// Route driver output through our structured logging
	cmd.Stdout = newLogWriter(logger, name)
	cmd.Stderr = newLogWriter(logger, name)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cmd.Start: %w", err)
	}

	d := &Driver{
		name:   name,
		cmd:    cmd,
		port:   port,
		logger: logger,
		done:   make(chan struct{}),
	}
	go func() {
		d.waitErr = cmd.Wait()
		close(d.done)
	}()

	if err := d.waitReady(ctx); err != nil {
		_ = d.Stop()
		return nil, err
	}

	logger.Debug("WebDriver ready", "driver", name, "url", d.URL())
	return d, nil
}

// URL returns the driver's endpoint.
func (d *Driver) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", d.port)
}

// Exited reports whether the process has terminated.
func (d *Driver) Exited() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

func (d *Driver) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	client := NewClient(d.URL(), d.logger)
	for {
		if d.Exited() {
			return fmt.Errorf("%s exited before becoming ready: %v", d.name, d.waitErr)
		}
		if ready, err := client.Status(ctx); err == nil && ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s to become ready: %w", d.name, ctx.Err())
		case <-d.done:
			return fmt.Errorf("%s exited before becoming ready: %v", d.name, d.waitErr)
		case <-time.After(readyPollInterval):
		}
	}
}

// Stop kills the driver and waits for it to exit. Safe to call repeatedly.
func (d *Driver) Stop() error {
	d.stopOnce.Do(func() {
		if d.Exited() {
			return
		}
		if err := d.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			d.stopErr = fmt.Errorf("killing %s: %w", d.name, err)
			return
		}
		<-d.done
		d.logger.Debug("WebDriver stopped", "driver", d.name)
	})
	return d.stopErr
}
