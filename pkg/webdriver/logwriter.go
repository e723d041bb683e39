package webdriver

import (
	"bufio"
	"context"
	"log/slog"
	"strings"
)

// logWriter is an io.Writer adapter that routes driver output through structured logging
type logWriter struct {
	logger *slog.Logger
	source string
}

// newLogWriter creates a new log writer for driver output
func newLogWriter(logger *slog.Logger, source string) *logWriter {
	return &logWriter{
		logger: logger,
		source: source,
	}
}

// Write logs each line through slog
func (lw *logWriter) Write(p []byte) (n int, err error) {
	scanner := bufio.NewScanner(strings.NewReader(string(p)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lw.logger.Log(context.Background(), lineLevel(line), line, "source", lw.source)
	}
	// Always return the full length written to satisfy io.Writer interface
	return len(p), nil
}

// lineLevel guesses a level from the formats drivers use:
// geckodriver writes "<ts>\tgeckodriver\tERROR\t<msg>", chromedriver and
// msedgedriver write "[<ts>][SEVERE]: <msg>".
func lineLevel(line string) slog.Level {
	switch {
	case strings.Contains(line, "\tERROR\t"), strings.Contains(line, "\tFATAL\t"),
		strings.Contains(line, "[SEVERE]"):
		return slog.LevelError
	case strings.Contains(line, "\tWARN\t"), strings.Contains(line, "[WARNING]"):
		return slog.LevelWarn
	default:
		// Startup banners and info chatter stay out of the way
		return slog.LevelDebug
	}
}
