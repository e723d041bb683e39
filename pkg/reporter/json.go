package reporter

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/perbu/jasmine-browser-runner/pkg/jasmine"
)

// JSONReporter writes one JSON object per callback, newline delimited.
// After the first write error it stops writing and reports the error
// when the run finishes.
type JSONReporter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	err    error
	logger *slog.Logger
}

type jsonRecord struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// NewJSON creates a reporter streaming events to w.
func NewJSON(w io.Writer, logger *slog.Logger) *JSONReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONReporter{enc: json.NewEncoder(w), logger: logger}
}

func (jr *JSONReporter) write(event string, payload any) {
	jr.mu.Lock()
	defer jr.mu.Unlock()
	if jr.err != nil {
		return
	}
	jr.err = jr.enc.Encode(jsonRecord{Event: event, Payload: payload})
}

func (jr *JSONReporter) JasmineStarted(info jasmine.SuiteInfo) {
	jr.write(jasmine.EventJasmineStarted, info)
}

func (jr *JSONReporter) SuiteStarted(result jasmine.SuiteResult) {
	jr.write(jasmine.EventSuiteStarted, result)
}

func (jr *JSONReporter) SpecStarted(result jasmine.SpecResult) {
	jr.write(jasmine.EventSpecStarted, result)
}

func (jr *JSONReporter) SpecDone(result jasmine.SpecResult) {
	jr.write(jasmine.EventSpecDone, result)
}

func (jr *JSONReporter) SuiteDone(result jasmine.SuiteResult) {
	jr.write(jasmine.EventSuiteDone, result)
}

func (jr *JSONReporter) JasmineDone(details jasmine.RunDetails) {
	jr.write(jasmine.EventJasmineDone, details)

	jr.mu.Lock()
	defer jr.mu.Unlock()
	if jr.err != nil {
		jr.logger.Error("JSON reporter output incomplete", "error", jr.err)
	}
}
