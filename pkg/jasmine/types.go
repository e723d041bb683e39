// Package jasmine holds the data shapes emitted by the in-page Jasmine
// framework. The runner decodes reporter events into these types before
// handing them to reporters in the host process.
package jasmine

import (
	"encoding/json"
	"fmt"
)

// Status is the overall status of a completed run.
type Status string

const (
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
	StatusIncomplete Status = "incomplete"
)

// Spec and suite level statuses
const (
	SpecPassed   = "passed"
	SpecFailed   = "failed"
	SpecPending  = "pending"
	SpecExcluded = "excluded"
)

// Reporter event names, as used on the wire between page and host
const (
	EventJasmineStarted = "jasmineStarted"
	EventSuiteStarted   = "suiteStarted"
	EventSpecStarted    = "specStarted"
	EventSpecDone       = "specDone"
	EventSuiteDone      = "suiteDone"
	EventJasmineDone    = "jasmineDone"
)

// Order describes spec execution order.
type Order struct {
	Random bool   `json:"random"`
	Seed   string `json:"seed"`
}

// UnmarshalJSON accepts the seed both as a string and as a number,
// since older jasmine-core versions report it numerically.
func (o *Order) UnmarshalJSON(data []byte) error {
	var raw struct {
		Random bool            `json:"random"`
		Seed   json.RawMessage `json:"seed"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Random = raw.Random
	o.Seed = ""
	if len(raw.Seed) == 0 || string(raw.Seed) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Seed, &s); err == nil {
		o.Seed = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw.Seed, &n); err != nil {
		return fmt.Errorf("decoding seed: %w", err)
	}
	o.Seed = n.String()
	return nil
}

// Expectation is a single expectation result.
type Expectation struct {
	MatcherName     string `json:"matcherName"`
	Message         string `json:"message"`
	Stack           string `json:"stack"`
	Passed          bool   `json:"passed"`
	GlobalErrorType string `json:"globalErrorType,omitempty"`
}

// Deprecation is a deprecation warning raised by the framework.
type Deprecation struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// SuiteInfo is the payload of jasmineStarted.
type SuiteInfo struct {
	TotalSpecsDefined int   `json:"totalSpecsDefined"`
	Order             Order `json:"order"`
}

// SpecResult is the payload of specStarted and specDone.
type SpecResult struct {
	ID                  string        `json:"id"`
	Description         string        `json:"description"`
	FullName            string        `json:"fullName"`
	Status              string        `json:"status,omitempty"`
	FailedExpectations  []Expectation `json:"failedExpectations"`
	PassedExpectations  []Expectation `json:"passedExpectations"`
	DeprecationWarnings []Deprecation `json:"deprecationWarnings"`
	PendingReason       string        `json:"pendingReason"`
	Duration            *float64      `json:"duration,omitempty"`
	Filename            string        `json:"filename,omitempty"`
}

// SuiteResult is the payload of suiteStarted and suiteDone.
type SuiteResult struct {
	ID                  string        `json:"id"`
	Description         string        `json:"description"`
	FullName            string        `json:"fullName"`
	Status              string        `json:"status,omitempty"`
	FailedExpectations  []Expectation `json:"failedExpectations"`
	DeprecationWarnings []Deprecation `json:"deprecationWarnings"`
	Duration            *float64      `json:"duration,omitempty"`
	Filename            string        `json:"filename,omitempty"`
}

// RunDetails is the payload of jasmineDone and the result of a run.
type RunDetails struct {
	OverallStatus       Status        `json:"overallStatus"`
	TotalTime           float64       `json:"totalTime"` // milliseconds
	IncompleteReason    string        `json:"incompleteReason,omitempty"`
	IncompleteCode      string        `json:"incompleteCode,omitempty"`
	Order               Order         `json:"order"`
	FailedExpectations  []Expectation `json:"failedExpectations"`
	DeprecationWarnings []Deprecation `json:"deprecationWarnings"`
}

// Event is one reporter callback as transported from the page.
type Event struct {
	Name    string          `json:"eventName"`
	Payload json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into the type matching the event name.
// The returned value is one of SuiteInfo, SuiteResult, SpecResult or
// *RunDetails.
func (e Event) Decode() (any, error) {
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	var (
		v   any
		err error
	)
	switch e.Name {
	case EventJasmineStarted:
		var info SuiteInfo
		err = json.Unmarshal(payload, &info)
		v = info
	case EventSuiteStarted, EventSuiteDone:
		var res SuiteResult
		err = json.Unmarshal(payload, &res)
		v = res
	case EventSpecStarted, EventSpecDone:
		var res SpecResult
		err = json.Unmarshal(payload, &res)
		v = res
	case EventJasmineDone:
		var details RunDetails
		err = json.Unmarshal(payload, &details)
		v = &details
	default:
		return nil, fmt.Errorf("unknown reporter event %q", e.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", e.Name, err)
	}
	return v, nil
}
