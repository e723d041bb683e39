package webdriver

import (
	"encoding/json"
	"fmt"
)

// Error is a WebDriver error response.
type Error struct {
	Status     int    `json:"-"` // HTTP status
	Code       string `json:"error"`
	Message    string `json:"message"`
	Stacktrace string `json:"stacktrace"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("webdriver: %s (HTTP %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("webdriver: %s: %s", e.Code, e.Message)
}

func decodeError(status int, value json.RawMessage) error {
	e := &Error{Status: status}
	if len(value) > 0 {
		_ = json.Unmarshal(value, e)
	}
	if e.Code == "" {
		e.Code = "unknown error"
	}
	return e
}
