// Package reporter defines the reporter capability set, resolves reporter
// references from configuration into instances and provides the built-in
// console and JSON reporters.
package reporter

import (
	"fmt"

	"github.com/perbu/jasmine-browser-runner/pkg/jasmine"
)

// Reporter receives the callbacks of a run, in the order the page emits them.
type Reporter interface {
	JasmineStarted(info jasmine.SuiteInfo)
	SuiteStarted(result jasmine.SuiteResult)
	SpecStarted(result jasmine.SpecResult)
	SpecDone(result jasmine.SpecResult)
	SuiteDone(result jasmine.SuiteResult)
	JasmineDone(details jasmine.RunDetails)
}

// Base implements Reporter with no-ops. Embed it to only handle some callbacks.
type Base struct{}

func (Base) JasmineStarted(jasmine.SuiteInfo) {}
func (Base) SuiteStarted(jasmine.SuiteResult) {}
func (Base) SpecStarted(jasmine.SpecResult)   {}
func (Base) SpecDone(jasmine.SpecResult)      {}
func (Base) SuiteDone(jasmine.SuiteResult)    {}
func (Base) JasmineDone(jasmine.RunDetails)   {}

// Spec is a reporter specification: either a module reference to be
// resolved, or an already-instantiated reporter that passes through.
type Spec struct {
	Module string   `json:"module,omitempty"`
	Inline Reporter `json:"-"`
}

// Module returns a spec referencing a registered name or a plugin path.
func Module(ref string) Spec {
	return Spec{Module: ref}
}

// Inline returns a spec wrapping an existing reporter instance.
func Inline(r Reporter) Spec {
	return Spec{Inline: r}
}

// IsInline reports whether the spec carries a reporter instance.
func (s Spec) IsInline() bool {
	return s.Inline != nil
}

// String returns the reference used in error messages.
func (s Spec) String() string {
	if s.Inline != nil {
		return fmt.Sprintf("%T", s.Inline)
	}
	return s.Module
}

// UnmarshalText lets a bare string in a config file decode into a module spec.
func (s *Spec) UnmarshalText(text []byte) error {
	s.Module = string(text)
	s.Inline = nil
	return nil
}

// MarshalText renders module specs back to their reference.
func (s Spec) MarshalText() ([]byte, error) {
	if s.Inline != nil {
		return nil, fmt.Errorf("inline reporter %T cannot be serialized", s.Inline)
	}
	return []byte(s.Module), nil
}
