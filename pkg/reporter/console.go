package reporter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/perbu/jasmine-browser-runner/pkg/jasmine"
)

// ConsoleOptions configures a ConsoleReporter.
type ConsoleOptions struct {
	// Print receives every chunk of output. Newlines are explicit.
	Print func(string)
	// ShowColors enables ANSI colours regardless of the terminal.
	ShowColors bool
	// RandomSeedReproductionCmd renders the command that reruns a seed.
	RandomSeedReproductionCmd func(seed string) string
}

// ConsoleReporter renders progress and a summary in the style of Jasmine's
// console reporter: one glyph per spec, then failures, pending specs and
// counts.
type ConsoleReporter struct {
	opts ConsoleOptions

	green  *color.Color
	red    *color.Color
	yellow *color.Color

	specCount           int
	executableSpecCount int
	failureCount        int
	failedSpecs         []jasmine.SpecResult
	pendingSpecs        []jasmine.SpecResult
	failedSuites        []jasmine.SuiteResult
}

// NewConsole creates a console reporter. A nil Print discards output.
func NewConsole(opts ConsoleOptions) *ConsoleReporter {
	if opts.Print == nil {
		opts.Print = func(string) {}
	}
	cr := &ConsoleReporter{
		opts:   opts,
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{cr.green, cr.red, cr.yellow} {
		if opts.ShowColors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return cr
}

func (cr *ConsoleReporter) print(s string) {
	cr.opts.Print(s)
}

func (cr *ConsoleReporter) newline() {
	cr.opts.Print("\n")
}

// JasmineStarted resets counters and prints the start banner.
func (cr *ConsoleReporter) JasmineStarted(jasmine.SuiteInfo) {
	cr.specCount = 0
	cr.executableSpecCount = 0
	cr.failureCount = 0
	cr.failedSpecs = nil
	cr.pendingSpecs = nil
	cr.failedSuites = nil
	cr.print("Started")
	cr.newline()
}

func (cr *ConsoleReporter) SuiteStarted(jasmine.SuiteResult) {}

func (cr *ConsoleReporter) SpecStarted(jasmine.SpecResult) {}

// SpecDone prints the progress glyph for a finished spec.
func (cr *ConsoleReporter) SpecDone(result jasmine.SpecResult) {
	cr.specCount++

	switch result.Status {
	case jasmine.SpecPending:
		cr.executableSpecCount++
		cr.pendingSpecs = append(cr.pendingSpecs, result)
		cr.print(cr.yellow.Sprint("*"))
	case jasmine.SpecPassed:
		cr.executableSpecCount++
		cr.print(cr.green.Sprint("."))
	case jasmine.SpecFailed:
		cr.executableSpecCount++
		cr.failureCount++
		cr.failedSpecs = append(cr.failedSpecs, result)
		cr.print(cr.red.Sprint("F"))
	}
}

// SuiteDone records suites that failed outside of their specs, e.g. in afterAll.
func (cr *ConsoleReporter) SuiteDone(result jasmine.SuiteResult) {
	if len(result.FailedExpectations) > 0 {
		cr.failureCount++
		cr.failedSuites = append(cr.failedSuites, result)
	}
}

// JasmineDone prints failures, pending specs and the run summary.
func (cr *ConsoleReporter) JasmineDone(details jasmine.RunDetails) {
	cr.newline()
	cr.newline()

	if len(cr.failedSpecs) > 0 {
		cr.print("Failures:")
	}
	for i, spec := range cr.failedSpecs {
		cr.newline()
		cr.print(strconv.Itoa(i+1) + ") " + spec.FullName)
		cr.printFailedExpectations(spec.FailedExpectations)
	}

	for _, suite := range cr.failedSuites {
		cr.suiteFailureDetails(suite.FullName, suite.FailedExpectations)
	}
	if len(details.FailedExpectations) > 0 {
		cr.failureCount++
		cr.suiteFailureDetails("top suite", details.FailedExpectations)
	}

	if len(cr.pendingSpecs) > 0 {
		cr.print("Pending:")
	}
	for i, spec := range cr.pendingSpecs {
		cr.newline()
		cr.newline()
		cr.print(strconv.Itoa(i+1) + ") " + spec.FullName)
		cr.newline()
		reason := "No reason given"
		if spec.PendingReason != "" {
			reason = spec.PendingReason
		}
		cr.print(indent(cr.yellow.Sprint(reason), 2))
		cr.newline()
	}

	if cr.specCount > 0 {
		cr.newline()
		if cr.executableSpecCount != cr.specCount {
			cr.print(fmt.Sprintf("Ran %d of %d %s", cr.executableSpecCount, cr.specCount, plural("spec", cr.specCount)))
			cr.newline()
		}
		counts := fmt.Sprintf("%d %s, %d %s",
			cr.executableSpecCount, plural("spec", cr.executableSpecCount),
			cr.failureCount, plural("failure", cr.failureCount))
		if len(cr.pendingSpecs) > 0 {
			counts += fmt.Sprintf(", %d pending %s", len(cr.pendingSpecs), plural("spec", len(cr.pendingSpecs)))
		}
		cr.print(counts)
	} else {
		cr.print("No specs found")
	}
	cr.newline()

	seconds := details.TotalTime / 1000
	cr.print("Finished in " + strconv.FormatFloat(seconds, 'f', -1, 64) + " " + pluralf("second", seconds))
	cr.newline()

	if details.OverallStatus == jasmine.StatusIncomplete {
		cr.print("Incomplete: " + details.IncompleteReason)
		cr.newline()
	}

	if details.Order.Random {
		cr.print("Randomized with seed " + details.Order.Seed)
		if cr.opts.RandomSeedReproductionCmd != nil {
			cr.print(" (" + cr.opts.RandomSeedReproductionCmd(details.Order.Seed) + ")")
		}
		cr.newline()
	}
}

func (cr *ConsoleReporter) suiteFailureDetails(name string, failed []jasmine.Expectation) {
	cr.newline()
	cr.print("Suite error: " + name)
	cr.printFailedExpectations(failed)
	cr.newline()
}

func (cr *ConsoleReporter) printFailedExpectations(failed []jasmine.Expectation) {
	for _, fe := range failed {
		cr.newline()
		cr.print(indent("Message:", 2))
		cr.newline()
		cr.print(cr.red.Sprint(indent(fe.Message, 4)))
		cr.newline()
		cr.print(indent("Stack:", 2))
		cr.newline()
		cr.print(indent(fe.Stack, 4))
	}
	cr.newline()
}

func indent(s string, spaces int) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = pad + line
	}
	return strings.Join(lines, "\n")
}

func plural(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}

func pluralf(word string, count float64) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
