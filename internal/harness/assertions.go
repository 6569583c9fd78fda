package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s pair=%v winner=%q", ev.Seq, ev.Action, ev.Pair, ev.Winner)
		if ev.Error != "" {
			fmt.Fprintf(&buf, " error=%s", ev.Error)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

func assertResult(r *Result, a Assertion) error {
	if r.Done && slices.Equal(r.Order, a.Items) {
		return nil
	}
	actual := fmt.Sprintf("%v", r.Order)
	if !r.Done {
		actual = fmt.Sprintf("not done after %d decisions", r.Decisions)
	}
	return &AssertionError{
		Type:     AssertResult,
		Expected: fmt.Sprintf("%v", a.Items),
		Actual:   actual,
		Trace:    r.Trace,
	}
}

func offered(trace []TraceEvent, pair []string) bool {
	for _, ev := range trace {
		if slices.Equal(ev.Pair, pair) {
			return true
		}
	}
	return false
}

func assertOffered(r *Result, a Assertion) error {
	if offered(r.Trace, a.Pair) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOffered,
		Expected: fmt.Sprintf("pair %v offered", a.Pair),
		Actual:   "not found in trace",
		Trace:    r.Trace,
	}
}

func assertNotOffered(r *Result, a Assertion) error {
	if !offered(r.Trace, a.Pair) {
		return nil
	}
	return &AssertionError{
		Type:     AssertNotOffered,
		Expected: fmt.Sprintf("pair %v never offered", a.Pair),
		Actual:   "found in trace",
		Trace:    r.Trace,
	}
}

func assertDecisionCount(r *Result, a Assertion) error {
	if r.Decisions == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertDecisionCount,
		Expected: fmt.Sprintf("%d decisions", a.Count),
		Actual:   fmt.Sprintf("%d decisions", r.Decisions),
		Trace:    r.Trace,
	}
}

// EvaluateAssertions checks every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertResult:
			err = assertResult(result, a)
		case AssertOffered:
			err = assertOffered(result, a)
		case AssertNotOffered:
			err = assertNotOffered(result, a)
		case AssertDecisionCount:
			err = assertDecisionCount(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
