package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails. It carries the trace
// so the failure can be read without rerunning the scenario.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\ntrace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, event)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against a trace and returns one
// message per failure.
func EvaluateAssertions(trace []string, assertions []Assertion) []string {
	var failures []string
	for _, a := range assertions {
		if err := evaluate(trace, a); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluate(trace []string, a Assertion) error {
	switch a.Type {
	case AssertEventContains:
		return assertEventContains(trace, a)
	case AssertEventAbsent:
		return assertEventAbsent(trace, a)
	case AssertEventOrder:
		return assertEventOrder(trace, a)
	case AssertEventCount:
		return assertEventCount(trace, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func indexOf(trace []string, event string, from int) int {
	for i := from; i < len(trace); i++ {
		if trace[i] == event {
			return i
		}
	}
	return -1
}

// assertEventContains checks that the trace has the event line.
func assertEventContains(trace []string, a Assertion) error {
	if indexOf(trace, a.Event, 0) >= 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: a.Event,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func assertEventAbsent(trace []string, a Assertion) error {
	if i := indexOf(trace, a.Event, 0); i >= 0 {
		return &AssertionError{
			Type:     AssertEventAbsent,
			Expected: fmt.Sprintf("no %q", a.Event),
			Actual:   fmt.Sprintf("found at position %d", i+1),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventOrder checks that the events appear in the given order.
// Other events may appear between them.
func assertEventOrder(trace []string, a Assertion) error {
	pos := 0
	for _, event := range a.Events {
		i := indexOf(trace, event, pos)
		if i < 0 {
			actual := "missing event: " + event
			if indexOf(trace, event, 0) >= 0 {
				actual = "out of order: " + event
			}
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual:   actual,
				Trace:    trace,
			}
		}
		pos = i + 1
	}
	return nil
}

// assertEventCount checks how many events start with the prefix.
func assertEventCount(trace []string, a Assertion) error {
	count := 0
	for _, event := range trace {
		if strings.HasPrefix(event, a.Prefix) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d events starting with %q", a.Count, a.Prefix),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}
