package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleTrace = []string{
	"suspended rep:/a.md:default on rep:/b.md:default@last",
	"filter template rep:/b.md:default",
	"compiled rep:/b.md:default",
	"filter template rep:/a.md:default",
	"compiled rep:/a.md:default",
	"cache_written rep:/a.md:default",
	"cache_written rep:/b.md:default",
}

// =============================================================================
// event_contains / event_absent
// =============================================================================

func TestAssertEventContains(t *testing.T) {
	err := assertEventContains(sampleTrace, Assertion{Type: AssertEventContains, Event: "compiled rep:/a.md:default"})
	assert.NoError(t, err)

	err = assertEventContains(sampleTrace, Assertion{Type: AssertEventContains, Event: "cached rep:/a.md:default"})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertEventContains, ae.Type)
	assert.Equal(t, "not found in trace", ae.Actual)
	assert.Equal(t, sampleTrace, ae.Trace)
}

func TestAssertEventContains_ExactMatchOnly(t *testing.T) {
	err := assertEventContains(sampleTrace, Assertion{Type: AssertEventContains, Event: "compiled rep:/a.md"})
	assert.Error(t, err)
}

func TestAssertEventAbsent(t *testing.T) {
	err := assertEventAbsent(sampleTrace, Assertion{Type: AssertEventAbsent, Event: "cached rep:/a.md:default"})
	assert.NoError(t, err)

	err = assertEventAbsent(sampleTrace, Assertion{Type: AssertEventAbsent, Event: "compiled rep:/b.md:default"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found at position 3")
}

// =============================================================================
// event_order
// =============================================================================

func TestAssertEventOrder(t *testing.T) {
	tests := []struct {
		name    string
		events  []string
		wantErr string
	}{
		{
			name:   "in order",
			events: []string{"compiled rep:/b.md:default", "compiled rep:/a.md:default"},
		},
		{
			name:   "non-consecutive",
			events: []string{sampleTrace[0], "compiled rep:/a.md:default", "cache_written rep:/b.md:default"},
		},
		{
			name:    "reversed",
			events:  []string{"compiled rep:/a.md:default", "compiled rep:/b.md:default"},
			wantErr: "out of order: compiled rep:/b.md:default",
		},
		{
			name:    "missing",
			events:  []string{"compiled rep:/b.md:default", "compiled rep:/c.md:default"},
			wantErr: "missing event: compiled rep:/c.md:default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertEventOrder(sampleTrace, Assertion{Type: AssertEventOrder, Events: tt.events})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertEventOrder_RepeatedEvent(t *testing.T) {
	trace := []string{"x", "y", "x"}
	assert.NoError(t, assertEventOrder(trace, Assertion{Type: AssertEventOrder, Events: []string{"x", "y", "x"}}))
	assert.Error(t, assertEventOrder(trace, Assertion{Type: AssertEventOrder, Events: []string{"y", "x", "y"}}))
}

// =============================================================================
// event_count
// =============================================================================

func TestAssertEventCount(t *testing.T) {
	tests := []struct {
		prefix string
		count  int
		ok     bool
	}{
		{"filter ", 2, true},
		{"cache_written ", 2, true},
		{"compiled rep:/a.md", 1, true},
		{"cached ", 0, true},
		{"filter ", 3, false},
	}

	for _, tt := range tests {
		err := assertEventCount(sampleTrace, Assertion{Type: AssertEventCount, Prefix: tt.prefix, Count: tt.count})
		if tt.ok {
			assert.NoError(t, err, tt.prefix)
		} else {
			assert.Error(t, err, tt.prefix)
		}
	}
}

// =============================================================================
// EvaluateAssertions
// =============================================================================

func TestEvaluateAssertions(t *testing.T) {
	failures := EvaluateAssertions(sampleTrace, []Assertion{
		{Type: AssertEventContains, Event: "compiled rep:/a.md:default"},
		{Type: AssertEventAbsent, Event: "compiled rep:/a.md:default"},
		{Type: AssertEventCount, Prefix: "suspended ", Count: 1},
		{Type: "bogus"},
	})

	require.Len(t, failures, 2)
	assert.Contains(t, failures[0], "event_absent")
	assert.Contains(t, failures[1], "unknown assertion type: bogus")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertEventContains,
		Expected: "compiled x",
		Actual:   "not found in trace",
		Trace:    []string{"cached x"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "assertion failed: event_contains")
	assert.Contains(t, msg, "expected: compiled x")
	assert.Contains(t, msg, "actual: not found in trace")
	assert.Contains(t, msg, "[1] cached x")
}

func TestAssertionError_NoTrace(t *testing.T) {
	err := &AssertionError{Type: AssertEventCount, Expected: "1", Actual: "0"}
	assert.NotContains(t, err.Error(), "trace:")
}
