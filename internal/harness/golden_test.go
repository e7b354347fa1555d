package harness

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceSnapshot_Canonical(t *testing.T) {
	snapshot := TraceSnapshot{
		Scenario: "demo",
		Runs: []RunResult{
			{
				Name:    "first",
				Events:  []string{"compiled rep:/a.md:default"},
				Outputs: map[string]string{"/b.html": "B", "/a.html": "A"},
			},
			{
				Name:    "second",
				Events:  []string{},
				Outputs: map[string]string{},
				Err:     "compile_reps: boom",
			},
		},
	}

	data, err := snapshot.marshal()
	require.NoError(t, err)

	want := `{"runs":[` +
		`{"events":["compiled rep:/a.md:default"],"name":"first","outputs":{"/a.html":"A","/b.html":"B"}},` +
		`{"error":"compile_reps: boom","events":[],"name":"second","outputs":{}}` +
		`],"scenario":"demo"}`
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestTraceSnapshot_NilEventsMarshalAsEmptyList(t *testing.T) {
	snapshot := TraceSnapshot{Scenario: "empty", Runs: []RunResult{{Name: "r"}}}

	data, err := snapshot.marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"events":[]`)
	assert.Contains(t, string(data), `"outputs":{}`)
}

func TestTraceSnapshot_Deterministic(t *testing.T) {
	snapshot := TraceSnapshot{
		Scenario: "demo",
		Runs: []RunResult{{
			Name:    "first",
			Events:  []string{"a", "b"},
			Outputs: map[string]string{"/z": "z", "/y": "y", "/x": "x"},
		}},
	}

	first, err := snapshot.marshal()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := snapshot.marshal()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAssertGolden_LayoutChange(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/layout_change.yaml")
	require.NoError(t, err)

	result, err := runScenario(t, scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, scenario.Name, result))
}
