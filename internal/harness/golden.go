package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/folio/internal/ir"
)

// TraceSnapshot is what a golden file records for a scenario: per run, the
// trace, the output files and the error.
type TraceSnapshot struct {
	Scenario string
	Runs     []RunResult
}

// toCanonicalMap converts the snapshot for ir.MarshalCanonical, which only
// handles IR types and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	runs := make([]any, len(s.Runs))
	for i, run := range s.Runs {
		outputs := make(map[string]any, len(run.Outputs))
		for path, data := range run.Outputs {
			outputs[path] = data
		}
		m := map[string]any{
			"name":    run.Name,
			"events":  append([]string{}, run.Events...),
			"outputs": outputs,
		}
		if run.Err != "" {
			m["error"] = run.Err
		}
		runs[i] = m
	}
	return map[string]any{
		"scenario": s.Scenario,
		"runs":     runs,
	}
}

func (s *TraceSnapshot) marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario in a temp dir and compares its trace
// with testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, t.TempDir())
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{Scenario: scenarioName, Runs: result.Runs}
	data, err := snapshot.marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
