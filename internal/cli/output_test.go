package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/folio/internal/datasource"
	"github.com/roach88/folio/internal/engine"
	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/rules"
)

// =============================================================================
// OutputFormatter
// =============================================================================

func TestOutputFormatter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf, RunID: "run-1"}

	require.NoError(t, f.Success(map[string]int{"compiled": 3}))
	require.NoError(t, f.Error(ErrCodeCompile, "compilation failed", map[string]string{"rep": "rep:/a.md:default"}))

	dec := json.NewDecoder(buf)
	var ok, bad Envelope
	require.NoError(t, dec.Decode(&ok))
	require.NoError(t, dec.Decode(&bad))

	assert.Equal(t, "ok", ok.Status)
	assert.Equal(t, "run-1", ok.RunID)
	assert.Equal(t, map[string]any{"compiled": float64(3)}, ok.Data)
	assert.Nil(t, ok.Error)

	assert.Equal(t, "error", bad.Status)
	require.NotNil(t, bad.Error)
	assert.Equal(t, ErrCodeCompile, bad.Error.Code)
	assert.Equal(t, "compilation failed", bad.Error.Message)
	assert.NotNil(t, bad.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    []string
		absent  []string
	}{
		{"quiet", false, []string{"Error [E007]: boom"}, []string{"Details:"}},
		{"verbose", true, []string{"Error [E007]: boom", "Details: /a.md"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}
			require.NoError(t, f.Error("E007", "boom", "/a.md"))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, buf.String(), a)
			}
		})
	}
}

func TestOutputFormatter_VerboseLogGoesToErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	f.VerboseLog("wrote %s", "/index.html")
	assert.Empty(t, out.String())
	assert.Equal(t, "wrote /index.html\n", errOut.String())

	f.Verbose = false
	f.VerboseLog("dropped")
	assert.NotContains(t, errOut.String(), "dropped")
}

func TestOutputFormatter_MarksWithoutTerminal(t *testing.T) {
	f := &OutputFormatter{Format: "text", Writer: &bytes.Buffer{}}
	ok, fail := f.Marks()
	assert.Equal(t, "OK", ok)
	assert.Equal(t, "FAIL", fail)
}

// =============================================================================
// Exit codes
// =============================================================================

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, ExitCode(NewExitError(ExitCommandError, "bad flag")))
	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "compile", errors.New("inner")))
	assert.Equal(t, ExitFailure, ExitCode(wrapped))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("plain")))
	assert.Equal(t, "compile: inner", WrapExitError(ExitFailure, "compile", errors.New("inner")).Error())
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	err := f.Fail("loading site failed", &LoadError{Code: ErrCodeConfig, Message: "bad yaml"})
	assert.Equal(t, ExitCommandError, ExitCode(err))

	var resp Envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "loading site failed")
}

func TestClassify(t *testing.T) {
	rep := ir.RepRef("/a.md", "default")
	tests := []struct {
		name string
		err  error
		exit int
		code string
	}{
		{"config", &LoadError{Code: ErrCodeConfig, Message: "x"}, ExitCommandError, ErrCodeConfig},
		{"rules syntax", &LoadError{Code: ErrCodeRulesCUE, Message: "x"}, ExitFailure, ErrCodeRulesCUE},
		{"cycle", fmt.Errorf("compile_reps: %w", &engine.DependencyCycleError{Reps: []ir.Reference{rep, rep}}), ExitFailure, ErrCodeCycle},
		{"filter", &engine.CompilationError{Rep: rep, Err: engine.NewUnknownFilterError(rep, "x")}, ExitFailure, ErrCodeCompile},
		{"rule", rules.NewNoMatchingCompilationRuleError("/a.md", "default"), ExitFailure, ErrCodeRule},
		{"front matter", &datasource.FrontMatterError{Filename: "a.md", Message: "x"}, ExitFailure, ErrCodeLoad},
		{"other", errors.New("disk full"), ExitFailure, ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exit, code := classify(tt.err)
			assert.Equal(t, tt.exit, exit)
			assert.Equal(t, tt.code, code)
		})
	}
}
