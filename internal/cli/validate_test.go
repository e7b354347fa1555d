package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/folio/internal/compiler"
)

func TestValidate_ValidSite(t *testing.T) {
	out, err := execute(t, &RootOptions{Format: "text", Dir: newSiteDir(t)}, NewValidateCommand)
	require.NoError(t, err)
	assert.Contains(t, out, "Site is valid")
}

func TestValidate_ValidSiteJSON(t *testing.T) {
	out, err := execute(t, &RootOptions{Format: "json", Dir: newSiteDir(t)}, NewValidateCommand)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidate_DoesNotNeedContent(t *testing.T) {
	root := t.TempDir()
	writeSiteFile(t, root, "rules.cue", siteRules)

	_, err := execute(t, &RootOptions{Format: "text", Dir: root}, NewValidateCommand)
	require.NoError(t, err)
}

func TestValidate_SchemaAndFilterErrors(t *testing.T) {
	root := newSiteDir(t)
	writeSiteFile(t, root, "rules.cue", `
compile: [{pattern: "/**/*", actions: [{filter: "sass"}, {snapshot: "raw"}]}]
layout: [{pattern: "/*"}]
`)
	out, err := execute(t, &RootOptions{Format: "json", Dir: root}, NewValidateCommand)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))

	var result ValidationResult
	decodeResponse(t, out, &result)
	assert.False(t, result.Valid)

	var codes []string
	for _, e := range result.Errors {
		codes = append(codes, e.Code)
	}
	assert.ElementsMatch(t, []string{
		compiler.ErrReservedSnapshot,
		compiler.ErrLayoutNoFilter,
		compiler.ErrUnknownFilter,
	}, codes)
}

func TestValidate_SyntaxError(t *testing.T) {
	root := newSiteDir(t)
	writeSiteFile(t, root, "rules.cue", "compile: [\n")

	out, err := execute(t, &RootOptions{Format: "text", Dir: root}, NewValidateCommand)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Contains(t, out, "Validation failed with 1 error(s)")
	assert.Contains(t, out, "["+ErrCodeRulesCUE+"]")
}

func TestValidate_MissingRulesFile(t *testing.T) {
	_, err := execute(t, &RootOptions{Format: "text", Dir: t.TempDir()}, NewValidateCommand)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestValidate_BadConfig(t *testing.T) {
	root := newSiteDir(t)
	writeSiteFile(t, root, "folio.yaml", "content_dir: \"\"\n")

	out, err := execute(t, &RootOptions{Format: "text", Dir: root}, NewValidateCommand)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
	assert.Contains(t, out, "content_dir must not be empty")
}
