package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Success
// =============================================================================

func TestCompile_Text(t *testing.T) {
	root := newSiteDir(t)
	out, err := execute(t, &RootOptions{Format: "text", Dir: root}, NewCompileCommand)
	require.NoError(t, err)

	assert.Contains(t, out, "OK Compiled 2 rep(s), 0 from cache, 2 file(s) written")
	assert.Equal(t, "<html>Welcome to Demo\n</html>\n", readSiteFile(t, root, "output/index.html"))
	assert.Equal(t, "<html>About Demo\n</html>\n", readSiteFile(t, root, "output/about.html"))
}

func TestCompile_JSON(t *testing.T) {
	root := newSiteDir(t)
	out, err := execute(t, &RootOptions{Format: "json", Dir: root}, NewCompileCommand)
	require.NoError(t, err)

	var result CompileResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, result.RunID, resp.RunID)
	assert.ElementsMatch(t, []string{"rep:/about.md:default", "rep:/index.md:default"}, result.Compiled)
	assert.Empty(t, result.Cached)
	assert.Len(t, result.Written, 2)
	assert.Equal(t, "not compiled before", result.Outdated["rep:/index.md:default"])
}

func TestCompile_SecondRunRestoresFromCache(t *testing.T) {
	root := newSiteDir(t)
	opts := &RootOptions{Format: "json", Dir: root}
	_, err := execute(t, opts, NewCompileCommand)
	require.NoError(t, err)

	out, err := execute(t, opts, NewCompileCommand)
	require.NoError(t, err)
	var result CompileResult
	decodeResponse(t, out, &result)
	assert.Empty(t, result.Compiled)
	assert.Len(t, result.Cached, 2)
	assert.Empty(t, result.Written)

	writeSiteFile(t, root, "content/about.md", "---\ntitle: About\n---\nAbout us\n")
	out, err = execute(t, opts, NewCompileCommand)
	require.NoError(t, err)
	result = CompileResult{}
	decodeResponse(t, out, &result)
	assert.Equal(t, []string{"rep:/about.md:default"}, result.Compiled)
	assert.Equal(t, "content modified", result.Outdated["rep:/about.md:default"])
	assert.Equal(t, "<html>About us\n</html>\n", readSiteFile(t, root, "output/about.html"))
}

func TestCompile_OutputDirFlag(t *testing.T) {
	root := newSiteDir(t)
	dest := filepath.Join(t.TempDir(), "public")
	_, err := execute(t, &RootOptions{Format: "text", Dir: root}, NewCompileCommand, "--output-dir", dest)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dest, "index.html"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "output"))
	assert.True(t, os.IsNotExist(err))
}

func TestCompile_AutoPruneFlag(t *testing.T) {
	root := newSiteDir(t)
	opts := &RootOptions{Format: "json", Dir: root}
	_, err := execute(t, opts, NewCompileCommand)
	require.NoError(t, err)

	writeSiteFile(t, root, "output/old.html", "stale")
	out, err := execute(t, opts, NewCompileCommand, "--auto-prune")
	require.NoError(t, err)

	var result CompileResult
	decodeResponse(t, out, &result)
	assert.Equal(t, []string{filepath.Join(root, "output", "old.html")}, result.Pruned)
	_, err = os.Stat(filepath.Join(root, "output", "old.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestCompile_MetricsFile(t *testing.T) {
	root := newSiteDir(t)
	path := filepath.Join(t.TempDir(), "folio.prom")
	_, err := execute(t, &RootOptions{Format: "text", Dir: root, MetricsFile: path}, NewCompileCommand)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `folio_reps_total{source="compiled"} 2`)
	assert.Contains(t, string(data), "folio_stage_duration_seconds")
}

// =============================================================================
// Failures
// =============================================================================

func TestCompile_UnknownFilterFails(t *testing.T) {
	root := newSiteDir(t)
	writeSiteFile(t, root, "rules.cue", `
compile: [{pattern: "/**/*", actions: [{filter: "markdown"}]}]
route: [{pattern: "/**/*", path: "{{.Identifier}}"}]
layout: [{pattern: "/**/*", filter: "template"}]
`)
	out, err := execute(t, &RootOptions{Format: "json", Dir: root}, NewCompileCommand)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeCompile, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "markdown")
}

func TestCompile_CycleFails(t *testing.T) {
	root := newSiteDir(t)
	writeSiteFile(t, root, "content/index.md", `{{ compiledContent "/about.md" }}`)
	writeSiteFile(t, root, "content/about.md", `{{ compiledContent "/index.md" }}`)

	out, err := execute(t, &RootOptions{Format: "text", Dir: root}, NewCompileCommand)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeCycle+"]")
	assert.Contains(t, out, "dependency cycle")
}

func TestCompile_InvalidRules(t *testing.T) {
	root := newSiteDir(t)
	writeSiteFile(t, root, "rules.cue", `layout: [{pattern: "/*"}]`)

	out, err := execute(t, &RootOptions{Format: "text", Dir: root}, NewCompileCommand)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeRulesValid+"]")
}

func TestCompile_MissingContentDir(t *testing.T) {
	root := newSiteDir(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "content")))

	out, err := execute(t, &RootOptions{Format: "text", Dir: root}, NewCompileCommand)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeLoad+"]")
}

func TestCompile_BadConfig(t *testing.T) {
	root := newSiteDir(t)
	writeSiteFile(t, root, "folio.yaml", "outptu_dir: x\n")

	out, err := execute(t, &RootOptions{Format: "text", Dir: root}, NewCompileCommand)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeConfig+"]")
}

func TestCompile_MissingSiteDir(t *testing.T) {
	_, err := execute(t, &RootOptions{Format: "text", Dir: filepath.Join(t.TempDir(), "nope")}, NewCompileCommand)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestCompile_RejectsArguments(t *testing.T) {
	_, err := execute(t, &RootOptions{Format: "text", Dir: newSiteDir(t)}, NewCompileCommand, "extra")
	require.Error(t, err)
}
