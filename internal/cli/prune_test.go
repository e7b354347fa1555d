package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prunableSite(t *testing.T) string {
	t.Helper()
	root := newSiteDir(t)
	_, err := execute(t, &RootOptions{Format: "text", Dir: root}, NewCompileCommand)
	require.NoError(t, err)
	writeSiteFile(t, root, "output/old/page.html", "stale")
	writeSiteFile(t, root, "output/.git/HEAD", "ref: main")
	return root
}

func TestPrune_DryRun(t *testing.T) {
	root := prunableSite(t)
	out, err := execute(t, &RootOptions{Format: "json", Dir: root}, NewPruneCommand, "--dry-run")
	require.NoError(t, err)

	var result PruneResult
	decodeResponse(t, out, &result)
	assert.True(t, result.DryRun)
	assert.Equal(t, []string{filepath.Join(root, "output", "old", "page.html")}, result.Removed)
	assert.FileExists(t, filepath.Join(root, "output", "old", "page.html"))
}

func TestPrune_RemovesStaleFiles(t *testing.T) {
	root := prunableSite(t)
	out, err := execute(t, &RootOptions{Format: "text", Dir: root}, NewPruneCommand)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 file(s)")

	_, err = os.Stat(filepath.Join(root, "output", "old"))
	assert.True(t, os.IsNotExist(err))
	assert.FileExists(t, filepath.Join(root, "output", "index.html"))
	assert.FileExists(t, filepath.Join(root, "output", ".git", "HEAD"))
}

func TestPrune_RemovedItemOutput(t *testing.T) {
	root := prunableSite(t)
	require.NoError(t, os.Remove(filepath.Join(root, "content", "about.md")))

	out, err := execute(t, &RootOptions{Format: "json", Dir: root}, NewPruneCommand)
	require.NoError(t, err)

	var result PruneResult
	decodeResponse(t, out, &result)
	assert.Equal(t, []string{
		filepath.Join(root, "output", "about.html"),
		filepath.Join(root, "output", "old", "page.html"),
	}, result.Removed)
}

func TestPrune_NothingToDo(t *testing.T) {
	root := newSiteDir(t)
	out, err := execute(t, &RootOptions{Format: "json", Dir: root}, NewPruneCommand)
	require.NoError(t, err)

	var result PruneResult
	decodeResponse(t, out, &result)
	assert.Empty(t, result.Removed)
}
