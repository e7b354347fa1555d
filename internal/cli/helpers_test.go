package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const siteRules = `
compile: [
	{pattern: "/**/*.md", actions: [{filter: "template"}, {layout: "/default.*"}]},
]
route: [
	{pattern: "/**/*.md", path: "{{.WithoutExt}}.html"},
]
layout: [
	{pattern: "/**/*", filter: "template"},
]
`

// newSiteDir lays out a two-page site and returns its root.
func newSiteDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSiteFile(t, root, "folio.yaml", "attributes:\n  name: Demo\n")
	writeSiteFile(t, root, "rules.cue", siteRules)
	writeSiteFile(t, root, "content/index.md", "Welcome to {{ config \"name\" }}\n")
	writeSiteFile(t, root, "content/about.md", "---\ntitle: About\n---\nAbout {{ config \"name\" }}\n")
	writeSiteFile(t, root, "layouts/default.html", "<html>{{ .Content }}</html>\n")
	return root
}

func writeSiteFile(t *testing.T, root, rel, data string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func readSiteFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// execute runs a subcommand built by newCmd and returns its stdout.
func execute(t *testing.T, opts *RootOptions, newCmd func(*RootOptions) *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newCmd(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// jsonResponse is an Envelope with the payload left undecoded.
type jsonResponse struct {
	Status string          `json:"status"`
	RunID  string          `json:"run_id"`
	Data   json.RawMessage `json:"data"`
	Error  *ErrorDetail    `json:"error"`
}

func decodeResponse(t *testing.T, out string, data any) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if data != nil && resp.Data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}
