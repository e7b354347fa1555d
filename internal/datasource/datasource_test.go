package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/folio/internal/ir"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

// =============================================================================
// Config
// =============================================================================

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := LoadConfig(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "output"), cfg.OutputPath())
	assert.Equal(t, filepath.Join(root, "tmp", "folio"), cfg.TmpPath())
	assert.Equal(t, filepath.Join(root, "content"), cfg.ContentPath())
	assert.Equal(t, filepath.Join(root, "layouts"), cfg.LayoutsPath())
	assert.Equal(t, filepath.Join(root, "rules.cue"), cfg.RulesPath())
	assert.True(t, cfg.IsText("md"))
	assert.False(t, cfg.IsText("png"))
	assert.False(t, cfg.Prune.AutoPrune)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFile), `
output_dir: public
text_extensions: [".MD", txt]
prune:
  auto_prune: true
  exclude: [.git]
attributes:
  title: My Site
  nav:
    - home
    - about
  per_page: 10
`)
	cfg, err := LoadConfig(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "public"), cfg.OutputPath())
	assert.Equal(t, "content", cfg.ContentDir)
	assert.Equal(t, []string{"md", "txt"}, cfg.TextExtensions)
	assert.True(t, cfg.Prune.AutoPrune)
	assert.Equal(t, []string{".git"}, cfg.Prune.Exclude)

	conf, err := cfg.SiteConfig()
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("My Site"), conf["title"])
	assert.Equal(t, ir.IRArray{ir.IRString("home"), ir.IRString("about")}, conf["nav"])
	assert.Equal(t, ir.IRInt(10), conf["per_page"])
}

func TestParseConfig_RejectsUnknownKeys(t *testing.T) {
	_, err := ParseConfig("/site", []byte("outptu_dir: public\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outptu_dir")
}

func TestParseConfig_RejectsEmptyDirectory(t *testing.T) {
	_, err := ParseConfig("/site", []byte("output_dir: \"\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output_dir must not be empty")
}

func TestParseConfig_EmptyFile(t *testing.T) {
	cfg, err := ParseConfig("/site", nil)
	require.NoError(t, err)
	assert.Equal(t, "output", cfg.OutputDir)
}

func TestConfig_AbsolutePathsKept(t *testing.T) {
	cfg, err := ParseConfig("/site", []byte("output_dir: /var/www\n"))
	require.NoError(t, err)
	assert.Equal(t, "/var/www", cfg.OutputPath())
}

// =============================================================================
// Front matter
// =============================================================================

func TestParseFrontMatter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		attrs ir.IRObject
		body  string
	}{
		{
			name:  "no front matter",
			input: "hello\n",
			attrs: ir.IRObject{},
			body:  "hello\n",
		},
		{
			name:  "attributes and body",
			input: "---\ntitle: Hello\ndraft: true\n---\nbody\n",
			attrs: ir.IRObject{"title": ir.IRString("Hello"), "draft": ir.IRBool(true)},
			body:  "body\n",
		},
		{
			name:  "blank line after closing delimiter is dropped",
			input: "---\ntitle: Hello\n---\n\nbody",
			attrs: ir.IRObject{"title": ir.IRString("Hello")},
			body:  "body",
		},
		{
			name:  "empty front matter",
			input: "---\n---\nbody",
			attrs: ir.IRObject{},
			body:  "body",
		},
		{
			name:  "closing delimiter at end of file",
			input: "---\ntitle: x\n---",
			attrs: ir.IRObject{"title": ir.IRString("x")},
			body:  "",
		},
		{
			name:  "crlf line endings",
			input: "---\r\ntitle: x\r\n---\r\nbody\r\n",
			attrs: ir.IRObject{"title": ir.IRString("x")},
			body:  "body\n",
		},
		{
			name:  "dashes inside body are kept",
			input: "---\na: 1\n---\nabove\n---\nbelow\n",
			attrs: ir.IRObject{"a": ir.IRInt(1)},
			body:  "above\n---\nbelow\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs, body, err := ParseFrontMatter("x.md", []byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.attrs, attrs)
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestParseFrontMatter_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated", "---\ntitle: x\nbody\n"},
		{"delimiter only", "---"},
		{"not a mapping", "---\n- a\n- b\n---\nbody"},
		{"invalid yaml", "---\ntitle: [unclosed\n---\nbody"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseFrontMatter("x.md", []byte(tt.input))
			require.Error(t, err)
			var fmErr *FrontMatterError
			require.ErrorAs(t, err, &fmErr)
			assert.Equal(t, "x.md", fmErr.Filename)
		})
	}
}

// =============================================================================
// FS loader
// =============================================================================

func newSite(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "content", "index.md"), "---\ntitle: Home\n---\nWelcome\n")
	writeFile(t, filepath.Join(root, "content", "blog", "first.md"), "First post\n")
	writeFile(t, filepath.Join(root, "content", "logo.png"), "\x89PNG")
	writeFile(t, filepath.Join(root, "content", ".hidden.md"), "skip")
	writeFile(t, filepath.Join(root, "content", "index.md~"), "skip")
	writeFile(t, filepath.Join(root, "content", ".drafts", "wip.md"), "skip")
	writeFile(t, filepath.Join(root, "layouts", "default.html"), "<main>{{ .Content }}</main>")
	writeFile(t, filepath.Join(root, ConfigFile), "attributes:\n  base_url: https://example.com\n")
	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	return cfg
}

func TestFS_Load(t *testing.T) {
	cfg := newSite(t)
	draft, err := NewFS(cfg).Load(context.Background())
	require.NoError(t, err)

	var ids []ir.Identifier
	for _, it := range draft.Items() {
		ids = append(ids, it.Identifier)
	}
	assert.ElementsMatch(t, []ir.Identifier{"/index.md", "/blog/first.md", "/logo.png"}, ids)

	index := draft.Item("/index.md")
	require.NotNil(t, index)
	text, err := index.Content.Text()
	require.NoError(t, err)
	assert.Equal(t, "Welcome\n", text)
	assert.Equal(t, ir.IRString("Home"), index.Attributes["title"])
	assert.Equal(t, ir.IRString("content/index.md"), index.Attributes[AttrContentFilename])
	assert.Equal(t, ir.IRString("md"), index.Attributes[AttrExtension])

	logo := draft.Item("/logo.png")
	require.NotNil(t, logo)
	assert.True(t, logo.Content.IsBinary())
	assert.Equal(t, filepath.Join(cfg.ContentPath(), "logo.png"), logo.Content.Filename())

	layout := draft.Layout("/default.html")
	require.NotNil(t, layout)
	assert.Len(t, draft.Layouts(), 1)

	assert.Equal(t, ir.IRString("https://example.com"), draft.Config["base_url"])
}

func TestFS_MissingLayoutsDirIsEmpty(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "content", "a.md"), "a")
	cfg, err := LoadConfig(root)
	require.NoError(t, err)

	draft, err := NewFS(cfg).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, draft.Items(), 1)
	assert.Empty(t, draft.Layouts())
}

func TestFS_MissingContentDirFails(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	_, err = NewFS(cfg).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load items")
}

func TestFS_BadFrontMatterFails(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "content", "broken.md"), "---\ntitle: x\n")
	cfg, err := LoadConfig(root)
	require.NoError(t, err)

	_, err = NewFS(cfg).Load(context.Background())
	var fmErr *FrontMatterError
	require.ErrorAs(t, err, &fmErr)
}

func TestFS_CancelledContext(t *testing.T) {
	cfg := newSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFS(cfg).Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
