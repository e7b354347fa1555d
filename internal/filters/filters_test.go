package filters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/site"
)

type staticContent map[ir.Reference]string

func (s staticContent) CompiledContent(rep *site.ItemRep, _ string) (ir.Content, error) {
	text, ok := s[rep.Reference()]
	if !ok {
		return ir.Content{}, site.ErrNoCompiledContent
	}
	return ir.NewTextualContent(text, ""), nil
}

type bounce struct {
	ref   ir.Reference
	props ir.Props
}

type recordingTracker struct{ bounces []bounce }

func (r *recordingTracker) Bounce(ref ir.Reference, props ir.Props) {
	r.bounces = append(r.bounces, bounce{ref, props})
}

func newContext(t *testing.T, compiled staticContent) (*Context, *recordingTracker) {
	t.Helper()
	d := site.NewDraft()
	require.NoError(t, d.AddItem(&site.DraftItem{
		Identifier: "/a.md",
		Content:    ir.NewTextualContent("A", ""),
		Attributes: ir.IRObject{"title": ir.IRString("Alpha")},
	}))
	require.NoError(t, d.AddItem(&site.DraftItem{Identifier: "/b.md", Content: ir.NewTextualContent("B", "")}))
	d.Config = ir.IRObject{"site_name": ir.IRString("Folio")}
	s, err := site.Freeze(d)
	require.NoError(t, err)

	reps := site.NewRepRepository()
	for _, it := range s.Items() {
		rep := site.NewItemRep(it, site.DefaultRep)
		rep.Assign(ir.NewActionSequence(
			ir.SnapshotAction{Names: []string{"raw", "last"}, Paths: []string{it.Identifier().WithoutExt() + ".html"}},
		), "out")
		reps.Add(rep)
	}

	tracker := &recordingTracker{}
	view := &site.ViewContext{Site: s, Reps: reps, Tracker: tracker, Content: compiled}
	b, _ := s.Item("/b.md")
	item := view.Item(b)
	rep, err := item.Rep(site.DefaultRep)
	require.NoError(t, err)
	return &Context{View: view, Item: item, Rep: rep, TmpDir: t.TempDir()}, tracker
}

func runText(t *testing.T, f Filter, fctx *Context, in string, params ir.IRObject) (string, error) {
	t.Helper()
	out, err := f.Run(fctx, ir.NewTextualContent(in, ""), params)
	if err != nil {
		return "", err
	}
	return out.Text()
}

func mustGet(t *testing.T, name string) Filter {
	t.Helper()
	r, err := Default()
	require.NoError(t, err)
	f, ok := r.Get(name)
	require.True(t, ok, "filter %s", name)
	return f
}

// ============================================================================
// Registry
// ============================================================================

func TestRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(Func{FilterName: "x"}, Func{FilterName: "x"})
	assert.Error(t, err)

	_, err = NewRegistry(Func{FilterName: ""})
	assert.Error(t, err)
}

func TestDefault_Names(t *testing.T) {
	r, err := Default(Func{FilterName: "custom"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"copy_binary", "custom", "identity", "replace", "template", "text_to_binary", "title", "upcase",
	}, r.Names())
}

// ============================================================================
// Text filters
// ============================================================================

func TestTextFilters(t *testing.T) {
	fctx, _ := newContext(t, nil)

	tests := []struct {
		name   string
		filter string
		in     string
		params ir.IRObject
		want   string
	}{
		{"identity", "identity", "x", nil, "x"},
		{"upcase", "upcase", "hello", nil, "HELLO"},
		{"title", "title", "hello world", nil, "Hello World"},
		{"replace", "replace", "a-b-c", ir.IRObject{"from": ir.IRString("-"), "to": ir.IRString("+")}, "a+b+c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runText(t, mustGet(t, tt.filter), fctx, tt.in, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplace_RequiresFrom(t *testing.T) {
	fctx, _ := newContext(t, nil)
	_, err := runText(t, mustGet(t, "replace"), fctx, "x", nil)
	assert.Error(t, err)
}

// ============================================================================
// Template filter
// ============================================================================

func TestTemplate_ReadsCompiledContentAndRecordsDependency(t *testing.T) {
	fctx, tracker := newContext(t, staticContent{ir.RepRef("/a.md", "default"): "compiled A"})

	got, err := runText(t, mustGet(t, "template"), fctx, `[{{compiledContent "/a.md"}}]`, nil)
	require.NoError(t, err)
	assert.Equal(t, "[compiled A]", got)
	assert.Contains(t, tracker.bounces, bounce{ir.ItemRef("/a.md"), ir.PropsCompiledContent})
}

func TestTemplate_AttributesConfigAndParams(t *testing.T) {
	fctx, tracker := newContext(t, nil)

	got, err := runText(t, mustGet(t, "template"), fctx,
		`{{attr "/a.md" "title"}}|{{config "site_name"}}|{{.Params.greeting}}|{{.Rep.Path ""}}`,
		ir.IRObject{"greeting": ir.IRString("hi")})
	require.NoError(t, err)
	assert.Equal(t, "Alpha|Folio|hi|/b.html", got)
	assert.Contains(t, tracker.bounces, bounce{ir.ItemRef("/a.md"), ir.AttributeProps("title")})
	assert.Contains(t, tracker.bounces, bounce{ir.ConfigRef, ir.AttributeProps("site_name")})
}

func TestTemplate_LayoutSeesContent(t *testing.T) {
	fctx, _ := newContext(t, nil)
	fctx.Content = "<p>body</p>"

	got, err := runText(t, mustGet(t, "template"), fctx, `<main>{{.Content}}</main>`, nil)
	require.NoError(t, err)
	assert.Equal(t, "<main><p>body</p></main>", got)
}

func TestTemplate_Errors(t *testing.T) {
	fctx, _ := newContext(t, nil)

	_, err := runText(t, mustGet(t, "template"), fctx, `{{`, nil)
	assert.Error(t, err)

	_, err = runText(t, mustGet(t, "template"), fctx, `{{compiledContent "/missing.md"}}`, nil)
	assert.ErrorContains(t, err, "no item /missing.md")

	_, err = runText(t, mustGet(t, "template"), fctx, `{{compiledContent "/a.md"}}`, nil)
	assert.ErrorIs(t, err, site.ErrNoCompiledContent)
}

// ============================================================================
// Binary filters
// ============================================================================

func TestBinaryFilters(t *testing.T) {
	fctx, _ := newContext(t, nil)

	out, err := mustGet(t, "text_to_binary").Run(fctx, ir.NewTextualContent("bytes", ""), nil)
	require.NoError(t, err)
	require.True(t, out.IsBinary())
	assert.Equal(t, Binary, KindOf(out))

	copied, err := mustGet(t, "copy_binary").Run(fctx, out, nil)
	require.NoError(t, err)
	assert.NotEqual(t, out.Filename(), copied.Filename())
	assert.Equal(t, fctx.TmpDir, filepath.Dir(copied.Filename()))

	data, err := os.ReadFile(copied.Filename())
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))
}
