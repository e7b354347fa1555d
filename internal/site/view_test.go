package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/folio/internal/ir"
)

type bounce struct {
	ref   ir.Reference
	props string
}

type recordingTracker struct {
	bounces []bounce
}

func (r *recordingTracker) Bounce(ref ir.Reference, props ir.Props) {
	r.bounces = append(r.bounces, bounce{ref, props.String()})
}

type staticContent map[ir.Reference]string

func (s staticContent) CompiledContent(rep *ItemRep, snapshot string) (ir.Content, error) {
	return ir.NewTextualContent(s[rep.Reference()], ""), nil
}

func newViewContext(t *testing.T) (*ViewContext, *recordingTracker) {
	t.Helper()
	s, err := Freeze(newDraft(t))
	require.NoError(t, err)

	repo := NewRepRepository()
	for _, it := range s.Items() {
		repo.Add(NewItemRep(it, DefaultRep))
	}
	tr := &recordingTracker{}
	return &ViewContext{
		Site:    s,
		Reps:    repo,
		Tracker: tr,
		Content: staticContent{ir.RepRef("/about.md", DefaultRep): "compiled about"},
	}, tr
}

func TestItemViewBounces(t *testing.T) {
	ctx, tr := newViewContext(t)
	it, ok := ctx.Items().Get("/blog.md")
	require.True(t, ok)

	assert.Equal(t, ir.Identifier("/blog.md"), it.Identifier())
	assert.Equal(t, "Blog", it.AttributeString("title"))
	_ = it.Attributes()
	raw, err := it.RawContent()
	require.NoError(t, err)
	assert.Equal(t, "Blog", raw)

	ref := ir.ItemRef("/blog.md")
	assert.Equal(t, []bounce{
		{ref, "attributes[title]"},
		{ref, "attributes"},
		{ref, "raw_content"},
	}, tr.bounces)
}

func TestRepViewBounces(t *testing.T) {
	ctx, tr := newViewContext(t)
	it, _ := ctx.Items().Get("/about.md")

	content, err := it.CompiledContent("")
	require.NoError(t, err)
	assert.Equal(t, "compiled about", content)

	path, err := it.Path()
	require.NoError(t, err)
	assert.Equal(t, "", path)

	ref := ir.ItemRef("/about.md")
	assert.Equal(t, []bounce{{ref, "compiled_content"}, {ref, "path"}}, tr.bounces)

	_, err = it.Rep("print")
	assert.Error(t, err)
}

func TestCollectionViewsBounceOnEnumerationAndMiss(t *testing.T) {
	ctx, tr := newViewContext(t)

	_, ok := ctx.Items().Get("/missing.md")
	assert.False(t, ok)
	assert.Len(t, ctx.Items().All(), 3)
	found, err := ctx.Items().Find("/blog/**")
	require.NoError(t, err)
	assert.Len(t, found, 1)
	_, ok = ctx.Layouts().Get("/nope.html")
	assert.False(t, ok)

	assert.Equal(t, []bounce{
		{ir.ItemsRef, "raw_content"},
		{ir.ItemsRef, "raw_content"},
		{ir.ItemsRef, "raw_content"},
		{ir.LayoutsRef, "raw_content"},
	}, tr.bounces)
}

func TestConfigViewBounces(t *testing.T) {
	ctx, tr := newViewContext(t)

	v, ok := ctx.Config().Get("base_url")
	require.True(t, ok)
	assert.Equal(t, ir.IRString("https://example.com"), v)
	assert.Len(t, ctx.Config().All(), 1)

	assert.Equal(t, []bounce{
		{ir.ConfigRef, "attributes[base_url]"},
		{ir.ConfigRef, "attributes"},
	}, tr.bounces)
}

func TestViewWithoutContentSource(t *testing.T) {
	ctx, _ := newViewContext(t)
	ctx.Content = nil
	ctx.Tracker = nil

	it, _ := ctx.Items().Get("/about.md")
	_, err := it.CompiledContent("")
	assert.ErrorIs(t, err, ErrNoCompiledContent)
}
