package site

import (
	"errors"
	"fmt"

	"github.com/roach88/folio/internal/ir"
)

// Tracker receives a notification for every property read through a view.
type Tracker interface {
	Bounce(dependency ir.Reference, props ir.Props)
}

// ContentSource resolves compiled content of a rep snapshot. During
// compilation the executor's implementation may suspend the calling task.
type ContentSource interface {
	CompiledContent(rep *ItemRep, snapshot string) (ir.Content, error)
}

// ErrNoCompiledContent is returned when compiled content is read in a
// context that has no content source (e.g. while evaluating rules).
var ErrNoCompiledContent = errors.New("compiled content is not available in this context")

// ViewContext carries what views need: the frozen site, its reps, the
// dependency tracker and an optional compiled-content source.
type ViewContext struct {
	Site    *Site
	Reps    *RepRepository
	Tracker Tracker
	Content ContentSource
}

func (c *ViewContext) bounce(ref ir.Reference, props ir.Props) {
	if c.Tracker != nil {
		c.Tracker.Bounce(ref, props)
	}
}

// Item returns a view of it.
func (c *ViewContext) Item(it *Item) *ItemView {
	return &ItemView{item: it, ctx: c}
}

// Layout returns a view of l.
func (c *ViewContext) Layout(l *Layout) *LayoutView {
	return &LayoutView{layout: l, ctx: c}
}

// Items returns the item collection view.
func (c *ViewContext) Items() *ItemCollectionView {
	return &ItemCollectionView{ctx: c}
}

// Layouts returns the layout collection view.
func (c *ViewContext) Layouts() *LayoutCollectionView {
	return &LayoutCollectionView{ctx: c}
}

// Config returns the config view.
func (c *ViewContext) Config() *ConfigView {
	return &ConfigView{ctx: c}
}

// ItemView is the read-only, dependency-tracking face of an item.
type ItemView struct {
	item *Item
	ctx  *ViewContext
}

// Identifier returns the identifier. Reading it records no dependency.
func (v *ItemView) Identifier() ir.Identifier { return v.item.identifier }

// Unwrap returns the underlying item.
func (v *ItemView) Unwrap() *Item { return v.item }

// Binary reports whether the raw content is binary.
func (v *ItemView) Binary() bool { return v.item.content.IsBinary() }

// Attribute returns one attribute and records a dependency on that key.
func (v *ItemView) Attribute(key string) (ir.IRValue, bool) {
	v.ctx.bounce(v.item.Reference(), ir.AttributeProps(key))
	return v.item.Attribute(key)
}

// AttributeString returns a string attribute, or "".
func (v *ItemView) AttributeString(key string) string {
	val, _ := v.Attribute(key)
	s, _ := val.(ir.IRString)
	return string(s)
}

// Attributes returns every attribute and records a dependency on all of them.
func (v *ItemView) Attributes() ir.IRObject {
	v.ctx.bounce(v.item.Reference(), ir.PropsAttributes)
	return v.item.Attributes()
}

// RawContent returns the raw textual content.
func (v *ItemView) RawContent() (string, error) {
	v.ctx.bounce(v.item.Reference(), ir.PropsRawContent)
	return v.item.content.Text()
}

// Reps returns views of every rep of the item.
func (v *ItemView) Reps() []*RepView {
	var out []*RepView
	if v.ctx.Reps == nil {
		return out
	}
	for _, r := range v.ctx.Reps.ForItem(v.item.identifier) {
		out = append(out, &RepView{rep: r, ctx: v.ctx})
	}
	return out
}

// Rep returns a view of the rep named name.
func (v *ItemView) Rep(name string) (*RepView, error) {
	if v.ctx.Reps != nil {
		if r, ok := v.ctx.Reps.Get(v.item.identifier, name); ok {
			return &RepView{rep: r, ctx: v.ctx}, nil
		}
	}
	return nil, fmt.Errorf("item %s has no rep %q", v.item.identifier, name)
}

// CompiledContent returns the compiled content of the default rep.
// An empty snapshot selects the default snapshot.
func (v *ItemView) CompiledContent(snapshot string) (string, error) {
	rep, err := v.Rep(DefaultRep)
	if err != nil {
		return "", err
	}
	return rep.CompiledContent(snapshot)
}

// Path returns the routed path of the default rep's last snapshot.
func (v *ItemView) Path() (string, error) {
	rep, err := v.Rep(DefaultRep)
	if err != nil {
		return "", err
	}
	return rep.Path(SnapshotLast), nil
}

// Parent returns the parent item, if any.
func (v *ItemView) Parent() (*ItemView, bool) {
	p, ok := v.ctx.Site.Parent(v.item)
	if !ok {
		return nil, false
	}
	return v.ctx.Item(p), true
}

// Children returns the child items.
func (v *ItemView) Children() []*ItemView {
	v.ctx.bounce(ir.ItemsRef, ir.PropsRawContent)
	var out []*ItemView
	for _, c := range v.ctx.Site.Children(v.item) {
		out = append(out, v.ctx.Item(c))
	}
	return out
}

// RepView is the read-only, dependency-tracking face of a rep.
type RepView struct {
	rep *ItemRep
	ctx *ViewContext
}

// Name returns the rep name.
func (v *RepView) Name() string { return v.rep.name }

// Unwrap returns the underlying rep.
func (v *RepView) Unwrap() *ItemRep { return v.rep }

// Item returns a view of the rep's item.
func (v *RepView) Item() *ItemView { return v.ctx.Item(v.rep.item) }

// Path returns the routed path of snapshot ("" selects last) and records
// a path dependency.
func (v *RepView) Path(snapshot string) string {
	if snapshot == "" {
		snapshot = SnapshotLast
	}
	v.ctx.bounce(v.rep.item.Reference(), ir.PropsPath)
	return v.rep.Path(snapshot)
}

// CompiledContent returns the compiled content of snapshot and records a
// compiled_content dependency. An empty snapshot selects the default.
func (v *RepView) CompiledContent(snapshot string) (string, error) {
	v.ctx.bounce(v.rep.item.Reference(), ir.PropsCompiledContent)
	if v.ctx.Content == nil {
		return "", ErrNoCompiledContent
	}
	c, err := v.ctx.Content.CompiledContent(v.rep, snapshot)
	if err != nil {
		return "", err
	}
	return c.Text()
}

// LayoutView is the read-only, dependency-tracking face of a layout.
type LayoutView struct {
	layout *Layout
	ctx    *ViewContext
}

// Identifier returns the identifier. Reading it records no dependency.
func (v *LayoutView) Identifier() ir.Identifier { return v.layout.identifier }

// Attribute returns one attribute and records a dependency on that key.
func (v *LayoutView) Attribute(key string) (ir.IRValue, bool) {
	v.ctx.bounce(v.layout.Reference(), ir.AttributeProps(key))
	return v.layout.Attribute(key)
}

// RawContent returns the raw layout content.
func (v *LayoutView) RawContent() (string, error) {
	v.ctx.bounce(v.layout.Reference(), ir.PropsRawContent)
	return v.layout.content.Text()
}

// ItemCollectionView gives access to every item. Enumerating the collection
// records a dependency on it, so adding or removing items outdates the reader.
type ItemCollectionView struct {
	ctx *ViewContext
}

// All returns every item.
func (c *ItemCollectionView) All() []*ItemView {
	c.ctx.bounce(ir.ItemsRef, ir.PropsRawContent)
	items := c.ctx.Site.Items()
	out := make([]*ItemView, len(items))
	for i, it := range items {
		out[i] = c.ctx.Item(it)
	}
	return out
}

// Find returns the items matching pattern.
func (c *ItemCollectionView) Find(pattern string) ([]*ItemView, error) {
	p, err := ir.CompilePattern(pattern)
	if err != nil {
		return nil, err
	}
	c.ctx.bounce(ir.ItemsRef, ir.PropsRawContent)
	var out []*ItemView
	for _, it := range c.ctx.Site.Items() {
		if p.Match(it.identifier) {
			out = append(out, c.ctx.Item(it))
		}
	}
	return out, nil
}

// Get returns the item with id. A miss records a collection dependency, so
// the reader is recompiled once the item appears.
func (c *ItemCollectionView) Get(id ir.Identifier) (*ItemView, bool) {
	it, ok := c.ctx.Site.Item(id)
	if !ok {
		c.ctx.bounce(ir.ItemsRef, ir.PropsRawContent)
		return nil, false
	}
	return c.ctx.Item(it), true
}

// LayoutCollectionView gives access to every layout.
type LayoutCollectionView struct {
	ctx *ViewContext
}

// All returns every layout.
func (c *LayoutCollectionView) All() []*LayoutView {
	c.ctx.bounce(ir.LayoutsRef, ir.PropsRawContent)
	layouts := c.ctx.Site.Layouts()
	out := make([]*LayoutView, len(layouts))
	for i, l := range layouts {
		out[i] = c.ctx.Layout(l)
	}
	return out
}

// Get returns the layout with id.
func (c *LayoutCollectionView) Get(id ir.Identifier) (*LayoutView, bool) {
	l, ok := c.ctx.Site.Layout(id)
	if !ok {
		c.ctx.bounce(ir.LayoutsRef, ir.PropsRawContent)
		return nil, false
	}
	return c.ctx.Layout(l), true
}

// ConfigView gives access to the site configuration.
type ConfigView struct {
	ctx *ViewContext
}

// Get returns one config value and records a dependency on that key.
func (c *ConfigView) Get(key string) (ir.IRValue, bool) {
	c.ctx.bounce(ir.ConfigRef, ir.AttributeProps(key))
	v, ok := c.ctx.Site.config[key]
	if !ok {
		return nil, false
	}
	return ir.CloneValue(v), true
}

// All returns the whole config and records a dependency on all of it.
func (c *ConfigView) All() ir.IRObject {
	c.ctx.bounce(ir.ConfigRef, ir.PropsAttributes)
	return c.ctx.Site.Config()
}
