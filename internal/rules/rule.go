package rules

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/site"
)

// CompileFunc is the body of a compile rule.
type CompileFunc func(ctx *RecordingContext, item *site.ItemView) error

// RouteFunc returns the output path of a snapshot, or "" for none.
type RouteFunc func(item *site.ItemView, rep, snapshot string) (string, error)

// CompileRule says how a rep of the matching items is compiled.
type CompileRule struct {
	Pattern ir.Pattern
	Rep     string
	Body    CompileFunc
}

// RoutingRule says where a snapshot of the matching items is written.
type RoutingRule struct {
	Pattern  ir.Pattern
	Rep      string
	Snapshot string
	Route    RouteFunc
}

// LayoutRule names the filter that renders the matching layouts.
type LayoutRule struct {
	Pattern ir.Pattern
	Filter  string
	Params  ir.IRObject
}

// CodeSnippet is user code whose change outdates every rep, such as the
// rules file itself.
type CodeSnippet struct {
	Name   string
	Source string
}

// Collection is an ordered set of rules. The first matching rule wins.
type Collection struct {
	compile []CompileRule
	route   []RoutingRule
	layout  []LayoutRule

	// PreprocessFunc runs against the draft before it is frozen.
	PreprocessFunc func(ctx context.Context, draft *site.Draft) error

	// PostprocessFunc runs after compilation against a non-tracking view.
	PostprocessFunc func(ctx context.Context, view *site.ViewContext) error

	// Snippets are checksummed to detect code changes.
	Snippets []CodeSnippet
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{}
}

// Compile appends a compile rule. An empty rep means the default rep.
func (c *Collection) Compile(pattern, rep string, body CompileFunc) error {
	p, err := ir.CompilePattern(pattern)
	if err != nil {
		return fmt.Errorf("compile rule: %w", err)
	}
	c.compile = append(c.compile, CompileRule{Pattern: p, Rep: orDefault(rep, site.DefaultRep), Body: body})
	return nil
}

// Route appends a routing rule. An empty rep means the default rep; an
// empty snapshot means the last snapshot.
func (c *Collection) Route(pattern, rep, snapshot string, fn RouteFunc) error {
	p, err := ir.CompilePattern(pattern)
	if err != nil {
		return fmt.Errorf("routing rule: %w", err)
	}
	c.route = append(c.route, RoutingRule{
		Pattern:  p,
		Rep:      orDefault(rep, site.DefaultRep),
		Snapshot: orDefault(snapshot, site.SnapshotLast),
		Route:    fn,
	})
	return nil
}

// Layout appends a layout rule.
func (c *Collection) Layout(pattern, filter string, params ir.IRObject) error {
	p, err := ir.CompilePattern(pattern)
	if err != nil {
		return fmt.Errorf("layout rule: %w", err)
	}
	if filter == "" {
		return fmt.Errorf("layout rule %q: filter is required", pattern)
	}
	c.layout = append(c.layout, LayoutRule{Pattern: p, Filter: filter, Params: params.Clone()})
	return nil
}

// CompileRuleFor returns the first compile rule matching id and rep.
func (c *Collection) CompileRuleFor(id ir.Identifier, rep string) (CompileRule, bool) {
	for _, r := range c.compile {
		if r.Rep == rep && r.Pattern.Match(id) {
			return r, true
		}
	}
	return CompileRule{}, false
}

// RoutingRuleFor returns the first routing rule matching id, rep and snapshot.
func (c *Collection) RoutingRuleFor(id ir.Identifier, rep, snapshot string) (RoutingRule, bool) {
	for _, r := range c.route {
		if r.Rep == rep && r.Snapshot == snapshot && r.Pattern.Match(id) {
			return r, true
		}
	}
	return RoutingRule{}, false
}

// LayoutRuleFor returns the first layout rule matching id.
func (c *Collection) LayoutRuleFor(id ir.Identifier) (LayoutRule, bool) {
	for _, r := range c.layout {
		if r.Pattern.Match(id) {
			return r, true
		}
	}
	return LayoutRule{}, false
}

// RepNamesFor implements Provider: the distinct rep names of every compile
// rule matching the item, in rule order.
func (c *Collection) RepNamesFor(item *site.Item) []string {
	var names []string
	for _, r := range c.compile {
		if r.Pattern.Match(item.Identifier()) && !slices.Contains(names, r.Rep) {
			names = append(names, r.Rep)
		}
	}
	return names
}

// Preprocess implements Provider.
func (c *Collection) Preprocess(ctx context.Context, draft *site.Draft) error {
	if c.PreprocessFunc == nil {
		return nil
	}
	return c.PreprocessFunc(ctx, draft)
}

// Postprocess implements Provider.
func (c *Collection) Postprocess(ctx context.Context, view *site.ViewContext) error {
	if c.PostprocessFunc == nil {
		return nil
	}
	return c.PostprocessFunc(ctx, view)
}

// CodeSnippets implements Provider.
func (c *Collection) CodeSnippets() []CodeSnippet {
	return slices.Clone(c.Snippets)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
