// Package filters defines the filter contract, a registry and the built-in
// filters. The engine sequences filter invocations; it never looks inside.
package filters

import (
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/site"
)

// Kind is the content kind a filter accepts or produces.
type Kind string

const (
	Text   Kind = "text"
	Binary Kind = "binary"
)

// KindOf returns the kind of c.
func KindOf(c ir.Content) Kind {
	if c.IsBinary() {
		return Binary
	}
	return Text
}

// Context is what a filter sees of the site while it runs. Reads through
// its views are recorded as dependencies of the rep being compiled.
type Context struct {
	View *site.ViewContext
	Item *site.ItemView
	Rep  *site.RepView

	// Layout and Content are set when the filter lays out a rep: the filter
	// transforms the layout's content and Content holds the rep's content.
	Layout  *site.LayoutView
	Content string

	// TmpDir receives binary outputs.
	TmpDir string
}

// TempFile creates a file for a binary output.
func (c *Context) TempFile(pattern string) (*os.File, error) {
	if err := os.MkdirAll(c.TmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create filter output directory: %w", err)
	}
	return os.CreateTemp(c.TmpDir, pattern)
}

// Filter transforms content.
type Filter interface {
	Name() string
	// From is the kind of content the filter accepts.
	From() Kind
	// To is the kind of content the filter produces.
	To() Kind
	Run(fctx *Context, content ir.Content, params ir.IRObject) (ir.Content, error)
}

// Func adapts a function to a text-to-text Filter.
type Func struct {
	FilterName string
	Fn         func(fctx *Context, text string, params ir.IRObject) (string, error)
}

var _ Filter = Func{}

// Name implements Filter.
func (f Func) Name() string { return f.FilterName }

// From implements Filter.
func (Func) From() Kind { return Text }

// To implements Filter.
func (Func) To() Kind { return Text }

// Run implements Filter.
func (f Func) Run(fctx *Context, content ir.Content, params ir.IRObject) (ir.Content, error) {
	text, err := content.Text()
	if err != nil {
		return ir.Content{}, err
	}
	out, err := f.Fn(fctx, text, params)
	if err != nil {
		return ir.Content{}, err
	}
	return ir.NewTextualContent(out, ""), nil
}

// Registry maps filter names to filters.
type Registry struct {
	filters map[string]Filter
}

// NewRegistry returns a registry holding filters.
func NewRegistry(filters ...Filter) (*Registry, error) {
	r := &Registry{filters: map[string]Filter{}}
	for _, f := range filters {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds f. Names are unique.
func (r *Registry) Register(f Filter) error {
	if f.Name() == "" {
		return fmt.Errorf("filter name is empty")
	}
	if _, dup := r.filters[f.Name()]; dup {
		return fmt.Errorf("filter %q already registered", f.Name())
	}
	r.filters[f.Name()] = f
	return nil
}

// Get returns the filter named name.
func (r *Registry) Get(name string) (Filter, bool) {
	f, ok := r.filters[name]
	return f, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.filters))
	for n := range r.filters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default returns a registry with the built-in filters plus extra.
func Default(extra ...Filter) (*Registry, error) {
	return NewRegistry(slices.Concat(Builtins(), extra)...)
}
