package rules

import (
	"fmt"
	"strings"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/site"
)

// ActionSequenceForRep implements Provider.
//
// The rule body is recorded, then normalized: a raw snapshot is prepended,
// pre is inserted before the first layout (done by RecordingContext.Layout),
// last is appended unless present, snapshot paths are resolved and adjacent
// snapshots are compacted.
func (c *Collection) ActionSequenceForRep(view *site.ViewContext, rep *site.ItemRep) (ir.ActionSequence, error) {
	id := rep.Item().Identifier()
	rule, ok := c.CompileRuleFor(id, rep.Name())
	if !ok {
		return ir.ActionSequence{}, NewNoMatchingCompilationRuleError(string(id), rep.Name())
	}

	itemView := view.Item(rep.Item())
	rc := newRecordingContext(itemView, rep.Name())
	if err := rc.addSnapshot(site.SnapshotRaw, snapshotOptions{mode: pathRouted}); err != nil {
		return ir.ActionSequence{}, err
	}
	if rule.Body != nil {
		if err := rule.Body(rc, itemView); err != nil {
			return ir.ActionSequence{}, fmt.Errorf("compile rule for %s: %w", rep, err)
		}
	}
	if !rc.hasSnapshot(site.SnapshotLast) {
		if err := rc.addSnapshot(site.SnapshotLast, snapshotOptions{mode: pathRouted}); err != nil {
			return ir.ActionSequence{}, err
		}
	}

	actions := make([]ir.Action, 0, len(rc.steps))
	for _, step := range rc.steps {
		switch s := step.(type) {
		case ir.Action:
			actions = append(actions, s)
		case recordedSnapshot:
			paths, err := c.resolvePaths(itemView, rep.Name(), s)
			if err != nil {
				return ir.ActionSequence{}, err
			}
			actions = append(actions, ir.SnapshotAction{Names: []string{s.name}, Paths: paths})
		}
	}
	return ir.NewActionSequence(actions...).Compact(), nil
}

func (c *Collection) resolvePaths(item *site.ItemView, rep string, s recordedSnapshot) ([]string, error) {
	switch s.opts.mode {
	case pathNone:
		return nil, nil
	case pathExplicit:
		return []string{s.opts.path}, nil
	}

	route, ok := c.RoutingRuleFor(item.Identifier(), rep, s.name)
	if !ok || route.Route == nil {
		return nil, nil
	}
	path, err := route.Route(item, rep, s.name)
	if err != nil {
		return nil, fmt.Errorf("routing rule for %s (rep %s, snapshot %s): %w", item.Identifier(), rep, s.name, err)
	}
	if path == "" {
		return nil, nil
	}
	if !strings.HasPrefix(path, "/") {
		return nil, NewPathWithoutInitialSlashError(string(item.Identifier()), rep, path)
	}
	return []string{path}, nil
}

// ActionSequenceForLayout implements Provider. A layout's sequence is the
// single filter action named by the first matching layout rule.
func (c *Collection) ActionSequenceForLayout(layout *site.Layout) (ir.ActionSequence, error) {
	rule, ok := c.LayoutRuleFor(layout.Identifier())
	if !ok {
		return ir.ActionSequence{}, NewUndefinedFilterForLayoutError(string(layout.Identifier()))
	}
	return ir.NewActionSequence(ir.FilterAction{Name: rule.Filter, Params: rule.Params.Clone()}), nil
}

// LayoutFilter returns the filter action of a layout sequence, or
// NoActionSequenceForLayout when the sequence is anything else.
func LayoutFilter(id ir.Identifier, seq ir.ActionSequence) (ir.FilterAction, error) {
	if seq.Len() != 1 {
		return ir.FilterAction{}, NewNoActionSequenceForLayoutError(string(id))
	}
	f, ok := seq.At(0).(ir.FilterAction)
	if !ok {
		return ir.FilterAction{}, NewNoActionSequenceForLayoutError(string(id))
	}
	return f, nil
}

// Calculator memoizes action sequences for one run.
type Calculator struct {
	provider Provider
	view     *site.ViewContext
	reps     map[ir.Reference]ir.ActionSequence
	layouts  map[ir.Reference]ir.ActionSequence
}

// NewCalculator returns a calculator evaluating rules against view, which
// must not track dependencies.
func NewCalculator(provider Provider, view *site.ViewContext) *Calculator {
	return &Calculator{
		provider: provider,
		view:     view,
		reps:     map[ir.Reference]ir.ActionSequence{},
		layouts:  map[ir.Reference]ir.ActionSequence{},
	}
}

// ForRep returns the action sequence of rep, computing it once.
func (c *Calculator) ForRep(rep *site.ItemRep) (ir.ActionSequence, error) {
	ref := rep.Reference()
	if seq, ok := c.reps[ref]; ok {
		return seq, nil
	}
	seq, err := c.provider.ActionSequenceForRep(c.view, rep)
	if err != nil {
		return ir.ActionSequence{}, err
	}
	c.reps[ref] = seq
	return seq, nil
}

// ForLayout returns the action sequence of layout, computing it once.
func (c *Calculator) ForLayout(layout *site.Layout) (ir.ActionSequence, error) {
	ref := layout.Reference()
	if seq, ok := c.layouts[ref]; ok {
		return seq, nil
	}
	seq, err := c.provider.ActionSequenceForLayout(layout)
	if err != nil {
		return ir.ActionSequence{}, err
	}
	c.layouts[ref] = seq
	return seq, nil
}

// All returns every memoized sequence keyed by rep or layout reference.
func (c *Calculator) All() map[ir.Reference]ir.ActionSequence {
	out := make(map[ir.Reference]ir.ActionSequence, len(c.reps)+len(c.layouts))
	for k, v := range c.reps {
		out[k] = v
	}
	for k, v := range c.layouts {
		out[k] = v
	}
	return out
}
