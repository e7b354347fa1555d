package outdated

import (
	"time"

	"github.com/roach88/folio/internal/checksum"
	"github.com/roach88/folio/internal/deps"
	"github.com/roach88/folio/internal/events"
	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/site"
)

// Checker decides which reps must be recompiled.
//
// The rep chain is: not compiled before, code snippets modified, content
// modified, attributes modified, rules modified, dependencies outdated, not
// written. The first rule that fires gives the rep's reason.
//
// A dependency makes its dependent outdated when the dependency's basic
// status (every rule except dependencies) affects a property recorded on
// the edge, when the dependency was removed, or when the edge reads
// compiled content of an item that is itself outdated through its own
// dependencies. Recursion keeps a visited set per query, so a cycle counts
// as not outdated through that path.
type Checker struct {
	site      *site.Site
	reps      *site.RepRepository
	checksums *checksum.Store
	sequences *SequenceStore
	deps      *deps.Store
	snippets  []ir.Reference
	sink      events.Sink

	fileExists func(string) bool
	rules      []repRule

	basic   map[ir.Reference]Status
	reasons map[ir.Reference]*Reason
	viaDeps map[ir.Reference]bool
}

// Options configures a Checker.
type Options struct {
	Site      *site.Site
	Reps      *site.RepRepository
	Checksums *checksum.Store
	Sequences *SequenceStore
	Deps      *deps.Store
	// Snippets lists the code snippet references whose change outdates
	// every rep.
	Snippets []ir.Reference
	Sink     events.Sink
	// FileExists defaults to os.Stat.
	FileExists func(string) bool
}

// NewChecker returns a checker. Checksums and sequences must hold this
// run's values before the first query.
func NewChecker(opts Options) *Checker {
	c := &Checker{
		site:       opts.Site,
		reps:       opts.Reps,
		checksums:  opts.Checksums,
		sequences:  opts.Sequences,
		deps:       opts.Deps,
		snippets:   opts.Snippets,
		sink:       events.OrNop(opts.Sink),
		fileExists: opts.FileExists,
		rules:      repRules(),
		basic:      map[ir.Reference]Status{},
		reasons:    map[ir.Reference]*Reason{},
		viaDeps:    map[ir.Reference]bool{},
	}
	if c.fileExists == nil {
		c.fileExists = fileExists
	}
	return c
}

// ReasonFor returns why rep is outdated, or false when it is up to date.
func (c *Checker) ReasonFor(rep *site.ItemRep) (Reason, bool) {
	ref := rep.Reference()
	if r, ok := c.reasons[ref]; ok {
		if r == nil {
			return Reason{}, false
		}
		return *r, true
	}

	for _, rule := range c.rules {
		start := time.Now()
		reason, fired := rule.apply(c, rep)
		c.sink.OutdatednessRuleEvaluated(string(rule.name), time.Since(start))
		if fired {
			c.reasons[ref] = &reason
			return reason, true
		}
	}
	c.reasons[ref] = nil
	return Reason{}, false
}

// Outdated reports whether rep is outdated.
func (c *Checker) Outdated(rep *site.ItemRep) bool {
	_, ok := c.ReasonFor(rep)
	return ok
}

// LayoutReason returns the first reason a layout is outdated, or false
// when it is up to date.
func (c *Checker) LayoutReason(l *site.Layout) (Reason, bool) {
	st := c.LayoutStatus(l)
	if !st.Outdated() {
		return Reason{}, false
	}
	return st.Reasons[0], true
}

// LayoutStatus returns the status of a layout.
func (c *Checker) LayoutStatus(l *site.Layout) Status {
	return c.basicStatus(l.Reference())
}

// basicStatus evaluates every rule but dependencies for ref.
func (c *Checker) basicStatus(ref ir.Reference) Status {
	if st, ok := c.basic[ref]; ok {
		return st
	}

	var st Status
	try := func(r Reason, fired bool) {
		if fired {
			st.add(r)
		}
	}

	switch ref.Kind() {
	case ir.KindItem:
		reps := c.reps.ForItem(ref.Identifier())
		if len(reps) == 0 {
			try(c.notCompiledBefore(ref))
			try(c.contentModified(ref))
			try(c.attributesModified(ref, AttributesModified))
		}
		for _, rep := range reps {
			st.merge(c.repBasicStatus(rep))
		}
	case ir.KindLayout:
		try(c.notCompiledBefore(ref))
		try(c.contentModified(ref))
		try(c.attributesModified(ref, AttributesModified))
		try(c.rulesModified(ref))
	case ir.KindConfig:
		try(c.notCompiledBefore(ref))
		try(c.attributesModified(ref, ConfigModified))
	case ir.KindItems, ir.KindLayouts:
		try(c.notCompiledBefore(ref))
		try(c.collectionModified(ref))
	}

	c.basic[ref] = st
	return st
}

func (c *Checker) repBasicStatus(rep *site.ItemRep) Status {
	var st Status
	for _, rule := range c.rules {
		if rule.name == DependenciesOutdated {
			continue
		}
		if r, fired := rule.apply(c, rep); fired {
			st.add(r)
		}
	}
	return st
}

// dependenciesOutdated reports whether item is outdated because of its
// recorded dependencies. visiting holds the items of the current query.
func (c *Checker) dependenciesOutdated(item ir.Reference, visiting map[ir.Reference]bool) bool {
	if visiting[item] {
		return false
	}
	top := len(visiting) == 0
	if top {
		if v, ok := c.viaDeps[item]; ok {
			return v
		}
	}
	visiting[item] = true

	result := false
	for _, d := range c.deps.DependenciesOf(item) {
		if c.dependencyCausesOutdatedness(d) {
			result = true
			break
		}
		if d.Props.CompiledContent && d.Dependency.Kind() == ir.KindItem &&
			c.dependenciesOutdated(d.Dependency, visiting) {
			result = true
			break
		}
	}

	if top {
		c.viaDeps[item] = result
	}
	return result
}

func (c *Checker) dependencyCausesOutdatedness(d deps.Dependency) bool {
	if d.Removed {
		return true
	}
	st := c.basicStatus(d.Dependency)
	return st.Outdated() && st.Props.Intersects(d.Props)
}
