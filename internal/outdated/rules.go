package outdated

import (
	"os"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/site"
)

// repRule is one link of the rep rule chain. apply reports a reason when
// the rule fires for rep.
type repRule struct {
	name  ReasonKind
	apply func(c *Checker, rep *site.ItemRep) (Reason, bool)
}

// repRules returns the chain in evaluation order; the first firing rule
// gives the reason. The dependencies rule is only part of the full chain,
// not of the basic status used when rep's item is itself a dependency.
func repRules() []repRule {
	return []repRule{
		{NotCompiledBefore, func(c *Checker, rep *site.ItemRep) (Reason, bool) {
			return c.notCompiledBefore(rep.Item().Reference())
		}},
		{CodeSnippetsModified, func(c *Checker, _ *site.ItemRep) (Reason, bool) {
			return c.codeSnippetsModified()
		}},
		{ContentModified, func(c *Checker, rep *site.ItemRep) (Reason, bool) {
			return c.contentModified(rep.Item().Reference())
		}},
		{AttributesModified, func(c *Checker, rep *site.ItemRep) (Reason, bool) {
			return c.attributesModified(rep.Item().Reference(), AttributesModified)
		}},
		{RulesModified, func(c *Checker, rep *site.ItemRep) (Reason, bool) {
			return c.rulesModified(rep.Reference())
		}},
		{DependenciesOutdated, func(c *Checker, rep *site.ItemRep) (Reason, bool) {
			if c.dependenciesOutdated(rep.Item().Reference(), map[ir.Reference]bool{}) {
				return Reason{Kind: DependenciesOutdated, Props: ir.PropsCompiledContent}, true
			}
			return Reason{}, false
		}},
		{NotWritten, func(c *Checker, rep *site.ItemRep) (Reason, bool) {
			for _, p := range rep.AllRawPaths() {
				if !c.fileExists(p) {
					return Reason{Kind: NotWritten}, true
				}
			}
			return Reason{}, false
		}},
	}
}

func (c *Checker) notCompiledBefore(ref ir.Reference) (Reason, bool) {
	if _, ok := c.checksums.Previous(ref); ok {
		return Reason{}, false
	}
	return Reason{Kind: NotCompiledBefore, Props: ir.PropsAll}, true
}

func (c *Checker) codeSnippetsModified() (Reason, bool) {
	for _, ref := range c.snippets {
		prev, okPrev := c.checksums.Previous(ref)
		cur, okCur := c.checksums.Current(ref)
		if !okPrev || !okCur || prev.Full != cur.Full {
			return Reason{Kind: CodeSnippetsModified, Props: ir.PropsAll}, true
		}
	}
	return Reason{}, false
}

func (c *Checker) contentModified(ref ir.Reference) (Reason, bool) {
	prev, okPrev := c.checksums.Previous(ref)
	cur, okCur := c.checksums.Current(ref)
	if okPrev && okCur && prev.Content != cur.Content {
		return contentReason(), true
	}
	return Reason{}, false
}

func (c *Checker) attributesModified(ref ir.Reference, kind ReasonKind) (Reason, bool) {
	prev, okPrev := c.checksums.Previous(ref)
	cur, okCur := c.checksums.Current(ref)
	if !okPrev || !okCur || prev.Attributes == cur.Attributes {
		return Reason{}, false
	}
	keys := c.checksums.ChangedAttributes(ref)
	if len(keys) == 0 {
		// Whole-object sums differ but per-key sums agree (e.g. records
		// written without per-key sums): every attribute counts.
		r := attributesReason(kind, nil)
		r.Props.AllAttributes = true
		return r, true
	}
	return attributesReason(kind, keys), true
}

func (c *Checker) rulesModified(ref ir.Reference) (Reason, bool) {
	cur, ok := c.sequences.Current(ref)
	if !ok {
		return Reason{}, false
	}
	prev, ok := c.sequences.Previous(ref)
	if !ok || !prev.Equal(cur) {
		return rulesReason(), true
	}
	return Reason{}, false
}

func (c *Checker) collectionModified(ref ir.Reference) (Reason, bool) {
	prev, okPrev := c.checksums.Previous(ref)
	cur, okCur := c.checksums.Current(ref)
	if okPrev && okCur && prev.Full != cur.Full {
		return Reason{Kind: CollectionModified, Props: ir.Props{RawContent: true, CompiledContent: true}}, true
	}
	return Reason{}, false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
