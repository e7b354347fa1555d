package rules

import (
	"context"

	"github.com/roach88/folio/internal/ir"
	"github.com/roach88/folio/internal/site"
)

// Provider is what the pipeline needs from the rules.
type Provider interface {
	// RepNamesFor returns the rep names an item is compiled into.
	RepNamesFor(item *site.Item) []string

	// ActionSequenceForRep derives a rep's action sequence. view must not
	// track dependencies.
	ActionSequenceForRep(view *site.ViewContext, rep *site.ItemRep) (ir.ActionSequence, error)

	// ActionSequenceForLayout derives a layout's action sequence.
	ActionSequenceForLayout(layout *site.Layout) (ir.ActionSequence, error)

	// Preprocess runs against the mutable draft before it is frozen.
	Preprocess(ctx context.Context, draft *site.Draft) error

	// Postprocess runs after compilation.
	Postprocess(ctx context.Context, view *site.ViewContext) error

	// CodeSnippets returns code whose change outdates every rep.
	CodeSnippets() []CodeSnippet
}

var _ Provider = (*Collection)(nil)
