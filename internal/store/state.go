package store

import (
	"context"
	"database/sql"

	"github.com/roach88/folio/internal/ir"
)

// PreCompilationState is what a compilation compares against next time,
// saved before any rep is compiled.
type PreCompilationState struct {
	Checksums       map[ir.Reference]ChecksumRecord
	ActionSequences map[ir.Reference]ir.ActionSequence
	Outdated        []ir.Reference
}

// SavePreCompilationState replaces checksums, action sequences and the
// outdated set in one transaction. Either all three are stored or none is.
func (s *Store) SavePreCompilationState(ctx context.Context, state PreCompilationState) error {
	return s.inTx(ctx, "pre-compilation state", func(tx *sql.Tx) error {
		if err := saveChecksums(ctx, tx, state.Checksums); err != nil {
			return err
		}
		if err := saveActionSequences(ctx, tx, state.ActionSequences); err != nil {
			return err
		}
		return saveOutdated(ctx, tx, state.Outdated)
	})
}

// PostCompilationState is what a finished compilation recorded.
type PostCompilationState struct {
	Dependencies []DependencyRecord
	Outdated     []ir.Reference
	OutputPaths  map[ir.Reference][]string
}

// SavePostCompilationState replaces dependencies, the outdated set and the
// output paths in one transaction.
func (s *Store) SavePostCompilationState(ctx context.Context, state PostCompilationState) error {
	return s.inTx(ctx, "post-compilation state", func(tx *sql.Tx) error {
		if err := saveDependencies(ctx, tx, state.Dependencies); err != nil {
			return err
		}
		if err := saveOutdated(ctx, tx, state.Outdated); err != nil {
			return err
		}
		return saveOutputPaths(ctx, tx, state.OutputPaths)
	})
}
