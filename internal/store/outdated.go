package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/roach88/folio/internal/ir"
)

// LoadOutdated returns the references recorded as outdated, sorted.
func (s *Store) LoadOutdated(ctx context.Context) ([]ir.Reference, error) {
	return s.loadRefs(ctx, `SELECT ref FROM outdated ORDER BY ref ASC`)
}

// SaveOutdated replaces the recorded outdated references.
func (s *Store) SaveOutdated(ctx context.Context, refs []ir.Reference) error {
	return s.inTx(ctx, "outdated", func(tx *sql.Tx) error {
		return saveOutdated(ctx, tx, refs)
	})
}

func saveOutdated(ctx context.Context, tx *sql.Tx, refs []ir.Reference) error {
	refs = slices.Clone(refs)
	slices.Sort(refs)
	refs = slices.Compact(refs)

	return replaceTable(ctx, tx, "outdated", func() error {
		for _, ref := range refs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO outdated (ref) VALUES (?)`, string(ref)); err != nil {
				return fmt.Errorf("insert outdated %s: %w", ref, err)
			}
		}
		return nil
	})
}

// LoadOutputPaths returns the output files written per rep by the previous run.
func (s *Store) LoadOutputPaths(ctx context.Context) (map[ir.Reference][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref, path
		FROM output_paths
		ORDER BY ref ASC, path ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query output paths: %w", err)
	}
	defer rows.Close()

	out := make(map[ir.Reference][]string)
	for rows.Next() {
		var ref, path string
		if err := rows.Scan(&ref, &path); err != nil {
			return nil, fmt.Errorf("scan output path: %w", err)
		}
		out[ir.Reference(ref)] = append(out[ir.Reference(ref)], path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate output paths: %w", err)
	}
	return out, nil
}

// SaveOutputPaths replaces the recorded output files.
func (s *Store) SaveOutputPaths(ctx context.Context, paths map[ir.Reference][]string) error {
	return s.inTx(ctx, "output_paths", func(tx *sql.Tx) error {
		return saveOutputPaths(ctx, tx, paths)
	})
}

func saveOutputPaths(ctx context.Context, tx *sql.Tx, paths map[ir.Reference][]string) error {
	return replaceTable(ctx, tx, "output_paths", func() error {
		for ref, ps := range paths {
			for _, p := range ps {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO output_paths (ref, path) VALUES (?, ?)
					ON CONFLICT(ref, path) DO NOTHING
				`, string(ref), p); err != nil {
					return fmt.Errorf("insert output path %s %s: %w", ref, p, err)
				}
			}
		}
		return nil
	})
}

func (s *Store) loadRefs(ctx context.Context, query string) ([]ir.Reference, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query refs: %w", err)
	}
	defer rows.Close()

	var out []ir.Reference
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scan ref: %w", err)
		}
		out = append(out, ir.Reference(ref))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refs: %w", err)
	}
	return out, nil
}
