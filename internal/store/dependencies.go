package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/folio/internal/ir"
)

// DependencyRecord is one stored dependency edge: compiling Dependent read
// Props of Dependency.
type DependencyRecord struct {
	Dependent  ir.Reference
	Dependency ir.Reference
	Props      ir.Props
}

// LoadDependencies returns every stored edge ordered by (dependent, dependency).
func (s *Store) LoadDependencies(ctx context.Context) ([]DependencyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dependent, dependency, props
		FROM dependencies
		ORDER BY dependent ASC, dependency ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()

	var out []DependencyRecord
	for rows.Next() {
		var dependent, dependency, props string
		if err := rows.Scan(&dependent, &dependency, &props); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		rec := DependencyRecord{
			Dependent:  ir.Reference(dependent),
			Dependency: ir.Reference(dependency),
		}
		if err := json.Unmarshal([]byte(props), &rec.Props); err != nil {
			return nil, fmt.Errorf("decode props of %s -> %s: %w", dependent, dependency, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dependencies: %w", err)
	}
	return out, nil
}

// SaveDependencies replaces all stored edges with records. Duplicate
// (dependent, dependency) pairs have their props merged.
func (s *Store) SaveDependencies(ctx context.Context, records []DependencyRecord) error {
	return s.inTx(ctx, "dependencies", func(tx *sql.Tx) error {
		return saveDependencies(ctx, tx, records)
	})
}

func saveDependencies(ctx context.Context, tx *sql.Tx, records []DependencyRecord) error {
	type key struct{ from, to ir.Reference }
	merged := make(map[key]ir.Props, len(records))
	order := make([]key, 0, len(records))
	for _, rec := range records {
		k := key{rec.Dependent, rec.Dependency}
		if prev, ok := merged[k]; ok {
			merged[k] = prev.Merge(rec.Props)
			continue
		}
		merged[k] = rec.Props
		order = append(order, k)
	}

	return replaceTable(ctx, tx, "dependencies", func() error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO dependencies (dependent, dependency, props)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare dependency insert: %w", err)
		}
		defer stmt.Close()

		for _, k := range order {
			props, err := json.Marshal(merged[k])
			if err != nil {
				return fmt.Errorf("encode props of %s -> %s: %w", k.from, k.to, err)
			}
			if _, err := stmt.ExecContext(ctx, string(k.from), string(k.to), string(props)); err != nil {
				return fmt.Errorf("insert dependency %s -> %s: %w", k.from, k.to, err)
			}
		}
		return nil
	})
}
