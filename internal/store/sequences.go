package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/folio/internal/ir"
)

// LoadActionSequences returns the stored action sequence per rep or layout.
func (s *Store) LoadActionSequences(ctx context.Context) (map[ir.Reference]ir.ActionSequence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref, checksum, body
		FROM action_sequences
		ORDER BY ref ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query action sequences: %w", err)
	}
	defer rows.Close()

	out := make(map[ir.Reference]ir.ActionSequence)
	for rows.Next() {
		var ref, sum, body string
		if err := rows.Scan(&ref, &sum, &body); err != nil {
			return nil, fmt.Errorf("scan action sequence: %w", err)
		}
		seq, err := ir.UnmarshalActionSequence([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("action sequence of %s: %w", ref, err)
		}
		// A body that no longer hashes to its checksum was written by a
		// different serialization; treat it as absent.
		if got, err := seq.Checksum(); err != nil || got != sum {
			continue
		}
		out[ir.Reference(ref)] = seq
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action sequences: %w", err)
	}
	return out, nil
}

// SaveActionSequences replaces all stored action sequences.
func (s *Store) SaveActionSequences(ctx context.Context, seqs map[ir.Reference]ir.ActionSequence) error {
	return s.inTx(ctx, "action_sequences", func(tx *sql.Tx) error {
		return saveActionSequences(ctx, tx, seqs)
	})
}

func saveActionSequences(ctx context.Context, tx *sql.Tx, seqs map[ir.Reference]ir.ActionSequence) error {
	return replaceTable(ctx, tx, "action_sequences", func() error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO action_sequences (ref, checksum, body)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare action sequence insert: %w", err)
		}
		defer stmt.Close()

		for ref, seq := range seqs {
			body, err := seq.MarshalCanonical()
			if err != nil {
				return fmt.Errorf("encode action sequence of %s: %w", ref, err)
			}
			sum, err := seq.Checksum()
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, string(ref), sum, string(body)); err != nil {
				return fmt.Errorf("insert action sequence %s: %w", ref, err)
			}
		}
		return nil
	})
}
