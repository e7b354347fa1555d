package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/folio/internal/ir"
)

// ChecksumRecord holds the checksums of one object from a previous run.
// Content and Attributes are empty for objects that have only a full
// checksum (reps, config, code snippets).
type ChecksumRecord struct {
	Full          string
	Content       string
	Attributes    string
	AttributeSums map[string]string
}

// LoadChecksums returns every stored checksum record keyed by reference.
func (s *Store) LoadChecksums(ctx context.Context) (map[ir.Reference]ChecksumRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref, full_sum, content_sum, attributes_sum, attribute_sums
		FROM checksums
		ORDER BY ref ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[ir.Reference]ChecksumRecord)
	for rows.Next() {
		var ref, attrSums string
		var rec ChecksumRecord
		if err := rows.Scan(&ref, &rec.Full, &rec.Content, &rec.Attributes, &attrSums); err != nil {
			return nil, fmt.Errorf("scan checksum: %w", err)
		}
		if err := json.Unmarshal([]byte(attrSums), &rec.AttributeSums); err != nil {
			return nil, fmt.Errorf("decode attribute sums of %s: %w", ref, err)
		}
		out[ir.Reference(ref)] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checksums: %w", err)
	}
	return out, nil
}

// SaveChecksums replaces all stored checksums with records.
func (s *Store) SaveChecksums(ctx context.Context, records map[ir.Reference]ChecksumRecord) error {
	return s.inTx(ctx, "checksums", func(tx *sql.Tx) error {
		return saveChecksums(ctx, tx, records)
	})
}

func saveChecksums(ctx context.Context, tx *sql.Tx, records map[ir.Reference]ChecksumRecord) error {
	return replaceTable(ctx, tx, "checksums", func() error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO checksums (ref, full_sum, content_sum, attributes_sum, attribute_sums)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare checksum insert: %w", err)
		}
		defer stmt.Close()

		for ref, rec := range records {
			sums := rec.AttributeSums
			if sums == nil {
				sums = map[string]string{}
			}
			// encoding/json sorts map keys, so the column is deterministic.
			attrSums, err := json.Marshal(sums)
			if err != nil {
				return fmt.Errorf("encode attribute sums of %s: %w", ref, err)
			}
			if _, err := stmt.ExecContext(ctx, string(ref), rec.Full, rec.Content, rec.Attributes, string(attrSums)); err != nil {
				return fmt.Errorf("insert checksum %s: %w", ref, err)
			}
		}
		return nil
	})
}
