package store

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/glyph/internal/card"
)

var ledgerSets = []card.LedgerSet{card.SetAccepted, card.SetPendingReview, card.SetNeedsRevision}

// LoadLedger reads all ledger entries, each set in insertion order.
func (s *Store) LoadLedger(ctx context.Context) (card.Ledger, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT card_key, ledger_set, entry
		FROM ledger_entries
		ORDER BY seq ASC, card_key COLLATE BINARY ASC
	`)
	if err != nil {
		return card.Ledger{}, fmt.Errorf("load ledger: %w", err)
	}
	defer rows.Close()

	var l card.Ledger
	for rows.Next() {
		var key, set, doc string
		if err := rows.Scan(&key, &set, &doc); err != nil {
			return card.Ledger{}, fmt.Errorf("scan ledger entry: %w", err)
		}
		var e card.LedgerEntry
		if err := yaml.Unmarshal([]byte(doc), &e); err != nil {
			return card.Ledger{}, fmt.Errorf("decode ledger entry %s: %w", key, err)
		}
		if e.ID.IsZero() {
			e.ID = card.ParseKey(key)
		}
		l.Place(card.LedgerSet(set), e)
	}
	if err := rows.Err(); err != nil {
		return card.Ledger{}, fmt.Errorf("iterate ledger: %w", err)
	}
	return l, nil
}

// SaveLedger replaces the stored ledger in one transaction. When an id
// appears in more than one set, the last set written wins.
func (s *Store) SaveLedger(ctx context.Context, l card.Ledger) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_entries`); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}

	seq := 0
	for _, set := range ledgerSets {
		for _, e := range l.Entries(set) {
			if e.ID.IsZero() {
				continue
			}
			doc, err := yaml.Marshal(e)
			if err != nil {
				return fmt.Errorf("save ledger entry %s: %w", e.ID, err)
			}
			seq++
			_, err = tx.ExecContext(ctx, `
				INSERT INTO ledger_entries (card_key, ledger_set, seq, entry)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(card_key) DO UPDATE SET
					ledger_set = excluded.ledger_set,
					seq = excluded.seq,
					entry = excluded.entry
			`, e.ID.Key(), string(set), seq, string(doc))
			if err != nil {
				return fmt.Errorf("save ledger entry %s: %w", e.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}
