package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/schema"
)

// ErrCardNotFound is returned when an operation names an id with no row.
var ErrCardNotFound = errors.New("card not found")

// LoadCards returns every active card in insertion order.
// Rows whose document no longer decodes are skipped.
func (s *Store) LoadCards(ctx context.Context) ([]card.Card, error) {
	cards, err := s.queryCards(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	return cards, nil
}

// ListArchived returns every archived card in insertion order.
func (s *Store) ListArchived(ctx context.Context) ([]card.Card, error) {
	cards, err := s.queryCards(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list archived: %w", err)
	}
	return cards, nil
}

func (s *Store) queryCards(ctx context.Context, archived bool) ([]card.Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT card_key, document
		FROM cards
		WHERE archived = ?
		ORDER BY seq ASC, card_key COLLATE BINARY ASC
	`, boolToInt(archived))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []card.Card
	for rows.Next() {
		var key, doc string
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c, err := unmarshalCard(doc)
		if err != nil {
			s.logger.Warn("skipping card row", "key", key, "error", err)
			continue
		}
		if c.ID.IsZero() {
			c.ID = card.ParseKey(key)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

// SaveCard inserts c or replaces the stored document for its id. An
// existing row keeps its position and archive flag.
func (s *Store) SaveCard(ctx context.Context, c card.Card) error {
	if c.ID.IsZero() {
		return errors.New("save card: card has no id")
	}
	doc, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("save card %s: %w", c.ID, err)
	}

	var num sql.NullInt64
	if n, ok := c.ID.Num(); ok && n <= 1<<63-1 {
		num = sql.NullInt64{Int64: int64(n), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cards (card_key, seq, num, project, status, document)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM cards), ?, ?, ?, ?)
		ON CONFLICT(card_key) DO UPDATE SET
			num = excluded.num,
			project = excluded.project,
			status = excluded.status,
			document = excluded.document
	`,
		c.ID.Key(),
		num,
		c.Project,
		string(c.Status),
		string(doc),
	)
	if err != nil {
		return fmt.Errorf("save card %s: %w", c.ID, err)
	}
	return nil
}

// ArchiveCard flags an active card as archived.
func (s *Store) ArchiveCard(ctx context.Context, id card.CardID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cards SET archived = 1
		WHERE card_key = ? AND archived = 0
	`, id.Key())
	if err != nil {
		return fmt.Errorf("archive card %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive card %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("archive card %s: %w", id, ErrCardNotFound)
	}
	return nil
}

// Projects returns the distinct non-empty project names of active cards.
func (s *Store) Projects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT project FROM cards
		WHERE archived = 0 AND project != ''
		ORDER BY project ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("projects: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RawDocuments parses every active card document into a generic map.
func (s *Store) RawDocuments(ctx context.Context) ([]schema.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT card_key, document FROM cards
		WHERE archived = 0
		ORDER BY seq ASC, card_key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("raw documents: %w", err)
	}
	defer rows.Close()

	var docs []schema.Document
	for rows.Next() {
		var key, text string
		if err := rows.Scan(&key, &text); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc := schema.Document{Source: "cards/" + key}
		doc.Err = yaml.Unmarshal([]byte(text), &doc.Data)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func unmarshalCard(doc string) (card.Card, error) {
	var c card.Card
	if err := yaml.Unmarshal([]byte(doc), &c); err != nil {
		return card.Card{}, err
	}
	if c.Status == "" {
		c.Status = card.StatusAvailable
	}
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
