package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/glyph/internal/card"
)

// createTestStore opens a fresh database in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCard builds a card with a numeric id.
func createTestCard(id uint64, status card.Status, parents ...any) card.Card {
	return card.Card{
		ID:      card.Numeric(id),
		Title:   "card " + card.Numeric(id).String(),
		Status:  status,
		Parents: card.Parents(parents...),
	}
}
