package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/glyph/internal/card"
)

// MemStore is an in-memory card and ledger store with write-failure
// injection. Cards keep insertion order.
type MemStore struct {
	mu       sync.Mutex
	cards    []card.Card
	archived []card.Card
	ledger   card.Ledger
	failing  map[card.CardID]error
	saves    int
}

// NewMemStore creates a store seeded with cards.
func NewMemStore(cards ...card.Card) *MemStore {
	m := &MemStore{failing: make(map[card.CardID]error)}
	for _, c := range cards {
		m.cards = append(m.cards, c.Clone())
	}
	return m
}

// FailSave makes every SaveCard for id return err. A nil err clears it.
func (m *MemStore) FailSave(id card.CardID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failing, id)
		return
	}
	m.failing[id] = err
}

// SetLedger replaces the stored ledger.
func (m *MemStore) SetLedger(l card.Ledger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger = l.Clone()
}

// Ledger returns a copy of the stored ledger.
func (m *MemStore) Ledger() card.Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.Clone()
}

// Card returns the stored card with id.
func (m *MemStore) Card(id card.CardID) (card.Card, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.ID == id {
			return c.Clone(), true
		}
	}
	return card.Card{}, false
}

// SaveCount returns the number of successful SaveCard calls.
func (m *MemStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// LoadCards returns copies of all active cards.
func (m *MemStore) LoadCards(_ context.Context) ([]card.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]card.Card, 0, len(m.cards))
	for _, c := range m.cards {
		out = append(out, c.Clone())
	}
	return out, nil
}

// SaveCard replaces the card with the same id or appends a new one.
func (m *MemStore) SaveCard(_ context.Context, c card.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failing[c.ID]; ok {
		return err
	}
	m.saves++
	for i := range m.cards {
		if m.cards[i].ID == c.ID {
			m.cards[i] = c.Clone()
			return nil
		}
	}
	m.cards = append(m.cards, c.Clone())
	return nil
}

// LoadLedger returns a copy of the ledger.
func (m *MemStore) LoadLedger(_ context.Context) (card.Ledger, error) {
	return m.Ledger(), nil
}

// SaveLedger replaces the ledger.
func (m *MemStore) SaveLedger(_ context.Context, l card.Ledger) error {
	m.SetLedger(l)
	return nil
}

// ArchiveCard moves an active card to the archive.
func (m *MemStore) ArchiveCard(_ context.Context, id card.CardID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.cards, func(c card.Card) bool { return c.ID == id })
	if i < 0 {
		return fmt.Errorf("archive card %s: not found", id)
	}
	m.archived = append(m.archived, m.cards[i])
	m.cards = slices.Delete(m.cards, i, i+1)
	return nil
}

// ListArchived returns copies of archived cards.
func (m *MemStore) ListArchived(_ context.Context) ([]card.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]card.Card, 0, len(m.archived))
	for _, c := range m.archived {
		out = append(out, c.Clone())
	}
	return out, nil
}
