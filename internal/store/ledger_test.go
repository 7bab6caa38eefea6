package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/glyph/internal/card"
)

func TestLedger_EmptyByDefault(t *testing.T) {
	s := createTestStore(t)
	l, err := s.LoadLedger(context.Background())
	require.NoError(t, err)
	assert.Empty(t, l.Accepted)
	assert.Empty(t, l.PendingReview)
	assert.Empty(t, l.NeedsRevision)
}

func TestLedger_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

	var l card.Ledger
	l.Place(card.SetAccepted, card.LedgerEntry{ID: card.Numeric(1), Reviewer: "pm", Timestamp: ts})
	l.Place(card.SetAccepted, card.LedgerEntry{ID: card.Numeric(4)})
	l.Place(card.SetPendingReview, card.LedgerEntry{ID: card.Numeric(2), Assignee: "claude"})
	l.Place(card.SetNeedsRevision, card.LedgerEntry{ID: card.ParseID("spike"), Notes: "add tests"})
	require.NoError(t, s.SaveLedger(ctx, l))

	got, err := s.LoadLedger(ctx)
	require.NoError(t, err)
	require.Len(t, got.Accepted, 2)
	assert.Equal(t, card.Numeric(1), got.Accepted[0].ID)
	assert.Equal(t, card.Numeric(4), got.Accepted[1].ID)
	assert.Equal(t, ts, got.Accepted[0].Timestamp)
	assert.Equal(t, "claude", got.PendingReview[0].Assignee)
	assert.Equal(t, "add tests", got.NeedsRevision[0].Notes)
}

func TestLedger_SaveReplaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var l card.Ledger
	l.Place(card.SetPendingReview, card.LedgerEntry{ID: card.Numeric(2)})
	require.NoError(t, s.SaveLedger(ctx, l))

	l.Place(card.SetAccepted, card.LedgerEntry{ID: card.Numeric(2)})
	require.NoError(t, s.SaveLedger(ctx, l))

	got, err := s.LoadLedger(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsAccepted(card.Numeric(2)))
	assert.Empty(t, got.PendingReview)
	assert.Empty(t, got.Conflicts())
}

func TestLedger_ConflictingInputCollapses(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	l := card.Ledger{
		Accepted:      []card.LedgerEntry{{ID: card.Numeric(5)}},
		NeedsRevision: []card.LedgerEntry{{ID: card.Numeric(5)}},
	}
	require.NoError(t, s.SaveLedger(ctx, l))

	got, err := s.LoadLedger(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Accepted)
	assert.Len(t, got.NeedsRevision, 1)
}
