package board

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/schema"
	"github.com/roach88/glyph/internal/testutil"
)

func TestArchive(t *testing.T) {
	ctx := context.Background()
	b, store, _ := newTestBoard(t,
		testutil.NewCard(1, card.StatusAccepted),
		testutil.NewCard(2, card.StatusAvailable, 1),
	)
	store.SetLedger(testutil.AcceptedLedger(1))

	_, err := b.Archive(ctx, card.Numeric(2))
	require.ErrorIs(t, err, ErrNotAccepted)

	_, err = b.Archive(ctx, card.Numeric(7))
	require.ErrorIs(t, err, ErrCardNotFound)

	result, err := b.Archive(ctx, card.Numeric(1))
	require.NoError(t, err)
	assert.Equal(t, &ArchiveResult{ID: card.Numeric(1), LedgerEntriesRemoved: 1}, result)
	assert.False(t, store.Ledger().IsAccepted(card.Numeric(1)))

	archived, err := b.ListArchived(ctx)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, card.Numeric(1), archived[0].ID)

	// the child now points at a card that is no longer active
	blocked, err := b.IsBlocked(ctx, card.Numeric(2))
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestCleanupLedger(t *testing.T) {
	ctx := context.Background()
	b, store, _ := newTestBoard(t,
		testutil.NewCard(1, card.StatusAccepted),
		testutil.NewCard(2, card.StatusAccepted),
	)
	require.NoError(t, store.ArchiveCard(ctx, card.Numeric(1)))
	store.SetLedger(testutil.AcceptedLedger(1, 2))

	result, err := b.CleanupLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ArchivedCount)
	assert.Equal(t, []card.CardID{card.Numeric(1)}, result.Removed)

	ledger := store.Ledger()
	assert.False(t, ledger.IsAccepted(card.Numeric(1)))
	assert.True(t, ledger.IsAccepted(card.Numeric(2)))

	result, err = b.CleanupLedger(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Removed)
}

func TestValidate_LedgerAndDuplicates(t *testing.T) {
	ctx := context.Background()
	dup := testutil.NewCard(2, card.StatusAvailable)
	dup.Title = "second two"
	b, store, _ := newTestBoard(t,
		testutil.NewCard(1, card.StatusAccepted),
		testutil.NewCard(2, card.StatusAvailable),
		dup,
	)
	ledger := testutil.AcceptedLedger(1, 40)
	ledger.PendingReview = append(ledger.PendingReview, card.LedgerEntry{ID: card.Numeric(1)})
	store.SetLedger(ledger)

	v, err := schema.NewValidator()
	require.NoError(t, err)

	problems, err := b.Validate(ctx, v)
	require.NoError(t, err)

	codes := map[string]int{}
	for _, p := range problems {
		codes[p.Code]++
	}
	assert.Equal(t, map[string]int{
		schema.ErrDuplicateID:    1,
		schema.ErrLedgerConflict: 1,
		schema.ErrLedgerOrphan:   1,
	}, codes)
}

func TestValidate_Clean(t *testing.T) {
	b, store, _ := newTestBoard(t, testutil.NewCard(1, card.StatusAccepted))
	store.SetLedger(testutil.AcceptedLedger(1))

	v, err := schema.NewValidator()
	require.NoError(t, err)
	problems, err := b.Validate(context.Background(), v)
	require.NoError(t, err)
	assert.Empty(t, problems)
}
