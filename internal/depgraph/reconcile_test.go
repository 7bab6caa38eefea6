package depgraph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func reconcile(t *testing.T, store *testutil.MemStore, ledger card.Ledger) (*Report, error) {
	t.Helper()
	cards, err := store.LoadCards(context.Background())
	require.NoError(t, err)
	return ReconcileStatuses(context.Background(), store, cards, ledger, WithLogger(quietLogger()))
}

func TestReconcileStatuses_UnblocksWhenParentAccepted(t *testing.T) {
	store := testutil.NewMemStore(
		testutil.NewCard(3, card.StatusAccepted),
		testutil.NewCard(10, card.StatusBlocked, 3),
	)

	report, err := reconcile(t, store, testutil.AcceptedLedger(3))
	require.NoError(t, err)
	assert.Equal(t, []Change{{ID: card.Numeric(10), From: card.StatusBlocked, To: card.StatusAvailable}}, report.Changes)

	saved, ok := store.Card(card.Numeric(10))
	require.True(t, ok)
	assert.Equal(t, card.StatusAvailable, saved.Status)
}

func TestReconcileStatuses_BlocksActiveCards(t *testing.T) {
	store := testutil.NewMemStore(
		testutil.NewCard(1, card.StatusInProgress),
		testutil.NewCard(2, card.StatusAvailable, 1),
		testutil.NewCard(3, card.StatusInProgress, 1),
		testutil.NewCard(4, card.StatusAwaitingAcceptance, 1),
	)

	report, err := reconcile(t, store, card.Ledger{})
	require.NoError(t, err)
	assert.Equal(t, []Change{
		{ID: card.Numeric(2), From: card.StatusAvailable, To: card.StatusBlocked},
		{ID: card.Numeric(3), From: card.StatusInProgress, To: card.StatusBlocked},
		{ID: card.Numeric(4), From: card.StatusAwaitingAcceptance, To: card.StatusBlocked},
	}, report.Changes)
}

func TestReconcileStatuses_Idempotent(t *testing.T) {
	store := testutil.NewMemStore(
		testutil.NewCard(1, card.StatusAccepted),
		testutil.NewCard(2, card.StatusBlocked, 1),
		testutil.NewCard(3, card.StatusAvailable, 2),
		testutil.NewCard(4, card.StatusAvailable, 77),
	)
	ledger := testutil.AcceptedLedger(1)

	first, err := reconcile(t, store, ledger)
	require.NoError(t, err)
	assert.Len(t, first.Changes, 3)

	second, err := reconcile(t, store, ledger)
	require.NoError(t, err)
	assert.Empty(t, second.Changes)
	assert.Equal(t, 3, store.SaveCount())
}

func TestReconcileStatuses_ProtectedStatuses(t *testing.T) {
	store := testutil.NewMemStore(
		testutil.NewCard(1, card.StatusAccepted, 99),
		testutil.NewCard(2, card.StatusNeedsRevision, 99),
	)

	report, err := reconcile(t, store, card.Ledger{})
	require.NoError(t, err)
	assert.Empty(t, report.Changes)
	assert.True(t, report.States[card.Numeric(1)].Blocked)

	c1, _ := store.Card(card.Numeric(1))
	c2, _ := store.Card(card.Numeric(2))
	assert.Equal(t, card.StatusAccepted, c1.Status)
	assert.Equal(t, card.StatusNeedsRevision, c2.Status)
}

func TestReconcileStatuses_PartialFailure(t *testing.T) {
	store := testutil.NewMemStore(
		testutil.NewCard(1, card.StatusAccepted),
		testutil.NewCard(2, card.StatusBlocked, 1),
		testutil.NewCard(3, card.StatusBlocked, 1),
	)
	boom := errors.New("read-only file system")
	store.FailSave(card.Numeric(2), boom)

	report, err := reconcile(t, store, testutil.AcceptedLedger(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	pf, ok := AsPartialFailure(err)
	require.True(t, ok)
	require.Len(t, pf.Failures, 1)
	assert.Equal(t, card.Numeric(2), pf.Failures[0].ID)
	assert.Contains(t, err.Error(), "002 blocked -> available")

	require.NotNil(t, report)
	assert.Equal(t, []Change{{ID: card.Numeric(3), From: card.StatusBlocked, To: card.StatusAvailable}}, report.Changes)
	assert.Len(t, report.Failures, 1)

	c3, _ := store.Card(card.Numeric(3))
	assert.Equal(t, card.StatusAvailable, c3.Status)
	c2, _ := store.Card(card.Numeric(2))
	assert.Equal(t, card.StatusBlocked, c2.Status)
}

func TestReconcileStatuses_DoesNotMutateInput(t *testing.T) {
	cards := []card.Card{testutil.NewCard(2, card.StatusAvailable, 1)}
	store := testutil.NewMemStore(cards...)

	_, err := ReconcileStatuses(context.Background(), store, cards, card.Ledger{}, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, card.StatusAvailable, cards[0].Status)
}

func TestReconcileStatuses_RunID(t *testing.T) {
	store := testutil.NewMemStore(testutil.NewCard(1, card.StatusAvailable))

	report, err := reconcile(t, store, card.Ledger{})
	require.NoError(t, err)
	parsed, err := uuid.Parse(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	cards, _ := store.LoadCards(context.Background())
	report, err = ReconcileStatuses(context.Background(), store, cards, card.Ledger{},
		WithLogger(quietLogger()),
		WithRunIDGenerator(NewFixedGenerator("run-a")),
	)
	require.NoError(t, err)
	assert.Equal(t, "run-a", report.RunID)
}

func TestPlanReconcile_WritesNothing(t *testing.T) {
	cards := []card.Card{
		testutil.NewCard(1, card.StatusAvailable),
		testutil.NewCard(2, card.StatusAvailable, 1),
	}

	plan, states, index := PlanReconcile(cards, card.Ledger{})
	assert.Equal(t, []Change{{ID: card.Numeric(2), From: card.StatusAvailable, To: card.StatusBlocked}}, plan)
	assert.Len(t, states, 2)
	assert.Equal(t, 2, index.Len())
}

func TestFixedGenerator_PanicsWhenExhausted(t *testing.T) {
	gen := NewFixedGenerator("a")
	assert.Equal(t, "a", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
