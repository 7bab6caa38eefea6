// Package board is the workflow service the CLI talks to. It loads cards
// and the acceptance ledger from a Store, applies one operation, and
// reconciles statuses where the ledger changed.
//
// Every operation holds one mutex across its read-compute-write pass, so
// concurrent callers in one process serialize cleanly. Session state is
// passed in explicitly; the board keeps none.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/depgraph"
	"github.com/roach88/glyph/internal/schema"
)

var (
	ErrCardNotFound      = errors.New("card not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrBlocked           = errors.New("card is blocked by unaccepted dependencies")
	ErrNotAccepted       = errors.New("card is not accepted")
	ErrUnknownProject    = errors.New("unknown project")
	ErrTitleRequired     = errors.New("card title is required")
	ErrNotesRequired     = errors.New("review notes are required")

	// ErrLedgerNotSaved marks a submit or review whose card write landed
	// but whose ledger write failed. The card and the ledger disagree until
	// the ledger is repaired by hand.
	ErrLedgerNotSaved = errors.New("card saved but ledger not updated")
)

// DefaultReviewer is recorded on ledger entries when no reviewer is given.
const DefaultReviewer = "human"

// Store is the persistence the board needs. The file and SQLite stores
// both satisfy it.
type Store interface {
	depgraph.CardWriter
	LoadCards(ctx context.Context) ([]card.Card, error)
	LoadLedger(ctx context.Context) (card.Ledger, error)
	SaveLedger(ctx context.Context, l card.Ledger) error
	ArchiveCard(ctx context.Context, id card.CardID) error
	ListArchived(ctx context.Context) ([]card.Card, error)
}

// DocumentSource is implemented by stores that can hand out raw card
// documents for schema validation.
type DocumentSource interface {
	RawDocuments(ctx context.Context) ([]schema.Document, error)
}

// ProjectLister is implemented by stores that can list project names
// without loading every card.
type ProjectLister interface {
	Projects(ctx context.Context) ([]string, error)
}

// Clock supplies timestamps for ledger entries and review notes.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Option configures a Board.
type Option func(*Board)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Board) { b.logger = l }
}

// WithClock sets the timestamp source.
func WithClock(c Clock) Option {
	return func(b *Board) { b.clock = c }
}

// WithRunIDGenerator sets the reconcile run id source.
func WithRunIDGenerator(g depgraph.RunIDGenerator) Option {
	return func(b *Board) { b.runIDs = g }
}

// Board serializes workflow operations over a Store.
type Board struct {
	store  Store
	logger *slog.Logger
	clock  Clock
	runIDs depgraph.RunIDGenerator

	mu sync.Mutex
}

// New creates a board over store.
func New(store Store, opts ...Option) *Board {
	b := &Board{
		store:  store,
		logger: slog.Default(),
		clock:  systemClock{},
		runIDs: depgraph.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// snapshot is one consistent read of cards and ledger.
type snapshot struct {
	cards  []card.Card
	ledger card.Ledger
}

func (b *Board) load(ctx context.Context) (snapshot, error) {
	cards, err := b.store.LoadCards(ctx)
	if err != nil {
		return snapshot{}, err
	}
	ledger, err := b.store.LoadLedger(ctx)
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{cards: cards, ledger: ledger}, nil
}

func (s snapshot) find(id card.CardID) (card.Card, bool) {
	for _, c := range s.cards {
		if c.ID == id {
			return c, true
		}
	}
	return card.Card{}, false
}

func (s snapshot) state(id card.CardID) depgraph.State {
	states, _ := depgraph.ComputeDependencyState(s.cards, s.ledger)
	return states[id]
}

func notFound(op string, id card.CardID) error {
	return fmt.Errorf("%s %s: %w", op, id, ErrCardNotFound)
}

// Reconcile runs one reconcile pass over the whole store.
func (b *Board) Reconcile(ctx context.Context) (*depgraph.Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reconcileLocked(ctx)
}

func (b *Board) reconcileLocked(ctx context.Context) (*depgraph.Report, error) {
	snap, err := b.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	report, err := depgraph.ReconcileStatuses(ctx, b.store, snap.cards, snap.ledger,
		depgraph.WithLogger(b.logger),
		depgraph.WithRunIDGenerator(b.runIDs),
	)
	if report != nil {
		b.logger.Info("reconcile finished",
			"run", report.RunID,
			"cards", report.Index.Len(),
			"changes", len(report.Changes),
			"failures", len(report.Failures),
		)
	}
	return report, err
}
