package depgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/glyph/internal/card"
)

// CardWriter persists a single card. Implemented by the file and SQLite
// stores.
type CardWriter interface {
	SaveCard(ctx context.Context, c card.Card) error
}

// Change records one persisted status transition.
type Change struct {
	ID   card.CardID `json:"id"`
	From card.Status `json:"from"`
	To   card.Status `json:"to"`
}

// Failure records a planned transition that could not be written.
type Failure struct {
	Change
	Err error `json:"-"`
}

// String renders the failure for logs.
func (f Failure) String() string {
	return fmt.Sprintf("%s %s -> %s: %v", f.ID, f.From, f.To, f.Err)
}

// Report is the outcome of one reconcile pass.
type Report struct {
	RunID    string                `json:"run_id"`
	Changes  []Change              `json:"changes"`
	Failures []Failure             `json:"failures,omitempty"`
	States   map[card.CardID]State `json:"-"`
	Index    *Index                `json:"-"`
}

// PartialFailureError is returned when some planned writes failed. Writes
// that succeeded are not rolled back and are listed in the accompanying
// Report.
type PartialFailureError struct {
	Failures []Failure
}

func (e *PartialFailureError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("reconcile: %d card(s) failed to save: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the underlying write errors to errors.Is and errors.As.
func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Option configures ReconcileStatuses.
type Option func(*reconcileConfig)

type reconcileConfig struct {
	logger *slog.Logger
	runIDs RunIDGenerator
}

// WithLogger sets the logger used for the pass. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *reconcileConfig) { c.logger = l }
}

// WithRunIDGenerator overrides the UUIDv7 run id source.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(c *reconcileConfig) { c.runIDs = g }
}

// PlanReconcile computes the transitions a reconcile pass would persist,
// in index order, without writing anything.
func PlanReconcile(cards []card.Card, ledger card.Ledger) ([]Change, map[card.CardID]State, *Index) {
	states, index := ComputeDependencyState(cards, ledger)

	var changes []Change
	for _, id := range index.order {
		current := index.byID[id].Status
		target := card.ReconcileTarget(current, states[id].Blocked)
		if target != current {
			changes = append(changes, Change{ID: id, From: current, To: target})
		}
	}
	return changes, states, index
}

// ReconcileStatuses brings each card's persisted status in line with its
// dependency state and writes every card whose status changed.
//
// A write failure for one card does not stop the pass. The returned Report
// lists only the writes that succeeded; when any write failed the error is a
// *PartialFailureError. A second pass over the result is a no-op.
func ReconcileStatuses(ctx context.Context, w CardWriter, cards []card.Card, ledger card.Ledger, opts ...Option) (*Report, error) {
	cfg := reconcileConfig{logger: slog.Default(), runIDs: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	plan, states, index := PlanReconcile(cards, ledger)
	report := &Report{
		RunID:   cfg.runIDs.Generate(),
		Changes: []Change{},
		States:  states,
		Index:   index,
	}
	log := cfg.logger.With("run", report.RunID)
	log.Debug("reconcile planned", "cards", index.Len(), "transitions", len(plan))

	for _, ch := range plan {
		updated := index.byID[ch.ID].Clone()
		updated.Status = ch.To
		if err := w.SaveCard(ctx, updated); err != nil {
			log.Error("status write failed", "card", ch.ID.String(), "from", ch.From, "to", ch.To, "error", err)
			report.Failures = append(report.Failures, Failure{Change: ch, Err: err})
			continue
		}
		log.Info("status reconciled", "card", ch.ID.String(), "from", ch.From, "to", ch.To)
		report.Changes = append(report.Changes, ch)
	}

	if len(report.Failures) > 0 {
		return report, &PartialFailureError{Failures: report.Failures}
	}
	return report, nil
}

// AsPartialFailure extracts a *PartialFailureError from err.
func AsPartialFailure(err error) (*PartialFailureError, bool) {
	var pf *PartialFailureError
	ok := errors.As(err, &pf)
	return pf, ok
}
