package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/glyph/internal/board"
	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/depgraph"
	"github.com/roach88/glyph/internal/testutil"
)

// Harness runs one scenario against a fresh in-memory store.
type Harness struct {
	store   *testutil.MemStore
	board   *board.Board
	session card.Session
}

// errorKinds maps board sentinels to the names scenarios use in
// expect.error and the trace outcome.
var errorKinds = []struct {
	err  error
	kind string
}{
	{board.ErrCardNotFound, "not_found"},
	{board.ErrInvalidTransition, "invalid_transition"},
	{board.ErrBlocked, "blocked"},
	{board.ErrNotAccepted, "not_accepted"},
	{board.ErrUnknownProject, "unknown_project"},
	{board.ErrTitleRequired, "title_required"},
	{board.ErrNotesRequired, "notes_required"},
}

// errorKind returns the scenario name for a board rejection, or "" when err
// is not one.
func errorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ""
}

// Run executes a scenario and returns the result.
//
// Each run seeds its own store, uses a step clock and a fixed reconcile run
// id, and discards board logs. Expectation and assertion failures are
// recorded on the result; an error is returned only when a step fails for a
// reason other than a workflow rejection.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st := testutil.NewMemStore(scenario.Cards...)
	st.SetLedger(scenario.Ledger.Clone())

	h := &Harness{
		store: st,
		board: board.New(st,
			board.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			board.WithClock(testutil.NewStepClock()),
			board.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		),
		session: scenario.Session,
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d (%s): %w", i, step.Op, err)
		}
	}

	cards, err := st.LoadCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("load final cards: %w", err)
	}
	result.Cards = cards
	result.Ledger = st.Ledger()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) sessionFor(step FlowStep) card.Session {
	sess := h.session
	if step.Agent != "" {
		sess.AgentID = step.Agent
	}
	if step.Project != "" {
		sess.ActiveProject = step.Project
	}
	return sess
}

// executeStep runs one step, appends its trace event and checks the step's
// expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step FlowStep, result *Result) error {
	ev := TraceEvent{Op: step.Op, Outcome: OutcomeOK}
	if !step.Card.IsZero() {
		ev.Card = step.Card.String()
	}
	sess := h.sessionFor(step)

	var (
		changed *card.Card
		report  *depgraph.Report
		err     error
	)
	switch step.Op {
	case OpCreate:
		var c card.Card
		c, err = h.board.CreateCard(ctx, sess, board.NewCard{Title: step.Title, Parents: step.Links})
		changed = &c
	case OpStart:
		var c card.Card
		c, err = h.board.Start(ctx, sess, step.Card)
		changed = &c
	case OpStartNext:
		changed, _, err = h.board.StartNext(ctx, sess)
		if err == nil && changed == nil {
			ev.Outcome = OutcomeIdle
		}
	case OpSubmit:
		var c card.Card
		c, err = h.board.Submit(ctx, sess, step.Card, step.Notes)
		changed = &c
	case OpAccept, OpRevise:
		var rr *board.ReviewResult
		if step.Op == OpAccept {
			rr, err = h.board.Accept(ctx, step.Card, step.Reviewer, step.Notes)
		} else {
			rr, err = h.board.RequestChanges(ctx, step.Card, step.Reviewer, step.Notes)
		}
		if rr != nil {
			changed = &rr.Card
			report = rr.Reconcile
		}
	case OpArchive:
		_, err = h.board.Archive(ctx, step.Card)
	case OpCleanup:
		_, err = h.board.CleanupLedger(ctx)
	case OpReconcile:
		report, err = h.board.Reconcile(ctx)
	case OpLedger:
		h.editLedger(step)
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	if err != nil {
		kind := errorKind(err)
		if kind == "" {
			return err
		}
		ev.Outcome = kind
	} else if changed != nil && !changed.ID.IsZero() {
		ev.Card = changed.ID.String()
		ev.Status = changed.Status
	}
	if report != nil {
		ev.RunID = report.RunID
		ev.Changes = report.Changes
	}
	result.AddTrace(ev)

	h.checkExpect(i, step, ev, result)
	return nil
}

// editLedger places or removes a ledger entry without touching any card,
// the way a reviewer editing the ledger file would.
func (h *Harness) editLedger(step FlowStep) {
	ledger := h.store.Ledger()
	if step.Set == "" {
		ledger.Remove(step.Card)
	} else {
		ledger.Place(card.LedgerSet(step.Set), card.LedgerEntry{ID: step.Card, Reviewer: step.Reviewer, Notes: step.Notes})
	}
	h.store.SetLedger(ledger)
}

func (h *Harness) checkExpect(i int, step FlowStep, ev TraceEvent, result *Result) {
	want := step.Expect
	if want == nil {
		if ev.Outcome != OutcomeOK && ev.Outcome != OutcomeIdle {
			result.AddError(fmt.Sprintf("flow step %d (%s %s): unexpected %s", i, step.Op, ev.Card, ev.Outcome))
		}
		return
	}

	wantOutcome := OutcomeOK
	if want.Error != "" {
		wantOutcome = want.Error
	}
	if ev.Outcome != wantOutcome && !(wantOutcome == OutcomeOK && ev.Outcome == OutcomeIdle) {
		result.AddError(fmt.Sprintf("flow step %d (%s %s): expected outcome %s, got %s", i, step.Op, ev.Card, wantOutcome, ev.Outcome))
		return
	}
	if want.Status != "" && ev.Status != want.Status {
		result.AddError(fmt.Sprintf("flow step %d (%s %s): expected status %s, got %q", i, step.Op, ev.Card, want.Status, ev.Status))
	}
	if want.Changes != nil && len(ev.Changes) != *want.Changes {
		result.AddError(fmt.Sprintf("flow step %d (%s %s): expected %d reconcile change(s), got %d", i, step.Op, ev.Card, *want.Changes, len(ev.Changes)))
	}
}
