package harness

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/glyph/internal/board"
	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/testutil"
)

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Cards:       []card.Card{testutil.NewCard(1, card.StatusAvailable)},
		Flow:        []FlowStep{{Op: OpReconcile}},
		Assertions: []Assertion{
			{Type: AssertTraceContains, Op: OpReconcile},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, 1, result.Trace[0].Seq)
	assert.Equal(t, OutcomeOK, result.Trace[0].Outcome)
	assert.Equal(t, "test-run-default", result.Trace[0].RunID)
	assert.Empty(t, result.Trace[0].Changes)
}

func TestRun_AcceptUnblocksChild(t *testing.T) {
	scenario := &Scenario{
		Name:        "accept",
		Description: "Accepting a parent unblocks the child",
		RunID:       "run-1",
		Cards: []card.Card{
			testutil.NewCard(3, card.StatusInProgress),
			testutil.NewCard(10, card.StatusBlocked, 3),
		},
		Flow: []FlowStep{
			{Op: OpSubmit, Card: card.Numeric(3)},
			{Op: OpAccept, Card: card.Numeric(3), Reviewer: "pm", Expect: &ExpectClause{Status: card.StatusAccepted, Changes: intPtr(1)}},
		},
		Assertions: []Assertion{
			{Type: AssertFinalStatus, Card: card.Numeric(10), Status: card.StatusAvailable},
			{Type: AssertLedgerSet, Card: card.Numeric(3), Set: "accepted"},
			{Type: AssertBlocked, Card: card.Numeric(10), Blocked: boolPtr(false)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	accept := result.Trace[1]
	assert.Equal(t, "003", accept.Card)
	assert.Equal(t, "run-1", accept.RunID)
	require.Len(t, accept.Changes, 1)
	assert.Equal(t, card.Numeric(10), accept.Changes[0].ID)
	assert.Equal(t, card.StatusBlocked, accept.Changes[0].From)
	assert.Equal(t, card.StatusAvailable, accept.Changes[0].To)
}

func TestRun_WithErrorExpect(t *testing.T) {
	scenario := &Scenario{
		Name:        "blocked_start",
		Description: "Starting a blocked card is rejected",
		Cards: []card.Card{
			testutil.NewCard(1, card.StatusAvailable),
			testutil.NewCard(2, card.StatusBlocked, 1),
		},
		Flow: []FlowStep{
			{Op: OpStart, Card: card.Numeric(2), Expect: &ExpectClause{Error: "blocked"}},
			{Op: OpStart, Card: card.Numeric(42), Expect: &ExpectClause{Error: "not_found"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "blocked", result.Trace[0].Outcome)
	assert.Equal(t, "not_found", result.Trace[1].Outcome)
	assert.Empty(t, result.Trace[0].Status)
}

func TestRun_UnexpectedRejectionFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "A rejected step without an expect clause fails the scenario",
		Cards:       []card.Card{testutil.NewCard(1, card.StatusAccepted)},
		Flow:        []FlowStep{{Op: OpStart, Card: card.Numeric(1)}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected invalid_transition")
}

func TestRun_ExpectMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "Expect clauses are checked",
		Cards:       []card.Card{testutil.NewCard(1, card.StatusBlocked)},
		Flow: []FlowStep{
			{Op: OpReconcile, Expect: &ExpectClause{Changes: intPtr(0)}},
			{Op: OpStart, Card: card.Numeric(1), Expect: &ExpectClause{Error: "blocked"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected 0 reconcile change(s), got 1")
	assert.Contains(t, result.Errors[1], "expected outcome blocked, got ok")
}

func TestRun_LedgerEdit(t *testing.T) {
	ledger := testutil.AcceptedLedger(1)
	scenario := &Scenario{
		Name:        "ledger_edit",
		Description: "Direct ledger edits take effect on the next reconcile",
		Cards: []card.Card{
			testutil.NewCard(1, card.StatusAccepted),
			testutil.NewCard(2, card.StatusAvailable, 1),
		},
		Ledger: ledger,
		Flow: []FlowStep{
			{Op: OpLedger, Card: card.Numeric(1), Set: "pending_review"},
			{Op: OpReconcile, Expect: &ExpectClause{Changes: intPtr(1)}},
		},
		Assertions: []Assertion{
			{Type: AssertLedgerSet, Card: card.Numeric(1), Set: "pending_review"},
			{Type: AssertFinalStatus, Card: card.Numeric(2), Status: card.StatusBlocked},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.True(t, ledger.IsAccepted(card.Numeric(1)), "scenario ledger must not be mutated")
}

func TestRun_StartNextIdle(t *testing.T) {
	scenario := &Scenario{
		Name:        "idle",
		Description: "No ready work",
		Session:     card.Session{AgentID: "codex"},
		Cards:       []card.Card{testutil.NewCard(1, card.StatusAvailable)},
		Flow:        []FlowStep{{Op: OpStartNext}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, OutcomeIdle, result.Trace[0].Outcome)
	assert.Empty(t, result.Trace[0].Card)
}

func TestRun_StepOverridesSession(t *testing.T) {
	c := testutil.NewCard(1, card.StatusAvailable)
	c.AssignedTo = "codex"
	scenario := &Scenario{
		Name:        "override",
		Description: "A step agent replaces the session agent",
		Session:     card.Session{AgentID: "claude"},
		Cards:       []card.Card{c},
		Flow: []FlowStep{
			{Op: OpStartNext, Expect: &ExpectClause{Error: OutcomeIdle}},
			{Op: OpStartNext, Agent: "codex", Expect: &ExpectClause{Status: card.StatusInProgress}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "001", result.Trace[1].Card)
}

func TestRun_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name:        "deterministic",
		Description: "Same scenario, same trace",
		Cards: []card.Card{
			testutil.NewCard(1, card.StatusInProgress),
			testutil.NewCard(2, card.StatusBlocked, 1),
			testutil.NewCard(3, card.StatusAvailable, 1),
		},
		Flow: []FlowStep{
			{Op: OpReconcile},
			{Op: OpSubmit, Card: card.Numeric(1)},
			{Op: OpAccept, Card: card.Numeric(1)},
		},
	}

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Cards, second.Cards)
}

func TestRun_FreshStorePerRun(t *testing.T) {
	scenario := &Scenario{
		Name:        "fresh",
		Description: "Each run starts from the seeded cards",
		Cards:       []card.Card{testutil.NewCard(1, card.StatusAvailable)},
		Flow:        []FlowStep{{Op: OpStart, Card: card.Numeric(1)}},
	}

	for i := 0; i < 2; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, "run %d: %v", i, result.Errors)
	}
	assert.Equal(t, card.StatusAvailable, scenario.Cards[0].Status)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("start 001: %w", board.ErrBlocked), "blocked"},
		{fmt.Errorf("archive 001: %w", board.ErrNotAccepted), "not_accepted"},
		{board.ErrUnknownProject, "unknown_project"},
		{errors.New("disk full"), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorKind(tt.err), tt.err.Error())
	}
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}

func TestResult_AddTrace(t *testing.T) {
	r := NewResult()
	r.AddTrace(TraceEvent{Op: OpReconcile, Seq: 99})
	r.AddTrace(TraceEvent{Op: OpStart})

	require.Len(t, r.Trace, 2)
	assert.Equal(t, 1, r.Trace[0].Seq)
	assert.Equal(t, 2, r.Trace[1].Seq)
}
