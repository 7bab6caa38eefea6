package harness

import (
	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/depgraph"
)

// Step outcomes recorded in the trace. Failed steps record the error kind
// instead (see errorKind).
const (
	OutcomeOK   = "ok"
	OutcomeIdle = "idle"
)

// TraceEvent is one executed flow step.
type TraceEvent struct {
	Seq     int               `json:"seq"`
	Op      string            `json:"op"`
	Card    string            `json:"card,omitempty"`
	Outcome string            `json:"outcome"`
	Status  card.Status       `json:"status,omitempty"`
	RunID   string            `json:"run_id,omitempty"`
	Changes []depgraph.Change `json:"changes,omitempty"`
}

// Result contains the outcome of running a scenario.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace is the ordered list of executed steps.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages.
	Errors []string `json:"errors,omitempty"`

	// Cards and Ledger are the stored state after the flow.
	Cards  []card.Card `json:"-"`
	Ledger card.Ledger `json:"-"`
}

// NewResult creates a passing result with no trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// AddTrace appends an event, numbering it in execution order.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}

// Status returns the stored status of id after the flow.
func (r *Result) Status(id card.CardID) (card.Status, bool) {
	for _, c := range r.Cards {
		if c.ID == id {
			return c.Status, true
		}
	}
	return "", false
}
