package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/glyph/internal/card"
)

// Scenario is a workflow run with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Session is the caller context for every step unless a step overrides
	// the agent or project.
	Session card.Session `yaml:"session,omitempty"`

	// Cards and Ledger seed the store.
	Cards  []card.Card `yaml:"cards"`
	Ledger card.Ledger `yaml:"ledger,omitempty"`

	// Flow is run in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is the fixed reconcile run id. Empty uses "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// FlowStep is one board operation.
type FlowStep struct {
	Op       string        `yaml:"op"`
	Card     card.CardID   `yaml:"card,omitempty"`
	Title    string        `yaml:"title,omitempty"`
	Links    []card.CardID `yaml:"links,omitempty"`
	Notes    string        `yaml:"notes,omitempty"`
	Reviewer string        `yaml:"reviewer,omitempty"`
	Agent    string        `yaml:"agent,omitempty"`
	Project  string        `yaml:"project,omitempty"`
	Set      string        `yaml:"set,omitempty"`

	// Expect is checked against the step's outcome. Without it the step
	// must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected outcome kind, e.g. "blocked" or "not_found".
	Error string `yaml:"error,omitempty"`

	// Status is the card's status after the step.
	Status card.Status `yaml:"status,omitempty"`

	// Changes is the number of reconcile changes the step caused.
	Changes *int `yaml:"changes,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	Type    string      `yaml:"type"`
	Op      string      `yaml:"op,omitempty"`
	Ops     []string    `yaml:"ops,omitempty"`
	Card    card.CardID `yaml:"card,omitempty"`
	Outcome string      `yaml:"outcome,omitempty"`
	Count   int         `yaml:"count,omitempty"`
	Status  card.Status `yaml:"status,omitempty"`
	Set     string      `yaml:"set,omitempty"`
	Blocked *bool       `yaml:"blocked,omitempty"`
}

// Operation names.
const (
	OpCreate    = "create"
	OpStart     = "start"
	OpStartNext = "start_next"
	OpSubmit    = "submit"
	OpAccept    = "accept"
	OpRevise    = "revise"
	OpArchive   = "archive"
	OpCleanup   = "cleanup"
	OpReconcile = "reconcile"
	OpLedger    = "ledger"
)

var knownOps = map[string]bool{
	OpCreate: true, OpStart: true, OpStartNext: true, OpSubmit: true, OpAccept: true,
	OpRevise: true, OpArchive: true, OpCleanup: true, OpReconcile: true, OpLedger: true,
}

// opsNeedingCard take a card id.
var opsNeedingCard = map[string]bool{
	OpStart: true, OpSubmit: true, OpAccept: true, OpRevise: true, OpArchive: true, OpLedger: true,
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalStatus   = "final_status"
	AssertLedgerSet     = "ledger_set"
	AssertBlocked       = "blocked"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if !knownOps[step.Op] {
			return fmt.Errorf("flow step %d: unknown op %q", i, step.Op)
		}
		if opsNeedingCard[step.Op] && step.Card.IsZero() {
			return fmt.Errorf("flow step %d: %s requires card", i, step.Op)
		}
		if step.Op == OpLedger && step.Set != "" && !validSet(step.Set) {
			return fmt.Errorf("flow step %d: unknown ledger set %q", i, step.Set)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceContains, AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("%s requires op", a.Type)
		}
	case AssertTraceOrder:
		if len(a.Ops) < 2 {
			return fmt.Errorf("trace_order requires at least two ops")
		}
	case AssertFinalStatus:
		if a.Card.IsZero() || a.Status == "" {
			return fmt.Errorf("final_status requires card and status")
		}
	case AssertLedgerSet:
		if a.Card.IsZero() || a.Set == "" {
			return fmt.Errorf("ledger_set requires card and set")
		}
		if a.Set != setNone && !validSet(a.Set) {
			return fmt.Errorf("unknown ledger set %q", a.Set)
		}
	case AssertBlocked:
		if a.Card.IsZero() || a.Blocked == nil {
			return fmt.Errorf("blocked requires card and blocked")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// setNone names "not in the ledger" in ledger_set assertions.
const setNone = "none"

func validSet(s string) bool {
	switch card.LedgerSet(s) {
	case card.SetAccepted, card.SetPendingReview, card.SetNeedsRevision:
		return true
	}
	return false
}
