package card

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Status is the persisted lifecycle state of a card.
type Status string

const (
	StatusAvailable          Status = "available"
	StatusBlocked            Status = "blocked"
	StatusInProgress         Status = "in_progress"
	StatusAwaitingAcceptance Status = "awaiting_acceptance"
	StatusAccepted           Status = "accepted"
	StatusNeedsRevision      Status = "needs_revision"
)

// AllStatuses lists every valid status in lifecycle order.
var AllStatuses = []Status{
	StatusAvailable,
	StatusBlocked,
	StatusInProgress,
	StatusAwaitingAcceptance,
	StatusAccepted,
	StatusNeedsRevision,
}

// transitions lists the workflow moves a caller may request explicitly.
// Moves into and out of blocked belong to the reconciler (ReconcileTarget).
var transitions = map[Status][]Status{
	StatusAvailable:          {StatusInProgress, StatusAwaitingAcceptance},
	StatusBlocked:            {},
	StatusInProgress:         {StatusAwaitingAcceptance},
	StatusAwaitingAcceptance: {StatusAccepted, StatusNeedsRevision},
	StatusAccepted:           {},
	StatusNeedsRevision:      {StatusAwaitingAcceptance, StatusInProgress},
}

// ParseStatus parses a status name. Empty input yields StatusAvailable,
// matching cards written before the status field existed.
func ParseStatus(s string) (Status, error) {
	text := strings.ToLower(strings.TrimSpace(s))
	if text == "" {
		return StatusAvailable, nil
	}
	st := Status(text)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Valid reports whether s is one of AllStatuses.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Protected reports whether reconciliation must leave s untouched.
func (s Status) Protected() bool {
	switch s {
	case StatusAccepted, StatusNeedsRevision:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a workflow operation may move a card from
// one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ReconcileTarget returns the status a card should have given its computed
// block state:
//
//	accepted, needs_revision  unchanged (protected)
//	blocked                   available when no longer blocked
//	anything else             blocked when blocked
func ReconcileTarget(current Status, blocked bool) Status {
	switch current {
	case StatusAccepted, StatusNeedsRevision:
		return current
	case StatusBlocked:
		if blocked {
			return StatusBlocked
		}
		return StatusAvailable
	case StatusAvailable, StatusInProgress, StatusAwaitingAcceptance:
		if blocked {
			return StatusBlocked
		}
		return current
	}
	if blocked {
		return StatusBlocked
	}
	return current
}

// UnmarshalYAML rejects unknown statuses. yaml.v3 never calls it for null,
// which leaves the zero status for the stores to default.
func (s *Status) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("status: expected scalar at line %d", value.Line)
	}
	st, err := ParseStatus(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*s = st
	return nil
}
