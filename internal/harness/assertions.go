package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/glyph/internal/card"
	"github.com/roach88/glyph/internal/depgraph"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s", ev.Seq, ev.Op)
		if ev.Card != "" {
			fmt.Fprintf(&buf, " %s", ev.Card)
		}
		fmt.Fprintf(&buf, " -> %s\n", ev.Outcome)
	}

	return buf.String()
}

// matches reports whether ev satisfies the op, card and outcome filters of
// a. Empty filters match anything.
func matches(ev TraceEvent, a Assertion) bool {
	if ev.Op != a.Op {
		return false
	}
	if !a.Card.IsZero() && ev.Card != a.Card.String() {
		return false
	}
	return a.Outcome == "" || ev.Outcome == a.Outcome
}

func describe(a Assertion) string {
	s := a.Op
	if !a.Card.IsZero() {
		s += " " + a.Card.String()
	}
	if a.Outcome != "" {
		s += " -> " + a.Outcome
	}
	return s
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matches(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describe(a),
		Actual:   "no matching step",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the ops occur in order. Other steps may run
// in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Ops) && ev.Op == a.Ops[next] {
			next++
		}
	}
	if next == len(a.Ops) {
		return nil
	}

	var actual []string
	for _, ev := range trace {
		actual = append(actual, ev.Op)
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(a.Ops, " -> "),
		Actual:   fmt.Sprintf("%s (missing %s)", strings.Join(actual, " -> "), a.Ops[next]),
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matches(ev, a) {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d x %s", a.Count, describe(a)),
		Actual:   fmt.Sprintf("%d", count),
		Trace:    trace,
	}
}

func assertFinalStatus(result *Result, a Assertion) error {
	got, ok := result.Status(a.Card)
	if ok && got == a.Status {
		return nil
	}
	actual := string(got)
	if !ok {
		actual = "card not in store"
	}
	return &AssertionError{
		Type:     AssertFinalStatus,
		Expected: fmt.Sprintf("%s is %s", a.Card, a.Status),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

func assertLedgerSet(result *Result, a Assertion) error {
	got := string(result.Ledger.SetOf(a.Card))
	if got == "" {
		got = setNone
	}
	if got == a.Set {
		return nil
	}
	return &AssertionError{
		Type:     AssertLedgerSet,
		Expected: fmt.Sprintf("%s in %s", a.Card, a.Set),
		Actual:   got,
		Trace:    result.Trace,
	}
}

func assertBlocked(result *Result, a Assertion) error {
	states, _ := depgraph.ComputeDependencyState(result.Cards, result.Ledger)
	st, ok := states[a.Card]
	if !ok {
		return &AssertionError{
			Type:     AssertBlocked,
			Expected: fmt.Sprintf("%s blocked=%t", a.Card, *a.Blocked),
			Actual:   "card not in store",
			Trace:    result.Trace,
		}
	}
	if st.Blocked == *a.Blocked {
		return nil
	}
	return &AssertionError{
		Type:     AssertBlocked,
		Expected: fmt.Sprintf("%s blocked=%t", a.Card, *a.Blocked),
		Actual:   fmt.Sprintf("blocked=%t (parents %s, missing %s)", st.Blocked, idList(st.Parents), idList(st.MissingParents)),
		Trace:    result.Trace,
	}
}

func idList(ids []card.CardID) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalStatus:
			err = assertFinalStatus(result, a)
		case AssertLedgerSet:
			err = assertLedgerSet(result, a)
		case AssertBlocked:
			if a.Blocked == nil {
				err = fmt.Errorf("assertion[%d]: blocked requires a value", i)
			} else {
				err = assertBlocked(result, a)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
