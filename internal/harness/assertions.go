package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/hackpath/internal/engine"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent // nil for assertions on final progress
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, event.Key())
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure. Trace assertions read result; the rest query eng.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, eng *engine.Engine) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertUnlocked:
			err = assertUnlocked(ctx, eng, a)
		case AssertProgress:
			err = assertProgress(ctx, eng, a)
		case AssertPosition:
			err = assertPosition(ctx, eng, a)
		case AssertSavedLocally:
			err = assertSavedLocally(eng, a)
		case AssertIdentity:
			err = assertIdentity(eng, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// assertTraceContains checks for an event of the given type whose set
// fields all match.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if matchEvent(event, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeMatch(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func matchEvent(e TraceEvent, a Assertion) bool {
	if e.Type != a.Event {
		return false
	}
	if a.Op != "" && e.Op != a.Op {
		return false
	}
	if a.ID != "" && e.ID != a.ID {
		return false
	}
	if a.Kind != "" && e.Kind != a.Kind {
		return false
	}
	if a.State != "" && (e.Player == nil || e.Player.State != a.State) {
		return false
	}
	return true
}

func describeMatch(a Assertion) string {
	parts := []string{a.Event}
	for _, kv := range [][2]string{{"op", a.Op}, {"id", a.ID}, {"kind", a.Kind}, {"state", a.State}} {
		if kv[1] != "" {
			parts = append(parts, kv[0]+"="+kv[1])
		}
	}
	return strings.Join(parts, " ")
}

// assertTraceOrder checks that the keys appear in order. Other events may
// appear in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	last := 0
	for _, event := range trace {
		if next == len(a.Events) {
			break
		}
		if event.Key() == a.Events[next] {
			next++
			last = event.Seq
		}
	}
	if next == len(a.Events) {
		return nil
	}

	actual := fmt.Sprintf("missing %s after position %d", a.Events[next], last)
	if next == 0 {
		actual = fmt.Sprintf("missing %s", a.Events[0])
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("events in order: %v", a.Events),
		Actual:   actual,
		Trace:    trace,
	}
}

// assertTraceCount checks that the key appears exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Key() == a.Key {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Key),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertUnlocked(ctx context.Context, eng *engine.Engine, a Assertion) error {
	check := func(id string, want bool) error {
		got, err := eng.IsUnlocked(ctx, id)
		if err != nil {
			return err
		}
		if got != want {
			return &AssertionError{
				Type:     AssertUnlocked,
				Expected: fmt.Sprintf("%s %s", id, lockWord(want)),
				Actual:   lockWord(got),
			}
		}
		return nil
	}
	for _, id := range a.Nodes {
		if err := check(id, true); err != nil {
			return err
		}
	}
	for _, id := range a.Locked {
		if err := check(id, false); err != nil {
			return err
		}
	}
	return nil
}

func lockWord(unlocked bool) string {
	if unlocked {
		return "unlocked"
	}
	return "locked"
}

func assertProgress(ctx context.Context, eng *engine.Engine, a Assertion) error {
	s, err := eng.GetProgress(ctx, a.ID)
	if err != nil {
		return err
	}
	if s.Percentage != *a.Percentage || (a.Completed != nil && s.CompletedCount != *a.Completed) {
		expected := fmt.Sprintf("%s at %d%%", a.ID, *a.Percentage)
		if a.Completed != nil {
			expected += fmt.Sprintf(" with %d completed", *a.Completed)
		}
		return &AssertionError{
			Type:     AssertProgress,
			Expected: expected,
			Actual:   fmt.Sprintf("%d%% with %d/%d completed", s.Percentage, s.CompletedCount, s.TotalCount),
		}
	}
	return nil
}

func assertPosition(ctx context.Context, eng *engine.Engine, a Assertion) error {
	rp, err := eng.RoutineProgress(ctx, a.ID)
	if err != nil {
		return err
	}
	if rp.CurrentPosition != *a.Index {
		return &AssertionError{
			Type:     AssertPosition,
			Expected: fmt.Sprintf("%s at index %d", a.ID, *a.Index),
			Actual:   fmt.Sprintf("index %d", rp.CurrentPosition),
		}
	}
	return nil
}

func assertSavedLocally(eng *engine.Engine, a Assertion) error {
	if got := eng.SavedLocally(); got != *a.Value {
		return &AssertionError{
			Type:     AssertSavedLocally,
			Expected: fmt.Sprintf("saved locally = %t", *a.Value),
			Actual:   fmt.Sprintf("%t", got),
		}
	}
	return nil
}

func assertIdentity(eng *engine.Engine, a Assertion) error {
	id := eng.Session().Identity()
	got := ""
	if !id.IsAnonymous() {
		got = id.Key
	}
	if got != *a.User {
		return &AssertionError{
			Type:     AssertIdentity,
			Expected: fmt.Sprintf("user %q", *a.User),
			Actual:   fmt.Sprintf("user %q", got),
		}
	}
	return nil
}
