package crawl

import (
	"fmt"
	"sort"
	"sync"
)

// UnitState is the lifecycle of one unit of work: a listing, a subject, or
// a course page.
type UnitState string

const (
	StatePending       UnitState = "pending"
	StateFetching      UnitState = "fetching"
	StateExtracted     UnitState = "extracted"
	StateBlockDetected UnitState = "block_detected"
	StateNetworkError  UnitState = "network_error"
)

// IsTerminal reports whether the state is final for this run. A retry is a
// new run, never a transition.
func IsTerminal(s UnitState) bool {
	switch s {
	case StateExtracted, StateBlockDetected, StateNetworkError:
		return true
	default:
		return false
	}
}

func isAllowedTransition(from, to UnitState) bool {
	switch from {
	case StatePending:
		return to == StateFetching
	case StateFetching:
		return IsTerminal(to)
	default:
		return false
	}
}

func SubjectsUnit() string { return "subjects" }

func SubjectUnit(subject string) string { return "subject:" + subject }

func CourseUnit(subject, number string) string { return "course:" + subject + " " + number }

// Tracker records the state of every unit in a run and rejects transitions
// the lifecycle does not allow.
type Tracker struct {
	mu     sync.Mutex
	states map[string]UnitState
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]UnitState)}
}

// Track registers a unit as pending.
func (t *Tracker) Track(unit string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.states[unit]; ok {
		return fmt.Errorf("unit %q already tracked in state %s", unit, cur)
	}
	t.states[unit] = StatePending
	return nil
}

func (t *Tracker) Transition(unit string, from, to UnitState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.states[unit]
	if !ok {
		return fmt.Errorf("unknown unit: %q", unit)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", unit, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", unit, from, to)
	}
	t.states[unit] = to
	return nil
}

func (t *Tracker) State(unit string) (UnitState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[unit]
	return s, ok
}

// Counts tallies units by state.
func (t *Tracker) Counts() map[UnitState]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make(map[UnitState]int)
	for _, s := range t.states {
		counts[s]++
	}
	return counts
}

// Units lists the tracked units in a stable order.
func (t *Tracker) Units() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	units := make([]string, 0, len(t.states))
	for unit := range t.states {
		units = append(units, unit)
	}
	sort.Strings(units)
	return units
}
