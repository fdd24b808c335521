// Package lifecycle defines the outing state machine: the states an outing moves
// through, the pure function deriving the natural state from the clock, and the
// table of which manual commands each state admits.
package lifecycle

import "time"

type State string

const (
	StateCreated    State = "CREATED"
	StateOpen       State = "OPEN"
	StateClosed     State = "CLOSED"
	StateInProgress State = "IN_PROGRESS"
	StatePassed     State = "PASSED"
	StateArchived   State = "ARCHIVED"
	StateCancelled  State = "CANCELLED"
)

// ArchiveDelayMonths is how long after its end an outing stays PASSED before it is archived.
const ArchiveDelayMonths = 1

var allStates = []State{
	StateCreated,
	StateOpen,
	StateClosed,
	StateInProgress,
	StatePassed,
	StateArchived,
	StateCancelled,
}

// States returns every state in lifecycle order.
func States() []State {
	out := make([]State, len(allStates))
	copy(out, allStates)
	return out
}

// TerminalStates returns the states no automatic transition ever leaves.
func TerminalStates() []State {
	return []State{StateCancelled, StateArchived}
}

func (s State) IsTerminal() bool {
	return s == StateCancelled || s == StateArchived
}

func (s State) Valid() bool {
	for _, st := range allStates {
		if s == st {
			return true
		}
	}
	return false
}

func (s State) String() string {
	return string(s)
}

// EndTime returns start + duration.
func EndTime(start time.Time, durationMinutes int) time.Time {
	return start.Add(time.Duration(durationMinutes) * time.Minute)
}

// ArchiveTime returns the instant an outing ending at end becomes ARCHIVED.
func ArchiveTime(end time.Time) time.Time {
	return end.AddDate(0, ArchiveDelayMonths, 0)
}

// DeriveState computes the state an outing should be in at now.
//
// Terminal states are returned unchanged. Otherwise the checks run from the
// latest lifecycle stage to the earliest, and every boundary instant belongs
// to the later stage: an outing exactly at its start is IN_PROGRESS.
// A draft is never published by the passage of time.
func DeriveState(current State, now, start, end, deadline, archive time.Time) State {
	if current.IsTerminal() {
		return current
	}

	switch {
	case !now.Before(archive):
		return StateArchived
	case !now.Before(end):
		return StatePassed
	case !now.Before(start):
		return StateInProgress
	case !now.Before(deadline):
		return StateClosed
	case current == StateCreated:
		return StateCreated
	default:
		// now < deadline: open, including a CLOSED outing whose deadline was pushed back.
		return StateOpen
	}
}
