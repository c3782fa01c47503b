package workflow

import "fmt"

// IsValidTransition reports whether (from, to) is on the approval allow-list.
// Terminal states have no outgoing edges and extension states have none configured.
func IsValidTransition(from, to State) bool {
	switch from {
	case StateDraft:
		switch to {
		case StatePendingReview, StateCancelled:
			return true
		}
	case StatePendingReview:
		switch to {
		case StateApproved, StateRejected, StateEscalated:
			return true
		}
	case StateEscalated:
		switch to {
		case StateApproved, StateRejected:
			return true
		}
	}
	return false
}

// PermittedTargets returns the states reachable from the given state in one step
func PermittedTargets(from State) []State {
	switch from {
	case StateDraft:
		return []State{StatePendingReview, StateCancelled}
	case StatePendingReview:
		return []State{StateApproved, StateRejected, StateEscalated}
	case StateEscalated:
		return []State{StateApproved, StateRejected}
	default:
		return []State{}
	}
}

// StateMachine tracks the current state of one workflow and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if moving to the target is permitted in the current state
	CanFire(to State) bool

	// Fire moves to the target state if allowed
	Fire(to State) error

	// PermittedTargets returns all states reachable from the current state
	PermittedTargets() []State
}

type stateMachine struct {
	currentState State
}

// NewMachine creates a state machine positioned at the given state
func NewMachine(current State) StateMachine {
	return &stateMachine{currentState: current}
}

func (m *stateMachine) State() State {
	return m.currentState
}

func (m *stateMachine) CanFire(to State) bool {
	return IsValidTransition(m.currentState, to)
}

// Fire returns ErrAlreadyCompleted from a terminal state and ErrInvalidTransition
// for any other pair outside the allow-list. The state is unchanged on error.
func (m *stateMachine) Fire(to State) error {
	if m.currentState.IsTerminal() {
		return fmt.Errorf("%w: state %s is terminal", ErrAlreadyCompleted, m.currentState)
	}
	if !IsValidTransition(m.currentState, to) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, m.currentState, to)
	}
	m.currentState = to
	return nil
}

func (m *stateMachine) PermittedTargets() []State {
	return PermittedTargets(m.currentState)
}
