package workflow

import "strconv"

// State represents a workflow state in the approval lifecycle.
// Values 0-99 are reserved for predefined states; 100 and above are left
// to deployment-specific extensions.
type State uint8

const (
	StateDraft         State = 0
	StatePendingReview State = 1
	StateApproved      State = 10
	StateRejected      State = 11
	StateEscalated     State = 20
	StateCancelled     State = 30
)

// FirstExtensionState is the lowest value available to deployment-specific states.
const FirstExtensionState State = 100

var stateNames = map[State]string{
	StateDraft:         "DRAFT",
	StatePendingReview: "PENDING_REVIEW",
	StateApproved:      "APPROVED",
	StateRejected:      "REJECTED",
	StateEscalated:     "ESCALATED",
	StateCancelled:     "CANCELLED",
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	switch s {
	case StateApproved, StateRejected, StateCancelled:
		return true
	default:
		return false
	}
}

// IsPredefined returns true if the state is one of the named states above
func (s State) IsPredefined() bool {
	_, ok := stateNames[s]
	return ok
}

// IsExtension returns true if the state lies in the deployment-specific range
func (s State) IsExtension() bool {
	return s >= FirstExtensionState
}

// String returns the state name, or its numeric value for unnamed states
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	if s.IsExtension() {
		return "EXTENSION_" + strconv.Itoa(int(s))
	}
	return "STATE_" + strconv.Itoa(int(s))
}

// ParseState resolves a state name (e.g. "PENDING_REVIEW") or a decimal value.
func ParseState(s string) (State, error) {
	for state, name := range stateNames {
		if name == s {
			return state, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, invalidArgument("state %q is neither a known name nor a value in 0-255", s)
	}
	return State(n), nil
}
