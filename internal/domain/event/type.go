package event

// Type identifies the type of domain event
type Type string

const (
	TypeWorkflowCreated      Type = "workflow.created"
	TypeWorkflowTransitioned Type = "workflow.transitioned"
	TypeWorkflowCompleted    Type = "workflow.completed"
	TypeTransitionRejected   Type = "transition.rejected"
)

// AllTypes lists every event type the engine emits
var AllTypes = []Type{
	TypeWorkflowCreated,
	TypeWorkflowTransitioned,
	TypeWorkflowCompleted,
	TypeTransitionRejected,
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeWorkflowCreated,
		TypeWorkflowTransitioned,
		TypeWorkflowCompleted,
		TypeTransitionRejected:
		return true
	default:
		return false
	}
}
