package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by the engine and its subscribers
const (
	KeyFromState = "from_state"
	KeyToState   = "to_state"
	KeyActor     = "actor"
	KeyRole      = "actor_role"
	KeyCreator   = "creator"
	KeyReason    = "reason"
	KeyCode      = "code"
	KeyLedgerAt  = "ledger_timestamp"
)

// Event represents a domain event emitted after a ledger write (or a rejected one)
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	WorkflowID    string                 `json:"workflow_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, workflowID string, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return NewEventWithCorrelation(eventType, workflowID, payload, id)
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, workflowID string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		WorkflowID:    workflowID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	return &Event{
		ID:            e.ID,
		Type:          e.Type,
		WorkflowID:    e.WorkflowID,
		Payload:       newPayload,
		Timestamp:     e.Timestamp,
		CorrelationID: e.CorrelationID,
	}
}

// Derive starts a new event in the same correlation chain
func (e *Event) Derive(eventType Type) *Event {
	payload := make(map[string]interface{}, len(e.Payload))
	for k, v := range e.Payload {
		payload[k] = v
	}
	return NewEventWithCorrelation(eventType, e.WorkflowID, payload, e.CorrelationID)
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadUint retrieves an unsigned value from the payload
func (e *Event) GetPayloadUint(key string) uint64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case uint64:
			return v
		case uint8:
			return uint64(v)
		case uint16:
			return uint64(v)
		case int:
			if v >= 0 {
				return uint64(v)
			}
		case int64:
			if v >= 0 {
				return uint64(v)
			}
		case float64:
			if v >= 0 {
				return uint64(v)
			}
		}
	}
	return 0
}
