package events

import "time"

// Event types published on the external bus as "events.<TYPE>".
const (
	TypeTurnRecorded        = "TURN_RECORDED"
	TypeSubmissionFinalized = "SUBMISSION_FINALIZED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_RECORDED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewTurnRecorded describes one committed exchange and its token cost.
func NewTurnRecorded(conversationID, userID, stage string, ended bool, totalTokens int64, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeTurnRecorded,
		Data: map[string]interface{}{
			"conversationId": conversationID,
			"userId":         userID,
			"stage":          stage,
			"ended":          ended,
			"totalTokens":    totalTokens,
			"occurredAt":     at.UTC().Format(time.RFC3339Nano),
		},
		OccurredAt: at,
	}
}

func NewSubmissionFinalized(assignmentID, userID, conversationID string, late bool, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeSubmissionFinalized,
		Data: map[string]interface{}{
			"assignmentId":   assignmentID,
			"userId":         userID,
			"conversationId": conversationID,
			"late":           late,
			"occurredAt":     at.UTC().Format(time.RFC3339Nano),
		},
		OccurredAt: at,
	}
}
