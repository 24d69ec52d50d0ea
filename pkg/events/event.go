package events

import (
	"context"
	"time"
)

const (
	TypeTurnProcessed          = "TURN_PROCESSED"
	TypeEmailSent              = "EMAIL_SENT"
	TypeCalendarEventConfirmed = "CALENDAR_EVENT_CONFIRMED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_PROCESSED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher delivers events to whichever bus is configured.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
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

func NewTurnProcessed(sessionID, userID, intent, responseType string, handledByFlow bool) BaseEvent {
	return BaseEvent{
		Type: TypeTurnProcessed,
		Data: map[string]interface{}{
			"session_id":      sessionID,
			"user_id":         userID,
			"intent":          intent,
			"response_type":   responseType,
			"handled_by_flow": handledByFlow,
		},
		OccurredAt: time.Now(),
	}
}

func NewEmailSent(sessionID, recipient, subject string) BaseEvent {
	return BaseEvent{
		Type: TypeEmailSent,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"recipient":  recipient,
			"subject":    subject,
		},
		OccurredAt: time.Now(),
	}
}

func NewCalendarEventConfirmed(sessionID, eventID, eventName string) BaseEvent {
	return BaseEvent{
		Type: TypeCalendarEventConfirmed,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"event_id":   eventID,
			"event_name": eventName,
		},
		OccurredAt: time.Now(),
	}
}
