package calendar

import (
	"context"
	"time"

	"twinai-be/pkg/store"
)

type Status string

const (
	StatusCreated              Status = "created"
	StatusRequiresConfirmation Status = "requires_confirmation"
	StatusRequiresChoice       Status = "requires_choice"
	StatusUnavailable          Status = "unavailable"
)

// Google Calendar event states.
const (
	EventConfirmed = "confirmed"
	EventTentative = "tentative"
	EventCancelled = "cancelled"
)

type Request struct {
	EventName string
	Start     time.Time
	Duration  time.Duration
}

// Result describes what Schedule did. EventID is set for created and
// tentative events; Suggestions only when a choice is required.
type Result struct {
	Status      Status
	EventID     string
	EventName   string
	Start       time.Time
	Suggestions []store.TimeSlot
	Message     string
}

type SuggestionContext struct {
	EventName   string
	Suggestions []store.TimeSlot
}

type Resolution struct {
	EventID   string
	EventName string
	Start     time.Time
	Message   string
}

type Event struct {
	ID      string
	Summary string
	Start   time.Time
	End     time.Time
	Status  string
	AllDay  bool
}

func (e Event) overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && start.Before(e.End)
}

// EventStore is the calendar backend the Scheduler writes to.
type EventStore interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)
	InsertEvent(ctx context.Context, event Event) (Event, error)
	UpdateStatus(ctx context.Context, id, status string) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
}
