package flow

import (
	"context"
	"fmt"
	"regexp"

	"twinai-be/internal/pkg/logger"
	"twinai-be/pkg/calendar"
	"twinai-be/pkg/store"
)

const calendarModule = "CALENDAR_FLOW"

var (
	confirmReply = regexp.MustCompile(`(?i)\b(yes|confirm|confirmed|ok|okay|sure|schedule it)\b`)
	rejectReply  = regexp.MustCompile(`(?i)\b(no|cancel|don't|dont|nope)\b`)
)

// Scheduler is the part of the calendar service pending flows talk to.
type Scheduler interface {
	ConfirmEvent(ctx context.Context, eventID string, confirmed bool) (string, error)
	ResolveSuggestion(ctx context.Context, reply string, sc calendar.SuggestionContext) (calendar.Resolution, bool, error)
}

// CalendarOutcome reports a handled calendar reply. When Handled is false the
// flow is kept and the turn continues through classification.
type CalendarOutcome struct {
	Handled   bool
	Content   string
	Booked    bool
	EventID   string
	EventName string
}

type CalendarFlow struct {
	scheduler Scheduler
	logger    logger.ILogger
}

func NewCalendarFlow(scheduler Scheduler, log logger.ILogger) *CalendarFlow {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &CalendarFlow{scheduler: scheduler, logger: log}
}

// disconnected is returned for flows persisted while a calendar was configured.
var disconnected = CalendarOutcome{Handled: true, Content: "Your calendar isn't connected anymore, so I dropped that pending event."}

func (c *CalendarFlow) HandleConfirmation(ctx context.Context, pending *store.PendingConfirmation, reply string) CalendarOutcome {
	if c.scheduler == nil {
		return disconnected
	}
	var confirmed bool
	switch {
	case confirmReply.MatchString(reply):
		confirmed = true
	case rejectReply.MatchString(reply):
		confirmed = false
	default:
		return CalendarOutcome{}
	}

	message, err := c.scheduler.ConfirmEvent(ctx, pending.EventID, confirmed)
	if err != nil {
		c.logger.Warn(calendarModule, "Event confirmation failed", map[string]interface{}{
			"event_id": pending.EventID,
			"error":    err,
		})
		return CalendarOutcome{Handled: true, Content: fmt.Sprintf("Calendar vibes off: %v", err)}
	}
	return CalendarOutcome{
		Handled:   true,
		Content:   message,
		Booked:    confirmed,
		EventID:   pending.EventID,
		EventName: pending.EventName,
	}
}

func (c *CalendarFlow) HandleSuggestion(ctx context.Context, pending *store.PendingSuggestion, reply string) CalendarOutcome {
	if c.scheduler == nil {
		return disconnected
	}
	resolution, resolved, err := c.scheduler.ResolveSuggestion(ctx, reply, calendar.SuggestionContext{
		EventName:   pending.EventName,
		Suggestions: pending.Suggestions,
	})
	if err != nil {
		c.logger.Warn(calendarModule, "Booking suggested slot failed", map[string]interface{}{"error": err})
		return CalendarOutcome{Handled: true, Content: fmt.Sprintf("Calendar vibes off: %v", err)}
	}
	if resolved {
		return CalendarOutcome{
			Handled:   true,
			Content:   resolution.Message,
			Booked:    true,
			EventID:   resolution.EventID,
			EventName: resolution.EventName,
		}
	}
	if rejectReply.MatchString(reply) {
		return CalendarOutcome{Handled: true, Content: "Okay, I won't schedule it."}
	}
	return CalendarOutcome{}
}
