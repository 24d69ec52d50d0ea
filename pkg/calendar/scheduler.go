package calendar

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"twinai-be/internal/pkg/logger"
	"twinai-be/pkg/store"
)

const module = "CALENDAR"

const (
	workdayStartHour = 9
	workdayEndHour   = 18
	suggestionCount  = 3
	suggestionStep   = 30 * time.Minute
	searchHorizon    = 7 * 24 * time.Hour
	displayLayout    = "Mon, Jan 2 at 15:04"
)

type Scheduler struct {
	store    EventStore
	loc      *time.Location
	duration time.Duration
	logger   logger.ILogger
}

func NewScheduler(eventStore EventStore, loc *time.Location, defaultDuration time.Duration, log logger.ILogger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if defaultDuration <= 0 {
		defaultDuration = time.Hour
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Scheduler{store: eventStore, loc: loc, duration: defaultDuration, logger: log}
}

// Schedule books the event when the slot is free and inside working hours.
// A clash yields free alternatives; an out-of-hours slot is created tentatively
// and needs confirmation.
func (s *Scheduler) Schedule(ctx context.Context, req Request) (Result, error) {
	name := strings.TrimSpace(req.EventName)
	if name == "" {
		name = "Meeting"
	}
	duration := req.Duration
	if duration <= 0 {
		duration = s.duration
	}
	start := req.Start.In(s.loc)
	end := start.Add(duration)

	conflicts, err := s.CheckConflicts(ctx, start, end)
	if err != nil {
		return Result{}, err
	}

	if len(conflicts) > 0 {
		slots, err := s.freeSlots(ctx, start, duration)
		if err != nil {
			return Result{}, err
		}
		if len(slots) == 0 {
			return Result{
				Status:    StatusUnavailable,
				EventName: name,
				Start:     start,
				Message:   fmt.Sprintf("\"%s\" clashes with \"%s\" and I couldn't find a free slot in the next week.", name, conflicts[0].Summary),
			}, nil
		}
		return Result{
			Status:      StatusRequiresChoice,
			EventName:   name,
			Start:       start,
			Suggestions: slots,
			Message:     suggestionMessage(name, conflicts[0].Summary, slots),
		}, nil
	}

	if !s.withinWorkingHours(start, end) {
		event, err := s.CreateTentativeEvent(ctx, name, start, end)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Status:    StatusRequiresConfirmation,
			EventID:   event.ID,
			EventName: name,
			Start:     start,
			Message: fmt.Sprintf("%s on %s is outside working hours, so I've pencilled it in as tentative. Should I confirm it?",
				name, start.Format(displayLayout)),
		}, nil
	}

	event, err := s.store.InsertEvent(ctx, Event{Summary: name, Start: start, End: end, Status: EventConfirmed})
	if err != nil {
		return Result{}, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info(module, "Event scheduled", map[string]interface{}{
		"event_id": event.ID,
		"start":    start.Format(time.RFC3339),
	})
	return Result{
		Status:    StatusCreated,
		EventID:   event.ID,
		EventName: name,
		Start:     start,
		Message:   scheduledMessage(name, start),
	}, nil
}

func (s *Scheduler) CreateTentativeEvent(ctx context.Context, name string, start, end time.Time) (Event, error) {
	event, err := s.store.InsertEvent(ctx, Event{Summary: name, Start: start, End: end, Status: EventTentative})
	if err != nil {
		return Event{}, fmt.Errorf("create tentative event: %w", err)
	}
	return event, nil
}

// ConfirmEvent promotes a tentative event, or removes it when the user declines.
func (s *Scheduler) ConfirmEvent(ctx context.Context, eventID string, confirmed bool) (string, error) {
	if !confirmed {
		if err := s.store.DeleteEvent(ctx, eventID); err != nil {
			return "", fmt.Errorf("discard tentative event: %w", err)
		}
		return "Okay, I won't schedule it.", nil
	}

	event, err := s.store.UpdateStatus(ctx, eventID, EventConfirmed)
	if err != nil {
		return "", fmt.Errorf("confirm event: %w", err)
	}
	return fmt.Sprintf("Confirmed \"%s\" for %s. You're locked in!", event.Summary, event.Start.In(s.loc).Format(displayLayout)), nil
}

// ResolveSuggestion maps a reply such as "2", "the first one" or "11:30" onto
// one of the offered slots and books it. resolved is false when the reply
// names none of them.
func (s *Scheduler) ResolveSuggestion(ctx context.Context, reply string, sc SuggestionContext) (Resolution, bool, error) {
	idx := s.pickSuggestion(reply, sc.Suggestions)
	if idx < 0 {
		return Resolution{}, false, nil
	}

	slot := sc.Suggestions[idx]
	event, err := s.store.InsertEvent(ctx, Event{
		Summary: sc.EventName,
		Start:   slot.Start,
		End:     slot.End,
		Status:  EventConfirmed,
	})
	if err != nil {
		return Resolution{}, false, fmt.Errorf("book suggested slot: %w", err)
	}
	start := slot.Start.In(s.loc)
	return Resolution{
		EventID:   event.ID,
		EventName: sc.EventName,
		Start:     start,
		Message:   scheduledMessage(sc.EventName, start),
	}, true, nil
}

// CheckConflicts returns timed, non-cancelled events overlapping [start, end).
func (s *Scheduler) CheckConflicts(ctx context.Context, start, end time.Time) ([]Event, error) {
	events, err := s.store.ListEvents(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	var conflicts []Event
	for _, e := range events {
		if blocking(e) && e.overlaps(start, end) {
			conflicts = append(conflicts, e)
		}
	}
	return conflicts, nil
}

func blocking(e Event) bool {
	return !e.AllDay && e.Status != EventCancelled
}

func (s *Scheduler) withinWorkingHours(start, end time.Time) bool {
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), workdayStartHour, 0, 0, 0, s.loc)
	dayEnd := time.Date(start.Year(), start.Month(), start.Day(), workdayEndHour, 0, 0, 0, s.loc)
	return !start.Before(dayStart) && !end.After(dayEnd)
}

// freeSlots walks forward from the requested start in half-hour steps and
// collects the first free working-hours slots.
func (s *Scheduler) freeSlots(ctx context.Context, from time.Time, duration time.Duration) ([]store.TimeSlot, error) {
	horizon := from.Add(searchHorizon)
	events, err := s.store.ListEvents(ctx, from, horizon)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	var slots []store.TimeSlot
	candidate := from.Add(suggestionStep)
	for len(slots) < suggestionCount && candidate.Before(horizon) {
		candidate = s.clampToWorkday(candidate, duration)
		end := candidate.Add(duration)

		free := true
		for _, e := range events {
			if blocking(e) && e.overlaps(candidate, end) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, store.TimeSlot{Start: candidate, End: end})
			candidate = end
			continue
		}
		candidate = candidate.Add(suggestionStep)
	}
	return slots, nil
}

func (s *Scheduler) clampToWorkday(t time.Time, duration time.Duration) time.Time {
	t = t.In(s.loc)
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), workdayStartHour, 0, 0, 0, s.loc)
	dayEnd := time.Date(t.Year(), t.Month(), t.Day(), workdayEndHour, 0, 0, 0, s.loc)
	if t.Before(dayStart) {
		return dayStart
	}
	if t.Add(duration).After(dayEnd) {
		return dayStart.AddDate(0, 0, 1)
	}
	return t
}

var (
	choiceNumber = regexp.MustCompile(`(?:^|\s|#)([1-9])(?:$|[\s.,!?)])`)
	choiceClock  = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	ordinals     = map[string]int{"first": 0, "1st": 0, "second": 1, "2nd": 1, "third": 2, "3rd": 2}
)

func (s *Scheduler) pickSuggestion(reply string, slots []store.TimeSlot) int {
	text := strings.ToLower(strings.TrimSpace(reply))
	if len(slots) == 0 || text == "" {
		return -1
	}

	if m := choiceNumber.FindStringSubmatch(" " + text + " "); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n >= 1 && n <= len(slots) {
			return n - 1
		}
	}
	for _, word := range strings.FieldsFunc(text, func(r rune) bool { return r == ' ' || r == ',' || r == '.' }) {
		if idx, ok := ordinals[word]; ok && idx < len(slots) {
			return idx
		}
		if word == "last" {
			return len(slots) - 1
		}
	}

	for _, m := range choiceClock.FindAllStringSubmatch(text, -1) {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if m[3] == "pm" && hour < 12 {
			hour += 12
		}
		if m[3] == "am" && hour == 12 {
			hour = 0
		}
		for i, slot := range slots {
			local := slot.Start.In(s.loc)
			if local.Hour() == hour && local.Minute() == minute {
				return i
			}
		}
	}
	return -1
}

func scheduledMessage(name string, start time.Time) string {
	return fmt.Sprintf("Scheduled %s on %s. You're locked in!", name, start.Format(displayLayout))
}

func suggestionMessage(name, conflict string, slots []store.TimeSlot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\"%s\" clashes with \"%s\". Free slots:\n", name, conflict)
	for i, slot := range slots {
		fmt.Fprintf(&b, "%d. %s\n", i+1, slot.Start.Format(displayLayout))
	}
	b.WriteString("Which one works? Or say no to skip it.")
	return b.String()
}
