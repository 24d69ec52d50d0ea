package calendar

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"twinai-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	events  map[string]Event
	nextID  int
	lists   int
	listErr error
}

func newMemStore(events ...Event) *memStore {
	s := &memStore{events: map[string]Event{}}
	for _, e := range events {
		if e.ID == "" {
			s.nextID++
			e.ID = fmt.Sprintf("seed-%d", s.nextID)
		}
		if e.Status == "" {
			e.Status = EventConfirmed
		}
		s.events[e.ID] = e
	}
	return s
}

func (s *memStore) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Event
	for _, e := range s.events {
		if e.overlaps(from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) InsertEvent(ctx context.Context, e Event) (Event, error) {
	s.nextID++
	e.ID = fmt.Sprintf("evt-%d", s.nextID)
	s.events[e.ID] = e
	return e, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id, status string) (Event, error) {
	e, ok := s.events[id]
	if !ok {
		return Event{}, errors.New("not found")
	}
	e.Status = status
	s.events[id] = e
	return e, nil
}

func (s *memStore) DeleteEvent(ctx context.Context, id string) error {
	if _, ok := s.events[id]; !ok {
		return errors.New("not found")
	}
	delete(s.events, id)
	return nil
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 4, day, hour, minute, 0, 0, time.UTC)
}

func TestScheduleFreeSlotCreatesEvent(t *testing.T) {
	ms := newMemStore()
	s := NewScheduler(ms, time.UTC, time.Hour, nil)

	res, err := s.Schedule(context.Background(), Request{EventName: "Standup", Start: at(15, 10, 0)})
	require.NoError(t, err)

	assert.Equal(t, StatusCreated, res.Status)
	assert.Equal(t, "Standup", res.EventName)
	require.Contains(t, ms.events, res.EventID)
	assert.Equal(t, EventConfirmed, ms.events[res.EventID].Status)
	assert.Equal(t, at(15, 11, 0), ms.events[res.EventID].End)
	assert.Contains(t, res.Message, "Standup")
}

func TestScheduleOutsideHoursNeedsConfirmation(t *testing.T) {
	ms := newMemStore()
	s := NewScheduler(ms, time.UTC, time.Hour, nil)

	res, err := s.Schedule(context.Background(), Request{EventName: "Late sync", Start: at(15, 19, 0)})
	require.NoError(t, err)

	assert.Equal(t, StatusRequiresConfirmation, res.Status)
	assert.Equal(t, EventTentative, ms.events[res.EventID].Status)

	msg, err := s.ConfirmEvent(context.Background(), res.EventID, true)
	require.NoError(t, err)
	assert.Contains(t, msg, "Confirmed \"Late sync\"")
	assert.Equal(t, EventConfirmed, ms.events[res.EventID].Status)
}

func TestConfirmEventRejectDiscards(t *testing.T) {
	ms := newMemStore(Event{ID: "t1", Summary: "Maybe", Start: at(15, 20, 0), End: at(15, 21, 0), Status: EventTentative})
	s := NewScheduler(ms, time.UTC, time.Hour, nil)

	msg, err := s.ConfirmEvent(context.Background(), "t1", false)
	require.NoError(t, err)
	assert.Equal(t, "Okay, I won't schedule it.", msg)
	assert.NotContains(t, ms.events, "t1")

	_, err = s.ConfirmEvent(context.Background(), "missing", true)
	assert.Error(t, err)
}

func TestScheduleConflictOffersThreeSlots(t *testing.T) {
	ms := newMemStore(
		Event{Summary: "Planning", Start: at(15, 10, 0), End: at(15, 11, 0)},
		Event{Summary: "Lunch", Start: at(15, 11, 30), End: at(15, 12, 30)},
	)
	s := NewScheduler(ms, time.UTC, time.Hour, nil)

	res, err := s.Schedule(context.Background(), Request{EventName: "Standup", Start: at(15, 10, 0)})
	require.NoError(t, err)

	assert.Equal(t, StatusRequiresChoice, res.Status)
	assert.Empty(t, res.EventID)
	assert.Equal(t, []store.TimeSlot{
		{Start: at(15, 12, 30), End: at(15, 13, 30)},
		{Start: at(15, 13, 30), End: at(15, 14, 30)},
		{Start: at(15, 14, 30), End: at(15, 15, 30)},
	}, res.Suggestions)
	assert.Contains(t, res.Message, "Planning")
	assert.Len(t, ms.events, 2)
}

func TestSuggestionsStayInsideWorkingHours(t *testing.T) {
	ms := newMemStore(Event{Summary: "Wrap-up", Start: at(15, 16, 0), End: at(15, 18, 0)})
	s := NewScheduler(ms, time.UTC, time.Hour, nil)

	res, err := s.Schedule(context.Background(), Request{EventName: "Review", Start: at(15, 16, 30)})
	require.NoError(t, err)
	require.Equal(t, StatusRequiresChoice, res.Status)
	require.Len(t, res.Suggestions, 3)

	assert.Equal(t, at(16, 9, 0), res.Suggestions[0].Start)
	for _, slot := range res.Suggestions {
		assert.GreaterOrEqual(t, slot.Start.Hour(), workdayStartHour)
		assert.LessOrEqual(t, slot.End.Hour(), workdayEndHour)
	}
}

func TestCheckConflictsIgnoresAllDayAndCancelled(t *testing.T) {
	ms := newMemStore(
		Event{Summary: "Holiday", Start: at(15, 0, 0), End: at(16, 0, 0), AllDay: true},
		Event{Summary: "Dropped", Start: at(15, 10, 0), End: at(15, 11, 0), Status: EventCancelled},
	)
	s := NewScheduler(ms, time.UTC, time.Hour, nil)

	conflicts, err := s.CheckConflicts(context.Background(), at(15, 10, 0), at(15, 11, 0))
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestScheduleListFailure(t *testing.T) {
	ms := newMemStore()
	ms.listErr = errors.New("quota exceeded")
	s := NewScheduler(ms, time.UTC, time.Hour, nil)

	_, err := s.Schedule(context.Background(), Request{EventName: "x", Start: at(15, 10, 0)})
	assert.Error(t, err)
}

func TestResolveSuggestion(t *testing.T) {
	sc := SuggestionContext{
		EventName: "Standup",
		Suggestions: []store.TimeSlot{
			{Start: at(15, 12, 30), End: at(15, 13, 30)},
			{Start: at(15, 14, 0), End: at(15, 15, 0)},
			{Start: at(15, 16, 0), End: at(15, 17, 0)},
		},
	}

	tests := []struct {
		reply     string
		wantStart time.Time
		resolved  bool
	}{
		{reply: "2", wantStart: at(15, 14, 0), resolved: true},
		{reply: "option 3 please", wantStart: at(15, 16, 0), resolved: true},
		{reply: "the first one", wantStart: at(15, 12, 30), resolved: true},
		{reply: "last", wantStart: at(15, 16, 0), resolved: true},
		{reply: "12:30 works", wantStart: at(15, 12, 30), resolved: true},
		{reply: "let's do 2pm", wantStart: at(15, 14, 0), resolved: true},
		{reply: "7", resolved: false},
		{reply: "what about friday?", resolved: false},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			ms := newMemStore()
			s := NewScheduler(ms, time.UTC, time.Hour, nil)

			res, ok, err := s.ResolveSuggestion(context.Background(), tt.reply, sc)
			require.NoError(t, err)
			assert.Equal(t, tt.resolved, ok)
			if !tt.resolved {
				assert.Empty(t, ms.events)
				return
			}
			assert.Equal(t, tt.wantStart, res.Start)
			assert.Equal(t, "Standup", res.EventName)
			assert.Contains(t, ms.events, res.EventID)
		})
	}
}

func TestCachedStoreFlushesOnWrite(t *testing.T) {
	ms := newMemStore()
	c := NewCachedStore(ms, time.Minute)
	ctx := context.Background()

	_, err := c.ListEvents(ctx, at(15, 9, 0), at(15, 18, 0))
	require.NoError(t, err)
	_, err = c.ListEvents(ctx, at(15, 9, 0), at(15, 18, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, ms.lists)

	_, err = c.InsertEvent(ctx, Event{Summary: "x", Start: at(15, 10, 0), End: at(15, 11, 0)})
	require.NoError(t, err)

	events, err := c.ListEvents(ctx, at(15, 9, 0), at(15, 18, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, ms.lists)
	assert.Len(t, events, 1)
}
