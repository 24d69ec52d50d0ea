package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"twinai-be/pkg/calendar"
	"twinai-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

type fakeScheduler struct {
	confirms   []bool
	confirmErr error
	resolve    func(reply string) (calendar.Resolution, bool)
}

func (s *fakeScheduler) ConfirmEvent(ctx context.Context, eventID string, confirmed bool) (string, error) {
	s.confirms = append(s.confirms, confirmed)
	if s.confirmErr != nil {
		return "", s.confirmErr
	}
	if confirmed {
		return "Confirmed " + eventID, nil
	}
	return "Okay, I won't schedule it.", nil
}

func (s *fakeScheduler) ResolveSuggestion(ctx context.Context, reply string, sc calendar.SuggestionContext) (calendar.Resolution, bool, error) {
	if s.resolve == nil {
		return calendar.Resolution{}, false, nil
	}
	res, ok := s.resolve(reply)
	return res, ok, nil
}

func TestHandleConfirmation(t *testing.T) {
	pending := &store.PendingConfirmation{EventID: "e1", EventName: "Standup"}

	tests := []struct {
		reply       string
		wantHandled bool
		wantBooked  bool
		wantContent string
	}{
		{reply: "yes", wantHandled: true, wantBooked: true, wantContent: "Confirmed e1"},
		{reply: "Sure, schedule it", wantHandled: true, wantBooked: true, wantContent: "Confirmed e1"},
		{reply: "okay", wantHandled: true, wantBooked: true, wantContent: "Confirmed e1"},
		{reply: "Confirmed", wantHandled: true, wantBooked: true, wantContent: "Confirmed e1"},
		{reply: "nope", wantHandled: true, wantContent: "Okay, I won't schedule it."},
		{reply: "don't bother", wantHandled: true, wantContent: "Okay, I won't schedule it."},
		{reply: "what's the weather?", wantHandled: false},
		{reply: "yesterday was fun", wantHandled: false},
		{reply: "I know", wantHandled: false},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			c := NewCalendarFlow(&fakeScheduler{}, nil)
			out := c.HandleConfirmation(context.Background(), pending, tt.reply)
			assert.Equal(t, tt.wantHandled, out.Handled)
			assert.Equal(t, tt.wantBooked, out.Booked)
			assert.Equal(t, tt.wantContent, out.Content)
		})
	}
}

func TestHandleConfirmationErrorBecomesContent(t *testing.T) {
	c := NewCalendarFlow(&fakeScheduler{confirmErr: errors.New("token expired")}, nil)
	out := c.HandleConfirmation(context.Background(), &store.PendingConfirmation{EventID: "e1"}, "ok")

	assert.True(t, out.Handled)
	assert.False(t, out.Booked)
	assert.Equal(t, "Calendar vibes off: token expired", out.Content)
}

func TestHandleSuggestion(t *testing.T) {
	start := time.Date(2026, 4, 15, 14, 0, 0, 0, time.UTC)
	sched := &fakeScheduler{resolve: func(reply string) (calendar.Resolution, bool) {
		if reply == "2" {
			return calendar.Resolution{EventID: "e9", EventName: "Standup", Start: start, Message: "Scheduled Standup"}, true
		}
		return calendar.Resolution{}, false
	}}
	pending := &store.PendingSuggestion{EventName: "Standup", Suggestions: []store.TimeSlot{{Start: start, End: start.Add(time.Hour)}}}
	c := NewCalendarFlow(sched, nil)

	out := c.HandleSuggestion(context.Background(), pending, "2")
	assert.True(t, out.Handled)
	assert.True(t, out.Booked)
	assert.Equal(t, "e9", out.EventID)

	out = c.HandleSuggestion(context.Background(), pending, "no thanks")
	assert.True(t, out.Handled)
	assert.False(t, out.Booked)
	assert.Equal(t, "Okay, I won't schedule it.", out.Content)

	out = c.HandleSuggestion(context.Background(), pending, "tell me a joke")
	assert.False(t, out.Handled)
}

func TestCalendarFlowWithoutScheduler(t *testing.T) {
	c := NewCalendarFlow(nil, nil)
	ctx := context.Background()

	out := c.HandleConfirmation(ctx, &store.PendingConfirmation{EventID: "evt-1", EventName: "Standup"}, "maybe later")
	assert.True(t, out.Handled)
	assert.False(t, out.Booked)

	out = c.HandleSuggestion(ctx, &store.PendingSuggestion{EventName: "Standup"}, "2")
	assert.True(t, out.Handled)
	assert.Contains(t, out.Content, "isn't connected")
}
