package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleStore is an EventStore backed by the Google Calendar v3 API.
type GoogleStore struct {
	service    *gcal.Service
	calendarID string
	timezone   string
}

// NewGoogleStoreFromCredentialsFile accepts a service account key or an
// installed-app client file accompanied by token.json.
func NewGoogleStoreFromCredentialsFile(ctx context.Context, path, calendarID, timezone string) (*GoogleStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if cfg, err := google.JWTConfigFromJSON(data, gcal.CalendarScope); err == nil {
		svc, err := gcal.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx)))
		if err != nil {
			return nil, fmt.Errorf("failed to create calendar service: %w", err)
		}
		return newGoogleStore(svc, calendarID, timezone), nil
	}

	oauthCfg, err := google.ConfigFromJSON(data, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unsupported credentials format: %w", err)
	}
	tokenData, err := os.ReadFile("token.json")
	if err != nil {
		return nil, fmt.Errorf("oauth client credentials need a token.json: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenData, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token.json: %w", err)
	}

	svc, err := gcal.NewService(ctx, option.WithTokenSource(oauthCfg.TokenSource(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service from oauth token: %w", err)
	}
	return newGoogleStore(svc, calendarID, timezone), nil
}

func NewGoogleStoreFromHTTP(ctx context.Context, client *http.Client, calendarID, timezone string) (*GoogleStore, error) {
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return newGoogleStore(svc, calendarID, timezone), nil
}

func newGoogleStore(svc *gcal.Service, calendarID, timezone string) *GoogleStore {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleStore{service: svc, calendarID: calendarID, timezone: timezone}
}

func (g *GoogleStore) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	resp, err := g.service.Events.List(g.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(100).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}

	events := make([]Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		events = append(events, fromGoogle(item))
	}
	return events, nil
}

func (g *GoogleStore) InsertEvent(ctx context.Context, event Event) (Event, error) {
	created, err := g.service.Events.Insert(g.calendarID, &gcal.Event{
		Summary: event.Summary,
		Status:  event.Status,
		Start:   &gcal.EventDateTime{DateTime: event.Start.Format(time.RFC3339), TimeZone: g.timezone},
		End:     &gcal.EventDateTime{DateTime: event.End.Format(time.RFC3339), TimeZone: g.timezone},
	}).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("failed to create calendar event: %w", err)
	}
	return fromGoogle(created), nil
}

func (g *GoogleStore) UpdateStatus(ctx context.Context, id, status string) (Event, error) {
	patched, err := g.service.Events.Patch(g.calendarID, id, &gcal.Event{Status: status}).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("failed to update calendar event: %w", err)
	}
	return fromGoogle(patched), nil
}

func (g *GoogleStore) DeleteEvent(ctx context.Context, id string) error {
	if err := g.service.Events.Delete(g.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	return nil
}

func fromGoogle(item *gcal.Event) Event {
	event := Event{ID: item.Id, Summary: item.Summary, Status: item.Status}
	if item.Start != nil {
		if item.Start.DateTime == "" {
			event.AllDay = true
			event.Start, _ = time.Parse("2006-01-02", item.Start.Date)
		} else {
			event.Start, _ = time.Parse(time.RFC3339, item.Start.DateTime)
		}
	}
	if item.End != nil {
		if item.End.DateTime == "" {
			event.End, _ = time.Parse("2006-01-02", item.End.Date)
		} else {
			event.End, _ = time.Parse(time.RFC3339, item.End.DateTime)
		}
	}
	return event
}
