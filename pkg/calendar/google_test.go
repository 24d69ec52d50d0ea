package calendar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rewriteTransport struct {
	Transport http.RoundTripper
	Host      string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.Host
	return t.Transport.RoundTrip(req)
}

func newTestGoogleStore(t *testing.T, handler http.HandlerFunc) *GoogleStore {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client := ts.Client()
	client.Transport = &rewriteTransport{Transport: client.Transport, Host: strings.TrimPrefix(ts.URL, "http://")}

	g, err := NewGoogleStoreFromHTTP(context.Background(), client, "", "UTC")
	require.NoError(t, err)
	return g
}

func TestGoogleStoreListEvents(t *testing.T) {
	g := newTestGoogleStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendar/v3/calendars/primary/events", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [
			{"id": "e1", "summary": "Planning", "status": "confirmed",
			 "start": {"dateTime": "2026-04-15T10:00:00Z"}, "end": {"dateTime": "2026-04-15T11:00:00Z"}},
			{"id": "e2", "summary": "Holiday",
			 "start": {"date": "2026-04-16"}, "end": {"date": "2026-04-17"}}
		]}`))
	})

	events, err := g.ListEvents(context.Background(), at(15, 0, 0), at(17, 0, 0))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Planning", events[0].Summary)
	assert.True(t, events[0].Start.Equal(at(15, 10, 0)))
	assert.False(t, events[0].AllDay)
	assert.True(t, events[1].AllDay)
}

func TestGoogleStoreInsertEvent(t *testing.T) {
	g := newTestGoogleStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		var sent map[string]interface{}
		assert.NoError(t, json.Unmarshal(body, &sent))
		assert.Equal(t, "Standup", sent["summary"])
		assert.Equal(t, "tentative", sent["status"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "new-1", "summary": "Standup", "status": "tentative",
			"start": {"dateTime": "2026-04-15T10:00:00Z"}, "end": {"dateTime": "2026-04-15T11:00:00Z"}}`))
	})

	created, err := g.InsertEvent(context.Background(), Event{
		Summary: "Standup",
		Start:   at(15, 10, 0),
		End:     at(15, 11, 0),
		Status:  EventTentative,
	})
	require.NoError(t, err)
	assert.Equal(t, "new-1", created.ID)
	assert.True(t, created.End.Equal(at(15, 11, 0)))
}

func TestGoogleStoreErrors(t *testing.T) {
	g := newTestGoogleStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := g.ListEvents(context.Background(), time.Now(), time.Now().Add(time.Hour))
	assert.Error(t, err)
	assert.Error(t, g.DeleteEvent(context.Background(), "e1"))
	_, err = g.UpdateStatus(context.Background(), "e1", EventConfirmed)
	assert.Error(t, err)
}
