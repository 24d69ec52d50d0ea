package store

import (
	"errors"
	"fmt"
	"time"
)

// FlowKind discriminates the variants a session Flow can hold.
type FlowKind string

const (
	FlowEmail                FlowKind = "email"
	FlowCalendarConfirmation FlowKind = "calendar_confirmation"
	FlowCalendarSuggestion   FlowKind = "calendar_suggestion"
)

type EmailStage string

const (
	StageInit                EmailStage = "init"
	StageCollectingPurpose   EmailStage = "collecting_purpose"
	StageCollectingRecipient EmailStage = "collecting_recipient"
	StageCollectingSubject   EmailStage = "collecting_subject"
	StageGeneratingBody      EmailStage = "generating_body"
	StageCollectingBody      EmailStage = "collecting_body"
	StageConfirming          EmailStage = "confirming"
	StageEditing             EmailStage = "editing"
)

var ErrInvalidFlow = errors.New("invalid flow")

var (
	// ErrDurableStore marks failures of the authoritative store. Callers must
	// surface these instead of degrading the turn.
	ErrDurableStore = errors.New("durable store failure")

	ErrSessionForbidden = errors.New("chat session belongs to another user")
)

// Flow is the single in-progress multi-turn interaction of a session.
// Exactly one of Email, Confirmation or Suggestion is set, matching Kind.
type Flow struct {
	SessionID    string
	Kind         FlowKind
	Email        *EmailDraft
	Confirmation *PendingConfirmation
	Suggestion   *PendingSuggestion
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type EmailDraft struct {
	Stage     EmailStage `json:"stage"`
	Purpose   string     `json:"purpose,omitempty"`
	To        string     `json:"to,omitempty"`
	Subject   string     `json:"subject,omitempty"`
	Body      string     `json:"body,omitempty"`
	StyleHint *StyleHint `json:"style_hint,omitempty"`
}

// Complete reports whether the draft can be shown for confirmation.
func (d *EmailDraft) Complete() bool {
	return d.To != "" && d.Subject != "" && d.Body != ""
}

// StyleHint describes how previous correspondence with a recipient was written.
type StyleHint struct {
	Tone     string `json:"tone"`
	Greeting string `json:"greeting"`
	Closing  string `json:"closing"`
	Style    string `json:"style"`
}

type PendingConfirmation struct {
	EventID   string    `json:"event_id"`
	EventName string    `json:"event_name"`
	Start     time.Time `json:"start"`
}

type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type PendingSuggestion struct {
	EventName      string     `json:"event_name"`
	RequestedStart time.Time  `json:"requested_start"`
	Suggestions    []TimeSlot `json:"suggestions"`
}

func NewEmailFlow(sessionID string, draft *EmailDraft) *Flow {
	return &Flow{SessionID: sessionID, Kind: FlowEmail, Email: draft}
}

func NewConfirmationFlow(sessionID string, pending *PendingConfirmation) *Flow {
	return &Flow{SessionID: sessionID, Kind: FlowCalendarConfirmation, Confirmation: pending}
}

func NewSuggestionFlow(sessionID string, pending *PendingSuggestion) *Flow {
	return &Flow{SessionID: sessionID, Kind: FlowCalendarSuggestion, Suggestion: pending}
}

func (f *Flow) Validate() error {
	set := 0
	for _, present := range []bool{f.Email != nil, f.Confirmation != nil, f.Suggestion != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: %d variants set", ErrInvalidFlow, set)
	}

	switch {
	case f.Kind == FlowEmail && f.Email != nil,
		f.Kind == FlowCalendarConfirmation && f.Confirmation != nil,
		f.Kind == FlowCalendarSuggestion && f.Suggestion != nil:
		return nil
	}
	return fmt.Errorf("%w: kind %q does not match payload", ErrInvalidFlow, f.Kind)
}

// Describe names the flow in user-facing text.
func (f *Flow) Describe() string {
	switch f.Kind {
	case FlowEmail:
		if f.Email != nil && f.Email.To != "" {
			return fmt.Sprintf("an email to %s", f.Email.To)
		}
		return "an email draft"
	case FlowCalendarConfirmation:
		return fmt.Sprintf("a pending confirmation for \"%s\"", f.Confirmation.EventName)
	case FlowCalendarSuggestion:
		return fmt.Sprintf("a time choice for \"%s\"", f.Suggestion.EventName)
	}
	return "another request"
}
