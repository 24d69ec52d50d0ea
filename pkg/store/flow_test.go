package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowValidate(t *testing.T) {
	tests := []struct {
		name    string
		flow    *Flow
		wantErr bool
	}{
		{
			name: "email variant",
			flow: NewEmailFlow("s", &EmailDraft{Stage: StageCollectingPurpose}),
		},
		{
			name: "confirmation variant",
			flow: NewConfirmationFlow("s", &PendingConfirmation{EventID: "e1", EventName: "Standup"}),
		},
		{
			name:    "no payload",
			flow:    &Flow{Kind: FlowEmail},
			wantErr: true,
		},
		{
			name: "two payloads",
			flow: &Flow{
				Kind:         FlowEmail,
				Email:        &EmailDraft{},
				Confirmation: &PendingConfirmation{},
			},
			wantErr: true,
		},
		{
			name:    "kind mismatch",
			flow:    &Flow{Kind: FlowCalendarSuggestion, Email: &EmailDraft{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.flow.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidFlow))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFlowDescribe(t *testing.T) {
	assert.Equal(t, "an email to a@b.com", NewEmailFlow("s", &EmailDraft{To: "a@b.com"}).Describe())
	assert.Equal(t, "an email draft", NewEmailFlow("s", &EmailDraft{}).Describe())
	assert.Equal(t, `a pending confirmation for "Standup"`,
		NewConfirmationFlow("s", &PendingConfirmation{EventName: "Standup"}).Describe())
}

func TestEmailDraftComplete(t *testing.T) {
	assert.False(t, (&EmailDraft{To: "a@b.com", Subject: "Hi"}).Complete())
	assert.True(t, (&EmailDraft{To: "a@b.com", Subject: "Hi", Body: "Hello"}).Complete())
}
