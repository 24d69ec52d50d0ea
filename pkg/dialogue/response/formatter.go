package response

import (
	"encoding/json"

	"twinai-be/pkg/store"
)

// Response is the typed reply returned for every turn.
type Response struct {
	Content    string            `json:"content"`
	Type       store.MessageType `json:"type"`
	Structured json.RawMessage   `json:"structured,omitempty"`
}

// Format tags content with its rendering type; unknown types render as text.
func Format(content string, t store.MessageType) Response {
	if !t.Valid() {
		t = store.TypeText
	}
	return Response{Content: content, Type: t}
}

// WithData attaches a machine-readable payload. Values that fail to encode are dropped.
func (r Response) WithData(v interface{}) Response {
	if v == nil {
		return r
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return r
	}
	r.Structured = raw
	return r
}

// Message converts the reply into an assistant history entry.
func (r Response) Message() store.Message {
	return store.Message{
		Role:       store.RoleAssistant,
		Content:    r.Content,
		Type:       r.Type,
		Structured: r.Structured,
	}
}
