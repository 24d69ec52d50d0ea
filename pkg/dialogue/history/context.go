package history

import (
	"twinai-be/pkg/llm"
	"twinai-be/pkg/store"
)

// ToLLM converts history into model context. System records are dropped.
func ToLLM(msgs []store.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.IsSystem() {
			continue
		}
		role := "user"
		if msg.Role == store.RoleAssistant {
			role = "assistant"
		}
		out = append(out, llm.Message{Role: role, Content: msg.Content})
	}
	return out
}
