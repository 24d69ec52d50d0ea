package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"twinai-be/internal/repository/memory"
	"twinai-be/pkg/llm/llmtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepResearchPatternsSkipModel(t *testing.T) {
	utterances := []string{
		"Do a deep research on fusion energy",
		"I need a COMPREHENSIVE RESEARCH report",
		"thorough analysis of the housing market",
		"detailed study of bees",
		"write an in-depth report on GPUs",
		"find an academic paper about transformers",
		"any scholarly article on sleep?",
		"scholarly research into memory",
		"literature review of RAG",
	}

	for _, u := range utterances {
		t.Run(u, func(t *testing.T) {
			provider := llmtest.Reply("chat_intent")
			c := NewClassifier(provider, memory.NewIntentCache(time.Hour), nil)

			assert.Equal(t, Research, c.Classify(context.Background(), u))
			assert.Equal(t, 0, provider.CallCount())
		})
	}
}

func TestClassifyCachesModelResult(t *testing.T) {
	provider := llmtest.Reply("calendar_intent")
	c := NewClassifier(provider, memory.NewIntentCache(time.Hour), nil)
	ctx := context.Background()

	first := c.Classify(ctx, "set something up with Dana")
	second := c.Classify(ctx, "set something up with Dana")

	assert.Equal(t, Calendar, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.CallCount())

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 0.0, calls[0].Options.Temperature)
	assert.Equal(t, 20, calls[0].Options.MaxTokens)
	assert.Contains(t, calls[0].Prompt, "set something up with Dana")
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		output string
		want   Intent
	}{
		{output: "research_intent", want: Research},
		{output: "Calendar_Intent\n", want: Calendar},
		{output: "email_intent", want: Email},
		{output: "exit_intent", want: Exit},
		{output: "chat_intent", want: Chat},
		{output: "email or calendar?", want: Calendar},
		{output: "research then email", want: Research},
		{output: "", want: Chat},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLabel(tt.output))
		})
	}
}

func TestModelFailureUsesKeywords(t *testing.T) {
	tests := []struct {
		utterance string
		want      Intent
	}{
		{utterance: "schedule lunch", want: Calendar},
		{utterance: "book an appointment", want: Calendar},
		{utterance: "send the report", want: Email},
		{utterance: "email Bob", want: Email},
		{utterance: "ok bye", want: Exit},
		{utterance: "how are you?", want: Chat},
	}

	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			cache := memory.NewIntentCache(time.Hour)
			c := NewClassifier(llmtest.Fail(errors.New("timeout")), cache, nil)

			assert.Equal(t, tt.want, c.Classify(context.Background(), tt.utterance))
			_, cached := cache.Get(tt.utterance)
			assert.False(t, cached)
		})
	}
}

func TestStartsFlow(t *testing.T) {
	assert.True(t, Email.StartsFlow())
	assert.True(t, Calendar.StartsFlow())
	assert.False(t, Research.StartsFlow())
	assert.False(t, Chat.StartsFlow())
}
