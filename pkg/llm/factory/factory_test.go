package factory

import (
	"context"
	"testing"

	"twinai-be/pkg/llm/huggingface"
	"twinai-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider(context.Background(), "ollama", "llama3", "", "")
	require.NoError(t, err)
	o, ok := p.(*ollama.OllamaProvider)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:11434", o.BaseURL)

	_, err = NewLLMProvider(context.Background(), "gemini", "", "", "")
	assert.Error(t, err)

	_, err = NewLLMProvider(context.Background(), "huggingface", "m", "", "")
	assert.Error(t, err)

	p, err = NewLLMProvider(context.Background(), "huggingface", "m", "", "hf-token")
	require.NoError(t, err)
	assert.IsType(t, &huggingface.HuggingFaceProvider{}, p)

	_, err = NewLLMProvider(context.Background(), "openai", "gpt", "", "")
	assert.EqualError(t, err, "unsupported LLM provider: openai")
}
