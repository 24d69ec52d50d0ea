// Package llmtest provides a scripted LLMProvider for tests.
package llmtest

import (
	"context"
	"sync"

	"twinai-be/pkg/llm"
)

type Call struct {
	Prompt  string // content of the last message
	History []llm.Message
	Options *llm.Options
}

// RespondFunc decides the reply for one call.
type RespondFunc func(call Call) (string, error)

// Provider records every call and answers through Respond.
type Provider struct {
	mu      sync.Mutex
	calls   []Call
	Respond RespondFunc
}

var _ llm.LLMProvider = (*Provider)(nil)

func New(respond RespondFunc) *Provider {
	return &Provider{Respond: respond}
}

// Reply always answers text.
func Reply(text string) *Provider {
	return New(func(Call) (string, error) { return text, nil })
}

// Fail always answers err.
func Fail(err error) *Provider {
	return New(func(Call) (string, error) { return "", err })
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	call := Call{History: history, Options: llm.Apply(0.7, opts...)}
	if len(history) > 0 {
		call.Prompt = history[len(history)-1].Content
	}

	p.mu.Lock()
	p.calls = append(p.calls, call)
	respond := p.Respond
	p.mu.Unlock()

	if respond == nil {
		return "", nil
	}
	return respond(call)
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}
