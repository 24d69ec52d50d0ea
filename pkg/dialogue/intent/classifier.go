package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"twinai-be/internal/pkg/logger"
	"twinai-be/pkg/llm"
)

const module = "INTENT"

type Intent string

const (
	Research Intent = "research"
	Calendar Intent = "calendar"
	Email    Intent = "email"
	Exit     Intent = "exit"
	Chat     Intent = "chat"
)

// StartsFlow is true for intents whose handler opens a multi-turn flow.
func (i Intent) StartsFlow() bool {
	return i == Calendar || i == Email
}

// deepResearchPatterns route straight to research without asking the model.
var deepResearchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)deep research`),
	regexp.MustCompile(`(?i)comprehensive research`),
	regexp.MustCompile(`(?i)thorough analysis`),
	regexp.MustCompile(`(?i)detailed study`),
	regexp.MustCompile(`(?i)in-depth report`),
	regexp.MustCompile(`(?i)academic paper`),
	regexp.MustCompile(`(?i)scholarly (article|research)`),
	regexp.MustCompile(`(?i)literature review`),
}

// labelPriority is the order model output is scanned in.
var labelPriority = []Intent{Research, Calendar, Email, Exit}

// keywordFallback applies only when the model is unavailable.
var keywordFallback = []struct {
	keywords []string
	intent   Intent
}{
	{keywords: []string{"schedule", "meeting", "appointment"}, intent: Calendar},
	{keywords: []string{"email", "send"}, intent: Email},
	{keywords: []string{"quit", "bye", "goodbye"}, intent: Exit},
}

const classifyPrompt = `Classify the user's message into exactly one label.

research_intent: the user wants information gathered and summarized on a topic
calendar_intent: the user wants to schedule, move or check a meeting or event
email_intent: the user wants to write or send an email
exit_intent: the user is ending the conversation
chat_intent: anything else

Reply with the label only.

Message: %s
Label:`

type Cache interface {
	Get(utterance string) (string, bool)
	Set(utterance, intent string)
}

type Classifier struct {
	llmProvider llm.LLMProvider
	cache       Cache
	logger      logger.ILogger
}

func NewClassifier(llmProvider llm.LLMProvider, cache Cache, log logger.ILogger) *Classifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Classifier{llmProvider: llmProvider, cache: cache, logger: log}
}

// Classify never fails; anything it cannot decide is Chat.
func (c *Classifier) Classify(ctx context.Context, utterance string) Intent {
	if cached, ok := c.cache.Get(utterance); ok {
		return Intent(cached)
	}

	for _, p := range deepResearchPatterns {
		if p.MatchString(utterance) {
			c.cache.Set(utterance, string(Research))
			return Research
		}
	}

	output, err := c.llmProvider.Generate(ctx,
		fmt.Sprintf(classifyPrompt, utterance),
		llm.WithTemperature(0),
		llm.WithMaxTokens(20),
	)
	if err != nil {
		fallback := ByKeyword(utterance)
		c.logger.Warn(module, "Classification model failed, using keywords", map[string]interface{}{
			"error":  err,
			"intent": string(fallback),
		})
		return fallback
	}

	result := ParseLabel(output)
	c.cache.Set(utterance, string(result))
	c.logger.Debug(module, "Classified utterance", map[string]interface{}{
		"intent": string(result),
		"raw":    output,
	})
	return result
}

// ParseLabel maps free-form model output to an Intent by substring, in priority order.
func ParseLabel(output string) Intent {
	lowered := strings.ToLower(output)
	for _, label := range labelPriority {
		if strings.Contains(lowered, string(label)) {
			return label
		}
	}
	return Chat
}

func ByKeyword(utterance string) Intent {
	lowered := strings.ToLower(utterance)
	for _, rule := range keywordFallback {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.intent
			}
		}
	}
	return Chat
}
