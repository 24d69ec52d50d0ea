// Package style derives how the user usually writes to a recipient from the
// emails previously sent to them.
package style

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"twinai-be/internal/entity"
	"twinai-be/internal/pkg/logger"
	"twinai-be/internal/repository/contract"
	"twinai-be/internal/repository/specification"
	"twinai-be/pkg/llm"
	"twinai-be/pkg/store"

	"github.com/google/uuid"
)

const (
	module      = "STYLE"
	sampleLimit = 5
)

const analyzePrompt = `Below are emails previously sent to %s.
Describe their writing style as a JSON object with the keys
"tone" (e.g. formal, friendly), "greeting" (the usual opening line),
"closing" (the usual sign-off) and "style" (a few words on length and structure).

%s`

// Neutral is used when there is no usable history.
func Neutral() store.StyleHint {
	return store.StyleHint{Tone: "neutral", Greeting: "Hi", Closing: "Best regards", Style: "concise"}
}

type Analyzer struct {
	llmProvider llm.LLMProvider
	repo        contract.SentEmailRepository
	logger      logger.ILogger
	now         func() time.Time
}

func NewAnalyzer(llmProvider llm.LLMProvider, repo contract.SentEmailRepository, log logger.ILogger) *Analyzer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Analyzer{llmProvider: llmProvider, repo: repo, logger: log, now: time.Now}
}

// AnalyzeHistory never fails; problems degrade to Neutral.
func (a *Analyzer) AnalyzeHistory(ctx context.Context, recipient string) store.StyleHint {
	emails, err := a.repo.FindAll(ctx,
		specification.ByRecipient{Recipient: recipient},
		specification.OrderBy{Field: "sent_at", Desc: true},
		specification.Pagination{Limit: sampleLimit},
	)
	if err != nil {
		a.logger.Warn(module, "Failed to load sent emails", map[string]interface{}{
			"recipient": recipient,
			"error":     err,
		})
		return Neutral()
	}
	if len(emails) == 0 {
		return Neutral()
	}

	var samples strings.Builder
	for i, e := range emails {
		fmt.Fprintf(&samples, "--- Email %d ---\nSubject: %s\n%s\n\n", i+1, e.Subject, e.Body)
	}

	output, err := a.llmProvider.Generate(ctx, fmt.Sprintf(analyzePrompt, recipient, samples.String()),
		llm.WithTemperature(0.2),
		llm.WithMaxTokens(200),
		llm.WithJSONObject("tone", "greeting", "closing", "style"),
	)
	if err != nil {
		a.logger.Warn(module, "Style analysis failed", map[string]interface{}{"error": err})
		return Neutral()
	}

	hint, ok := parseHint(output)
	if !ok {
		a.logger.Debug(module, "Unparseable style output", map[string]interface{}{"raw": output})
		return Neutral()
	}
	return hint
}

// Record stores a delivered email so later drafts to the same recipient can follow its style.
func (a *Analyzer) Record(ctx context.Context, sessionID, to, subject, body string) error {
	err := a.repo.Create(ctx, &entity.SentEmail{
		Id:         uuid.New(),
		SessionKey: sessionID,
		Recipient:  strings.ToLower(strings.TrimSpace(to)),
		Subject:    subject,
		Body:       body,
		SentAt:     a.now(),
	})
	if err != nil {
		return fmt.Errorf("record sent email: %w", err)
	}
	return nil
}

func parseHint(output string) (store.StyleHint, bool) {
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start < 0 || end <= start {
		return store.StyleHint{}, false
	}

	var hint store.StyleHint
	if err := json.Unmarshal([]byte(output[start:end+1]), &hint); err != nil {
		return store.StyleHint{}, false
	}

	neutral := Neutral()
	if hint.Tone == "" {
		hint.Tone = neutral.Tone
	}
	if hint.Greeting == "" {
		hint.Greeting = neutral.Greeting
	}
	if hint.Closing == "" {
		hint.Closing = neutral.Closing
	}
	if hint.Style == "" {
		hint.Style = neutral.Style
	}
	return hint, true
}
