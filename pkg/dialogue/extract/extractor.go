package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"twinai-be/internal/pkg/logger"
	"twinai-be/pkg/dialogue/intent"
	"twinai-be/pkg/llm"
	"twinai-be/pkg/store"

	"github.com/go-playground/validator/v10"
)

const module = "EXTRACT"

// Missing marks an email field the user has not provided yet.
const Missing = "MISSING"

const (
	DefaultTopic     = "AI"
	DefaultEventName = "Meeting"
)

var errNoJSON = errors.New("no json object in model output")

// Bag carries the entities relevant to one intent. Unused fields stay zero.
type Bag struct {
	Topic string

	EventName string
	DateTime  time.Time

	To      string
	Subject string
	Body    string
}

func (b Bag) Empty() bool {
	return b == Bag{}
}

type Request struct {
	SessionID string
	Utterance string
	Intent    intent.Intent
}

// FlowLoader exposes the active flow of a session.
type FlowLoader interface {
	Load(ctx context.Context, sessionID string) (*store.Flow, error)
}

type Option func(*Extractor)

func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(e *Extractor) { e.loc = loc }
}

type Extractor struct {
	llmProvider llm.LLMProvider
	flows       FlowLoader
	validate    *validator.Validate
	logger      logger.ILogger
	now         func() time.Time
	loc         *time.Location
}

func NewExtractor(llmProvider llm.LLMProvider, flows FlowLoader, log logger.ILogger, opts ...Option) *Extractor {
	if log == nil {
		log = logger.NewNopLogger()
	}
	e := &Extractor{
		llmProvider: llmProvider,
		flows:       flows,
		validate:    validator.New(),
		logger:      log,
		now:         time.Now,
		loc:         time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract never fails. Model problems fall back to pattern matching.
func (e *Extractor) Extract(ctx context.Context, req Request) Bag {
	switch req.Intent {
	case intent.Research:
		return e.research(ctx, req.Utterance)
	case intent.Calendar:
		return e.calendar(ctx, req.Utterance)
	case intent.Email:
		if e.emailFlowActive(ctx, req.SessionID) {
			return Bag{}
		}
		return e.email(ctx, req.Utterance)
	default:
		return Bag{}
	}
}

func (e *Extractor) emailFlowActive(ctx context.Context, sessionID string) bool {
	if e.flows == nil {
		return false
	}
	flow, err := e.flows.Load(ctx, sessionID)
	if err != nil {
		e.logger.Warn(module, "Flow lookup failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err,
		})
		return false
	}
	return flow != nil && flow.Kind == store.FlowEmail
}

// ---------- research ----------

const researchPrompt = `Extract the research topic from the message below.
Reply with the topic only, no punctuation or explanation.

Message: %s
Topic:`

var researchLead = regexp.MustCompile(`(?i)^(on|about|into|for)\s+`)

func (e *Extractor) research(ctx context.Context, utterance string) Bag {
	output, err := e.llmProvider.Generate(ctx, fmt.Sprintf(researchPrompt, utterance),
		llm.WithTemperature(0),
		llm.WithMaxTokens(50),
	)
	if err == nil {
		topic := strings.Trim(strings.TrimSpace(output), `"'.`)
		if topic != "" {
			return Bag{Topic: topic}
		}
	} else {
		e.logger.Warn(module, "Topic extraction failed", map[string]interface{}{"error": err})
	}
	return Bag{Topic: ResearchTopic(utterance)}
}

// ResearchTopic takes the text after the first "research", minus a leading preposition.
func ResearchTopic(utterance string) string {
	idx := strings.Index(strings.ToLower(utterance), "research")
	if idx < 0 {
		return DefaultTopic
	}
	rest := strings.TrimSpace(utterance[idx+len("research"):])
	rest = strings.TrimSpace(researchLead.ReplaceAllString(rest, ""))
	rest = strings.TrimRight(rest, "?.!")
	if rest == "" {
		return DefaultTopic
	}
	return rest
}

// ---------- calendar ----------

const calendarPrompt = `Extract the calendar event from the message below.
The current time is %s.
Reply with a JSON object: {"eventName": "<short title>", "dateTime": "<RFC3339 start time>"}

Message: %s`

type calendarEntities struct {
	EventName string `json:"eventName" validate:"required"`
	DateTime  string `json:"dateTime" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

var (
	calledQuoted = regexp.MustCompile(`(?i)called\s+["']([^"']+)["']`)
	calledBare   = regexp.MustCompile(`(?i)called\s+(.+?)(?:\s+(?:tomorrow|today|tonight|at|on|next|this|from|for|in)\b|[.,!?]|$)`)
	tomorrowWord = regexp.MustCompile(`(?i)\btomorrow\b`)
)

func (e *Extractor) calendar(ctx context.Context, utterance string) Bag {
	now := e.now().In(e.loc)
	output, err := e.llmProvider.Generate(ctx,
		fmt.Sprintf(calendarPrompt, now.Format(time.RFC3339), utterance),
		llm.WithTemperature(0),
		llm.WithMaxTokens(100),
		llm.WithJSONObject("eventName", "dateTime"),
	)
	if err != nil {
		e.logger.Warn(module, "Calendar extraction failed, using patterns", map[string]interface{}{"error": err})
		return e.CalendarFallback(utterance)
	}

	var parsed calendarEntities
	if err := e.decode(output, &parsed); err != nil {
		e.logger.Debug(module, "Calendar output unusable, using patterns", map[string]interface{}{
			"error": err,
			"raw":   output,
		})
		return e.CalendarFallback(utterance)
	}
	start, err := time.Parse(time.RFC3339, parsed.DateTime)
	if err != nil {
		return e.CalendarFallback(utterance)
	}
	return Bag{EventName: strings.TrimSpace(parsed.EventName), DateTime: start.In(e.loc)}
}

// CalendarFallback reads the event name after "called" and resolves
// "tomorrow" to 10:00 the next day; anything else means now.
func (e *Extractor) CalendarFallback(utterance string) Bag {
	name := DefaultEventName
	if m := calledQuoted.FindStringSubmatch(utterance); m != nil {
		name = strings.TrimSpace(m[1])
	} else if m := calledBare.FindStringSubmatch(utterance); m != nil && strings.TrimSpace(m[1]) != "" {
		name = strings.TrimSpace(m[1])
	}

	now := e.now().In(e.loc)
	start := now
	if tomorrowWord.MatchString(utterance) {
		y, mo, d := now.AddDate(0, 0, 1).Date()
		start = time.Date(y, mo, d, 10, 0, 0, 0, e.loc)
	}
	return Bag{EventName: name, DateTime: start}
}

// ---------- email ----------

const emailPrompt = `Extract email details from the message below.
Reply with a JSON object: {"to": "<address>", "subject": "<subject>", "body": "<body>"}
Use the literal string MISSING for any field the message does not provide.

Message: %s`

type emailEntities struct {
	To      string `json:"to" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

var (
	emailTo      = regexp.MustCompile(`(?i)\bto:?\s+(\S+@\S+)`)
	emailSubject = regexp.MustCompile(`(?i)\bsubject:?\s+["']?(.+?)["']?(?:\s+and\b|$)`)
	emailBody    = regexp.MustCompile(`(?i)\bbody:?\s+["']?(.+?)["']?$`)
)

func (e *Extractor) email(ctx context.Context, utterance string) Bag {
	output, err := e.llmProvider.Generate(ctx, fmt.Sprintf(emailPrompt, utterance),
		llm.WithTemperature(0),
		llm.WithMaxTokens(300),
		llm.WithJSONObject("to", "subject", "body"),
	)
	if err != nil {
		e.logger.Warn(module, "Email extraction failed, using patterns", map[string]interface{}{"error": err})
		return EmailFallback(utterance)
	}

	var parsed emailEntities
	if err := e.decode(output, &parsed); err != nil {
		return EmailFallback(utterance)
	}

	to := strings.TrimSpace(parsed.To)
	if to != Missing && e.validate.Var(to, "email") != nil {
		to = Missing
	}
	return Bag{
		To:      to,
		Subject: orMissing(parsed.Subject),
		Body:    orMissing(parsed.Body),
	}
}

func EmailFallback(utterance string) Bag {
	bag := Bag{To: Missing, Subject: Missing, Body: Missing}
	if m := emailTo.FindStringSubmatch(utterance); m != nil {
		bag.To = strings.TrimRight(m[1], ".,;!?")
	}
	if m := emailSubject.FindStringSubmatch(utterance); m != nil {
		bag.Subject = orMissing(m[1])
	}
	if m := emailBody.FindStringSubmatch(utterance); m != nil {
		bag.Body = orMissing(m[1])
	}
	return bag
}

// decode pulls the outermost JSON object out of free-form model output and validates it.
func (e *Extractor) decode(output string, target interface{}) error {
	output = strings.TrimSpace(output)
	output = strings.TrimPrefix(output, "```json")
	output = strings.TrimPrefix(output, "```")
	output = strings.TrimSuffix(output, "```")

	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start < 0 || end <= start {
		return errNoJSON
	}
	if err := json.Unmarshal([]byte(output[start:end+1]), target); err != nil {
		return err
	}
	return e.validate.Struct(target)
}

func orMissing(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing
	}
	return s
}
