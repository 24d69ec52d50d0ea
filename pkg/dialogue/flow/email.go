package flow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"twinai-be/internal/pkg/logger"
	"twinai-be/pkg/dialogue/extract"
	"twinai-be/pkg/llm"
	"twinai-be/pkg/store"

	"github.com/qmuntal/stateless"
)

const emailModule = "EMAIL_FLOW"

var (
	ErrIncompleteDraft = errors.New("email draft is incomplete")
	ErrUnknownStage    = errors.New("email flow is in an unknown stage")
)

const (
	triggerStart       = "start"
	triggerPurpose     = "purpose"
	triggerRecipient   = "recipient"
	triggerSubject     = "subject"
	triggerGenerated   = "generated"
	triggerBody        = "body"
	triggerSend        = "send"
	triggerRevise      = "revise"
	triggerEditSubject = "edit_subject"
	triggerEditBody    = "edit_body"
	triggerCancel      = "cancel"
)

var (
	emailAddress = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

type Mailer interface {
	Send(to, subject, body string) error
}

// Releaser drops the stored flow of a session. The draft is released before
// the mail goes out so a lost acknowledgement cannot send it twice.
type Releaser interface {
	Clear(ctx context.Context, sessionID string) error
}

// StyleSource supplies recipient style hints and remembers delivered mail.
type StyleSource interface {
	AnalyzeHistory(ctx context.Context, recipient string) store.StyleHint
	Record(ctx context.Context, sessionID, to, subject, body string) error
}

// Step is the outcome of one email turn. Draft is nil once the flow is over
// and the caller should clear it.
type Step struct {
	Content string
	Draft   *store.EmailDraft
	Sent    bool
}

type EmailFlow struct {
	llmProvider llm.LLMProvider
	mailer      Mailer
	style       StyleSource
	releaser    Releaser
	logger      logger.ILogger
}

type EmailOption func(*EmailFlow)

// WithReleaser makes send drop the stored flow before delivering.
func WithReleaser(r Releaser) EmailOption {
	return func(f *EmailFlow) { f.releaser = r }
}

func NewEmailFlow(llmProvider llm.LLMProvider, mailer Mailer, style StyleSource, log logger.ILogger, opts ...EmailOption) *EmailFlow {
	if log == nil {
		log = logger.NewNopLogger()
	}
	f := &EmailFlow{llmProvider: llmProvider, mailer: mailer, style: style, logger: log}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// machine binds the transition table to a draft; the draft's Stage is the
// machine's only state.
func (f *EmailFlow) machine(draft *store.EmailDraft) *stateless.StateMachine {
	sm := stateless.NewStateMachineWithExternalStorage(
		func(context.Context) (stateless.State, error) { return draft.Stage, nil },
		func(_ context.Context, s stateless.State) error {
			draft.Stage = s.(store.EmailStage)
			return nil
		},
		stateless.FiringImmediate,
	)

	next := func(context.Context, ...any) (stateless.State, error) { return nextSlot(draft), nil }
	complete := func(context.Context, ...any) bool { return draft.Complete() }
	validRecipient := func(_ context.Context, args ...any) bool { return len(args) > 0 && ValidAddress(args[0].(string)) }
	invalidRecipient := func(ctx context.Context, args ...any) bool { return !validRecipient(ctx, args...) }

	sm.Configure(store.StageInit).
		Permit(triggerStart, store.StageCollectingPurpose)

	sm.Configure(store.StageCollectingPurpose).
		PermitDynamic(triggerPurpose, next)

	sm.Configure(store.StageCollectingRecipient).
		PermitDynamic(triggerRecipient, next, validRecipient).
		PermitReentry(triggerRecipient, invalidRecipient)

	sm.Configure(store.StageCollectingSubject).
		PermitDynamic(triggerSubject, next)

	sm.Configure(store.StageGeneratingBody).
		Permit(triggerGenerated, store.StageConfirming, complete)

	sm.Configure(store.StageCollectingBody).
		Permit(triggerBody, store.StageConfirming, complete)

	sm.Configure(store.StageConfirming).
		Permit(triggerSend, store.StageInit).
		Permit(triggerRevise, store.StageEditing)

	sm.Configure(store.StageEditing).
		Permit(triggerEditSubject, store.StageCollectingSubject).
		Permit(triggerEditBody, store.StageCollectingBody).
		Permit(triggerCancel, store.StageInit)

	return sm
}

// nextSlot is the first field still missing, in recipient, subject, body order.
func nextSlot(draft *store.EmailDraft) store.EmailStage {
	switch {
	case draft.To == "":
		return store.StageCollectingRecipient
	case draft.Subject == "":
		return store.StageCollectingSubject
	case draft.Body == "":
		return store.StageGeneratingBody
	default:
		return store.StageConfirming
	}
}

func ValidAddress(s string) bool {
	return emailAddress.MatchString(strings.TrimSpace(s))
}

// Start opens a draft pre-filled from the extracted entities and asks for
// the purpose. A known recipient has its style derived while the draft is set up.
func (f *EmailFlow) Start(ctx context.Context, sessionID string, bag extract.Bag) (Step, error) {
	draft := &store.EmailDraft{Stage: store.StageInit}
	if v := filled(bag.To); v != "" && ValidAddress(v) {
		draft.To = v
	}
	draft.Subject = filled(bag.Subject)
	draft.Body = filled(bag.Body)

	var hints chan store.StyleHint
	if draft.To != "" && f.style != nil {
		hints = make(chan store.StyleHint, 1)
		go func(to string) {
			hints <- f.style.AnalyzeHistory(ctx, to)
		}(draft.To)
	}

	if err := f.machine(draft).FireCtx(ctx, triggerStart); err != nil {
		return Step{}, fmt.Errorf("start email flow: %w", err)
	}
	content := f.prompt(draft)

	if hints != nil {
		select {
		case hint := <-hints:
			draft.StyleHint = &hint
		case <-ctx.Done():
			return Step{}, ctx.Err()
		}
	}

	f.logger.Info(emailModule, "Email flow started", map[string]interface{}{
		"session_id":    sessionID,
		"has_recipient": draft.To != "",
		"has_subject":   draft.Subject != "",
		"has_body":      draft.Body != "",
	})
	return Step{Content: content, Draft: draft}, nil
}

// Continue applies one user reply to the draft.
func (f *EmailFlow) Continue(ctx context.Context, sessionID string, draft *store.EmailDraft, reply string) (Step, error) {
	sm := f.machine(draft)
	reply = strings.TrimSpace(reply)
	if reply == "" && draft.Stage != store.StageGeneratingBody {
		return Step{Content: f.prompt(draft), Draft: draft}, nil
	}
	var err error

	switch draft.Stage {
	case store.StageCollectingPurpose:
		draft.Purpose = reply
		err = sm.FireCtx(ctx, triggerPurpose)

	case store.StageCollectingRecipient:
		address := strings.TrimRight(reply, ".,;!?")
		if ValidAddress(address) {
			draft.To = address
		}
		if err = sm.FireCtx(ctx, triggerRecipient, address); err != nil {
			break
		}
		if draft.To == "" {
			return Step{
				Content: fmt.Sprintf("\"%s\" doesn't look like an email address. Who should I send it to?", reply),
				Draft:   draft,
			}, nil
		}
		if draft.StyleHint == nil && f.style != nil {
			hint := f.style.AnalyzeHistory(ctx, draft.To)
			draft.StyleHint = &hint
		}

	case store.StageCollectingSubject:
		draft.Subject = reply
		err = sm.FireCtx(ctx, triggerSubject)

	case store.StageCollectingBody:
		draft.Body = reply
		err = sm.FireCtx(ctx, triggerBody)

	case store.StageGeneratingBody:
		// resumed after an interrupted turn; settle below generates the body

	case store.StageConfirming:
		lowered := strings.ToLower(reply)
		switch {
		case strings.Contains(lowered, "yes"):
			return f.send(ctx, sm, sessionID, draft)
		case strings.Contains(lowered, "no"):
			err = sm.FireCtx(ctx, triggerRevise)
		}

	case store.StageEditing:
		// first keyword wins: subject, body, cancel
		lowered := strings.ToLower(reply)
		switch {
		case strings.Contains(lowered, "subject"):
			err = sm.FireCtx(ctx, triggerEditSubject)
		case strings.Contains(lowered, "body"):
			err = sm.FireCtx(ctx, triggerEditBody)
		case strings.Contains(lowered, "cancel"):
			if err := sm.FireCtx(ctx, triggerCancel); err != nil {
				return Step{}, err
			}
			f.logger.Info(emailModule, "Email flow cancelled", map[string]interface{}{"session_id": sessionID})
			return Step{Content: "Email cancelled."}, nil
		}

	default:
		return Step{}, fmt.Errorf("%w: %q", ErrUnknownStage, draft.Stage)
	}
	if err != nil {
		return Step{}, fmt.Errorf("email flow transition: %w", err)
	}

	if err := f.settle(ctx, sm, draft); err != nil {
		return Step{}, err
	}
	return Step{Content: f.prompt(draft), Draft: draft}, nil
}

// settle runs the generation stage, which needs no user input.
func (f *EmailFlow) settle(ctx context.Context, sm *stateless.StateMachine, draft *store.EmailDraft) error {
	if draft.Stage != store.StageGeneratingBody {
		return nil
	}
	draft.Body = f.generateBody(ctx, draft)
	if err := sm.FireCtx(ctx, triggerGenerated); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompleteDraft, err)
	}
	return nil
}

const bodyPrompt = `Write the body of an email.

Recipient: %s
Subject: %s
Purpose: %s
Tone: %s
Usual greeting: %s
Usual closing: %s
Style: %s

Reply with the email body only, starting with the greeting and ending with the closing.`

// generateBody makes exactly one model call and falls back to a template.
func (f *EmailFlow) generateBody(ctx context.Context, draft *store.EmailDraft) string {
	hint := draftHint(draft)
	output, err := f.llmProvider.Generate(ctx,
		fmt.Sprintf(bodyPrompt, draft.To, draft.Subject, purposeOf(draft), hint.Tone, hint.Greeting, hint.Closing, hint.Style),
		llm.WithTemperature(0.7),
		llm.WithMaxTokens(500),
	)
	if err != nil {
		f.logger.Warn(emailModule, "Body generation failed, using template", map[string]interface{}{"error": err})
		return TemplateBody(draft)
	}
	if body := strings.TrimSpace(output); body != "" {
		return body
	}
	return TemplateBody(draft)
}

// TemplateBody is the deterministic body used when generation is unavailable.
func TemplateBody(draft *store.EmailDraft) string {
	hint := draftHint(draft)
	return fmt.Sprintf("%s,\n\nI'm writing regarding %s.\n\n%s", hint.Greeting, purposeOf(draft), hint.Closing)
}

func (f *EmailFlow) send(ctx context.Context, sm *stateless.StateMachine, sessionID string, draft *store.EmailDraft) (Step, error) {
	if !draft.Complete() {
		return Step{}, ErrIncompleteDraft
	}

	if f.releaser != nil {
		if err := f.releaser.Clear(ctx, sessionID); err != nil {
			return Step{}, fmt.Errorf("release draft before send: %w", err)
		}
	}

	var sendErr error
	if f.mailer == nil {
		sendErr = errors.New("mail is not configured")
	} else {
		sendErr = f.mailer.Send(draft.To, draft.Subject, draft.Body)
	}
	if sendErr != nil {
		f.logger.Warn(emailModule, "Email send failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      sendErr,
		})
		return Step{Content: fmt.Sprintf("Email failed to vibe: %v", sendErr), Draft: draft}, nil
	}

	if f.style != nil {
		if err := f.style.Record(ctx, sessionID, draft.To, draft.Subject, draft.Body); err != nil {
			f.logger.Warn(emailModule, "Failed to record sent email", map[string]interface{}{"error": err})
		}
	}
	to := draft.To
	if err := sm.FireCtx(ctx, triggerSend); err != nil {
		return Step{}, fmt.Errorf("email flow transition: %w", err)
	}
	return Step{Content: fmt.Sprintf("Email sent to %s. Vibes delivered!", to), Sent: true, Draft: nil}, nil
}

func (f *EmailFlow) prompt(draft *store.EmailDraft) string {
	switch draft.Stage {
	case store.StageCollectingPurpose:
		if draft.To != "" {
			return fmt.Sprintf("Sure. What's the email to %s about?", draft.To)
		}
		return "Sure. What's the email about?"
	case store.StageCollectingRecipient:
		return "Who should I send it to? I need their email address."
	case store.StageCollectingSubject:
		return "What's the subject?"
	case store.StageCollectingBody:
		return "What should the email say?"
	case store.StageConfirming:
		return Preview(draft)
	case store.StageEditing:
		return "What would you like to change: the subject, the body, or cancel?"
	}
	return ""
}

func Preview(draft *store.EmailDraft) string {
	return fmt.Sprintf("Here's the draft:\n\nTo: %s\nSubject: %s\n\n%s\n\nSend it? (yes/no)", draft.To, draft.Subject, draft.Body)
}

func draftHint(draft *store.EmailDraft) store.StyleHint {
	hint := store.StyleHint{Tone: "neutral", Greeting: "Hi", Closing: "Best regards", Style: "concise"}
	if draft.StyleHint != nil {
		if draft.StyleHint.Tone != "" {
			hint.Tone = draft.StyleHint.Tone
		}
		if draft.StyleHint.Greeting != "" {
			hint.Greeting = draft.StyleHint.Greeting
		}
		if draft.StyleHint.Closing != "" {
			hint.Closing = draft.StyleHint.Closing
		}
		if draft.StyleHint.Style != "" {
			hint.Style = draft.StyleHint.Style
		}
	}
	return hint
}

func purposeOf(draft *store.EmailDraft) string {
	if draft.Purpose != "" {
		return draft.Purpose
	}
	return draft.Subject
}

func filled(v string) string {
	v = strings.TrimSpace(v)
	if v == extract.Missing {
		return ""
	}
	return v
}
