package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"twinai-be/internal/dto"
	"twinai-be/internal/entity"
	"twinai-be/internal/pkg/logger"
	"twinai-be/pkg/calendar"
	"twinai-be/pkg/dialogue/extract"
	"twinai-be/pkg/dialogue/flow"
	"twinai-be/pkg/dialogue/history"
	"twinai-be/pkg/dialogue/intent"
	"twinai-be/pkg/dialogue/response"
	"twinai-be/pkg/dialogue/session"
	"twinai-be/pkg/events"
	"twinai-be/pkg/llm"
	"twinai-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const module = "CHATBOT"

const (
	apologyMessage      = "I'm having trouble processing your request right now. Please try again in a moment."
	chatFallbackMessage = "I'm having trouble processing that request. Could you try rephrasing it?"
	farewellMessage     = "Peace out!"
	flowBusyMessage     = "You still have %s waiting. Answer that first, or start a new chat to drop it."
)

const chatPersona = `You are TwinAI, a friendly personal assistant. You can also schedule meetings,
draft and send emails, and research topics when asked. Keep answers short and conversational.`

var ErrSessionNotFound = errors.New("chat session not found")

// IChatbotService is the conversation boundary used by the transport layer.
type IChatbotService interface {
	ProcessTurn(ctx context.Context, sessionID, userID, utterance string) (response.Response, error)
	GetChatHistory(ctx context.Context, sessionID, userID string, limit int) ([]*dto.GetChatHistoryResponse, error)
	GetAllSessions(ctx context.Context, userID string) ([]*dto.GetAllSessionsResponse, error)
	ResetSession(ctx context.Context, sessionID, userID string) error
	DeleteSession(ctx context.Context, sessionID, userID string) error
}

type IntentClassifier interface {
	Classify(ctx context.Context, utterance string) intent.Intent
}

type EntityExtractor interface {
	Extract(ctx context.Context, req extract.Request) extract.Bag
}

type Scheduler interface {
	Schedule(ctx context.Context, req calendar.Request) (calendar.Result, error)
}

type Researcher interface {
	Research(ctx context.Context, topic string) (string, error)
}

// SessionDirectory lists and removes whole chats in the durable store.
// OwnerOf reports the owning user of a chat, empty for anonymous chats.
type SessionDirectory interface {
	OwnerOf(ctx context.Context, sessionID string) (owner string, found bool, err error)
	ListSessions(ctx context.Context, userID string) ([]*entity.ChatSession, error)
	DeleteSession(ctx context.Context, sessionID, userID string) (bool, error)
}

// ChatbotDeps groups the collaborators of the conversation service.
// Scheduler, Researcher and Events may be nil.
type ChatbotDeps struct {
	Locker       *session.Locker
	History      *history.Manager
	Flows        *session.Manager
	Sessions     SessionDirectory
	Classifier   IntentClassifier
	Extractor    EntityExtractor
	EmailFlow    *flow.EmailFlow
	CalendarFlow *flow.CalendarFlow
	Scheduler    Scheduler
	Researcher   Researcher
	LLMProvider  llm.LLMProvider
	Events       events.Publisher
	Logger       logger.ILogger
}

type chatbotService struct {
	ChatbotDeps
}

func NewChatbotService(deps ChatbotDeps) IChatbotService {
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Locker == nil {
		deps.Locker = session.NewLocker()
	}
	return &chatbotService{ChatbotDeps: deps}
}

// turn is the outcome of one resolved utterance before it is persisted.
type turn struct {
	reply         response.Response
	intent        intent.Intent
	handledByFlow bool
}

func (s *chatbotService) ProcessTurn(ctx context.Context, sessionID, userID, utterance string) (response.Response, error) {
	ctx, span := otel.Tracer("twinai-be/chatbot").Start(ctx, "chatbot.ProcessTurn")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	unlock := s.Locker.Lock(sessionID)
	defer unlock()

	userMessage := store.Message{Role: store.RoleUser, Content: utterance, Type: store.TypeText}
	if _, err := s.History.Append(ctx, sessionID, userID, userMessage); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist user message")
		return response.Response{}, fmt.Errorf("record user message: %w", err)
	}

	result, err := s.respond(ctx, sessionID, utterance)
	if err != nil {
		if errors.Is(err, store.ErrDurableStore) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "durable store")
			return response.Response{}, err
		}
		s.Logger.Error(module, "Turn failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err,
		})
		span.RecordError(err)
		reply := response.Format(apologyMessage, store.TypeText)
		if _, perr := s.History.Append(ctx, sessionID, userID, reply.Message()); perr != nil {
			s.Logger.Warn(module, "Failed to persist apology", map[string]interface{}{
				"session_id": sessionID,
				"error":      perr,
			})
		}
		return reply, nil
	}
	span.SetAttributes(
		attribute.String("chat.intent", string(result.intent)),
		attribute.Bool("chat.handled_by_flow", result.handledByFlow),
	)

	if _, err := s.History.Append(ctx, sessionID, userID, result.reply.Message()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist assistant message")
		return response.Response{}, fmt.Errorf("record assistant message: %w", err)
	}

	s.publish(ctx, events.NewTurnProcessed(sessionID, userID, string(result.intent), string(result.reply.Type), result.handledByFlow))
	return result.reply, nil
}

func (s *chatbotService) respond(ctx context.Context, sessionID, utterance string) (turn, error) {
	active, err := s.Flows.Load(ctx, sessionID)
	if err != nil {
		return turn{}, fmt.Errorf("load flow: %w", err)
	}

	if active != nil {
		result, handled, err := s.continueFlow(ctx, active, utterance)
		if err != nil || handled {
			return result, err
		}
	}

	detected := s.Classifier.Classify(ctx, utterance)
	if active != nil && detected.StartsFlow() {
		return turn{
			reply:  response.Format(fmt.Sprintf(flowBusyMessage, active.Describe()), store.TypeText),
			intent: detected,
		}, nil
	}

	bag := s.Extractor.Extract(ctx, extract.Request{SessionID: sessionID, Utterance: utterance, Intent: detected})
	s.Logger.Debug(module, "Dispatching turn", map[string]interface{}{
		"session_id": sessionID,
		"intent":     string(detected),
	})

	var reply response.Response
	switch detected {
	case intent.Research:
		reply = s.research(ctx, bag.Topic)
	case intent.Calendar:
		reply, err = s.schedule(ctx, sessionID, bag)
	case intent.Email:
		reply, err = s.startEmail(ctx, sessionID, bag)
	case intent.Exit:
		reply = response.Format(farewellMessage, store.TypeText)
	default:
		reply, err = s.chat(ctx, sessionID)
	}
	if err != nil {
		return turn{}, err
	}
	return turn{reply: reply, intent: detected}, nil
}

// continueFlow hands the reply to the active flow. Only one flow exists per
// session, so the switch order is the precedence: confirmation, suggestion, email.
func (s *chatbotService) continueFlow(ctx context.Context, active *store.Flow, utterance string) (turn, bool, error) {
	switch active.Kind {
	case store.FlowCalendarConfirmation:
		out := s.CalendarFlow.HandleConfirmation(ctx, active.Confirmation, utterance)
		return s.settleCalendar(ctx, active.SessionID, out)

	case store.FlowCalendarSuggestion:
		out := s.CalendarFlow.HandleSuggestion(ctx, active.Suggestion, utterance)
		return s.settleCalendar(ctx, active.SessionID, out)

	case store.FlowEmail:
		to, subject := active.Email.To, active.Email.Subject
		step, err := s.EmailFlow.Continue(ctx, active.SessionID, active.Email, utterance)
		if err != nil {
			return turn{}, false, fmt.Errorf("continue email flow: %w", err)
		}
		switch {
		case step.Sent:
			// released before delivery
		case step.Draft == nil:
			err = s.Flows.Clear(ctx, active.SessionID)
		default:
			active.Email = step.Draft
			err = s.Flows.Save(ctx, active)
		}
		if err != nil {
			return turn{}, false, fmt.Errorf("store email flow: %w", err)
		}
		if step.Sent {
			s.publish(ctx, events.NewEmailSent(active.SessionID, to, subject))
		}
		reply := response.Format(step.Content, store.TypeEmail).WithData(draftData(step.Draft))
		return turn{reply: reply, intent: intent.Email, handledByFlow: true}, true, nil
	}
	return turn{}, false, nil
}

func (s *chatbotService) settleCalendar(ctx context.Context, sessionID string, out flow.CalendarOutcome) (turn, bool, error) {
	if !out.Handled {
		return turn{}, false, nil
	}
	if err := s.Flows.Clear(ctx, sessionID); err != nil {
		return turn{}, false, fmt.Errorf("clear calendar flow: %w", err)
	}

	reply := response.Format(out.Content, store.TypeCalendar)
	if out.Booked {
		s.publish(ctx, events.NewCalendarEventConfirmed(sessionID, out.EventID, out.EventName))
		reply = reply.WithData(map[string]interface{}{
			"status":     string(calendar.StatusCreated),
			"event_id":   out.EventID,
			"event_name": out.EventName,
		})
	}
	return turn{reply: reply, intent: intent.Calendar, handledByFlow: true}, true, nil
}

func (s *chatbotService) research(ctx context.Context, topic string) response.Response {
	if s.Researcher == nil {
		return response.Format("Research isn't available right now.", store.TypeResearch)
	}
	content, err := s.Researcher.Research(ctx, topic)
	if err != nil {
		s.Logger.Warn(module, "Research failed", map[string]interface{}{
			"topic": topic,
			"error": err,
		})
		return response.Format(fmt.Sprintf("I couldn't find anything on %s right now.", topic), store.TypeResearch)
	}
	return response.Format(content, store.TypeResearch)
}

func (s *chatbotService) schedule(ctx context.Context, sessionID string, bag extract.Bag) (response.Response, error) {
	if s.Scheduler == nil {
		return response.Format(
			fmt.Sprintf("Your calendar isn't connected yet, so I can't schedule \"%s\".", bag.EventName),
			store.TypeCalendar,
		), nil
	}

	result, err := s.Scheduler.Schedule(ctx, calendar.Request{EventName: bag.EventName, Start: bag.DateTime})
	if err != nil {
		s.Logger.Warn(module, "Scheduling failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err,
		})
		return response.Format(fmt.Sprintf("Calendar vibes off: %v", err), store.TypeCalendar), nil
	}

	switch result.Status {
	case calendar.StatusRequiresConfirmation:
		err = s.Flows.Begin(ctx, store.NewConfirmationFlow(sessionID, &store.PendingConfirmation{
			EventID:   result.EventID,
			EventName: result.EventName,
			Start:     result.Start,
		}))
	case calendar.StatusRequiresChoice:
		err = s.Flows.Begin(ctx, store.NewSuggestionFlow(sessionID, &store.PendingSuggestion{
			EventName:      result.EventName,
			RequestedStart: result.Start,
			Suggestions:    result.Suggestions,
		}))
	}
	if err != nil {
		return response.Response{}, fmt.Errorf("begin calendar flow: %w", err)
	}

	return response.Format(result.Message, store.TypeCalendar).WithData(calendarData(result)), nil
}

func (s *chatbotService) startEmail(ctx context.Context, sessionID string, bag extract.Bag) (response.Response, error) {
	step, err := s.EmailFlow.Start(ctx, sessionID, bag)
	if err != nil {
		return response.Response{}, err
	}
	if step.Draft != nil {
		if err := s.Flows.Begin(ctx, store.NewEmailFlow(sessionID, step.Draft)); err != nil {
			return response.Response{}, fmt.Errorf("begin email flow: %w", err)
		}
	}
	return response.Format(step.Content, store.TypeEmail).WithData(draftData(step.Draft)), nil
}

// chat answers over the cached window, which already ends with the user's turn.
func (s *chatbotService) chat(ctx context.Context, sessionID string) (response.Response, error) {
	window, err := s.History.Read(ctx, sessionID, s.History.Window())
	if err != nil {
		return response.Response{}, err
	}

	messages := append([]llm.Message{{Role: "system", Content: chatPersona}}, history.ToLLM(window)...)
	output, err := s.LLMProvider.Chat(ctx, messages, llm.WithTemperature(0.7), llm.WithMaxTokens(1024))
	if err != nil {
		s.Logger.Warn(module, "Chat generation failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err,
		})
		return response.Format(chatFallbackMessage, store.TypeText), nil
	}
	return response.Format(output, store.TypeText), nil
}

func (s *chatbotService) publish(ctx context.Context, event events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, event); err != nil {
		s.Logger.Warn(module, "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err,
		})
	}
}

// authorize rejects callers other than the owner of an owned chat.
func (s *chatbotService) authorize(ctx context.Context, sessionID, userID string) error {
	owner, found, err := s.Sessions.OwnerOf(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: find chat owner: %w", store.ErrDurableStore, err)
	}
	if found && owner != "" && owner != userID {
		return store.ErrSessionForbidden
	}
	return nil
}

// GetChatHistory reads under the session lock so a cold read cannot race a turn.
func (s *chatbotService) GetChatHistory(ctx context.Context, sessionID, userID string, limit int) ([]*dto.GetChatHistoryResponse, error) {
	if err := s.authorize(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	unlock := s.Locker.Lock(sessionID)
	msgs, err := s.History.Read(ctx, sessionID, limit)
	unlock()
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetChatHistoryResponse, 0, len(msgs))
	for _, m := range msgs {
		if m.IsSystem() {
			continue
		}
		res = append(res, &dto.GetChatHistoryResponse{
			Role:       string(m.Role),
			Content:    m.Content,
			Type:       string(m.Type),
			Structured: m.Structured,
			CreatedAt:  m.Timestamp,
		})
	}
	return res, nil
}

func (s *chatbotService) GetAllSessions(ctx context.Context, userID string) ([]*dto.GetAllSessionsResponse, error) {
	sessions, err := s.Sessions.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	res := make([]*dto.GetAllSessionsResponse, 0, len(sessions))
	for _, cs := range sessions {
		res = append(res, &dto.GetAllSessionsResponse{
			SessionId: cs.SessionKey,
			Title:     cs.Title,
			CreatedAt: cs.CreatedAt,
			UpdatedAt: cs.UpdatedAt,
		})
	}
	return res, nil
}

// ResetSession starts the chat over: the active flow is dropped and the
// cached window is rebuilt from the durable store on the next read.
func (s *chatbotService) ResetSession(ctx context.Context, sessionID, userID string) error {
	if err := s.authorize(ctx, sessionID, userID); err != nil {
		return err
	}

	unlock := s.Locker.Lock(sessionID)
	defer unlock()

	if err := s.Flows.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clear flow: %w", err)
	}
	s.History.Invalidate(ctx, sessionID)
	s.Logger.Info(module, "Session reset", map[string]interface{}{"session_id": sessionID})
	return nil
}

func (s *chatbotService) DeleteSession(ctx context.Context, sessionID, userID string) error {
	unlock := s.Locker.Lock(sessionID)
	defer unlock()

	deleted, err := s.Sessions.DeleteSession(ctx, sessionID, userID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if !deleted {
		return ErrSessionNotFound
	}

	if err := s.Flows.Clear(ctx, sessionID); err != nil {
		s.Logger.Warn(module, "Failed to clear flow of deleted session", map[string]interface{}{
			"session_id": sessionID,
			"error":      err,
		})
	}
	s.History.Invalidate(ctx, sessionID)
	return nil
}

func draftData(draft *store.EmailDraft) interface{} {
	if draft == nil {
		return nil
	}
	return map[string]interface{}{
		"stage":   string(draft.Stage),
		"to":      draft.To,
		"subject": draft.Subject,
		"body":    draft.Body,
	}
}

func calendarData(result calendar.Result) map[string]interface{} {
	data := map[string]interface{}{
		"status":     string(result.Status),
		"event_name": result.EventName,
		"start":      result.Start.Format(time.RFC3339),
	}
	if result.EventID != "" {
		data["event_id"] = result.EventID
	}
	if len(result.Suggestions) > 0 {
		data["suggestions"] = result.Suggestions
	}
	return data
}
