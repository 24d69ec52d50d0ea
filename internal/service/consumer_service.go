package service

import (
	"context"
	"sync"

	"twinai-be/internal/pkg/logger"
	"twinai-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

const auditModule = "AUDIT"

type IConsumerService interface {
	Consume(ctx context.Context) error
	Handle(ctx context.Context, event events.Event) error
	Counts() map[string]int
}

// consumerService writes every conversation event to the audit log. It reads
// the in-process topic and also serves as the NATS handler.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	logger     logger.ILogger

	mu     sync.Mutex
	counts map[string]int
}

func NewConsumerService(subscriber message.Subscriber, topicName string, log logger.ILogger) IConsumerService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		logger:     log,
		counts:     map[string]int{},
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	event, err := events.Decode(msg.Payload)
	if err != nil {
		cs.logger.Error(auditModule, "Failed to decode event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err,
		})
		msg.Ack() // undecodable payloads never become valid
		return
	}

	_ = cs.Handle(msg.Context(), event)
	msg.Ack()
}

func (cs *consumerService) Handle(ctx context.Context, event events.Event) error {
	cs.mu.Lock()
	cs.counts[event.EventType()]++
	cs.mu.Unlock()

	cs.logger.Info(auditModule, "Event received", map[string]interface{}{
		"type":        event.EventType(),
		"occurred_at": event.Timestamp(),
		"data":        event.Payload(),
	})
	return nil
}

// Counts reports how many events of each type have been audited.
func (cs *consumerService) Counts() map[string]int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make(map[string]int, len(cs.counts))
	for k, v := range cs.counts {
		out[k] = v
	}
	return out
}
