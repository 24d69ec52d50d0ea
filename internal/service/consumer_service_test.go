package service

import (
	"context"
	"testing"
	"time"

	"twinai-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerAuditsChannelEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	consumer := NewConsumerService(pubSub, "conversation.events", nil)
	require.NoError(t, consumer.Consume(ctx))

	publisher := events.NewChannelPublisher(pubSub, "conversation.events")
	require.NoError(t, publisher.Publish(ctx, events.NewTurnProcessed("s1", "", "chat", "text", false)))
	require.NoError(t, publisher.Publish(ctx, events.NewEmailSent("s1", "a@b.com", "Status")))
	require.NoError(t, pubSub.Publish("conversation.events", message.NewMessage(watermill.NewUUID(), []byte("not json"))))

	assert.Eventually(t, func() bool {
		counts := consumer.Counts()
		return counts[events.TypeTurnProcessed] == 1 && counts[events.TypeEmailSent] == 1
	}, time.Second, 10*time.Millisecond)
	assert.Len(t, consumer.Counts(), 2)
}

func TestConsumerHandleCountsByType(t *testing.T) {
	consumer := NewConsumerService(nil, "", nil)
	ctx := context.Background()

	require.NoError(t, consumer.Handle(ctx, events.NewCalendarEventConfirmed("s1", "evt-1", "Standup")))
	require.NoError(t, consumer.Handle(ctx, events.NewCalendarEventConfirmed("s2", "evt-2", "Retro")))

	assert.Equal(t, map[string]int{events.TypeCalendarEventConfirmed: 2}, consumer.Counts())
}
