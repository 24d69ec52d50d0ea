package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"twinai-be/internal/config"
	"twinai-be/internal/controller"
	"twinai-be/internal/pkg/logger"
	"twinai-be/internal/pkg/mailer"
	"twinai-be/internal/repository/cache"
	"twinai-be/internal/repository/implementation"
	"twinai-be/internal/repository/memory"
	"twinai-be/internal/repository/unitofwork"
	"twinai-be/internal/service"
	"twinai-be/pkg/calendar"
	"twinai-be/pkg/dialogue/extract"
	"twinai-be/pkg/dialogue/flow"
	"twinai-be/pkg/dialogue/history"
	"twinai-be/pkg/dialogue/intent"
	"twinai-be/pkg/dialogue/message"
	"twinai-be/pkg/dialogue/session"
	"twinai-be/pkg/events"
	"twinai-be/pkg/llm"
	"twinai-be/pkg/llm/factory"
	"twinai-be/pkg/research"
	"twinai-be/pkg/style"

	pktNats "twinai-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	module      = "BOOTSTRAP"
	eventsTopic = "conversation.events"
)

type Container struct {
	// Controllers
	ChatbotController controller.IChatbotController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	logger  logger.ILogger
	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	redis   *redis.Client
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{logger: sysLogger}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderEmail,
		sysLogger,
	)
	if cfg.SMTP.Host == "" {
		sysLogger.Warn(module, "SMTP not configured, emails cannot be sent", nil)
	}

	llmBaseURL, llmKey := cfg.LLMEndpoint()
	llmProvider, err := factory.NewLLMProvider(ctx, cfg.Ai.LLMProvider, cfg.Ai.LLMModel, llmBaseURL, llmKey)
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	sysLogger.Info(module, "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	// 2. Event Bus
	c.pubSub = gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))

	var publisher events.Publisher = events.NewChannelPublisher(c.pubSub, eventsTopic)
	if natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger); err != nil {
		sysLogger.Warn(module, "NATS unavailable, events stay in process", map[string]interface{}{"error": err})
	} else {
		c.natsPub = natsPub
		publisher = natsPub
	}
	if c.natsPub != nil {
		if natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger); err != nil {
			sysLogger.Warn(module, "Failed to connect NATS subscriber", map[string]interface{}{"error": err})
		} else {
			c.natsSub = natsSub
		}
	}
	c.ConsumerService = service.NewConsumerService(c.pubSub, eventsTopic, sysLogger)

	// 3. History tiers
	localCache, err := memory.NewHistoryCache(cfg.Conversation.LocalCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init history cache: %w", err)
	}
	var remoteCache history.RemoteCache
	if rdb := connectRedis(ctx, cfg.App.RedisURL, sysLogger); rdb != nil {
		c.redis = rdb
		remoteCache = cache.NewRedisHistoryCache(rdb, cfg.Conversation.RemoteCacheTTL)
	}
	messageStore := message.NewStore(uowFactory)
	historyManager := history.NewManager(localCache, remoteCache, messageStore, cfg.Conversation.HistoryWindow, sysLogger)

	flowManager := session.NewManager(implementation.NewChatFlowRepository(db), cfg.Conversation.FlowTTL, sysLogger)

	// 4. Dialogue components
	loc, err := time.LoadLocation(cfg.Calendar.Timezone)
	if err != nil {
		sysLogger.Warn(module, "Unknown calendar timezone, using UTC", map[string]interface{}{"timezone": cfg.Calendar.Timezone})
		loc = time.UTC
	}

	classifier := intent.NewClassifier(llmProvider, memory.NewIntentCache(cfg.Conversation.IntentCacheTTL), sysLogger)
	extractor := extract.NewExtractor(llmProvider, flowManager, sysLogger, extract.WithLocation(loc))
	styleAnalyzer := style.NewAnalyzer(llmProvider, implementation.NewSentEmailRepository(db), sysLogger)
	emailFlow := flow.NewEmailFlow(llmProvider, emailService, styleAnalyzer, sysLogger, flow.WithReleaser(flowManager))

	deps := service.ChatbotDeps{
		Locker:      session.NewLocker(),
		History:     historyManager,
		Flows:       flowManager,
		Sessions:    messageStore,
		Classifier:  classifier,
		Extractor:   extractor,
		EmailFlow:   emailFlow,
		Researcher:  newResearchService(cfg.Research, llmProvider, sysLogger),
		LLMProvider: llmProvider,
		Events:      publisher,
		Logger:      sysLogger,
	}

	if scheduler := newScheduler(ctx, cfg.Calendar, loc, sysLogger); scheduler != nil {
		deps.Scheduler = scheduler
		deps.CalendarFlow = flow.NewCalendarFlow(scheduler, sysLogger)
	} else {
		deps.CalendarFlow = flow.NewCalendarFlow(nil, sysLogger)
	}

	chatbotService := service.NewChatbotService(deps)

	// 5. Controllers
	c.ChatbotController = controller.NewChatbotController(chatbotService)
	return c, nil
}

// StartBackground runs the audit consumer on the broker when one is
// connected, otherwise on the in-process channel.
func (c *Container) StartBackground(ctx context.Context) error {
	if c.natsSub != nil {
		return c.natsSub.Subscribe(ctx, pktNats.Subject(">"), "audit", c.ConsumerService.Handle)
	}
	return c.ConsumerService.Consume(ctx)
}

func (c *Container) Close() {
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if err := c.pubSub.Close(); err != nil {
		c.logger.Warn(module, "Failed to close event channel", map[string]interface{}{"error": err})
	}
}

func connectRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	if url == "" {
		log.Warn(module, "REDIS_URL not set, history runs without the distributed tier", nil)
		return nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn(module, "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn(module, "Redis unavailable, history runs without the distributed tier", map[string]interface{}{"error": err})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func newScheduler(ctx context.Context, cfg config.CalendarConfig, loc *time.Location, log logger.ILogger) *calendar.Scheduler {
	if cfg.CredentialsFile == "" {
		log.Warn(module, "Google Calendar not configured, scheduling disabled", nil)
		return nil
	}
	gstore, err := calendar.NewGoogleStoreFromCredentialsFile(ctx, cfg.CredentialsFile, cfg.CalendarID, loc.String())
	if err != nil {
		log.Warn(module, "Google Calendar unavailable, scheduling disabled", map[string]interface{}{"error": err})
		return nil
	}
	return calendar.NewScheduler(calendar.NewCachedStore(gstore, time.Minute), loc, cfg.EventDuration, log)
}

func newResearchService(cfg config.ResearchConfig, llmProvider llm.LLMProvider, log logger.ILogger) *research.Service {
	client := &http.Client{Timeout: cfg.HTTPTimeout}
	return research.NewService(llmProvider, log,
		research.NewWikipedia(client, cfg.WikipediaBaseURL, rate.NewLimiter(rate.Every(200*time.Millisecond), 5)),
		research.NewArxiv(client, cfg.ArxivBaseURL, rate.NewLimiter(rate.Every(3*time.Second), 1), 3),
	)
}
