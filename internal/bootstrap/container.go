package bootstrap

import (
	"context"
	"fmt"

	"socratic-tutor-be/internal/config"
	"socratic-tutor-be/internal/controller"
	"socratic-tutor-be/internal/pkg/logger"
	"socratic-tutor-be/internal/repository/memory"
	"socratic-tutor-be/internal/repository/unitofwork"
	"socratic-tutor-be/internal/service"
	"socratic-tutor-be/pkg/executor"
	"socratic-tutor-be/pkg/llm/factory"
	pktNats "socratic-tutor-be/pkg/nats"
	"socratic-tutor-be/pkg/stage"
	"socratic-tutor-be/pkg/usage"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Logger logger.ILogger

	// Controllers
	ConversationController controller.IConversationController

	// Background Services (Exposed for main.go to run)
	ConsumerService   service.IConsumerService
	SubmissionService service.ISubmissionService
	AuditService      service.IAuditService // nil when NATS is unreachable

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	callLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)

	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() {
		_ = callLogger.Sync()
		_ = sysLogger.Sync()
	})

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Model backends
	providers, err := factory.NewProviders(context.Background(), factory.Config{
		LLMProvider:        cfg.Ai.LLMProvider,
		LLMModel:           cfg.Ai.LLMModel,
		GeminiAPIKey:       cfg.Keys.GoogleGemini,
		TranscriptionModel: cfg.Ai.TranscriptionModel,
		TTSProvider:        cfg.Ai.TTSProvider,
		TTSModel:           cfg.Ai.TTSModel,
		TTSVoice:           cfg.Ai.TTSVoice,
		OllamaBaseURL:      cfg.Ai.OllamaBaseURL,
		PollyRegion:        cfg.Ai.PollyRegion,
		PollyEngine:        cfg.Ai.PollyEngine,
	})
	if err != nil {
		return nil, fmt.Errorf("init model providers: %w", err)
	}
	sysLogger.Info("BOOTSTRAP", "Model providers ready", map[string]interface{}{
		"llm_provider": cfg.Ai.LLMProvider,
		"tts_provider": cfg.Ai.TTSProvider,
		"models":       providers.Models,
	})

	executors := &executor.Factory{
		Text:        providers.Text,
		Transcriber: providers.Transcriber,
		Synthesizer: providers.Synthesizer,
		Policy: executor.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
		},
		Log:     sysLogger,
		CallLog: callLogger,
	}

	registry, err := stage.DefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("register stage handlers: %w", err)
	}
	engine := stage.NewEngine(registry, cfg.Dialogue.MaxLoops, sysLogger)

	assignmentCache := memory.NewAssignmentCache(cfg.Dialogue.AssignmentCacheTTL)

	// 4. Infrastructure
	// NATS
	var eventPublisher service.EventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS publisher", map[string]interface{}{"error": err.Error()})
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS subscriber", map[string]interface{}{"error": err.Error()})
	} else {
		c.AuditService = service.NewAuditService(natsSub, logger.NewIsolatedLogger("logs/audit.log"))
		c.closers = append(c.closers, natsSub.Close)
	}

	// Redis
	var ledger service.UsageLedger
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to connect to Redis, daily usage ledger disabled", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
	} else {
		ledger = usage.NewLedger(rdb)
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Dialogue.UsageTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Dialogue.UsageTopic, ledger, eventPublisher, sysLogger)
	c.SubmissionService = service.NewSubmissionService(uowFactory, assignmentCache, eventPublisher, sysLogger)

	conversationService := service.NewConversationService(
		uowFactory,
		assignmentCache,
		executors,
		engine,
		publisherService,
		providers.Models,
		sysLogger,
	)

	// 6. Controllers
	c.ConversationController = controller.NewConversationController(conversationService)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
