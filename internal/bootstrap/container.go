package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"doc-assistant-be/internal/config"
	"doc-assistant-be/internal/dispatcher"
	"doc-assistant-be/internal/generation"
	"doc-assistant-be/internal/handler"
	"doc-assistant-be/internal/index"
	"doc-assistant-be/internal/pkg/logger"
	"doc-assistant-be/internal/prompt"
	"doc-assistant-be/internal/repository"
	"doc-assistant-be/internal/retrieval"
	"doc-assistant-be/internal/service"
	"doc-assistant-be/internal/session"
	"doc-assistant-be/internal/websocket"
	"doc-assistant-be/pkg/embedding"
	"doc-assistant-be/pkg/events"
	"doc-assistant-be/pkg/llm/factory"
	pktNats "doc-assistant-be/pkg/nats"
)

type Container struct {
	Dispatcher   *dispatcher.Dispatcher
	Index        index.Index
	WebSocketHub *websocket.Hub
	UserHandler  *handler.UserHandler // nil without a database

	// Background services (exposed for main.go to run)
	TranscriptService service.ITranscriptService

	Logger logger.ILogger
}

// NewContainer wires the whole pipeline. It returns an error instead of
// degrading when an AI backend is unreachable: every later call would fail
// anyway, so startup is the place to find out.
func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Embedding provider
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: GEMINI (%s)", cfg.Ai.EmbeddingModel)
	}

	// LLM provider
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	generationClient := generation.NewClient(llmProvider, generation.Config{
		MaxAttempts: cfg.Pipeline.RetryCount,
		BackoffBase: cfg.Pipeline.BackoffBase,
	}, sysLogger)

	// Fail fast when either AI backend is unreachable or misconfigured
	probeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := generationClient.Ping(probeCtx); err != nil {
		return nil, err
	}
	if _, err := embeddingProvider.Generate("startup probe", embedding.TaskRetrievalQuery); err != nil {
		return nil, fmt.Errorf("embedding backend unreachable: %w", err)
	}

	// Embedding index (read-only)
	var idx index.Index
	switch cfg.Pipeline.IndexBackend {
	case "pgvector":
		if db == nil {
			return nil, fmt.Errorf("pgvector index backend requires a database connection")
		}
		idx = index.NewPgvectorIndex(db)
	default:
		memIdx, err := index.LoadSnapshot(cfg.Pipeline.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("load index snapshot: %w", err)
		}
		idx = memIdx
	}
	log.Printf("[INFO] Embedding index ready (%s backend, %d documents)", cfg.Pipeline.IndexBackend, idx.Len())

	// Event bus
	watermillLogger := watermill.NewStdLogger(cfg.Pipeline.Debug, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	busPublisher := events.NewBusPublisher(pubSub, events.TopicChatEvents)

	// NATS (optional): external persistence collaborator
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		}
	}

	// Redis (optional): cross-instance response delivery
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
			rdb = nil
		}
	}

	// Pipeline
	sessions := session.NewStore()
	engine := retrieval.NewEngine(embeddingProvider, idx, retrieval.Config{
		MaxQueryChars: cfg.Pipeline.MaxQueryChars,
		MaxK:          cfg.Pipeline.RetrievalK,
	}, sysLogger)
	assembler := prompt.NewAssembler(prompt.Config{
		HistoryWindow: cfg.Pipeline.HistoryWindow,
		CharBudget:    cfg.Pipeline.PromptCharBudget,
	})

	disp := dispatcher.New(sessions, engine, assembler, generationClient, busPublisher, sysLogger, dispatcher.Config{
		MaxMessageChars: cfg.Pipeline.MaxMessageChars,
		RetrievalK:      cfg.Pipeline.RetrievalK,
	})

	// Websocket hub
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	wsHub := websocket.NewHub(rdb, disp.EndSession, wsLogger)
	go wsHub.Run()

	transcriptService := service.NewTranscriptService(pubSub, events.TopicChatEvents, natsPub, sysLogger)

	// User registry (optional)
	var userHandler *handler.UserHandler
	if db != nil {
		userRepo := repository.NewUserRepository(db)
		userService := service.NewUserService(userRepo)
		userHandler = handler.NewUserHandler(userService)
	}

	return &Container{
		Dispatcher:        disp,
		Index:             idx,
		WebSocketHub:      wsHub,
		UserHandler:       userHandler,
		TranscriptService: transcriptService,
		Logger:            sysLogger,
	}, nil
}
