package bootstrap

import (
	"log"
	"time"

	"ai-voicebot-be/internal/config"
	"ai-voicebot-be/internal/controller"
	"ai-voicebot-be/internal/pkg/logger"
	"ai-voicebot-be/internal/pkg/serverutils"
	"ai-voicebot-be/internal/pkg/worker"
	"ai-voicebot-be/internal/service"
	"ai-voicebot-be/internal/websocket"
	"ai-voicebot-be/pkg/database"
	"ai-voicebot-be/pkg/embedding"
	"ai-voicebot-be/pkg/knowledge"
	"ai-voicebot-be/pkg/knowledge/pgstore"
	"ai-voicebot-be/pkg/llm/factory"
	"ai-voicebot-be/pkg/rag"
	"ai-voicebot-be/pkg/speech"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
)

// ingestTopic is the in-process event bus topic for completed ingestions.
const ingestTopic = "knowledge.ingest.completed"

type Container struct {
	// Controllers
	IngestController controller.IIngestController

	// WebSocket chat
	ChatHandler *websocket.Handler
	Registry    *websocket.Registry

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Shared infrastructure main.go shuts down
	AudioStore *speech.FileStore
	WorkerPool *worker.Pool
	Logger     logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	chatLogger := logger.NewIsolatedLogger(cfg.App.ChatLogFilePath)

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "gemini" {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GoogleGeminiKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GoogleGeminiKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Knowledge store
	var store knowledge.Store
	if cfg.Knowledge.Backend == "postgres" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Fatalf("[FATAL] Failed to connect to database: %v", err)
		}
		store, err = pgstore.NewStore(db, embeddingProvider, sysLogger)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize pgvector store: %v", err)
		}
		log.Printf("[INFO] Using Knowledge Backend: POSTGRES")
	} else {
		store, err = knowledge.NewChromemStore(
			cfg.Knowledge.DataDir,
			knowledge.ProviderEmbeddingFunc(embeddingProvider),
			sysLogger,
		)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize chromem store: %v", err)
		}
		log.Printf("[INFO] Using Knowledge Backend: CHROMEM (%s)", cfg.Knowledge.DataDir)
	}

	// 5. Conversation engine
	engine := rag.NewEngine(
		store,
		llmProvider,
		chatLogger,
		cfg.Knowledge.TopK,
		time.Duration(cfg.Ai.TurnTimeoutSec)*time.Second,
	)

	// 6. Speech stack
	codec := speech.NewEngineCodec(
		speech.NewWhisperClient(cfg.Speech.WhisperURL),
		speech.NewTTSClient(cfg.Speech.TTSBaseURL),
		cfg.Speech.TTSSpeed,
		cfg.Speech.FFmpegPath,
		sysLogger,
	)
	audioStore, err := speech.NewFileStore(
		cfg.Speech.AudioDir,
		time.Duration(cfg.Speech.AudioTTLMin)*time.Minute,
		sysLogger,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize audio store: %v", err)
	}

	// 7. Session layer
	pool := worker.NewPool(cfg.App.WorkerPoolSize)
	registry := websocket.NewRegistry(chatLogger)
	chatHandler := websocket.NewHandler(engine, codec, audioStore, pool, registry, chatLogger)

	// 8. Services
	ingestService := service.NewIngestService(store, pubSub, ingestTopic, sysLogger)
	consumerService := service.NewConsumerService(pubSub, ingestTopic, registry, chatLogger)

	var ingestGuard fiber.Handler
	if cfg.App.AdminJwtRequired {
		ingestGuard = serverutils.NewJwtMiddleware(cfg.App.JwtSecret)
	}

	return &Container{
		IngestController: controller.NewIngestController(ingestService, ingestGuard),
		ChatHandler:      chatHandler,
		Registry:         registry,
		ConsumerService:  consumerService,
		AudioStore:       audioStore,
		WorkerPool:       pool,
		Logger:           sysLogger,
	}
}
