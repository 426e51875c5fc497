package config

import (
	"FormFlowGolang/database/postgres"
	autofillHandler "FormFlowGolang/internal/api/autofill/handler"
	autofillRepository "FormFlowGolang/internal/api/autofill/repository"
	autofillService "FormFlowGolang/internal/api/autofill/service"
	conversationHandler "FormFlowGolang/internal/api/conversation/handler"
	conversationRepository "FormFlowGolang/internal/api/conversation/repository"
	conversationService "FormFlowGolang/internal/api/conversation/service"
	"FormFlowGolang/internal/middleware"
	"FormFlowGolang/pkg/gemini"
	"FormFlowGolang/pkg/nlp"
	chatGPT "FormFlowGolang/pkg/openai"
	"FormFlowGolang/pkg/redis"
	"FormFlowGolang/pkg/utils"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine        *fiber.App
	db            *sqlx.DB
	log           *logrus.Logger
	middleware    middleware.Middleware
	validator     *validator.Validate
	utils         utils.IUtils
	handlers      []handler
	redisServer   redis.IRedis
	geminiClient  gemini.IGemini
	chatGPTClient chatGPT.IChatGPT
	conversations conversationService.IConversationService
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

// WithGeminiClient only connects when AI_PROVIDER selects Gemini, so a
// fallback-only deployment never needs the API key.
func WithGeminiClient() ServerOption {
	return func(s *Server) error {
		if os.Getenv("AI_PROVIDER") != conversationService.AIProviderGemini {
			return nil
		}
		client, err := gemini.NewGeminiClient()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to create Gemini client: %v", err)
			}
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
		return nil
	}
}

func WithChatGPTClient() ServerOption {
	return func(s *Server) error {
		if os.Getenv("AI_PROVIDER") != conversationService.AIProviderOpenAI {
			return nil
		}
		s.chatGPTClient = chatGPT.NewChatGPT()
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Autofill Domain
	autofillRepo := autofillRepository.New(s.db, s.log)
	autofillServices := autofillService.NewAutofillService(s.log, autofillRepo, s.redisServer, s.utils)
	autofillHandlers := autofillHandler.New(s.log, s.validator, s.middleware, autofillServices)

	// Conversation Domain
	conversationRepo := conversationRepository.New(s.db, s.log)
	conversationServices := conversationService.NewConversationService(
		s.log,
		conversationRepo,
		s.utils,
		nlp.NewProcessor(),
		newConversationConfig(),
		autofillServices,
		s.redisServer,
		s.geminiClient,
		s.chatGPTClient,
	)
	conversationHandlers := conversationHandler.New(s.log, s.validator, s.middleware, conversationServices)

	s.conversations = conversationServices
	s.setupRootPing()
	s.handlers = append(s.handlers, conversationHandlers, autofillHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	for _, h := range s.handlers {
		h.Start(s.engine)
	}

	s.conversations.StartSessionReaper(context.Background())

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	if err := s.engine.Listen(fmt.Sprintf(":%s", port)); err != nil {
		if s.geminiClient != nil {
			s.geminiClient.Close()
		}
		return err
	}

	return nil
}

func (s *Server) setupRootPing() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "FormFlow backend is up!",
		})
	})
}

func newConversationConfig() *conversationService.ConversationConfig {
	provider := os.Getenv("AI_PROVIDER")
	if provider != conversationService.AIProviderGemini && provider != conversationService.AIProviderOpenAI {
		provider = conversationService.AIProviderOff
	}

	return &conversationService.ConversationConfig{
		AIProvider:          provider,
		ExtractionTimeout:   time.Duration(envInt("EXTRACTION_TIMEOUT_SECONDS", 10)) * time.Second,
		SessionTTL:          time.Duration(envInt("SESSION_TTL_MINUTES", 30)) * time.Minute,
		ReaperInterval:      time.Duration(envInt("REAPER_INTERVAL_SECONDS", 60)) * time.Second,
		SubmissionRetention: time.Duration(envInt("SUBMISSION_RETENTION_DAYS", 90)) * 24 * time.Hour,
		EnableAnalytics:     os.Getenv("ENABLE_ANALYTICS") == "true",
		Version:             envString("APP_VERSION", "1.0.0"),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envString(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
