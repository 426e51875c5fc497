package conversationService

import (
	autofillService "FormFlowGolang/internal/api/autofill/service"
	"FormFlowGolang/internal/api/conversation"
	conversationRepository "FormFlowGolang/internal/api/conversation/repository"
	"FormFlowGolang/pkg/gemini"
	"FormFlowGolang/pkg/nlp"
	chatGPT "FormFlowGolang/pkg/openai"
	"FormFlowGolang/pkg/redis"
	"FormFlowGolang/pkg/utils"
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	AIProviderGemini = "gemini"
	AIProviderOpenAI = "openai"
	AIProviderOff    = "off"
)

type IConversationService interface {
	CreateSession(ctx context.Context, req conversation.CreateSessionRequest) (*conversation.CreateSessionResponse, error)
	ProcessMessage(ctx context.Context, req conversation.MessageRequest) (*conversation.MessageResponse, error)
	GetSessionStatus(ctx context.Context, sessionID string) (*conversation.SessionStatusResponse, error)
	TouchSession(ctx context.Context, sessionID string) error
	EndSession(ctx context.Context, sessionID string) (*conversation.EndSessionResponse, error)

	Health() conversation.HealthResponse
	AIHealth() conversation.AIHealthResponse

	StartSessionReaper(ctx context.Context)
}

type conversationService struct {
	log              *logrus.Logger
	conversationRepo conversationRepository.Repository
	utils            utils.IUtils
	nlpProcessor     nlp.INLPProcessor
	config           *ConversationConfig
	autofillService  autofillService.IAutofillService
	redisClient      redis.IRedis
	gemini           gemini.IGemini
	chatGPT          chatGPT.IChatGPT
	aiHealthy        atomic.Bool

	// touched only by the reaper goroutine
	lastSubmissionSweep time.Time
}

type ConversationConfig struct {
	AIProvider          string        `json:"ai_provider"`
	ExtractionTimeout   time.Duration `json:"extraction_timeout"`
	SessionTTL          time.Duration `json:"session_ttl"`
	ReaperInterval      time.Duration `json:"reaper_interval"`
	SubmissionRetention time.Duration `json:"submission_retention"`
	EnableAnalytics     bool          `json:"enable_analytics"`
	Version             string        `json:"version"`
}

func NewConversationService(
	log *logrus.Logger,
	conversationRepo conversationRepository.Repository,
	utils utils.IUtils,
	nlpProcessor nlp.INLPProcessor,
	config *ConversationConfig,
	autofillSvc autofillService.IAutofillService,
	redisClient redis.IRedis,
	geminiClient gemini.IGemini,
	chatGPTClient chatGPT.IChatGPT,
) IConversationService {
	s := &conversationService{
		log:              log,
		conversationRepo: conversationRepo,
		utils:            utils,
		nlpProcessor:     nlpProcessor,
		config:           config,
		autofillService:  autofillSvc,
		redisClient:      redisClient,
		gemini:           geminiClient,
		chatGPT:          chatGPTClient,
	}

	s.aiHealthy.Store(config.AIProvider != AIProviderOff)

	return s
}
