package conversationHandler

import (
	conversationService "FormFlowGolang/internal/api/conversation/service"
	"FormFlowGolang/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ConversationHandler struct {
	log                 *logrus.Logger
	validator           *validator.Validate
	middleware          middleware.Middleware
	conversationService conversationService.IConversationService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	cs conversationService.IConversationService,
) *ConversationHandler {
	return &ConversationHandler{
		log:                 log,
		validator:           validate,
		middleware:          middleware,
		conversationService: cs,
	}
}

func (h *ConversationHandler) Start(srv fiber.Router) {
	conversation := srv.Group("/conversation")

	// Session lifecycle
	conversation.Post("/session", h.middleware.NewRateLimiter, h.CreateSession)
	conversation.Get("/session/:session_id", h.GetSessionStatus)
	conversation.Post("/session/:session_id/touch", h.TouchSession)
	conversation.Delete("/session/:session_id", h.EndSession)

	// Dialogue turns
	conversation.Post("/message", h.middleware.NewRateLimiter, h.ProcessMessage)

	// Service health
	srv.Get("/health", h.Health)
	srv.Get("/health/ai", h.AIHealth)
}
