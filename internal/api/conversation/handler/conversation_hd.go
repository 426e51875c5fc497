package conversationHandler

import (
	"context"
	"time"

	"FormFlowGolang/internal/api/conversation"
	contextPkg "FormFlowGolang/pkg/context"
	handlerUtil "FormFlowGolang/pkg/handlerUtil"
	"FormFlowGolang/pkg/log"

	"github.com/gofiber/fiber/v2"
)

func (h *ConversationHandler) CreateSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 15*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing create conversation session request")

	var req conversation.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, conversation.ErrMalformedRequest, ctx.Path(), "create_session")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	session, err := h.conversationService.CreateSession(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "create_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, session)
	}
}

func (h *ConversationHandler) ProcessMessage(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 30*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing conversation message request")

	var req conversation.MessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, conversation.ErrMalformedRequest, ctx.Path(), "process_message")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	message, err := h.conversationService.ProcessMessage(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_message")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, message)
	}
}

func (h *ConversationHandler) GetSessionStatus(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	sessionID := ctx.Params("session_id")

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"session_id": sessionID,
	}).Debug("Processing get session status request")

	status, err := h.conversationService.GetSessionStatus(c, sessionID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_session_status")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, status)
	}
}

func (h *ConversationHandler) TouchSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	sessionID := ctx.Params("session_id")

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"session_id": sessionID,
	}).Debug("Processing touch session request")

	if err := h.conversationService.TouchSession(c, sessionID); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "touch_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, fiber.Map{"success": true})
	}
}

func (h *ConversationHandler) EndSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 15*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	sessionID := ctx.Params("session_id")

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"session_id": sessionID,
	}).Debug("Processing end conversation session request")

	finalData, err := h.conversationService.EndSession(c, sessionID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "end_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, finalData)
	}
}

func (h *ConversationHandler) Health(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, h.conversationService.Health())
}

func (h *ConversationHandler) AIHealth(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, h.conversationService.AIHealth())
}
