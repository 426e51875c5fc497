package handlerUtil

import (
	"FormFlowGolang/internal/api/autofill"
	"FormFlowGolang/internal/api/conversation"
	"FormFlowGolang/pkg/log"
	"FormFlowGolang/pkg/response"
	"errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	// Conversation domain errors
	if errors.Is(err, conversation.ErrSessionNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Session not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
			"code":  "SESSION_NOT_FOUND",
		})
	}

	if errors.Is(err, conversation.ErrSessionBusy) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Session is busy with another message")
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Session is busy processing another message",
			"code":  "SESSION_BUSY",
		})
	}

	if errors.Is(err, conversation.ErrMalformedRequest) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Malformed request body")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Malformed request body",
			"code":  "MALFORMED_REQUEST",
		})
	}

	if errors.Is(err, conversation.ErrNoAskableFields) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Form schema contains no askable fields")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Form schema contains no askable fields",
			"code":  "NO_ASKABLE_FIELDS",
		})
	}

	// Autofill domain errors
	if errors.Is(err, autofill.ErrInvalidQuery) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid autofill query")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id and field_name are required",
			"code":  "INVALID_QUERY",
		})
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}).Error("Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "An unexpected error occurred",
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
