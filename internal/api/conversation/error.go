package conversation

import (
	"FormFlowGolang/pkg/response"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrSessionNotFound  = response.NewError(fiber.StatusNotFound, "session not found")
	ErrSessionBusy      = response.NewError(fiber.StatusConflict, "session is busy processing another message")
	ErrMalformedRequest = response.NewError(fiber.StatusBadRequest, "malformed request body")
	ErrNoAskableFields  = response.NewError(fiber.StatusBadRequest, "form schema contains no askable fields")
)
