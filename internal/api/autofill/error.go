package autofill

import (
	"FormFlowGolang/pkg/response"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrInvalidQuery = response.NewError(fiber.StatusBadRequest, "user_id and field_name are required")
)
