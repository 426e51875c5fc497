package autofillHandler

import (
	"context"
	"time"

	"FormFlowGolang/internal/api/autofill"
	contextPkg "FormFlowGolang/pkg/context"
	handlerUtil "FormFlowGolang/pkg/handlerUtil"
	"FormFlowGolang/pkg/log"

	"github.com/gofiber/fiber/v2"
)

func (h *AutofillHandler) GetSuggestions(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing autofill suggestions request")

	req := autofill.SuggestionsRequest{
		UserID:    ctx.Query("user_id"),
		FieldName: ctx.Query("field_name"),
		FieldType: ctx.Query("field_type"),
	}

	if req.UserID == "" || req.FieldName == "" {
		return errHandler.Handle(ctx, requestID, autofill.ErrInvalidQuery, ctx.Path(), "get_autofill_suggestions")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	suggestions, err := h.autofillService.GetSuggestions(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_autofill_suggestions")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, suggestions)
	}
}
