package autofillHandler

import (
	autofillService "FormFlowGolang/internal/api/autofill/service"
	"FormFlowGolang/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AutofillHandler struct {
	log             *logrus.Logger
	validator       *validator.Validate
	middleware      middleware.Middleware
	autofillService autofillService.IAutofillService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	as autofillService.IAutofillService,
) *AutofillHandler {
	return &AutofillHandler{
		log:             log,
		validator:       validate,
		middleware:      middleware,
		autofillService: as,
	}
}

func (h *AutofillHandler) Start(srv fiber.Router) {
	srv.Get("/autofill-suggestions", h.GetSuggestions)
}
