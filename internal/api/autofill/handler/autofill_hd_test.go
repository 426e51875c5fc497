package autofillHandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"FormFlowGolang/internal/api/autofill"
	"FormFlowGolang/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeAutofillService struct {
	resp    *autofill.SuggestionsResponse
	err     error
	lastReq autofill.SuggestionsRequest
	calls   int
}

func (f *fakeAutofillService) GetSuggestions(ctx context.Context, req autofill.SuggestionsRequest) (*autofill.SuggestionsResponse, error) {
	f.calls++
	f.lastReq = req

	return f.resp, f.err
}

func (f *fakeAutofillService) RecordUsage(ctx context.Context, event autofill.UsageEvent) error {
	return nil
}

func newSuggestionsApp(svc *fakeAutofillService) *fiber.App {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := fiber.New()
	New(logger, validator.New(), middleware.New(logger), svc).Start(app)

	return app
}

func TestSuggestionsEndpointReturnsRankedValues(t *testing.T) {
	svc := &fakeAutofillService{
		resp: &autofill.SuggestionsResponse{
			Success: true,
			Suggestions: []autofill.Suggestion{
				{Value: "john@gmail.com", Label: "Email Address", Confidence: 0.95, UsageCount: 4},
				{Value: "john@corp.com", Confidence: 0.8, UsageCount: 1},
			},
		},
	}
	app := newSuggestionsApp(svc)

	target := "/autofill-suggestions?user_id=user-1&field_name=email&field_type=email"

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, target, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got autofill.SuggestionsResponse
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, *svc.resp, got)

	require.Equal(t, autofill.SuggestionsRequest{
		UserID:    "user-1",
		FieldName: "email",
		FieldType: "email",
	}, svc.lastReq)
}

func TestSuggestionsEndpointRequiresUserAndField(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing field name", "/autofill-suggestions?user_id=user-1"},
		{"missing user id", "/autofill-suggestions?field_name=email"},
		{"missing both", "/autofill-suggestions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAutofillService{}
			app := newSuggestionsApp(svc)

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.target, nil))
			require.NoError(t, err)
			require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			var got struct {
				Error string `json:"error"`
				Code  string `json:"code"`
			}
			defer resp.Body.Close()
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			require.Equal(t, "INVALID_QUERY", got.Code)
			require.Zero(t, svc.calls)
		})
	}
}

func TestSuggestionsEndpointPropagatesFailures(t *testing.T) {
	svc := &fakeAutofillService{err: errors.New("database unavailable")}
	app := newSuggestionsApp(svc)

	target := "/autofill-suggestions?user_id=user-1&field_name=email"

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, target, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
