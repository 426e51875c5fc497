package context

import (
	"context"
	"github.com/gofiber/fiber/v2"
)

const RequestIDKey = "request_id"

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

func FromFiberCtx(c *fiber.Ctx) context.Context {
	ctx := context.Background()

	requestID, ok := c.Locals("X-Request-ID").(string)
	if !ok || requestID == "" {
		requestID = c.Get("X-Request-ID")

		if requestID == "" {
			requestID = "unknown"
		}
	}

	return WithRequestID(ctx, requestID)
}

// Detach returns a context that carries the request ID of ctx but is not
// cancelled when ctx is. Used for background writes that outlive the request.
func Detach(ctx context.Context) context.Context {
	return WithRequestID(context.Background(), GetRequestID(ctx))
}
