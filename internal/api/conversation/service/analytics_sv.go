package conversationService

import (
	"context"
	"encoding/json"
	"time"

	"FormFlowGolang/internal/entity"
	contextPkg "FormFlowGolang/pkg/context"
	"FormFlowGolang/pkg/log"
)

const (
	analyticsEventsKey   = "formflow:analytics:events"
	analyticsEventsLimit = 1000
	analyticsEventsTTL   = 30 * 24 * time.Hour
)

const (
	eventSessionCreated         = "session_created"
	eventFieldCommitted         = "field_committed"
	eventConfirmationRequested  = "confirmation_requested"
	eventClarificationRequested = "clarification_requested"
	eventCommandHandled         = "command_handled"
	eventBatchExtracted         = "batch_extracted"
	eventExtractionFallback     = "extraction_fallback"
	eventSessionCompleted       = "session_completed"
	eventSessionEnded           = "session_ended"
	eventSessionReaped          = "session_reaped"
)

type analyticsEvent struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"session_id"`
	UserHash  string                 `json:"user_hash,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// recordEvent appends one event to a rolling capped stream. Events carry
// field names and confidence, never collected values, and user identifiers
// go in hashed. Recording happens off the request path.
func (s *conversationService) recordEvent(ctx context.Context, session *entity.ConversationSession, eventType string, details map[string]interface{}) {
	if !s.config.EnableAnalytics || s.redisClient == nil {
		return
	}

	event := analyticsEvent{
		Type:      eventType,
		Details:   details,
		Timestamp: time.Now(),
	}
	if session != nil {
		event.SessionID = session.ID
		event.UserHash = s.utils.HashIdentifier(session.UserID)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	detached := contextPkg.Detach(ctx)
	go func() {
		pctx, cancel := context.WithTimeout(detached, 2*time.Second)
		defer cancel()

		if err := s.redisClient.PushCapped(pctx, analyticsEventsKey, string(payload), analyticsEventsLimit, analyticsEventsTTL); err != nil {
			s.log.WithFields(log.Fields{
				"event_type": eventType,
				"error":      err.Error(),
			}).Debug("Failed to record analytics event")
		}
	}()
}
