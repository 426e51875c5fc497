package autofillService

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"FormFlowGolang/internal/api/autofill"
	"FormFlowGolang/internal/entity"
	contextPkg "FormFlowGolang/pkg/context"
	"FormFlowGolang/pkg/log"
	"FormFlowGolang/pkg/redis"
)

const (
	maxSuggestions     = 5
	suggestionCacheTTL = 5 * time.Minute
)

func (s *autofillService) suggestionCacheKey(userID, fieldName string) string {
	return fmt.Sprintf("formflow:autofill:%s:%s", s.utils.HashIdentifier(userID), fieldName)
}

// GetSuggestions returns the strongest stored values for one field, best
// first. Anonymous callers get an empty list, never an error.
func (s *autofillService) GetSuggestions(ctx context.Context, req autofill.SuggestionsRequest) (*autofill.SuggestionsResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if req.UserID == "" {
		return &autofill.SuggestionsResponse{Success: true, Suggestions: []autofill.Suggestion{}}, nil
	}

	cacheKey := s.suggestionCacheKey(req.UserID, req.FieldName)
	if cached, err := s.redisClient.Get(ctx, cacheKey); err == nil {
		var suggestions []autofill.Suggestion
		if err := json.Unmarshal([]byte(cached), &suggestions); err == nil {
			return &autofill.SuggestionsResponse{Success: true, Suggestions: suggestions}, nil
		}
	} else if !errors.Is(err, redis.ErrCacheMiss) {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"field_name": req.FieldName,
			"error":      err.Error(),
		}).Warn("Autofill cache read failed, falling back to database")
	}

	client, err := s.autofillRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	entries, err := client.Entries.GetTopEntriesByFieldName(ctx, req.UserID, req.FieldName, maxSuggestions)
	if err != nil {
		return nil, err
	}

	// No history under this exact name; fall back to values of the same kind,
	// e.g. any stored email for a differently named email field.
	if len(entries) == 0 && req.FieldType != "" {
		entries, err = client.Entries.GetTopEntriesByFieldType(ctx, req.UserID, req.FieldType, maxSuggestions)
		if err != nil {
			return nil, err
		}
	}

	suggestions := make([]autofill.Suggestion, 0, len(entries))
	for _, entry := range entries {
		suggestions = append(suggestions, autofill.Suggestion{
			Value:      entry.Value,
			Label:      entry.Label,
			Confidence: entry.Confidence,
			UsageCount: entry.UsageCount,
		})
	}

	if payload, err := json.Marshal(suggestions); err == nil {
		if err := s.redisClient.Set(ctx, cacheKey, string(payload), suggestionCacheTTL); err != nil {
			s.log.WithFields(log.Fields{
				"request_id": requestID,
				"field_name": req.FieldName,
				"error":      err.Error(),
			}).Warn("Failed to cache autofill suggestions")
		}
	}

	return &autofill.SuggestionsResponse{Success: true, Suggestions: suggestions}, nil
}

// RecordUsage stores a committed value so later sessions can suggest it.
// Repeated commits of the same value bump its usage count instead of
// inserting a duplicate row.
func (s *autofillService) RecordUsage(ctx context.Context, event autofill.UsageEvent) error {
	requestID := contextPkg.GetRequestID(ctx)

	if event.UserID == "" || event.Value == "" {
		return nil
	}

	confidence := event.Confidence
	if confidence > 1 {
		confidence = 1
	} else if confidence < 0 {
		confidence = 0
	}

	client, err := s.autofillRepo.NewClient(true)
	if err != nil {
		return err
	}

	entryID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		if rbErr := client.Rollback(); rbErr != nil {
			s.log.WithFields(log.Fields{
				"request_id": requestID,
				"error":      rbErr.Error(),
			}).Error("Failed to rollback autofill transaction")
		}

		return err
	}

	now := time.Now()
	entry := entity.AutofillEntry{
		ID:         entryID,
		UserID:     event.UserID,
		FieldName:  event.FieldName,
		FieldType:  event.FieldType,
		Value:      event.Value,
		Label:      event.Label,
		Confidence: confidence,
		UsageCount: 1,
		LastUsedAt: now,
		CreatedAt:  now,
	}

	if err := client.Entries.UpsertEntry(ctx, entry); err != nil {
		if rbErr := client.Rollback(); rbErr != nil {
			s.log.WithFields(log.Fields{
				"request_id": requestID,
				"error":      rbErr.Error(),
			}).Error("Failed to rollback autofill transaction")
		}

		return err
	}

	if err := client.Commit(); err != nil {
		return err
	}

	if err := s.redisClient.Delete(ctx, s.suggestionCacheKey(event.UserID, event.FieldName)); err != nil {
		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"field_name": event.FieldName,
			"error":      err.Error(),
		}).Warn("Failed to invalidate autofill suggestion cache")
	}

	return nil
}
