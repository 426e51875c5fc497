package conversationService

import (
	"context"
	"fmt"

	"FormFlowGolang/internal/entity"
	contextPkg "FormFlowGolang/pkg/context"
	"FormFlowGolang/pkg/log"
	"FormFlowGolang/pkg/nlp"
)

func fieldSpecFor(field entity.FieldDescriptor) nlp.FieldSpec {
	return nlp.FieldSpec{
		Name:              field.Name,
		Label:             field.Label,
		Type:              field.Type,
		Required:          field.Required,
		Options:           field.Options,
		ValidationPattern: field.ValidationPattern,
	}
}

// openFieldSpecs lists the fields a turn may fill: the current target first,
// then the rest of the rotation, then skipped questions, then fields already
// answered so a spontaneous correction ("actually my email is...") can land
// on them. A batched answer can reach any of these.
func (s *conversationService) openFieldSpecs(session *entity.ConversationSession) []nlp.FieldSpec {
	size := len(session.RemainingFields) + len(session.SkippedFields) + len(session.Collected)
	seen := make(map[string]bool, size)
	specs := make([]nlp.FieldSpec, 0, size)

	appendSpec := func(name string) {
		if name == "" || seen[name] {
			return
		}
		if field, ok := s.fieldSpec(session, name); ok {
			seen[name] = true
			specs = append(specs, fieldSpecFor(field))
		}
	}

	appendSpec(session.CurrentField)
	for _, name := range session.RemainingFields {
		appendSpec(name)
	}
	for _, name := range session.SkippedFields {
		appendSpec(name)
	}
	for name := range session.Collected {
		appendSpec(name)
	}

	return specs
}

func (s *conversationService) recentHistory(session *entity.ConversationSession, n int) []string {
	start := len(session.QAHistory) - n
	if start < 0 {
		start = 0
	}

	history := make([]string, 0, len(session.QAHistory)-start)
	for _, qa := range session.QAHistory[start:] {
		history = append(history, fmt.Sprintf("Q: %s | A: %s", qa.Question, qa.Answer))
	}

	return history
}

// dispatchExtraction classifies one utterance. The command vocabulary is
// checked before any model call so "skip" never costs a round trip, and a
// provider error or timeout falls back to the deterministic pipeline.
func (s *conversationService) dispatchExtraction(ctx context.Context, session *entity.ConversationSession, message string, asrConfidence float64) *nlp.ExtractionResult {
	if command, ok := s.nlpProcessor.MatchCommand(message); ok {
		return &nlp.ExtractionResult{
			Kind:     nlp.ResultCommand,
			Command:  command,
			Language: s.nlpProcessor.DetectLanguage(message),
		}
	}

	specs := s.openFieldSpecs(session)
	if len(specs) == 0 {
		return &nlp.ExtractionResult{
			Kind:     nlp.ResultSingle,
			Language: s.nlpProcessor.DetectLanguage(message),
		}
	}
	target := specs[0]

	result := s.providerExtraction(ctx, session, message, target, specs)
	if result == nil {
		heuristic, err := s.nlpProcessor.Process(message, target, specs)
		if err != nil || heuristic == nil {
			heuristic = &nlp.ExtractionResult{
				Kind: nlp.ResultSingle,
				Single: &nlp.FieldCandidate{
					FieldName:  target.Name,
					RawText:    message,
					Confidence: 0.1,
					Source:     "heuristic",
				},
				Language: s.nlpProcessor.DetectLanguage(message),
			}
		}
		result = heuristic
	}

	blendASRConfidence(result, asrConfidence)

	return result
}

// extractForField re-runs extraction against one known field, used when a
// confirmation or clarification reply carries a corrected value.
func (s *conversationService) extractForField(ctx context.Context, session *entity.ConversationSession, message string, field entity.FieldDescriptor, asrConfidence float64) *nlp.FieldCandidate {
	target := fieldSpecFor(field)

	if result := s.providerExtraction(ctx, session, message, target, []nlp.FieldSpec{target}); result != nil {
		var candidate *nlp.FieldCandidate
		switch {
		case result.Single != nil:
			candidate = result.Single
		case len(result.Batch) > 0:
			for i := range result.Batch {
				if result.Batch[i].FieldName == field.Name {
					candidate = &result.Batch[i]
					break
				}
			}
		}

		if candidate != nil && candidate.FieldName == field.Name {
			candidate.Confidence = blendConfidence(candidate.Confidence, asrConfidence)
			return candidate
		}
	}

	candidate := s.nlpProcessor.ExtractField(message, target)
	if candidate != nil {
		candidate.Confidence = blendConfidence(candidate.Confidence, asrConfidence)
	}

	return candidate
}

// providerExtraction asks the configured model to pull field values out of
// the transcript. It returns nil whenever the deterministic pipeline should
// take over instead: provider off, misconfigured, failed, or empty-handed.
func (s *conversationService) providerExtraction(ctx context.Context, session *entity.ConversationSession, message string, target nlp.FieldSpec, open []nlp.FieldSpec) *nlp.ExtractionResult {
	if s.config.AIProvider == AIProviderOff {
		return nil
	}

	requestID := contextPkg.GetRequestID(ctx)

	cctx, cancel := context.WithTimeout(ctx, s.config.ExtractionTimeout)
	defer cancel()

	history := s.recentHistory(session, 6)

	var (
		candidates []nlp.FieldCandidate
		err        error
	)

	switch s.config.AIProvider {
	case AIProviderGemini:
		if s.gemini == nil {
			return nil
		}
		candidates, err = s.gemini.ExtractFields(cctx, message, target, open, history)
	case AIProviderOpenAI:
		if s.chatGPT == nil {
			return nil
		}
		candidates, err = s.chatGPT.ExtractFields(cctx, message, target, open, history)
	default:
		return nil
	}

	if err != nil {
		s.aiHealthy.Store(false)

		s.log.WithFields(log.Fields{
			"request_id": requestID,
			"session_id": session.ID,
			"provider":   s.config.AIProvider,
			"error":      err.Error(),
		}).Warn("AI extraction failed, using deterministic fallback")

		s.recordEvent(ctx, session, eventExtractionFallback, map[string]interface{}{
			"provider": s.config.AIProvider,
		})

		return nil
	}

	s.aiHealthy.Store(true)

	known := make(map[string]nlp.FieldSpec, len(open))
	for _, spec := range open {
		known[spec.Name] = spec
	}

	kept := make([]nlp.FieldCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		spec, ok := known[candidate.FieldName]
		if !ok || candidate.Value == "" {
			continue
		}

		candidate.Issues = s.nlpProcessor.Validate(candidate.Value, spec)
		if candidate.RawText == "" {
			candidate.RawText = message
		}
		if candidate.Source == "" {
			candidate.Source = "provider"
		}
		kept = append(kept, candidate)
	}

	if len(kept) == 0 {
		return nil
	}

	language := s.nlpProcessor.DetectLanguage(message)

	if len(kept) >= 2 {
		return &nlp.ExtractionResult{Kind: nlp.ResultBatch, Batch: kept, Language: language}
	}

	single := kept[0]

	return &nlp.ExtractionResult{Kind: nlp.ResultSingle, Single: &single, Language: language}
}

// blendASRConfidence folds recognizer confidence into extraction confidence.
// Extraction evidence dominates; a shaky transcript drags the result down.
func blendASRConfidence(result *nlp.ExtractionResult, asr float64) {
	if result == nil || asr <= 0 {
		return
	}

	if result.Single != nil {
		result.Single.Confidence = blendConfidence(result.Single.Confidence, asr)
	}
	for i := range result.Batch {
		result.Batch[i].Confidence = blendConfidence(result.Batch[i].Confidence, asr)
	}
}

func blendConfidence(extraction, asr float64) float64 {
	if asr <= 0 {
		return extraction
	}

	blended := 0.7*extraction + 0.3*asr
	if blended > 1 {
		blended = 1
	}
	if blended < 0 {
		blended = 0
	}

	return blended
}
