package conversationService

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"FormFlowGolang/internal/api/autofill"
	"FormFlowGolang/internal/api/conversation"
	"FormFlowGolang/internal/entity"
	contextPkg "FormFlowGolang/pkg/context"
	"FormFlowGolang/pkg/log"
	"FormFlowGolang/pkg/nlp"
)

func (s *conversationService) CreateSession(ctx context.Context, req conversation.CreateSessionRequest) (*conversation.CreateSessionResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	schema := req.FormSchema.ToEntity()
	if len(schema.AskableFields()) == 0 {
		return nil, conversation.ErrNoAskableFields
	}

	sessionID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &entity.ConversationSession{
		ID:           sessionID,
		UserID:       req.UserID,
		FormURL:      req.FormURL,
		Schema:       schema,
		State:        entity.StateAwaitingInput,
		Language:     "en-US",
		Context:      map[string]interface{}{},
		CreatedAt:    now,
		LastActivity: now,
	}
	s.initSchedule(session)

	client, err := s.conversationRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	if err := client.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": sessionID,
		"form_url":   req.FormURL,
		"fields":     len(session.RemainingFields),
	}).Info("Conversation session created")

	s.recordEvent(ctx, session, eventSessionCreated, map[string]interface{}{
		"fields": len(session.RemainingFields),
	})

	return &conversation.CreateSessionResponse{
		SessionID:            sessionID,
		Greeting:             s.greeting(session),
		NextQuestions:        s.nextQuestions(session),
		RemainingFieldsCount: s.remainingCount(session),
	}, nil
}

// greeting opens the conversation: form title when known, question count,
// and a short reminder of the voice commands.
func (s *conversationService) greeting(session *entity.ConversationSession) string {
	count := s.remainingCount(session)

	noun := "questions"
	if count == 1 {
		noun = "question"
	}

	intro := fmt.Sprintf("Hi! I have %d %s for you.", count, noun)
	if title := strings.TrimSpace(session.Schema.Title); title != "" {
		intro = fmt.Sprintf("Hi! Let's fill out %s together. I have %d %s for you.", title, count, noun)
	}

	return joinParts(intro, "You can say skip, repeat, go back, or stop at any time.", s.askCurrent(session))
}

func (s *conversationService) ProcessMessage(ctx context.Context, req conversation.MessageRequest) (*conversation.MessageResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	client, err := s.conversationRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	session, err := client.Sessions.Acquire(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer client.Sessions.Release(req.SessionID)

	session.State = entity.StateProcessing
	session.LastActivity = time.Now()
	if turns, ok := session.Context["turns"].(int); ok {
		session.Context["turns"] = turns + 1
	} else {
		session.Context["turns"] = 1
	}

	s.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": session.ID,
		"length":     len(req.Message),
	}).Debug("Processing conversation message")

	resp := s.runTurn(ctx, session, req.Message, req.ASRConfidence)

	if session.State == entity.StateProcessing || session.State == entity.StateAutoAdvanced {
		session.State = entity.StateAwaitingInput
	}
	session.LastActivity = time.Now()

	resp.RemainingFieldsCount = s.remainingCount(session)
	resp.IsComplete = session.State == entity.StateComplete
	resp.NextQuestions = s.nextQuestions(session)

	return resp, nil
}

func (s *conversationService) runTurn(ctx context.Context, session *entity.ConversationSession, message string, asrConfidence float64) *conversation.MessageResponse {
	resp := &conversation.MessageResponse{
		ExtractedValues:  map[string]string{},
		ConfidenceScores: map[string]float64{},
	}

	if session.State == entity.StateComplete {
		resp.Response = "All your answers are already in. You're good to go!"
		return resp
	}

	if session.Pending != nil {
		s.handleConfirmationReply(ctx, session, message, asrConfidence, resp)
		return resp
	}

	if session.Clarify != nil {
		s.handleClarificationReply(ctx, session, message, asrConfidence, resp)
		return resp
	}

	result := s.dispatchExtraction(ctx, session, message, asrConfidence)
	if result.Language.Tag != "" {
		session.Language = result.Language.Tag
		resp.DetectedLanguage = result.Language.Tag
	}

	switch result.Kind {
	case nlp.ResultCommand:
		s.handleCommand(ctx, session, result.Command, resp)
	case nlp.ResultBatch:
		s.handleBatch(ctx, session, message, result.Batch, resp)
	default:
		s.handleSingle(ctx, session, message, result.Single, resp)
	}

	return resp
}

// resolveCandidate routes one extracted value by confidence band: commit
// silently, ask for a yes/no, or ask the question again.
func (s *conversationService) resolveCandidate(ctx context.Context, session *entity.ConversationSession, field entity.FieldDescriptor, candidate *nlp.FieldCandidate, answer string, resp *conversation.MessageResponse) {
	switch confidenceBandFor(candidate.Confidence) {
	case bandAccept:
		session.State = entity.StateAutoAdvanced
		s.applyCommit(ctx, session, field, candidate.Value, candidate.Confidence, sourceName(candidate), answer, candidate.Issues, resp)
		s.finishOrAsk(ctx, session, fmt.Sprintf("Got it, %s: %s.", strings.ToLower(s.fieldLabel(field)), candidate.Value), resp)

	case bandConfirm:
		session.Pending = &entity.PendingConfirmation{
			FieldName:  field.Name,
			Value:      candidate.Value,
			Confidence: candidate.Confidence,
			Issues:     candidate.Issues,
		}
		session.State = entity.StateAwaitingConfirmation

		resp.NeedsConfirmation = true
		resp.ExtractedValues[field.Name] = candidate.Value
		resp.ConfidenceScores[field.Name] = candidate.Confidence
		resp.Response = s.confirmationPrompt(field, candidate.Value, candidate.Confidence, candidate.Issues)

		s.recordEvent(ctx, session, eventConfirmationRequested, map[string]interface{}{
			"field_name": field.Name,
			"confidence": candidate.Confidence,
		})

	default:
		s.enterClarification(ctx, session, field, rawOf(candidate, answer), resp)
	}
}

// applyCommit finalizes a value: session bookkeeping, response bookkeeping,
// and the detached autofill write.
func (s *conversationService) applyCommit(ctx context.Context, session *entity.ConversationSession, field entity.FieldDescriptor, value string, confidence float64, source, answer string, issues []string, resp *conversation.MessageResponse) {
	s.commitField(session, field, value, confidence, source, answer, issues)

	resp.ExtractedValues[field.Name] = value
	resp.ConfidenceScores[field.Name] = confidence
	if len(issues) > 0 {
		if resp.ValidationIssues == nil {
			resp.ValidationIssues = map[string][]string{}
		}
		resp.ValidationIssues[field.Name] = issues
	}

	s.recordAutofillUsage(ctx, session, field, value, confidence)
	s.recordEvent(ctx, session, eventFieldCommitted, map[string]interface{}{
		"field_name": field.Name,
		"confidence": confidence,
		"source":     source,
	})
}

// finishOrAsk closes out the session when nothing is left, otherwise asks the
// next question after the given acknowledgement.
func (s *conversationService) finishOrAsk(ctx context.Context, session *entity.ConversationSession, ack string, resp *conversation.MessageResponse) {
	if session.IsComplete() {
		s.completeSession(ctx, session, resp)
		resp.Response = joinParts(ack, resp.Response)
		return
	}

	resp.Response = joinParts(ack, s.askCurrent(session))
}

func (s *conversationService) askCurrent(session *entity.ConversationSession) string {
	if field, ok := s.currentFieldSpec(session); ok {
		return s.promptFor(field)
	}

	return ""
}

func (s *conversationService) completeSession(ctx context.Context, session *entity.ConversationSession, resp *conversation.MessageResponse) {
	session.State = entity.StateComplete
	session.Pending = nil
	session.Clarify = nil

	count := len(session.Collected)
	summary := fmt.Sprintf("All %d answers are saved.", count)
	if count == 1 {
		summary = "Your answer is saved."
	}
	resp.Response = joinParts("That's everything!", summary, "You can close the form whenever you're ready.")

	s.recordEvent(ctx, session, eventSessionCompleted, map[string]interface{}{
		"fields_collected": count,
	})
}

// enterClarification asks the question again with escalating help and up to
// three ranked suggestions. The attempt counter lives on the session so the
// escalation survives the round trip.
func (s *conversationService) enterClarification(ctx context.Context, session *entity.ConversationSession, field entity.FieldDescriptor, raw string, resp *conversation.MessageResponse) {
	session.ClarifyAttempts[field.Name]++
	attempt := session.ClarifyAttempts[field.Name]

	suggestions := s.buildSuggestions(ctx, session, field, raw)

	session.Clarify = &entity.ClarifyState{FieldName: field.Name, Suggestions: suggestions}
	session.State = entity.StateAwaitingClarification

	resp.Suggestions = suggestions
	resp.Response = s.clarificationPrompt(field, attempt, suggestions)

	s.recordEvent(ctx, session, eventClarificationRequested, map[string]interface{}{
		"field_name": field.Name,
		"attempt":    attempt,
	})
}

var negationLead = regexp.MustCompile(`(?i)^(?:no|nope|nah|wrong|incorrect|that'?s\s+(?:wrong|not\s+right|not\s+correct)|not\s+(?:right|correct))[,.!]?(?:\s+|$)`)

// stripNegationLead peels "no, " off a correction like "no, it's jane@x.com"
// so the remainder can be extracted as the replacement answer.
func stripNegationLead(text string) string {
	trimmed := strings.TrimSpace(text)
	for i := 0; i < 2; i++ {
		loc := negationLead.FindStringIndex(trimmed)
		if loc == nil {
			break
		}
		trimmed = strings.TrimSpace(trimmed[loc[1]:])
	}

	return trimmed
}

func (s *conversationService) handleConfirmationReply(ctx context.Context, session *entity.ConversationSession, message string, asrConfidence float64, resp *conversation.MessageResponse) {
	pending := session.Pending
	field, ok := s.fieldSpec(session, pending.FieldName)
	if !ok {
		session.Pending = nil
		resp.Response = s.askCurrent(session)
		return
	}

	if command, ok := s.nlpProcessor.MatchCommand(message); ok {
		if command == nlp.CommandRepeat {
			session.State = entity.StateAwaitingConfirmation
			resp.NeedsConfirmation = true
			resp.Response = s.confirmationPrompt(field, pending.Value, pending.Confidence, pending.Issues)
			return
		}

		session.Pending = nil
		s.handleCommand(ctx, session, command, resp)
		return
	}

	if s.nlpProcessor.IsAffirmation(message) {
		session.Pending = nil
		s.applyCommit(ctx, session, field, pending.Value, 1.0, "confirmed", message, pending.Issues, resp)
		s.finishOrAsk(ctx, session, fmt.Sprintf("Perfect, %s it is.", pending.Value), resp)
		return
	}

	if s.nlpProcessor.IsNegation(message) {
		session.Pending = nil

		// "no, it's jane@gmail.com" carries the correction inline
		rest := stripNegationLead(message)
		if rest != "" && !s.nlpProcessor.IsNegation(rest) {
			candidate := s.extractForField(ctx, session, rest, field, asrConfidence)
			if candidate != nil && candidate.Value != "" && !s.nlpProcessor.IsNegation(candidate.Value) && candidate.Confidence >= confirmThreshold {
				s.resolveCandidate(ctx, session, field, candidate, message, resp)
				return
			}
		}

		s.enterClarification(ctx, session, field, pending.Value, resp)
		return
	}

	// neither yes nor no: treat the message as a replacement answer
	candidate := s.extractForField(ctx, session, message, field, asrConfidence)
	if candidate == nil || candidate.Value == "" {
		session.State = entity.StateAwaitingConfirmation
		resp.NeedsConfirmation = true
		resp.Response = s.confirmationPrompt(field, pending.Value, pending.Confidence, pending.Issues)
		return
	}

	session.Pending = nil
	s.resolveCandidate(ctx, session, field, candidate, message, resp)
}

func (s *conversationService) handleClarificationReply(ctx context.Context, session *entity.ConversationSession, message string, asrConfidence float64, resp *conversation.MessageResponse) {
	clarify := session.Clarify
	field, ok := s.fieldSpec(session, clarify.FieldName)
	if !ok {
		session.Clarify = nil
		resp.Response = s.askCurrent(session)
		return
	}

	// picking an offered suggestion commits it outright
	if value, ok := s.matchSuggestion(message, clarify.Suggestions, field.Type); ok {
		session.Clarify = nil
		s.applyCommit(ctx, session, field, value, 1.0, "suggestion", message, s.nlpProcessor.Validate(value, fieldSpecFor(field)), resp)
		s.finishOrAsk(ctx, session, fmt.Sprintf("Got it, %s.", value), resp)
		return
	}

	// a lone yes with a single suggestion on offer counts as picking it
	if len(clarify.Suggestions) == 1 && s.nlpProcessor.IsAffirmation(message) {
		value := clarify.Suggestions[0]
		session.Clarify = nil
		s.applyCommit(ctx, session, field, value, 1.0, "suggestion", message, s.nlpProcessor.Validate(value, fieldSpecFor(field)), resp)
		s.finishOrAsk(ctx, session, fmt.Sprintf("Got it, %s.", value), resp)
		return
	}

	if command, ok := s.nlpProcessor.MatchCommand(message); ok {
		if command == nlp.CommandRepeat {
			session.State = entity.StateAwaitingClarification
			resp.Suggestions = clarify.Suggestions
			resp.Response = s.clarificationPrompt(field, session.ClarifyAttempts[field.Name], clarify.Suggestions)
			return
		}

		session.Clarify = nil
		s.handleCommand(ctx, session, command, resp)
		return
	}

	session.Clarify = nil
	candidate := s.extractForField(ctx, session, message, field, asrConfidence)
	if candidate == nil || candidate.Value == "" {
		s.enterClarification(ctx, session, field, message, resp)
		return
	}

	s.resolveCandidate(ctx, session, field, candidate, message, resp)
}

func (s *conversationService) handleCommand(ctx context.Context, session *entity.ConversationSession, command nlp.Command, resp *conversation.MessageResponse) {
	s.recordEvent(ctx, session, eventCommandHandled, map[string]interface{}{
		"command": string(command),
	})

	switch command {
	case nlp.CommandSkip:
		name, dropped := s.skipField(session)
		if name == "" {
			resp.Response = s.askCurrent(session)
			return
		}

		field, _ := s.fieldSpec(session, name)
		label := strings.ToLower(s.fieldLabel(field))

		ack := fmt.Sprintf("No problem, we can come back to %s later.", label)
		if dropped {
			ack = fmt.Sprintf("Okay, we'll leave %s blank.", label)
		}

		s.finishOrAsk(ctx, session, ack, resp)

	case nlp.CommandRepeat:
		resp.Response = s.askCurrent(session)

	case nlp.CommandBack:
		name, ok := s.undoLastCommit(session)
		if !ok {
			resp.Response = joinParts("There's nothing to go back to yet.", s.askCurrent(session))
			return
		}

		field, _ := s.fieldSpec(session, name)
		resp.Response = fmt.Sprintf("Sure, let's redo your %s. %s", strings.ToLower(s.fieldLabel(field)), s.promptFor(field))

	case nlp.CommandStop:
		session.State = entity.StateComplete
		session.Pending = nil
		session.Clarify = nil

		count := len(session.Collected)
		saved := fmt.Sprintf("I kept the %d answers you gave me.", count)
		if count == 1 {
			saved = "I kept the answer you gave me."
		} else if count == 0 {
			saved = "Nothing was filled in yet."
		}
		resp.Response = joinParts("Alright, stopping here.", saved)

		s.recordEvent(ctx, session, eventSessionCompleted, map[string]interface{}{
			"fields_collected": count,
			"reason":           "stop",
		})
	}
}

func (s *conversationService) handleSingle(ctx context.Context, session *entity.ConversationSession, message string, candidate *nlp.FieldCandidate, resp *conversation.MessageResponse) {
	if candidate == nil || candidate.FieldName == "" {
		resp.Response = s.askCurrent(session)
		return
	}

	field, ok := s.fieldSpec(session, candidate.FieldName)
	if !ok {
		resp.Response = s.askCurrent(session)
		return
	}

	if candidate.Value == "" {
		s.enterClarification(ctx, session, field, rawOf(candidate, message), resp)
		return
	}

	s.resolveCandidate(ctx, session, field, candidate, message, resp)
}

// handleBatch commits every high-confidence candidate, surfaces mid-band ones
// and asks to confirm the one matching the current question, and notes the
// fields it could not hear well.
func (s *conversationService) handleBatch(ctx context.Context, session *entity.ConversationSession, message string, batch []nlp.FieldCandidate, resp *conversation.MessageResponse) {
	s.recordEvent(ctx, session, eventBatchExtracted, map[string]interface{}{
		"candidates": len(batch),
	})

	var (
		committed    []string
		confirmables []nlp.FieldCandidate
		unclear      []string
	)

	for i := range batch {
		candidate := batch[i]
		field, ok := s.fieldSpec(session, candidate.FieldName)
		if !ok {
			continue
		}

		switch confidenceBandFor(candidate.Confidence) {
		case bandAccept:
			s.applyCommit(ctx, session, field, candidate.Value, candidate.Confidence, sourceName(&candidate), rawOf(&candidate, message), candidate.Issues, resp)
			committed = append(committed, strings.ToLower(s.fieldLabel(field)))

		case bandConfirm:
			resp.ExtractedValues[field.Name] = candidate.Value
			resp.ConfidenceScores[field.Name] = candidate.Confidence
			confirmables = append(confirmables, candidate)

		default:
			unclear = append(unclear, strings.ToLower(s.fieldLabel(field)))
		}
	}

	var ack string
	if len(committed) > 0 {
		ack = fmt.Sprintf("Great, I filled in %s.", andList(committed))
	}

	if len(confirmables) > 0 {
		chosen := confirmables[0]
		for i := range confirmables {
			if confirmables[i].FieldName == session.CurrentField {
				chosen = confirmables[i]
				break
			}
		}

		field, _ := s.fieldSpec(session, chosen.FieldName)
		session.Pending = &entity.PendingConfirmation{
			FieldName:  field.Name,
			Value:      chosen.Value,
			Confidence: chosen.Confidence,
			Issues:     chosen.Issues,
		}
		session.State = entity.StateAwaitingConfirmation

		resp.NeedsConfirmation = true
		resp.Response = joinParts(ack, s.confirmationPrompt(field, chosen.Value, chosen.Confidence, chosen.Issues))

		s.recordEvent(ctx, session, eventConfirmationRequested, map[string]interface{}{
			"field_name": field.Name,
			"confidence": chosen.Confidence,
		})
		return
	}

	if len(unclear) > 0 {
		note := fmt.Sprintf("I couldn't quite catch %s, so we'll take %s one at a time.", andList(unclear), thatOrThose(len(unclear)))
		s.finishOrAsk(ctx, session, joinParts(ack, note), resp)
		return
	}

	if len(committed) == 0 {
		if field, ok := s.currentFieldSpec(session); ok {
			s.enterClarification(ctx, session, field, message, resp)
		} else {
			resp.Response = s.askCurrent(session)
		}
		return
	}

	s.finishOrAsk(ctx, session, ack, resp)
}

func (s *conversationService) GetSessionStatus(ctx context.Context, sessionID string) (*conversation.SessionStatusResponse, error) {
	client, err := s.conversationRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	session, err := client.Sessions.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer client.Sessions.Release(sessionID)

	// checking in counts as activity
	session.LastActivity = time.Now()

	return &conversation.SessionStatusResponse{
		SessionID:            session.ID,
		State:                string(session.State),
		CurrentField:         session.CurrentField,
		FieldsCollected:      len(session.Collected),
		RemainingFieldsCount: s.remainingCount(session),
		SkippedFieldsCount:   len(session.SkippedFields),
		IsComplete:           session.State == entity.StateComplete || session.IsComplete(),
	}, nil
}

func (s *conversationService) TouchSession(ctx context.Context, sessionID string) error {
	client, err := s.conversationRepo.NewClient(false)
	if err != nil {
		return err
	}

	return client.Sessions.Touch(ctx, sessionID)
}

func (s *conversationService) EndSession(ctx context.Context, sessionID string) (*conversation.EndSessionResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	client, err := s.conversationRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	session, err := client.Sessions.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer client.Sessions.Release(sessionID)

	if session.State != entity.StateComplete {
		session.State = entity.StateTerminated
	}

	removed, err := client.Sessions.Remove(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	finalData := s.collectedValues(removed)

	s.archiveSubmission(ctx, removed)
	s.recordEvent(ctx, removed, eventSessionEnded, map[string]interface{}{
		"fields_collected": len(finalData),
		"turns":            removed.Context["turns"],
	})

	s.log.WithFields(log.Fields{
		"request_id":       requestID,
		"session_id":       sessionID,
		"fields_collected": len(finalData),
	}).Info("Conversation session ended")

	return &conversation.EndSessionResponse{
		FinalData:       finalData,
		FieldsCollected: len(finalData),
	}, nil
}

// archiveSubmission stores the final answers for retention. The write runs
// detached; a failure never fails the delete since the caller already holds
// the data.
func (s *conversationService) archiveSubmission(ctx context.Context, session *entity.ConversationSession) {
	if len(session.Collected) == 0 {
		return
	}

	payload, err := json.Marshal(s.collectedValues(session))
	if err != nil {
		return
	}

	submissionID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return
	}

	submission := entity.FormSubmission{
		ID:              submissionID,
		SessionID:       session.ID,
		UserID:          session.UserID,
		FormURL:         session.FormURL,
		Data:            string(payload),
		FieldsCollected: len(session.Collected),
		CreatedAt:       time.Now(),
	}

	detached := contextPkg.Detach(ctx)
	go func() {
		actx, cancel := context.WithTimeout(detached, 10*time.Second)
		defer cancel()

		client, err := s.conversationRepo.NewClient(false)
		if err != nil {
			s.log.WithField("error", err.Error()).Warn("Could not open client to archive submission")
			return
		}

		if err := client.Submissions.CreateSubmission(actx, submission); err != nil {
			s.log.WithFields(log.Fields{
				"session_id": session.ID,
				"error":      err.Error(),
			}).Warn("Failed to archive form submission")
		}
	}()
}

// recordAutofillUsage persists a committed value for future suggestion
// ranking. The write runs detached so it never blocks the turn.
func (s *conversationService) recordAutofillUsage(ctx context.Context, session *entity.ConversationSession, field entity.FieldDescriptor, value string, confidence float64) {
	if session.UserID == "" || s.autofillService == nil {
		return
	}

	event := autofill.UsageEvent{
		UserID:     session.UserID,
		FieldName:  field.Name,
		FieldType:  field.Type,
		Label:      s.fieldLabel(field),
		Value:      value,
		Confidence: confidence,
	}

	sessionID := session.ID
	detached := contextPkg.Detach(ctx)
	go func() {
		actx, cancel := context.WithTimeout(detached, 5*time.Second)
		defer cancel()

		if err := s.autofillService.RecordUsage(actx, event); err != nil {
			s.log.WithFields(log.Fields{
				"session_id": sessionID,
				"field_name": event.FieldName,
				"error":      err.Error(),
			}).Warn("Failed to record autofill usage")
		}
	}()
}

func (s *conversationService) Health() conversation.HealthResponse {
	return conversation.HealthResponse{Status: "healthy", Version: s.config.Version}
}

// AIHealth reports which extraction pipeline is live. Mode flips to fallback
// when the provider is disabled or its last call failed.
func (s *conversationService) AIHealth() conversation.AIHealthResponse {
	mode := "intelligent"
	status := "healthy"

	if s.config.AIProvider == AIProviderOff || !s.aiHealthy.Load() {
		mode = "fallback"
	}
	if s.config.AIProvider != AIProviderOff && !s.aiHealthy.Load() {
		status = "degraded"
	}

	return conversation.AIHealthResponse{Status: status, Mode: mode, Version: s.config.Version}
}

// StartSessionReaper sweeps idle sessions until ctx is done. A sweep takes
// the same per-session lease a turn does, so nothing mid-flight gets reaped.
func (s *conversationService) StartSessionReaper(ctx context.Context) {
	interval := s.config.ReaperInterval
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reapOnce(ctx)
			}
		}
	}()
}

func (s *conversationService) reapOnce(ctx context.Context) {
	client, err := s.conversationRepo.NewClient(false)
	if err != nil {
		s.log.WithField("error", err.Error()).Error("Reaper could not open repository client")
		return
	}

	reaped := client.Sessions.ReapIdle(ctx, s.config.SessionTTL)
	for _, sessionID := range reaped {
		s.recordEvent(ctx, nil, eventSessionReaped, map[string]interface{}{
			"session_id": sessionID,
		})
	}

	if len(reaped) > 0 {
		s.log.WithFields(log.Fields{
			"reaped": len(reaped),
			"active": client.Sessions.Count(),
		}).Info("Idle conversation sessions reaped")
	}

	if s.config.SubmissionRetention > 0 && time.Since(s.lastSubmissionSweep) >= time.Hour {
		s.lastSubmissionSweep = time.Now()
		if _, err := client.Submissions.CleanupOldSubmissions(ctx, s.config.SubmissionRetention); err != nil {
			s.log.WithField("error", err.Error()).Warn("Failed to clean up old submissions")
		}
	}
}

func joinParts(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, part)
		}
	}

	return strings.Join(kept, " ")
}

func andList(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	case 2:
		return values[0] + " and " + values[1]
	default:
		return strings.Join(values[:len(values)-1], ", ") + ", and " + values[len(values)-1]
	}
}

func thatOrThose(count int) string {
	if count == 1 {
		return "that one"
	}

	return "those"
}

func rawOf(candidate *nlp.FieldCandidate, fallback string) string {
	if candidate != nil && candidate.RawText != "" {
		return candidate.RawText
	}
	if candidate != nil && candidate.Value != "" {
		return candidate.Value
	}

	return fallback
}

func sourceName(candidate *nlp.FieldCandidate) string {
	if candidate.Source != "" {
		return candidate.Source
	}

	return "heuristic"
}
