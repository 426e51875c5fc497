package conversationService

import (
	"fmt"
	"strings"
	"time"

	"FormFlowGolang/internal/entity"
)

// initSchedule seeds the question queues from the schema. Hidden and
// non-interactive fields never enter the rotation.
func (s *conversationService) initSchedule(session *entity.ConversationSession) {
	askable := session.Schema.AskableFields()

	session.RemainingFields = make([]string, 0, len(askable))
	for _, field := range askable {
		session.RemainingFields = append(session.RemainingFields, field.Name)
	}

	session.SkippedFields = []string{}
	session.Reoffered = map[string]bool{}
	session.Collected = map[string]entity.FieldData{}
	session.ClarifyAttempts = map[string]int{}

	if len(session.RemainingFields) > 0 {
		session.CurrentField = session.RemainingFields[0]
	}
}

func (s *conversationService) fieldSpec(session *entity.ConversationSession, name string) (entity.FieldDescriptor, bool) {
	for _, field := range session.Schema.Fields {
		if field.Name == name {
			return field, true
		}
	}

	return entity.FieldDescriptor{}, false
}

func (s *conversationService) currentFieldSpec(session *entity.ConversationSession) (entity.FieldDescriptor, bool) {
	if session.CurrentField == "" {
		return entity.FieldDescriptor{}, false
	}

	return s.fieldSpec(session, session.CurrentField)
}

func (s *conversationService) fieldLabel(field entity.FieldDescriptor) string {
	if field.Label != "" {
		return field.Label
	}

	return s.utils.DisplayName(field.Name)
}

// promptFor picks the question to ask for a field: an authored question wins,
// then the schema's smart prompt, then a template keyed on the field type.
func (s *conversationService) promptFor(field entity.FieldDescriptor) string {
	if field.Question != "" {
		return field.Question
	}

	if field.SmartPrompt != "" {
		return field.SmartPrompt
	}

	label := strings.ToLower(s.fieldLabel(field))

	switch field.Type {
	case "email":
		return fmt.Sprintf("What is your %s? You can spell it out if that is easier.", label)
	case "tel", "phone":
		return fmt.Sprintf("What is your %s? Digits one at a time work fine.", label)
	case "date":
		return fmt.Sprintf("What date should I put down for %s?", label)
	case "number":
		return fmt.Sprintf("What number should I enter for %s?", label)
	case "select", "radio":
		if len(field.Options) > 0 {
			shown := field.Options
			if len(shown) > 4 {
				shown = shown[:4]
			}
			return fmt.Sprintf("Which %s would you like? For example: %s.", label, strings.Join(shown, ", "))
		}
		return fmt.Sprintf("Which %s would you like?", label)
	default:
		return fmt.Sprintf("What is your %s?", label)
	}
}

// nextQuestions lists the prompts still ahead, current question first.
// Skipped questions ride at the end since they come back around.
func (s *conversationService) nextQuestions(session *entity.ConversationSession) []string {
	questions := make([]string, 0, len(session.RemainingFields)+len(session.SkippedFields))

	for _, name := range session.RemainingFields {
		if field, ok := s.fieldSpec(session, name); ok {
			questions = append(questions, s.promptFor(field))
		}
	}

	for _, name := range session.SkippedFields {
		if field, ok := s.fieldSpec(session, name); ok {
			questions = append(questions, s.promptFor(field))
		}
	}

	return questions
}

func (s *conversationService) remainingCount(session *entity.ConversationSession) int {
	return len(session.RemainingFields) + len(session.SkippedFields)
}

// refreshCurrent settles the pointer on the next open question. When the main
// queue runs dry, skipped questions are offered one more time in the order
// they were skipped; a question declined twice stays uncollected.
func (s *conversationService) refreshCurrent(session *entity.ConversationSession) {
	if len(session.RemainingFields) == 0 && len(session.SkippedFields) > 0 {
		requeued := make([]string, 0, len(session.SkippedFields))
		for _, name := range session.SkippedFields {
			if !session.Reoffered[name] {
				session.Reoffered[name] = true
				requeued = append(requeued, name)
			}
		}

		session.RemainingFields = requeued
		session.SkippedFields = []string{}
	}

	if len(session.RemainingFields) > 0 {
		session.CurrentField = session.RemainingFields[0]
	} else {
		session.CurrentField = ""
	}
}

func (s *conversationService) advanceSchedule(session *entity.ConversationSession) {
	if len(session.RemainingFields) > 0 && session.RemainingFields[0] == session.CurrentField {
		session.RemainingFields = session.RemainingFields[1:]
	}

	s.refreshCurrent(session)
}

// skipField moves the current question to the skipped queue, or drops it for
// good when it was already re-offered once. The second return reports the
// drop.
func (s *conversationService) skipField(session *entity.ConversationSession) (string, bool) {
	name := session.CurrentField
	if name == "" {
		return "", false
	}

	dropped := session.Reoffered[name]
	if !dropped {
		session.SkippedFields = append(session.SkippedFields, name)
	}

	s.advanceSchedule(session)

	return name, dropped
}

func removeString(values []string, target string) []string {
	kept := make([]string, 0, len(values))
	for _, value := range values {
		if value != target {
			kept = append(kept, value)
		}
	}

	return kept
}

func (s *conversationService) removeFromSchedule(session *entity.ConversationSession, name string) {
	session.RemainingFields = removeString(session.RemainingFields, name)
	session.SkippedFields = removeString(session.SkippedFields, name)
}

// commitField records a value as final for this session. Overwrites keep the
// older value in the previous-values trail.
func (s *conversationService) commitField(session *entity.ConversationSession, field entity.FieldDescriptor, value string, confidence float64, source, answer string, issues []string) {
	now := time.Now()

	data := session.Collected[field.Name]
	if data.Value != "" {
		data.PreviousValues = append(data.PreviousValues, data.Value)
	}
	data.Value = value
	data.Confidence = confidence
	data.Source = source
	data.Issues = issues
	data.CollectedAt = now
	session.Collected[field.Name] = data

	session.CommitLog = append(session.CommitLog, entity.Commit{
		FieldName:   field.Name,
		Value:       value,
		Confidence:  confidence,
		CommittedAt: now,
	})

	session.QAHistory = append(session.QAHistory, entity.QAHistoryEntry{
		FieldName:  field.Name,
		Question:   s.promptFor(field),
		Answer:     answer,
		Confidence: confidence,
		AskedAt:    now,
	})

	delete(session.ClarifyAttempts, field.Name)
	s.removeFromSchedule(session, field.Name)
	s.refreshCurrent(session)
}

// undoLastCommit reverses the newest commit and puts its question back at the
// head of the queue so the caller can answer again. A value that had been
// overwritten rolls back to the one before it.
func (s *conversationService) undoLastCommit(session *entity.ConversationSession) (string, bool) {
	if len(session.CommitLog) == 0 {
		return "", false
	}

	last := session.CommitLog[len(session.CommitLog)-1]
	session.CommitLog = session.CommitLog[:len(session.CommitLog)-1]

	data := session.Collected[last.FieldName]
	if len(data.PreviousValues) > 0 {
		data.Value = data.PreviousValues[len(data.PreviousValues)-1]
		data.PreviousValues = data.PreviousValues[:len(data.PreviousValues)-1]
		session.Collected[last.FieldName] = data
	} else {
		delete(session.Collected, last.FieldName)
	}

	session.RemainingFields = append([]string{last.FieldName}, removeString(session.RemainingFields, last.FieldName)...)
	session.SkippedFields = removeString(session.SkippedFields, last.FieldName)
	session.CurrentField = last.FieldName

	return last.FieldName, true
}

func (s *conversationService) collectedValues(session *entity.ConversationSession) map[string]string {
	values := make(map[string]string, len(session.Collected))
	for name, data := range session.Collected {
		values[name] = data.Value
	}

	return values
}
