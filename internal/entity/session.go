package entity

import (
	"time"
)

type SessionState string

const (
	StateAwaitingInput         SessionState = "AWAITING_INPUT"
	StateProcessing            SessionState = "PROCESSING"
	StateAutoAdvanced          SessionState = "AUTO_ADVANCED"
	StateAwaitingConfirmation  SessionState = "AWAITING_CONFIRMATION"
	StateAwaitingClarification SessionState = "AWAITING_CLARIFICATION"
	StateComplete              SessionState = "COMPLETE"
	StateTerminated            SessionState = "TERMINATED"
)

type ConversationSession struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"user_id"`
	FormURL         string                 `json:"form_url"`
	Schema          FormSchema             `json:"schema"`
	State           SessionState           `json:"state"`
	CurrentField    string                 `json:"current_field"`
	RemainingFields []string               `json:"remaining_fields"`
	SkippedFields   []string               `json:"skipped_fields"`
	Reoffered       map[string]bool        `json:"reoffered"`
	Collected       map[string]FieldData   `json:"collected"`
	CommitLog       []Commit               `json:"commit_log"`
	QAHistory       []QAHistoryEntry       `json:"qa_history"`
	Pending         *PendingConfirmation   `json:"pending,omitempty"`
	Clarify         *ClarifyState          `json:"clarify,omitempty"`
	ClarifyAttempts map[string]int         `json:"clarify_attempts"`
	Language        string                 `json:"language"`
	Context         map[string]interface{} `json:"context"`
	CreatedAt       time.Time              `json:"created_at"`
	LastActivity    time.Time              `json:"last_activity"`
}

type FieldData struct {
	Value          string    `json:"value"`
	Confidence     float64   `json:"confidence"`
	Source         string    `json:"source"`
	Issues         []string  `json:"issues,omitempty"`
	PreviousValues []string  `json:"previous_values,omitempty"`
	CollectedAt    time.Time `json:"collected_at"`
}

type Commit struct {
	FieldName   string    `json:"field_name"`
	Value       string    `json:"value"`
	Confidence  float64   `json:"confidence"`
	CommittedAt time.Time `json:"committed_at"`
}

type QAHistoryEntry struct {
	FieldName  string    `json:"field_name"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Confidence float64   `json:"confidence"`
	AskedAt    time.Time `json:"asked_at"`
}

type PendingConfirmation struct {
	FieldName  string   `json:"field_name"`
	Value      string   `json:"value"`
	Confidence float64  `json:"confidence"`
	Issues     []string `json:"issues,omitempty"`
}

type ClarifyState struct {
	FieldName   string   `json:"field_name"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// FieldByName resolves a field descriptor from the session's schema.
func (s *ConversationSession) FieldByName(name string) (FieldDescriptor, bool) {
	for _, field := range s.Schema.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDescriptor{}, false
}

// LastCommit returns the most recent committed field, if any.
func (s *ConversationSession) LastCommit() (Commit, bool) {
	if len(s.CommitLog) == 0 {
		return Commit{}, false
	}
	return s.CommitLog[len(s.CommitLog)-1], true
}

func (s *ConversationSession) IsComplete() bool {
	return len(s.RemainingFields) == 0 && len(s.SkippedFields) == 0
}
