package conversation

import (
	"FormFlowGolang/internal/entity"
)

type CreateSessionRequest struct {
	FormSchema FormSchemaPayload `json:"form_schema" validate:"required"`
	FormURL    string            `json:"form_url" validate:"required,max=2048"`
	UserID     string            `json:"user_id,omitempty" validate:"omitempty,max=128"`
}

type FormSchemaPayload struct {
	Title  string         `json:"title"`
	Fields []FieldPayload `json:"fields" validate:"required,min=1,dive"`
}

type FieldPayload struct {
	Name              string   `json:"name" validate:"required,max=128"`
	Label             string   `json:"label" validate:"max=256"`
	Type              string   `json:"type" validate:"max=32"`
	Required          bool     `json:"required"`
	Question          string   `json:"question" validate:"max=512"`
	SmartPrompt       string   `json:"smart_prompt" validate:"max=512"`
	Options           []string `json:"options"`
	ValidationPattern string   `json:"validation_pattern" validate:"max=512"`
	Hidden            bool     `json:"hidden"`
}

func (p FormSchemaPayload) ToEntity() entity.FormSchema {
	schema := entity.FormSchema{Title: p.Title, Fields: make([]entity.FieldDescriptor, 0, len(p.Fields))}
	for _, field := range p.Fields {
		schema.Fields = append(schema.Fields, entity.FieldDescriptor{
			Name:              field.Name,
			Label:             field.Label,
			Type:              field.Type,
			Required:          field.Required,
			Question:          field.Question,
			SmartPrompt:       field.SmartPrompt,
			Options:           field.Options,
			ValidationPattern: field.ValidationPattern,
			Hidden:            field.Hidden,
		})
	}
	return schema
}

type CreateSessionResponse struct {
	SessionID            string   `json:"session_id"`
	Greeting             string   `json:"greeting"`
	NextQuestions        []string `json:"next_questions"`
	RemainingFieldsCount int      `json:"remaining_fields_count"`
}

type MessageRequest struct {
	SessionID     string  `json:"session_id" validate:"required"`
	Message       string  `json:"message" validate:"required,min=1,max=10000"`
	ASRConfidence float64 `json:"asr_confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
}

type MessageResponse struct {
	Response             string              `json:"response"`
	ExtractedValues      map[string]string   `json:"extracted_values"`
	ConfidenceScores     map[string]float64  `json:"confidence_scores"`
	NeedsConfirmation    bool                `json:"needs_confirmation"`
	Suggestions          []string            `json:"suggestions,omitempty"`
	ValidationIssues     map[string][]string `json:"validation_issues,omitempty"`
	RemainingFieldsCount int                 `json:"remaining_fields_count"`
	IsComplete           bool                `json:"is_complete"`
	NextQuestions        []string            `json:"next_questions"`
	DetectedLanguage     string              `json:"detected_language,omitempty"`
}

type SessionStatusResponse struct {
	SessionID            string `json:"session_id"`
	State                string `json:"state"`
	CurrentField         string `json:"current_field,omitempty"`
	FieldsCollected      int    `json:"fields_collected"`
	RemainingFieldsCount int    `json:"remaining_fields_count"`
	SkippedFieldsCount   int    `json:"skipped_fields_count"`
	IsComplete           bool   `json:"is_complete"`
}

type EndSessionResponse struct {
	FinalData       map[string]string `json:"final_data"`
	FieldsCollected int               `json:"fields_collected"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type AIHealthResponse struct {
	Status  string `json:"status"`
	Mode    string `json:"mode"`
	Version string `json:"version"`
}
