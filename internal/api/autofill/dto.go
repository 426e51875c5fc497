package autofill

type SuggestionsRequest struct {
	UserID    string `json:"user_id" validate:"required,max=128"`
	FieldName string `json:"field_name" validate:"required,max=128"`
	FieldType string `json:"field_type" validate:"omitempty,max=32"`
}

type Suggestion struct {
	Value      string  `json:"value"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence"`
	UsageCount int     `json:"usage_count"`
}

type SuggestionsResponse struct {
	Success     bool         `json:"success"`
	Suggestions []Suggestion `json:"suggestions"`
}

// UsageEvent is recorded after a value is committed in a conversation so the
// next session can offer it back as a suggestion.
type UsageEvent struct {
	UserID     string  `json:"user_id"`
	FieldName  string  `json:"field_name"`
	FieldType  string  `json:"field_type"`
	Label      string  `json:"label"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}
