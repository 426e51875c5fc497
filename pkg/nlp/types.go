package nlp

type ResultKind int

const (
	ResultSingle ResultKind = iota
	ResultBatch
	ResultCommand
)

func (k ResultKind) String() string {
	switch k {
	case ResultBatch:
		return "batch"
	case ResultCommand:
		return "command"
	default:
		return "single"
	}
}

type Command string

const (
	CommandSkip   Command = "skip"
	CommandRepeat Command = "repeat"
	CommandBack   Command = "back"
	CommandStop   Command = "stop"
)

type FieldSpec struct {
	Name              string   `json:"name"`
	Label             string   `json:"label"`
	Type              string   `json:"type"`
	Required          bool     `json:"required"`
	Options           []string `json:"options"`
	ValidationPattern string   `json:"validation_pattern"`
}

type FieldCandidate struct {
	FieldName  string   `json:"field_name"`
	Value      string   `json:"value"`
	RawText    string   `json:"raw_text"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
	Issues     []string `json:"issues"`
}

type ExtractionResult struct {
	Kind           ResultKind       `json:"kind"`
	Command        Command          `json:"command,omitempty"`
	Single         *FieldCandidate  `json:"single,omitempty"`
	Batch          []FieldCandidate `json:"batch,omitempty"`
	Language       DetectedLanguage `json:"language"`
	ProcessingTime string           `json:"processing_time"`
}

type DetectedLanguage struct {
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
}

type INLPProcessor interface {
	Process(text string, target FieldSpec, remaining []FieldSpec) (*ExtractionResult, error)
	Normalize(text string, fieldType string) string
	MatchCommand(text string) (Command, bool)
	IsAffirmation(text string) bool
	IsNegation(text string) bool
	ExtractField(text string, field FieldSpec) *FieldCandidate
	ExtractBatch(text string, fields []FieldSpec) []FieldCandidate
	Validate(value string, field FieldSpec) []string
	DetectLanguage(text string) DetectedLanguage
	Similarity(text1, text2 string) float64
	SuggestCorrections(raw string, field FieldSpec) []string
}
