package entity

type FormSchema struct {
	Title  string            `json:"title"`
	Fields []FieldDescriptor `json:"fields"`
}

type FieldDescriptor struct {
	Name              string   `json:"name"`
	Label             string   `json:"label"`
	Type              string   `json:"type"`
	Required          bool     `json:"required"`
	Question          string   `json:"question"`
	SmartPrompt       string   `json:"smart_prompt"`
	Options           []string `json:"options"`
	ValidationPattern string   `json:"validation_pattern"`
	Hidden            bool     `json:"hidden"`
}

// Askable reports whether the field takes a spoken answer. Hidden inputs and
// page controls never enter the question queue.
func (f FieldDescriptor) Askable() bool {
	if f.Hidden {
		return false
	}
	switch f.Type {
	case "hidden", "submit", "button", "reset", "file", "image":
		return false
	}
	return true
}

func (s FormSchema) AskableFields() []FieldDescriptor {
	fields := make([]FieldDescriptor, 0, len(s.Fields))
	for _, field := range s.Fields {
		if field.Askable() {
			fields = append(fields, field)
		}
	}
	return fields
}
