package conversationService

import (
	"context"
	"fmt"
	"strings"

	"FormFlowGolang/internal/api/autofill"
	"FormFlowGolang/internal/entity"
	contextPkg "FormFlowGolang/pkg/context"
	"FormFlowGolang/pkg/log"
)

// Confidence bands. Below confirmThreshold the engine asks again, between the
// two it asks for a yes/no, at or above acceptThreshold it commits silently.
const (
	confirmThreshold = 0.60
	acceptThreshold  = 0.85

	maxClarifySuggestions = 3
)

type confidenceBand int

const (
	bandClarify confidenceBand = iota
	bandConfirm
	bandAccept
)

func confidenceBandFor(confidence float64) confidenceBand {
	switch {
	case confidence >= acceptThreshold:
		return bandAccept
	case confidence >= confirmThreshold:
		return bandConfirm
	default:
		return bandClarify
	}
}

func (s *conversationService) confirmationPrompt(field entity.FieldDescriptor, value string, confidence float64, issues []string) string {
	label := strings.ToLower(s.fieldLabel(field))

	var prompt string
	if confidence >= 0.75 {
		prompt = fmt.Sprintf("I got %s for your %s. Is that right?", value, label)
	} else {
		prompt = fmt.Sprintf("I think you said %s for your %s. Did I get that right?", value, label)
	}

	if len(issues) > 0 {
		prompt = fmt.Sprintf("%s One thing to note: %s.", prompt, issues[0])
	}

	return prompt
}

// clarificationPrompt escalates with each failed attempt on the same field:
// a plain rephrase first, then a format example, then breaking the answer
// into parts, then offering a way out.
func (s *conversationService) clarificationPrompt(field entity.FieldDescriptor, attempt int, suggestions []string) string {
	label := strings.ToLower(s.fieldLabel(field))

	var prompt string
	switch {
	case attempt <= 1:
		prompt = fmt.Sprintf("Sorry, I didn't catch your %s. Could you say it once more?", label)
	case attempt == 2:
		prompt = fmt.Sprintf("I'm still not sure about your %s. %s", label, s.formatExample(field))
	case attempt == 3:
		prompt = s.breakDownPrompt(field, label)
	default:
		prompt = fmt.Sprintf("Let's not get stuck on your %s. You can say skip to move on, or give it one more try.", label)
	}

	if len(suggestions) > 0 {
		prompt = fmt.Sprintf("%s Did you mean %s?", prompt, orList(suggestions))
	}

	return prompt
}

func (s *conversationService) formatExample(field entity.FieldDescriptor) string {
	switch field.Type {
	case "email":
		return "You can spell it out, for example: john at gmail dot com."
	case "tel", "phone":
		return "Digits one at a time work best, for example: five five five, one two three four."
	case "date":
		return "A full date works best, for example: June 15 1990."
	case "number":
		return "A plain number works best, for example: 2500."
	case "select", "radio":
		if len(field.Options) > 0 {
			return fmt.Sprintf("The choices are: %s.", strings.Join(field.Options, ", "))
		}
		return "Saying it slowly, word by word, helps."
	default:
		return "Saying it slowly, word by word, helps."
	}
}

func (s *conversationService) breakDownPrompt(field entity.FieldDescriptor, label string) string {
	switch field.Type {
	case "email":
		return "Let's build your email step by step. What comes before the at sign?"
	case "tel", "phone":
		return "Let's take your number three digits at a time. What are the first three?"
	case "date":
		return fmt.Sprintf("Let's take the %s in parts. What year should I put?", label)
	default:
		return fmt.Sprintf("Let's take your %s one piece at a time. What's the first part?", label)
	}
}

func orList(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	case 2:
		return values[0] + " or " + values[1]
	default:
		return strings.Join(values[:len(values)-1], ", ") + ", or " + values[len(values)-1]
	}
}

// buildSuggestions gathers candidate answers for a garbled reply: corrections
// derived from the transcript first, then values this user committed for the
// same field in earlier sessions. Deduplicated, capped at three.
func (s *conversationService) buildSuggestions(ctx context.Context, session *entity.ConversationSession, field entity.FieldDescriptor, raw string) []string {
	candidates := s.nlpProcessor.SuggestCorrections(raw, fieldSpecFor(field))

	if session.UserID != "" {
		stored, err := s.autofillService.GetSuggestions(ctx, autofill.SuggestionsRequest{
			UserID:    session.UserID,
			FieldName: field.Name,
			FieldType: field.Type,
		})
		if err != nil {
			s.log.WithFields(log.Fields{
				"request_id": contextPkg.GetRequestID(ctx),
				"session_id": session.ID,
				"field_name": field.Name,
				"error":      err.Error(),
			}).Debug("Autofill lookup failed during clarification")
		} else if stored != nil {
			for _, suggestion := range stored.Suggestions {
				candidates = append(candidates, suggestion.Value)
			}
		}
	}

	// offering back exactly what was heard helps nobody
	rawKey := strings.ToLower(strings.TrimSpace(raw))

	seen := make(map[string]bool, len(candidates))
	unique := make([]string, 0, maxClarifySuggestions)
	for _, candidate := range candidates {
		key := strings.ToLower(strings.TrimSpace(candidate))
		if key == "" || key == rawKey || seen[key] {
			continue
		}

		seen[key] = true
		unique = append(unique, candidate)
		if len(unique) == maxClarifySuggestions {
			break
		}
	}

	return unique
}

var suggestionOrdinals = map[string]int{
	"first": 0, "first one": 0, "one": 0, "1": 0,
	"second": 1, "second one": 1, "two": 1, "2": 1,
	"third": 2, "third one": 2, "three": 2, "3": 2,
}

// matchSuggestion resolves a clarification reply against the offered
// suggestions, either by saying the value or by picking it by position
// ("the second one"). Bare numbers stay answers for number fields.
func (s *conversationService) matchSuggestion(message string, suggestions []string, fieldType string) (string, bool) {
	if len(suggestions) == 0 {
		return "", false
	}

	trimmed := strings.TrimSpace(message)
	for _, suggestion := range suggestions {
		if strings.EqualFold(trimmed, suggestion) {
			return suggestion, true
		}
		if s.nlpProcessor.Similarity(trimmed, suggestion) >= 0.85 {
			return suggestion, true
		}
	}

	words := strings.Fields(strings.ToLower(trimmed))
	kept := make([]string, 0, len(words))
	for _, word := range words {
		switch word {
		case "the", "number", "option", "please":
			continue
		}
		kept = append(kept, word)
	}

	phrase := strings.Join(kept, " ")
	index, ok := suggestionOrdinals[phrase]
	if !ok || index >= len(suggestions) {
		return "", false
	}

	// "one" while a number is being clarified is an answer, not a pick
	if fieldType == "number" && (phrase == "one" || phrase == "two" || phrase == "three" || phrase == "1" || phrase == "2" || phrase == "3") {
		return "", false
	}

	return suggestions[index], true
}
