package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"FormFlowGolang/pkg/nlp"
)

type IChatGPT interface {
	ExtractFields(ctx context.Context, transcript string, target nlp.FieldSpec, remaining []nlp.FieldSpec, history []string) ([]nlp.FieldCandidate, error)
}

type chatGPTService struct {
	client *openai.Client
	model  string
}

func NewChatGPT() IChatGPT {
	apiKey := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("OPENAI_CHAT_MODEL")

	if model == "" {
		model = openai.GPT4oMini
	}

	return &chatGPTService{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (c *chatGPTService) ExtractFields(
	ctx context.Context,
	transcript string,
	target nlp.FieldSpec,
	remaining []nlp.FieldSpec,
	history []string,
) ([]nlp.FieldCandidate, error) {
	systemPrompt := `You extract form field values from voice transcripts. Transcripts carry speech recognition errors: "at the rate" means @, "dot" means ., digits arrive as words or homophones ("to" for 2, "ate" for 8).

IMPORTANT: Return ONLY valid JSON, nothing else.

Format:
{
  "fields": [
    {"field_name": "email", "value": "john@gmail.com", "confidence": 0.95}
  ]
}

Rules:
- confidence: 0 to 1, lowered for garbled or ambiguous speech
- include every open field the transcript plausibly answers, not just the current question
- normalize emails to local@domain.tld and phone numbers to digits
- omit fields the transcript says nothing about`

	var user strings.Builder
	fmt.Fprintf(&user, "Current question asks for %q (type %s).\n", target.Label, target.Type)
	if len(target.Options) > 0 {
		fmt.Fprintf(&user, "Allowed options: %s.\n", strings.Join(target.Options, ", "))
	}
	user.WriteString("All fields still open:\n")
	for _, field := range remaining {
		fmt.Fprintf(&user, "- %s (%s, type %s)\n", field.Name, field.Label, field.Type)
	}
	if len(history) > 0 {
		user.WriteString("\nConversation so far:\n")
		user.WriteString(strings.Join(history, "\n"))
		user.WriteString("\n")
	}
	fmt.Fprintf(&user, "\nTranscript: %q", transcript)

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: user.String(),
		},
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: 0.3,
			MaxTokens:   400,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)

	if err != nil {
		return nil, fmt.Errorf("ChatGPT API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from ChatGPT")
	}

	var payload struct {
		Fields []struct {
			FieldName  string  `json:"field_name"`
			Value      string  `json:"value"`
			Confidence float64 `json:"confidence"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse extraction payload: %w", err)
	}

	candidates := make([]nlp.FieldCandidate, 0, len(payload.Fields))
	for _, field := range payload.Fields {
		if field.FieldName == "" || field.Value == "" {
			continue
		}
		confidence := field.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		candidates = append(candidates, nlp.FieldCandidate{
			FieldName:  field.FieldName,
			Value:      field.Value,
			Confidence: confidence,
			Source:     "provider",
		})
	}

	return candidates, nil
}
