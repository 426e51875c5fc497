package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"FormFlowGolang/pkg/nlp"
)

type IGemini interface {
	ExtractFields(ctx context.Context, transcript string, target nlp.FieldSpec, remaining []nlp.FieldSpec, history []string) ([]nlp.FieldCandidate, error)
	Close()
}

type geminiClient struct {
	apiKey    string
	modelName string
	client    *genai.Client
}

func NewGeminiClient() (IGemini, error) {

	apiKey := os.Getenv("GEMINI_API_KEY")

	modelName := os.Getenv("GEMINI_MODEL_NAME")
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &geminiClient{
		apiKey:    apiKey,
		modelName: modelName,
		client:    client,
	}, nil
}

func (g *geminiClient) ExtractFields(ctx context.Context, transcript string, target nlp.FieldSpec, remaining []nlp.FieldSpec, history []string) ([]nlp.FieldCandidate, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.ResponseMIMEType = "application/json"

	prompt := buildExtractionPrompt(transcript, target, remaining, history)

	res, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}

	if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("no response from Gemini API")
	}

	response := res.Candidates[0].Content.Parts[0]
	text, ok := response.(genai.Text)
	if !ok {
		return nil, errors.New("unexpected response format from Gemini API")
	}

	return parseFieldsPayload(string(text))
}

func (g *geminiClient) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

type fieldsPayload struct {
	Fields []struct {
		FieldName  string  `json:"field_name"`
		Value      string  `json:"value"`
		Confidence float64 `json:"confidence"`
	} `json:"fields"`
}

func parseFieldsPayload(raw string) ([]nlp.FieldCandidate, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var payload fieldsPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
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

func buildExtractionPrompt(transcript string, target nlp.FieldSpec, remaining []nlp.FieldSpec, history []string) string {
	var sb strings.Builder

	sb.WriteString("You extract form field values from voice transcripts. The transcript may contain speech recognition errors such as \"at the rate\" for @ or digit homophones.\n\n")

	sb.WriteString("Return ONLY valid JSON in this exact shape, nothing else:\n")
	sb.WriteString(`{"fields":[{"field_name":"email","value":"john@gmail.com","confidence":0.95}]}`)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- confidence is between 0 and 1; lower it for garbled or ambiguous speech\n")
	sb.WriteString("- include every field the transcript plausibly answers, even beyond the current question\n")
	sb.WriteString("- normalize emails to local@domain.tld and phone numbers to digits\n")
	sb.WriteString("- omit fields the transcript says nothing about\n\n")

	fmt.Fprintf(&sb, "Current question asks for %q (type %s).\n", target.Label, target.Type)
	if len(target.Options) > 0 {
		fmt.Fprintf(&sb, "Allowed options: %s.\n", strings.Join(target.Options, ", "))
	}

	sb.WriteString("All fields still open:\n")
	for _, field := range remaining {
		fmt.Fprintf(&sb, "- %s (%s, type %s)\n", field.Name, field.Label, field.Type)
	}

	if len(history) > 0 {
		sb.WriteString("\nConversation so far:\n")
		for _, line := range history {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	fmt.Fprintf(&sb, "\nTranscript: %q\n", transcript)

	return sb.String()
}
