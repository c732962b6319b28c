package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gwi.com/photo-search-assistant/internal/config"
)

// ErrNoModel is returned by every model call when no API key is configured.
var ErrNoModel = errors.New("language model is not configured")

// TextGenerator produces free text for a system + user prompt pair.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// VariationGenerator produces 1-3 schema-validated keyword variations.
type VariationGenerator interface {
	GenerateVariations(ctx context.Context, systemPrompt, userPrompt string) ([]string, error)
}

type LLMService struct {
	client    *genai.Client
	modelName string
}

func NewLLMService() *LLMService {
	if config.AppConfig.GeminiAPIKey == "" {
		return &LLMService{modelName: config.AppConfig.GeminiModel}
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		config.Logger.Fatalf("Failed to create GenAI client: %v", err)
	}

	return &LLMService{
		client:    client,
		modelName: config.AppConfig.GeminiModel,
	}
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			config.Logger.Errorf("Error closing GenAI client: %v", err)
		} else {
			config.Logger.Info("GenAI client closed.")
		}
	}
}

func (s *LLMService) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if s.client == nil {
		return "", ErrNoModel
	}
	model := s.client.GenerativeModel(s.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini GenerateContent failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

var variationsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"variations": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "1-3 alternative keyword combinations that maintain core intent but add creative variety",
		},
	},
	Required: []string{"variations"},
}

func (s *LLMService) GenerateVariations(ctx context.Context, systemPrompt, userPrompt string) ([]string, error) {
	if s.client == nil {
		return nil, ErrNoModel
	}
	model := s.client.GenerativeModel(s.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	temp := float32(0.9)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema:   variationsSchema,
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return nil, fmt.Errorf("gemini structured request failed: %w", err)
	}

	var out struct {
		Variations []string `json:"variations"`
	}
	if err := json.Unmarshal([]byte(responseText(resp)), &out); err != nil {
		return nil, fmt.Errorf("gemini structured response did not match schema: %w", err)
	}
	return validateVariations(out.Variations)
}

// validateVariations enforces the 1-3 non-empty strings contract.
func validateVariations(raw []string) ([]string, error) {
	variations := make([]string, 0, maxVariations)
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		variations = append(variations, v)
		if len(variations) == maxVariations {
			break
		}
	}
	if len(variations) == 0 {
		return nil, fmt.Errorf("no variations in model response")
	}
	return variations, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		} else {
			config.Logger.Debugf("Gemini response part was not text: %T", part)
		}
	}
	return b.String()
}
