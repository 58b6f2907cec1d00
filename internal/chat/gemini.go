package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// SystemPrompt steers the assistant toward the store's products
const SystemPrompt = `You are BoltBot, a helpful assistant for an electronics e-commerce store.
Be concise and focus on electronics products, specifications, and recommendations.`

// Generator produces an assistant reply for userText given the prior turns
type Generator interface {
	Generate(ctx context.Context, userText string, history []models.ChatTurn) (string, error)
}

// GeminiConfig carries model selection and sampling parameters
type GeminiConfig struct {
	APIKey          string
	Model           string
	MaxOutputTokens int32
	Temperature     float32
	TopK            int32
	TopP            float32
}

// GeminiGenerator calls the Gemini API through generative-ai-go
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiGenerator builds a client; the API key must be set
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetMaxOutputTokens(cfg.MaxOutputTokens)
	model.SetTemperature(cfg.Temperature)
	model.SetTopK(cfg.TopK)
	model.SetTopP(cfg.TopP)
	model.SystemInstruction = genai.NewUserContent(genai.Text(SystemPrompt))
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockMediumAndAbove},
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate sends userText on a fresh chat session seeded with history
func (g *GeminiGenerator) Generate(ctx context.Context, userText string, history []models.ChatTurn) (string, error) {
	cs := g.model.StartChat()
	cs.History = toContents(history)

	resp, err := cs.SendMessage(ctx, genai.Text(userText))
	if err != nil {
		return "", classify(err)
	}

	text := responseText(resp)
	if text == "" {
		return "", apperr.New(apperr.ExternalService, "empty response from model")
	}
	return text, nil
}

// Close releases the underlying connections
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func toContents(history []models.ChatTurn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		role := "user"
		if turn.Role == "model" || turn.Role == "bot" || turn.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(turn.Text)}})
	}
	return contents
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

// classify maps provider errors onto the application taxonomy
func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return apperr.Wrap(apperr.ExternalService, "response blocked by safety filters", err).
			WithCode(apperr.CodeSafetyBlocked)
	}

	msg := strings.ToLower(err.Error())
	var gerr *googleapi.Error
	rateLimited := (errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests) ||
		strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "429")
	if rateLimited {
		e := apperr.Wrap(apperr.RateLimited, "generation rate limited", err)
		if strings.Contains(msg, "quota") {
			return e.WithCode(apperr.CodeQuotaExceeded)
		}
		return e
	}
	if strings.Contains(msg, "safety") {
		return apperr.Wrap(apperr.ExternalService, "response blocked by safety filters", err).
			WithCode(apperr.CodeSafetyBlocked)
	}
	return apperr.ExternalServiceError("generation failed", err)
}
