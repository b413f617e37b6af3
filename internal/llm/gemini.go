package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-3-pro-preview"

// Gemini pricing (per million tokens, prompts up to 200k tokens)
const (
	geminiInputPricePerMillion  = 2.00
	geminiOutputPricePerMillion = 12.00 // Including thinking
)

const temperature = 0.1

// GeminiConfig configures a GeminiAssessor.
type GeminiConfig struct {
	APIKey string
	Model  string
	// Timeout bounds the whole call. Zero means no timeout.
	Timeout time.Duration
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// GeminiAssessor uses Google's Gemini API for listing assessment.
type GeminiAssessor struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiAssessor creates a new Gemini-based assessor.
func NewGeminiAssessor(ctx context.Context, cfg GeminiConfig) (*GeminiAssessor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAssessor{client: client, model: model, timeout: cfg.Timeout}, nil
}

// Assess sends the listing text and images in a single request and returns
// the first candidate's text. There is no retry.
func (g *GeminiAssessor) Assess(ctx context.Context, req *Request) (*Assessment, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	// Prompt first, then all images
	parts := []*genai.Part{
		genai.NewPartFromText(BuildPrompt(req.Title, req.Price, req.Body)),
	}
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img.Data, MIMEType: "image/jpeg"},
		})
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](temperature),
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingLevel: genai.ThinkingLevelHigh,
		},
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := firstText(result)
	if err != nil {
		return nil, err
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount) + int64(result.UsageMetadata.ThoughtsTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	}

	log.Info().
		Str("model", g.model).
		Int("imageCount", len(req.Images)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("assessment llm call")

	return &Assessment{Text: text, Usage: usage}, nil
}

// firstText returns the first text part of the first candidate. Thought
// parts are not requested, so the first part is the answer.
func firstText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	content := result.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0] == nil {
		return "", ErrEmptyResponse
	}
	if text := content.Parts[0].Text; text != "" {
		return text, nil
	}
	return "", ErrEmptyResponse
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}
