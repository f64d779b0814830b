package structure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/scouter-app/scouter/internal/extract"
)

// Gemini implements Structurer using the Google Gemini API.
type Gemini struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGemini creates a Gemini structurer.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// Low temperature for deterministic structured output.
	model.SetTemperature(0.1)
	model.SetMaxOutputTokens(1500)

	return &Gemini{client: client, model: model, modelName: modelName}, nil
}

// Structure builds a receipt record from raw text alone.
func (g *Gemini) Structure(ctx context.Context, rawText string) Result {
	return g.complete(ctx, structurePrompt(rawText))
}

// Enhance reconciles the document backend's structured guess with the raw
// text.
func (g *Gemini) Enhance(ctx context.Context, rawText string, hints *extract.Structured) Result {
	return g.complete(ctx, enhancePrompt(rawText, hints))
}

func (g *Gemini) complete(ctx context.Context, prompt string) Result {
	start := time.Now()

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return failure(g.modelName, fmt.Sprintf("gemini processing failed: %v", err))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return failure(g.modelName, "no response from gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	data, err := parseReceiptJSON(b.String())
	if err != nil {
		return failure(g.modelName, fmt.Sprintf("parsing receipt data: %v", err))
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return Result{
		Success:        true,
		Data:           data,
		TokensUsed:     tokens,
		ProcessingTime: round2(time.Since(start).Seconds()),
		Model:          g.modelName,
	}
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
