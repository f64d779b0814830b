package structure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/scouter-app/scouter/internal/extract"
)

// Ollama implements Structurer against a local Ollama instance, for
// deployments that keep receipt text off third-party APIs.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates an Ollama structurer.
func NewOllama(baseURL, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llama3.1"
	}

	return &Ollama{
		baseURL: baseURL,
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second, // local models can be slow
		},
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Structure builds a receipt record from raw text alone.
func (o *Ollama) Structure(ctx context.Context, rawText string) Result {
	return o.complete(ctx, structurePrompt(rawText))
}

// Enhance reconciles the document backend's structured guess with the raw
// text.
func (o *Ollama) Enhance(ctx context.Context, rawText string, hints *extract.Structured) Result {
	return o.complete(ctx, enhancePrompt(rawText, hints))
}

func (o *Ollama) complete(ctx context.Context, prompt string) Result {
	start := time.Now()

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You are an expert at structuring receipt and invoice data. You respond with exactly one valid JSON object and nothing else.",
			},
			{
				Role:    "user",
				Content: prompt,
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return failure(o.model, fmt.Sprintf("marshaling request: %v", err))
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return failure(o.model, fmt.Sprintf("creating request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return failure(o.model, fmt.Sprintf("calling ollama API: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return failure(o.model, fmt.Sprintf("ollama API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return failure(o.model, fmt.Sprintf("decoding response: %v", err))
	}

	data, err := parseReceiptJSON(chatResp.Message.Content)
	if err != nil {
		return failure(o.model, fmt.Sprintf("parsing receipt data: %v", err))
	}

	return Result{
		Success:        true,
		Data:           data,
		ProcessingTime: round2(time.Since(start).Seconds()),
		Model:          o.model,
	}
}

// Close is a no-op for the HTTP client.
func (o *Ollama) Close() error {
	return nil
}
