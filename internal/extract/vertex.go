package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/scouter-app/scouter/internal/imageprep"
)

const extractorSystemPrompt = "You are a receipt and invoice understanding engine. You read document images and report their full text alongside typed entities with calibrated confidence scores. You always respond with a single valid JSON object."

const extractorUserPrompt = `Read the receipt image and return a JSON object with this exact structure:
{
  "text": "the complete raw text of the receipt, preserving line breaks",
  "entities": [
    {"type": "supplier_name", "value": "", "confidence": 0.0},
    {"type": "supplier_address", "value": "", "confidence": 0.0},
    {"type": "supplier_phone", "value": "", "confidence": 0.0},
    {"type": "invoice_date", "value": "YYYY-MM-DD", "confidence": 0.0},
    {"type": "total_amount", "value": "0.00", "confidence": 0.0},
    {"type": "subtotal_amount", "value": "0.00", "confidence": 0.0},
    {"type": "tax_amount", "value": "0.00", "confidence": 0.0},
    {"type": "currency", "value": "CAD", "confidence": 0.0},
    {"type": "payment_method", "value": "", "confidence": 0.0},
    {"type": "line_item", "confidence": 0.0, "properties": [
      {"type": "line_item/description", "value": ""},
      {"type": "line_item/amount", "value": "0.00"}
    ]}
  ]
}

Rules:
- Emit one "line_item" entity per purchased item, in receipt order.
- Omit any entity you cannot find; never invent values.
- Confidence is a number between 0 and 1 reflecting how clearly the field reads.
- Amounts are plain decimal strings without currency symbols.
- Return ONLY the JSON object, no surrounding text.`

// Vertex implements Extractor using a Gemini model on Vertex AI in JSON
// response mode.
type Vertex struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewVertex creates a Vertex extractor. Credentials follow the prioritized
// chain in Credentials; with nothing configured the client uses ambient
// default credentials.
func NewVertex(ctx context.Context, projectID, location, modelName string, creds Credentials) (*Vertex, error) {
	if projectID == "" {
		return nil, fmt.Errorf("vertex extractor requires a project id")
	}
	if location == "" {
		location = "us-central1"
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	opts, source, err := creds.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolving google credentials: %w", err)
	}
	slog.Info("Vertex extractor credentials resolved", "source", source)

	client, err := genai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vertex client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(extractorSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &Vertex{client: client, model: model}, nil
}

// documentResponse is the JSON shape the model is instructed to return.
type documentResponse struct {
	Text     string   `json:"text"`
	Entities []Entity `json:"entities"`
}

// Extract sends the image to the model and maps the returned entities into
// the generic structured shape. Transport errors and schema mismatches are
// reported in-band.
func (v *Vertex) Extract(ctx context.Context, data []byte) Result {
	start := time.Now()

	pngData, _, _, err := imageprep.Prepare(data, "")
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("preparing image: %v", err)}
	}

	resp, err := v.model.GenerateContent(ctx,
		genai.ImageData("png", pngData),
		genai.Text(extractorUserPrompt),
	)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("document extraction failed: %v", err)}
	}

	text, err := textFromCandidates(resp)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	var doc documentResponse
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("parsing extraction response: %v", err)}
	}

	structured, confidence := mapEntities(doc.Entities)

	return Result{
		Success:        true,
		Text:           doc.Text,
		Structured:     structured,
		Confidence:     confidence,
		WordCount:      wordCount(doc.Text),
		ProcessingTime: round2(time.Since(start).Seconds()),
	}
}

// Close closes the underlying Vertex client.
func (v *Vertex) Close() error {
	return v.client.Close()
}

func textFromCandidates(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String()), nil
}
