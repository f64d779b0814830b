package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"github.com/scouter-app/scouter/internal/imageprep"
)

// Azure implements Extractor using the Azure Computer Vision printed-text
// OCR API. It yields raw text only: the API reports no typed entities, so
// Structured stays nil and the aggregate confidence is 0 per the
// zero-entity rule.
type Azure struct {
	client *computervision.BaseClient
}

// NewAzure creates an Azure OCR extractor.
func NewAzure(endpoint, apiKey string) (*Azure, error) {
	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("azure extractor requires endpoint and api key")
	}

	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)

	return &Azure{client: &client}, nil
}

// Extract runs printed-text OCR over an enhanced copy of the image. The
// enhancement pass (grayscale, contrast, sharpen) noticeably improves
// recognition on photographed receipts.
func (a *Azure) Extract(ctx context.Context, data []byte) Result {
	start := time.Now()

	pngData, _, _, err := imageprep.Prepare(data, "")
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("preparing image: %v", err)}
	}

	enhanced, err := imageprep.EnhanceForOCR(pngData)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("enhancing image: %v", err)}
	}

	result, err := a.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(enhanced)),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("azure ocr failed: %v", err)}
	}

	text := assembleText(result)

	return Result{
		Success:        true,
		Text:           text,
		Confidence:     0,
		WordCount:      wordCount(text),
		ProcessingTime: round2(time.Since(start).Seconds()),
	}
}

// Close is a no-op; the Azure client holds no long-lived connections.
func (a *Azure) Close() error {
	return nil
}

// assembleText flattens OCR regions and lines into newline-separated text.
func assembleText(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}

	var lines []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			var lineText strings.Builder
			for _, word := range *line.Words {
				if word.Text == nil {
					continue
				}
				if lineText.Len() > 0 {
					lineText.WriteString(" ")
				}
				lineText.WriteString(*word.Text)
			}
			if lineText.Len() > 0 {
				lines = append(lines, lineText.String())
			}
		}
	}
	return strings.Join(lines, "\n")
}
