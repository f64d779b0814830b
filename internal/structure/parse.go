package structure

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseReceiptJSON parses an LLM response into a ReceiptData. Models wrap
// their output in markdown fences or surrounding prose often enough that we
// extract the outermost JSON object before unmarshaling.
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text = strings.TrimSpace(text)

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var data ReceiptData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt json: %w", err)
	}

	normalize(&data)
	return &data, nil
}

// normalize enforces the invariants callers rely on: items carry a positive
// quantity, the currency has a value, and confidence scores stay in 0-100.
func normalize(data *ReceiptData) {
	for i := range data.Items {
		if data.Items[i].Quantity <= 0 {
			data.Items[i].Quantity = 1
		}
		data.Items[i].Name = strings.TrimSpace(data.Items[i].Name)
	}

	data.Merchant.Name = strings.TrimSpace(data.Merchant.Name)

	if data.Currency == "" {
		data.Currency = "CAD"
	}

	data.ConfidenceScore = clamp(data.ConfidenceScore)
	data.ConfidenceBreakdown.MerchantInfo = clamp(data.ConfidenceBreakdown.MerchantInfo)
	data.ConfidenceBreakdown.TransactionDetails = clamp(data.ConfidenceBreakdown.TransactionDetails)
	data.ConfidenceBreakdown.ItemsExtraction = clamp(data.ConfidenceBreakdown.ItemsExtraction)
	data.ConfidenceBreakdown.TotalsCalculation = clamp(data.ConfidenceBreakdown.TotalsCalculation)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
