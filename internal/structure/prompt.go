package structure

import (
	"encoding/json"
	"fmt"

	"github.com/scouter-app/scouter/internal/extract"
)

const receiptJSONShape = `{
  "merchant": {"name": "", "address": "", "phone": ""},
  "transaction": {"date": "", "time": "", "cashier": "", "payment_method": "", "approval_code": ""},
  "items": [{"name": "", "price": 0.0, "quantity": 1}],
  "totals": {"subtotal": 0.0, "tax": 0.0, "total": 0.0, "tax_breakdown": {}},
  "currency": "CAD",
  "confidence_score": 0.0,
  "confidence_breakdown": {
    "merchant_info": 0.0,
    "transaction_details": 0.0,
    "items_extraction": 0.0,
    "totals_calculation": 0.0
  },
  "processing_notes": ""
}`

// structurePrompt asks the model to build a receipt record from raw text
// alone.
func structurePrompt(rawText string) string {
	return fmt.Sprintf(`Extract and structure the following receipt data into JSON format.
Also provide a confidence score (0-100) for the overall extraction quality.

Receipt Text:
%s

Return a JSON object with this exact structure:
%s

Rules:
- All amounts are plain numbers, never currency-formatted strings.
- List items in the order they appear on the receipt.
- Be precise with numbers and provide realistic confidence scores based on text clarity.
- Return ONLY the JSON object, no surrounding text or markdown fences.`, rawText, receiptJSONShape)
}

// enhancePrompt asks the model to reconcile, validate and complete a partial
// structured guess produced by the document backend.
func enhancePrompt(rawText string, hints *extract.Structured) string {
	hintsJSON := "{}"
	if hints != nil {
		if b, err := json.MarshalIndent(hints, "", "  "); err == nil {
			hintsJSON = string(b)
		}
	}

	return fmt.Sprintf(`You are an expert at processing receipt data. You have receipt text and pre-extracted structured data from a document understanding service.
Enhance and validate this data: fill in missing fields, correct errors, and keep values that already match the text.

Raw Receipt Text:
%s

Pre-extracted Structured Data:
%s

Return an enhanced JSON object with this exact structure:
%s

Focus on:
1. Validating and correcting amounts and dates against the raw text
2. Ensuring every purchased item is present with a proper price
3. Reconciling totals: subtotal + tax should equal total
4. Providing realistic confidence scores (0-100) per sub-area
Return ONLY the JSON object, no surrounding text or markdown fences.`, rawText, hintsJSON, receiptJSONShape)
}
