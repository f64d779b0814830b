package extract

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Result holds the outcome of a document extraction. Failures are reported
// in-band so a degraded backend never takes the whole pipeline down with a
// panic.
type Result struct {
	Success        bool        `json:"success"`
	Text           string      `json:"text,omitempty"`
	Structured     *Structured `json:"structured_data,omitempty"`
	Confidence     float64     `json:"confidence"` // 0-100, one decimal
	WordCount      int         `json:"word_count,omitempty"`
	ProcessingTime float64     `json:"processing_time,omitempty"` // seconds
	Error          string      `json:"error,omitempty"`
}

// LineItem is one purchased item as seen by the document backend.
type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Structured is the generic field shape mapped from backend-specific entity
// types. All fields are best-effort; absent fields stay zero.
type Structured struct {
	SupplierName    string     `json:"supplier_name,omitempty"`
	SupplierAddress string     `json:"supplier_address,omitempty"`
	SupplierPhone   string     `json:"supplier_phone,omitempty"`
	InvoiceDate     string     `json:"invoice_date,omitempty"`
	TotalAmount     float64    `json:"total_amount,omitempty"`
	SubtotalAmount  float64    `json:"subtotal_amount,omitempty"`
	TaxAmount       float64    `json:"tax_amount,omitempty"`
	Currency        string     `json:"currency,omitempty"`
	PaymentMethod   string     `json:"payment_method,omitempty"`
	LineItems       []LineItem `json:"line_items,omitempty"`
}

// Entity is a single typed field reported by a document-understanding
// backend, with a 0-1 confidence. Line items carry their description and
// amount as nested properties.
type Entity struct {
	Type       string   `json:"type"`
	Value      string   `json:"value"`
	Confidence float64  `json:"confidence"`
	Properties []Entity `json:"properties,omitempty"`
}

// Extractor turns encoded image bytes into raw text plus a best-effort
// structured field extraction with a confidence measure.
type Extractor interface {
	Extract(ctx context.Context, data []byte) Result
	// Close releases backend client resources.
	Close() error
}

// parseAmount converts a currency-formatted string into a number, tolerating
// "$" signs and thousands separators.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "$", ""), ",", ""))
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return v, nil
}

// mapEntities converts backend entities into the generic structured shape
// and returns the aggregate confidence: the mean of per-entity confidences
// expressed as a 0-100 value rounded to one decimal. Zero entities yield 0.
func mapEntities(entities []Entity) (*Structured, float64) {
	if len(entities) == 0 {
		return nil, 0
	}

	structured := &Structured{}
	var confidenceSum float64

	for _, e := range entities {
		confidenceSum += e.Confidence

		switch e.Type {
		case "supplier_name":
			structured.SupplierName = e.Value
		case "supplier_address":
			structured.SupplierAddress = e.Value
		case "supplier_phone":
			structured.SupplierPhone = e.Value
		case "invoice_date":
			structured.InvoiceDate = e.Value
		case "total_amount":
			if v, err := parseAmount(e.Value); err == nil {
				structured.TotalAmount = v
			}
		case "subtotal_amount":
			if v, err := parseAmount(e.Value); err == nil {
				structured.SubtotalAmount = v
			}
		case "tax_amount":
			if v, err := parseAmount(e.Value); err == nil {
				structured.TaxAmount = v
			}
		case "currency":
			structured.Currency = e.Value
		case "payment_method":
			structured.PaymentMethod = e.Value
		case "line_item":
			var item LineItem
			for _, prop := range e.Properties {
				switch prop.Type {
				case "line_item/description":
					item.Description = prop.Value
				case "line_item/amount":
					if v, err := parseAmount(prop.Value); err == nil {
						item.Amount = v
					}
				}
			}
			if item != (LineItem{}) {
				structured.LineItems = append(structured.LineItems, item)
			}
		}
	}

	avg := confidenceSum / float64(len(entities))
	return structured, round1(avg * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
