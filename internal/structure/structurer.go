package structure

import (
	"context"
	"math"

	"github.com/scouter-app/scouter/internal/extract"
)

// Merchant identifies the business on the receipt.
type Merchant struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Transaction carries the purchase details.
type Transaction struct {
	Date          string `json:"date"`
	Time          string `json:"time"`
	Cashier       string `json:"cashier"`
	PaymentMethod string `json:"payment_method"`
	ApprovalCode  string `json:"approval_code"`
}

// Item is one purchased line item. Price and quantity are proper numbers,
// never currency-formatted strings.
type Item struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Totals holds the receipt amounts. TaxBreakdown maps a tax label to its
// amount, e.g. "GST (5%)" -> 1.65.
type Totals struct {
	Subtotal     float64            `json:"subtotal"`
	Tax          float64            `json:"tax"`
	Total        float64            `json:"total"`
	TaxBreakdown map[string]float64 `json:"tax_breakdown,omitempty"`
}

// ConfidenceBreakdown splits the aggregate confidence by sub-area.
type ConfidenceBreakdown struct {
	MerchantInfo       float64 `json:"merchant_info"`
	TransactionDetails float64 `json:"transaction_details"`
	ItemsExtraction    float64 `json:"items_extraction"`
	TotalsCalculation  float64 `json:"totals_calculation"`
}

// ReceiptData is the fully normalized receipt record. It is immutable once
// returned; ownership passes to the caller.
type ReceiptData struct {
	Merchant            Merchant            `json:"merchant"`
	Transaction         Transaction         `json:"transaction"`
	Items               []Item              `json:"items"`
	Totals              Totals              `json:"totals"`
	Currency            string              `json:"currency"`
	ConfidenceScore     float64             `json:"confidence_score"`
	ConfidenceBreakdown ConfidenceBreakdown `json:"confidence_breakdown"`
	ProcessingNotes     string              `json:"processing_notes,omitempty"`
}

// Result holds the outcome of a structuring call. Backend failures
// (transport errors, malformed responses) are reported in-band with the
// underlying message preserved.
type Result struct {
	Success        bool         `json:"success"`
	Data           *ReceiptData `json:"data,omitempty"`
	TokensUsed     int          `json:"tokens_used,omitempty"`
	ProcessingTime float64      `json:"processing_time,omitempty"` // seconds
	Model          string       `json:"model,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// Structurer turns raw receipt text into a normalized ReceiptData with a
// confidence score and breakdown.
type Structurer interface {
	// Structure builds a receipt record from raw text alone.
	Structure(ctx context.Context, rawText string) Result
	// Enhance reconciles, validates and completes an upstream structured
	// guess against the raw text rather than starting over.
	Enhance(ctx context.Context, rawText string, hints *extract.Structured) Result
	// Close releases backend client resources.
	Close() error
}

func failure(model, msg string) Result {
	return Result{Success: false, Model: model, Error: msg}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
