package extract

import (
	"context"
	"time"
)

// Offline implements Extractor without any network backend. It returns a
// deterministic canonical receipt, keeping the pipeline usable in
// constrained environments and making tests reproducible. Construction
// never fails.
type Offline struct{}

// NewOffline creates the offline extractor.
func NewOffline() *Offline {
	return &Offline{}
}

const offlineReceiptText = `FRESH MARKET
123 Main Street
Vancouver, BC V6B 1A1
Tel: (604) 555-0123

Date: 2024-01-15
Time: 14:32:15
Cashier: John D.

ITEMS:
Organic Bananas       $3.99
Whole Milk 1L         $4.49
Bread - Whole Wheat   $2.99
Chicken Breast 1kg    $12.99
Broccoli              $2.49
Cheddar Cheese        $5.99

Subtotal:            $32.94
Tax (GST 5%):         $1.65
Tax (PST 7%):         $2.31
TOTAL:               $36.90

Payment: Visa ****1234
Approved: 123456

Thank you for shopping!`

// offlineEntities mirrors what a document backend reports for the canonical
// receipt. Confidences average to exactly 0.882.
func offlineEntities() []Entity {
	lineItem := func(desc, amount string) Entity {
		return Entity{
			Type:       "line_item",
			Confidence: 0.825,
			Properties: []Entity{
				{Type: "line_item/description", Value: desc},
				{Type: "line_item/amount", Value: amount},
			},
		}
	}

	return []Entity{
		{Type: "supplier_name", Value: "Fresh Market", Confidence: 0.95},
		{Type: "supplier_address", Value: "123 Main Street, Vancouver, BC V6B 1A1", Confidence: 0.90},
		{Type: "supplier_phone", Value: "(604) 555-0123", Confidence: 0.88},
		{Type: "invoice_date", Value: "2024-01-15", Confidence: 0.92},
		{Type: "total_amount", Value: "36.90", Confidence: 0.96},
		{Type: "subtotal_amount", Value: "32.94", Confidence: 0.93},
		{Type: "tax_amount", Value: "3.96", Confidence: 0.94},
		{Type: "currency", Value: "CAD", Confidence: 0.91},
		{Type: "payment_method", Value: "Visa", Confidence: 0.89},
		lineItem("Organic Bananas", "3.99"),
		lineItem("Whole Milk 1L", "4.49"),
		lineItem("Bread - Whole Wheat", "2.99"),
		lineItem("Chicken Breast 1kg", "12.99"),
		lineItem("Broccoli", "2.49"),
		lineItem("Cheddar Cheese", "5.99"),
	}
}

// Extract returns the canonical receipt regardless of input.
func (o *Offline) Extract(_ context.Context, _ []byte) Result {
	start := time.Now()
	structured, confidence := mapEntities(offlineEntities())

	return Result{
		Success:        true,
		Text:           offlineReceiptText,
		Structured:     structured,
		Confidence:     confidence,
		WordCount:      wordCount(offlineReceiptText),
		ProcessingTime: round2(time.Since(start).Seconds()),
	}
}

// Close is a no-op.
func (o *Offline) Close() error {
	return nil
}
