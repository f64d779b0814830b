package structure

import (
	"context"

	"github.com/scouter-app/scouter/internal/extract"
)

// Offline implements Structurer without any model backend. Structure returns
// the canonical receipt; Enhance reconciles the extractor's hints into the
// same shape. Deterministic, for tests and constrained environments.
type Offline struct{}

// NewOffline creates the offline structurer.
func NewOffline() *Offline {
	return &Offline{}
}

const offlineModel = "offline"

func canonicalReceipt() *ReceiptData {
	return &ReceiptData{
		Merchant: Merchant{
			Name:    "Fresh Market",
			Address: "123 Main Street, Vancouver, BC V6B 1A1",
			Phone:   "(604) 555-0123",
		},
		Transaction: Transaction{
			Date:          "2024-01-15",
			Time:          "14:32:15",
			Cashier:       "John D.",
			PaymentMethod: "Visa ****1234",
			ApprovalCode:  "123456",
		},
		Items: []Item{
			{Name: "Organic Bananas", Price: 3.99, Quantity: 1},
			{Name: "Whole Milk 1L", Price: 4.49, Quantity: 1},
			{Name: "Bread - Whole Wheat", Price: 2.99, Quantity: 1},
			{Name: "Chicken Breast 1kg", Price: 12.99, Quantity: 1},
			{Name: "Broccoli", Price: 2.49, Quantity: 1},
			{Name: "Cheddar Cheese", Price: 5.99, Quantity: 1},
		},
		Totals: Totals{
			Subtotal: 32.94,
			Tax:      3.96,
			Total:    36.90,
			TaxBreakdown: map[string]float64{
				"GST (5%)": 1.65,
				"PST (7%)": 2.31,
			},
		},
		Currency:        "CAD",
		ConfidenceScore: 92.3,
		ConfidenceBreakdown: ConfidenceBreakdown{
			MerchantInfo:       95.0,
			TransactionDetails: 90.0,
			ItemsExtraction:    88.5,
			TotalsCalculation:  96.0,
		},
	}
}

// Structure returns the canonical receipt regardless of input.
func (o *Offline) Structure(_ context.Context, _ string) Result {
	return Result{
		Success: true,
		Data:    canonicalReceipt(),
		Model:   offlineModel,
	}
}

// Enhance starts from the canonical receipt and overlays every hint the
// extractor produced, mirroring what a model would keep from a good
// upstream guess.
func (o *Offline) Enhance(_ context.Context, _ string, hints *extract.Structured) Result {
	data := canonicalReceipt()
	data.ConfidenceScore = 91.5
	data.ProcessingNotes = "Reconciled with document extraction hints"

	if hints != nil {
		if hints.SupplierName != "" {
			data.Merchant.Name = hints.SupplierName
		}
		if hints.SupplierAddress != "" {
			data.Merchant.Address = hints.SupplierAddress
		}
		if hints.SupplierPhone != "" {
			data.Merchant.Phone = hints.SupplierPhone
		}
		if hints.InvoiceDate != "" {
			data.Transaction.Date = hints.InvoiceDate
		}
		if hints.PaymentMethod != "" {
			data.Transaction.PaymentMethod = hints.PaymentMethod
		}
		if hints.Currency != "" {
			data.Currency = hints.Currency
		}
		if hints.TotalAmount > 0 {
			data.Totals.Total = hints.TotalAmount
		}
		if hints.SubtotalAmount > 0 {
			data.Totals.Subtotal = hints.SubtotalAmount
		}
		if hints.TaxAmount > 0 {
			data.Totals.Tax = hints.TaxAmount
		}
		if len(hints.LineItems) > 0 {
			items := make([]Item, 0, len(hints.LineItems))
			for _, li := range hints.LineItems {
				items = append(items, Item{Name: li.Description, Price: li.Amount, Quantity: 1})
			}
			data.Items = items
		}
	}

	return Result{
		Success: true,
		Data:    data,
		Model:   offlineModel,
	}
}

// Close is a no-op.
func (o *Offline) Close() error {
	return nil
}
