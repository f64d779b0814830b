package pipeline

import (
	"fmt"

	"github.com/scouter-app/scouter/internal/structure"
)

// ValidationResult is a deterministic quality assessment of a structured
// receipt. Findings are never fatal; the pipeline reports them and carries
// on.
type ValidationResult struct {
	Score  int      `json:"score"` // 0-100
	Issues []string `json:"issues"`
	Valid  bool     `json:"valid"` // score >= 70
}

// Penalties applied by Validate, in evaluation order.
const (
	penaltyMissingMerchant = 10
	penaltyNoItems         = 20
	penaltyBadItem         = 5
	penaltyBadTotal        = 15
)

const validThreshold = 70

// Validate computes a quality score for a structured receipt. It is pure:
// the same input always yields the same result. Scoring starts at 100 and
// fixed penalties are applied in order (merchant, items, totals); the score
// is floored at 0.
func Validate(data *structure.ReceiptData) ValidationResult {
	score := 100
	issues := []string{}

	if data == nil {
		return ValidationResult{Score: 0, Issues: []string{"No receipt data"}, Valid: false}
	}

	if data.Merchant.Name == "" {
		score -= penaltyMissingMerchant
		issues = append(issues, "Missing merchant name")
	}

	if len(data.Items) == 0 {
		score -= penaltyNoItems
		issues = append(issues, "No items found")
	} else {
		for _, item := range data.Items {
			if item.Name == "" || item.Price <= 0 {
				score -= penaltyBadItem
				issues = append(issues, fmt.Sprintf("Invalid item: %q (price %.2f)", item.Name, item.Price))
			}
		}
	}

	if data.Totals.Total <= 0 {
		score -= penaltyBadTotal
		issues = append(issues, "Invalid total amount")
	}

	if score < 0 {
		score = 0
	}

	return ValidationResult{
		Score:  score,
		Issues: issues,
		Valid:  score >= validThreshold,
	}
}
