package structure

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scouter-app/scouter/internal/extract"
)

var _ = Describe("Offline", func() {
	var structurer *Offline

	BeforeEach(func() {
		structurer = NewOffline()
	})

	Describe("Structure", func() {
		var result Result

		JustBeforeEach(func() {
			result = structurer.Structure(context.Background(), "any text")
		})

		It("succeeds", func() {
			Expect(result.Success).To(BeTrue())
		})

		It("returns the canonical merchant and six items", func() {
			Expect(result.Data.Merchant.Name).To(Equal("Fresh Market"))
			Expect(result.Data.Items).To(HaveLen(6))
		})

		It("keeps totals internally consistent: items sum plus tax equals total", func() {
			var sum float64
			for _, item := range result.Data.Items {
				sum += item.Price * float64(item.Quantity)
			}
			Expect(sum).To(BeNumerically("~", result.Data.Totals.Subtotal, 0.001))
			Expect(sum+result.Data.Totals.Tax).To(BeNumerically("~", result.Data.Totals.Total, 0.001))
			Expect(result.Data.Totals.Total).To(Equal(36.90))
		})

		It("reports the aggregate confidence with a breakdown", func() {
			Expect(result.Data.ConfidenceScore).To(Equal(92.3))
			Expect(result.Data.ConfidenceBreakdown.TotalsCalculation).To(Equal(96.0))
		})
	})

	Describe("Enhance", func() {
		var (
			hints  *extract.Structured
			result Result
		)

		BeforeEach(func() {
			hints = nil
		})

		JustBeforeEach(func() {
			result = structurer.Enhance(context.Background(), "any text", hints)
		})

		When("no hints are supplied", func() {
			It("still succeeds with the canonical receipt", func() {
				Expect(result.Success).To(BeTrue())
				Expect(result.Data.Merchant.Name).To(Equal("Fresh Market"))
			})
		})

		When("the extractor supplied hints", func() {
			BeforeEach(func() {
				hints = &extract.Structured{
					SupplierName: "Corner Store",
					InvoiceDate:  "2024-02-02",
					TotalAmount:  12.50,
					Currency:     "USD",
					LineItems: []extract.LineItem{
						{Description: "Coffee", Amount: 12.50},
					},
				}
			})

			It("overlays the hinted merchant and date", func() {
				Expect(result.Data.Merchant.Name).To(Equal("Corner Store"))
				Expect(result.Data.Transaction.Date).To(Equal("2024-02-02"))
			})

			It("replaces the items with the hinted line items", func() {
				Expect(result.Data.Items).To(HaveLen(1))
				Expect(result.Data.Items[0].Name).To(Equal("Coffee"))
				Expect(result.Data.Items[0].Quantity).To(Equal(1))
			})

			It("takes the hinted currency and total", func() {
				Expect(result.Data.Currency).To(Equal("USD"))
				Expect(result.Data.Totals.Total).To(Equal(12.50))
			})
		})
	})
})
