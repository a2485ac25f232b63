package pipeline

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pantrytrack/receipt-parser/constants"
	"github.com/pantrytrack/receipt-parser/internal/entity"
	"github.com/pantrytrack/receipt-parser/internal/llm"
)

const costcoReceipt = "COSTCO WHOLESALE\n" +
	"9652107 BANANAS\n" +
	"2.42 E\n" +
	"1599844 ORG STRAWBERRIES\n" +
	"6.99 E\n" +
	"1234567 KS ALMONDS\n" +
	"14.99 E\n" +
	"SUBTOTAL 24.40"

var _ = Describe("Parser", func() {
	var (
		parser    *Parser
		extractor *stubExtractor
	)

	BeforeEach(func() {
		extractor = nil
		parser = NewParser(Config{}, newTestNormalizer(), nil, nil)
	})

	Describe("Parse", func() {
		When("the receipt is clean", func() {
			var res *entity.ReceiptParseResult

			BeforeEach(func() {
				res = parser.Parse(context.Background(), costcoReceipt, "")
			})

			It("succeeds with exactly three items", func() {
				Expect(res.Success).To(BeTrue())
				Expect(res.Items).To(HaveLen(3))
			})

			It("normalizes names and keeps prices in cents", func() {
				Expect(res.Items[0].ParsedName).To(Equal("BANANAS"))
				Expect(res.Items[0].PriceCents).To(Equal(int64(242)))
				Expect(res.Items[1].ParsedName).To(Equal("STRAWBERRIES"))
				Expect(res.Items[1].PriceCents).To(Equal(int64(699)))
				Expect(res.Items[2].ParsedName).To(Equal("ALMONDS"))
				Expect(res.Items[2].PriceCents).To(Equal(int64(1499)))
			})

			It("sums items to the printed subtotal with no mismatch note", func() {
				Expect(res.ItemSumCents()).To(Equal(int64(2440)))
				Expect(res.ProcessingNotes).NotTo(ContainElement(ContainSubstring("reconciliation mismatch")))
				Expect(res.NeedsReview).To(BeFalse())
			})

			It("stays on the heuristic method", func() {
				Expect(res.Method).To(Equal(constants.MethodHeuristic))
				for _, it := range res.Items {
					Expect(it.Source).To(Equal(constants.MethodHeuristic))
				}
			})

			It("detects the merchant from the banner line", func() {
				Expect(res.Merchant).To(Equal("COSTCO WHOLESALE"))
			})
		})

		When("a discount follows the original price", func() {
			It("resolves the discounted price and notes the superseded one", func() {
				res := parser.Parse(context.Background(),
					"1111111 SALMON FILLET\n4.79\n3.99 S\nSUBTOTAL 3.99", "")
				Expect(res.Items).To(HaveLen(1))
				Expect(res.Items[0].PriceCents).To(Equal(int64(399)))
				Expect(res.ProcessingNotes).To(ContainElement(ContainSubstring("superseded")))
			})
		})

		When("items disagree with the printed subtotal", func() {
			It("notes the exact delta and flags the parse for review", func() {
				res := parser.Parse(context.Background(),
					"1000001 APPLES\n1.00\nSUBTOTAL 9.00", "")
				Expect(res.ProcessingNotes).To(ContainElement(ContainSubstring("by -800 cents")))
				Expect(res.NeedsReview).To(BeTrue())
			})
		})

		When("the text is empty", func() {
			It("reports the no-content condition", func() {
				res := parser.Parse(context.Background(), "   \n  ", "")
				Expect(res.Success).To(BeFalse())
				Expect(res.Items).To(BeEmpty())
				Expect(res.ProcessingNotes).To(ContainElement(ContainSubstring("no content")))
			})
		})

		When("the merchant is not printed", func() {
			It("falls back to the caller's hint", func() {
				res := parser.Parse(context.Background(),
					"9652107 BANANAS\n2.42 E\nSUBTOTAL 2.42", "COSTCO WHOLESALE")
				Expect(res.Merchant).To(Equal("COSTCO WHOLESALE"))
			})
		})

		When("the heuristic pass is weak and no extractor is configured", func() {
			It("keeps the heuristic items and notes the skipped escalation", func() {
				// two code lines, only one priced: item count disagrees
				res := parser.Parse(context.Background(),
					"9652107 BANANAS\n1599844 ORG STRAWBERRIES\n6.99 E\nSUBTOTAL 6.99", "")
				Expect(res.ProcessingNotes).To(ContainElement(ContainSubstring("escalation skipped")))
				Expect(res.Items).To(HaveLen(1))
				Expect(res.Method).To(Equal(constants.MethodHeuristic))
			})
		})

		When("the heuristic pass is weak and an extractor is configured", func() {
			JustBeforeEach(func() {
				parser = NewParser(Config{}, newTestNormalizer(), extractor, nil)
			})

			When("extraction succeeds", func() {
				BeforeEach(func() {
					extractor = &stubExtractor{out: llm.ItemExtraction{
						Merchant: "COSTCO",
						Items: []llm.LineItem{
							{ItemName: "BANANAS", Price: "2.42"},
							{ItemName: "ORG STRAWBERRIES", Price: "4.57"},
						},
						Total: "6.99",
					}}
				})

				It("fully supersedes the heuristic items", func() {
					res := parser.Parse(context.Background(),
						"9652107 BANANAS\n1599844 ORG STRAWBERRIES\n6.99 E\nSUBTOTAL 6.99", "")
					Expect(extractor.called).To(BeTrue())
					Expect(res.Method).To(Equal(constants.MethodGenerative))
					Expect(res.Items).To(HaveLen(2))
					for _, it := range res.Items {
						Expect(it.Source).To(Equal(constants.MethodGenerative))
					}
					Expect(res.ItemSumCents()).To(Equal(int64(699)))
				})
			})

			When("extraction fails outright", func() {
				BeforeEach(func() {
					extractor = &stubExtractor{err: errors.New("retry budget (2) exhausted: schema violation")}
				})

				It("keeps the heuristic items with an explanatory note", func() {
					res := parser.Parse(context.Background(),
						"9652107 BANANAS\n1599844 ORG STRAWBERRIES\n6.99 E\nSUBTOTAL 6.99", "")
					Expect(res.Method).To(Equal(constants.MethodHeuristic))
					Expect(res.Items).To(HaveLen(1))
					Expect(res.ProcessingNotes).To(ContainElement(ContainSubstring("keeping heuristic result")))
				})
			})

			When("extraction exhausts its budget with a partial", func() {
				BeforeEach(func() {
					extractor = &stubExtractor{
						out: llm.ItemExtraction{Items: []llm.LineItem{{ItemName: "BANANAS", Price: "2.42"}}},
						err: errors.New("retry budget (2) exhausted: financial mismatch"),
					}
				})

				It("keeps the partial at reduced confidence", func() {
					res := parser.Parse(context.Background(),
						"9652107 BANANAS\n1599844 ORG STRAWBERRIES\n6.99 E\nSUBTOTAL 6.99", "")
					Expect(res.Method).To(Equal(constants.MethodGenerative))
					Expect(res.Items).To(HaveLen(1))
					Expect(res.ProcessingNotes).To(ContainElement(ContainSubstring("best partial kept")))
					Expect(res.Confidence).To(BeNumerically("<=", 0.5))
				})
			})
		})
	})
})

var _ = Describe("Reconcile", func() {
	newResult := func(prices ...int64) *entity.ReceiptParseResult {
		res := &entity.ReceiptParseResult{Confidence: 0.9}
		for _, p := range prices {
			res.Items = append(res.Items, entity.ParsedItem{PriceCents: p})
		}
		return res
	}

	It("does nothing without a printed reference", func() {
		res := newResult(100, 200)
		Reconcile(res, 5)
		Expect(res.ProcessingNotes).To(BeEmpty())
		Expect(res.NeedsReview).To(BeFalse())
	})

	It("accepts a sum within tolerance", func() {
		res := newResult(100, 200)
		sub := int64(303)
		res.SubtotalCents = &sub
		Reconcile(res, 5)
		Expect(res.ProcessingNotes).To(BeEmpty())
	})

	It("notes the signed delta beyond tolerance and lowers confidence", func() {
		res := newResult(100, 200)
		sub := int64(500)
		res.SubtotalCents = &sub
		Reconcile(res, 5)
		Expect(res.ProcessingNotes).To(ContainElement(
			ContainSubstring("item sum 3.00 differs from printed 5.00 by -200 cents")))
		Expect(res.NeedsReview).To(BeTrue())
		Expect(res.Confidence).To(BeNumerically("~", 0.63, 0.001))
	})

	It("prefers the subtotal over the total", func() {
		res := newResult(100)
		sub, tot := int64(100), int64(999)
		res.SubtotalCents = &sub
		res.TotalCents = &tot
		Reconcile(res, 5)
		Expect(res.ProcessingNotes).To(BeEmpty())
	})
})
