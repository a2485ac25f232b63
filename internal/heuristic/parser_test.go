package heuristic

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parser", func() {
	var parser *Parser

	BeforeEach(func() {
		parser = NewParser(Config{SubtotalToleranceCents: 5}, nil)
	})

	Describe("Parse", func() {
		const costcoReceipt = "COSTCO WHOLESALE\n" +
			"9652107 BANANAS\n" +
			"2.42 E\n" +
			"1599844 ORG STRAWBERRIES\n" +
			"6.99 E\n" +
			"1234567 KS ALMONDS\n" +
			"14.99 E\n" +
			"SUBTOTAL 24.40"

		It("extracts all items with their prices in order", func() {
			parse := parser.Parse(costcoReceipt)
			Expect(parse.Items).To(HaveLen(3))
			Expect(parse.Items[0].RawName).To(Equal("BANANAS"))
			Expect(parse.Items[0].PriceCents).To(Equal(int64(242)))
			Expect(parse.Items[1].RawName).To(Equal("ORG STRAWBERRIES"))
			Expect(parse.Items[1].PriceCents).To(Equal(int64(699)))
			Expect(parse.Items[2].RawName).To(Equal("KS ALMONDS"))
			Expect(parse.Items[2].PriceCents).To(Equal(int64(1499)))
		})

		It("detects the merchant banner line", func() {
			parse := parser.Parse(costcoReceipt)
			Expect(parse.Merchant).To(Equal("COSTCO WHOLESALE"))
		})

		It("detects the printed subtotal", func() {
			parse := parser.Parse(costcoReceipt)
			Expect(parse.SubtotalCents).NotTo(BeNil())
			Expect(*parse.SubtotalCents).To(Equal(int64(2440)))
		})

		It("sums item prices to the printed subtotal", func() {
			parse := parser.Parse(costcoReceipt)
			Expect(parse.ItemSumCents()).To(Equal(int64(2440)))
		})

		It("scores a clean reconciled receipt above the escalation threshold", func() {
			parse := parser.Parse(costcoReceipt)
			Expect(parse.Confidence).To(BeNumerically(">=", 0.9))
		})

		It("counts code/name lines for the escalation gate", func() {
			parse := parser.Parse(costcoReceipt)
			Expect(parse.CodeNameCount).To(Equal(3))
		})

		It("records superseded prices when a discount follows the original", func() {
			parse := parser.Parse("1111111 SALMON FILLET\n4.79\n3.99 S\nSUBTOTAL 3.99")
			Expect(parse.Items).To(HaveLen(1))
			Expect(parse.Items[0].PriceCents).To(Equal(int64(399)))
			Expect(parse.Notes).To(ContainElement(ContainSubstring("price 4.79 superseded by 3.99")))
		})

		It("lowers confidence when items disagree with the printed subtotal", func() {
			agree := parser.Parse("1000001 APPLES\n1.00\nSUBTOTAL 1.00")
			disagree := parser.Parse("1000001 APPLES\n1.00\nSUBTOTAL 9.00")
			Expect(disagree.Confidence).To(BeNumerically("<", agree.Confidence))
		})

		It("ignores TAX lines when picking the printed total", func() {
			parse := parser.Parse("1000001 APPLES\n1.00\nTAX 0.09\nTOTAL 1.09")
			Expect(parse.TotalCents).NotTo(BeNil())
			Expect(*parse.TotalCents).To(Equal(int64(109)))
		})

		It("prefers the subtotal over the total as the reconciliation reference", func() {
			parse := parser.Parse("1000001 APPLES\n1.00\nSUBTOTAL 1.00\nTOTAL 1.09")
			ref, ok := parse.ReferenceTotalCents()
			Expect(ok).To(BeTrue())
			Expect(ref).To(Equal(int64(100)))
		})

		It("returns zero confidence and no items for empty text", func() {
			parse := parser.Parse("")
			Expect(parse.Items).To(BeEmpty())
			Expect(parse.Confidence).To(BeZero())
		})
	})
})
