package heuristic

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResolveItems", func() {
	resolve := func(lines ...string) ([]CandidateItem, []string) {
		return ResolveItems(TagLines(lines))
	}

	It("groups a code/name line with its following price", func() {
		items, notes := resolve(
			"9652107 BANANAS",
			"2.42 E",
		)
		Expect(notes).To(BeEmpty())
		Expect(items).To(HaveLen(1))
		Expect(items[0].Code).To(Equal("9652107"))
		Expect(items[0].RawName).To(Equal("BANANAS"))
		Expect(items[0].PriceCandidates).To(Equal([]int64{242}))
	})

	It("absorbs a category header between name and price", func() {
		items, _ := resolve(
			"9652107 BANANAS",
			"PRODUCE",
			"2.42 E",
		)
		Expect(items).To(HaveLen(1))
		Expect(items[0].RawName).To(Equal("BANANAS"))
		Expect(items[0].Department).To(Equal("PRODUCE"))
		Expect(items[0].PriceCandidates).To(Equal([]int64{242}))
	})

	It("never turns a category header into an item", func() {
		items, _ := resolve(
			"PRODUCE",
			"9652107 BANANAS",
			"2.42 E",
		)
		Expect(items).To(HaveLen(1))
		Expect(items[0].RawName).To(Equal("BANANAS"))
	})

	It("accumulates multiple price candidates in source order", func() {
		items, _ := resolve(
			"1111111 SALMON FILLET",
			"4.79",
			"3.99 S",
		)
		Expect(items).To(HaveLen(1))
		Expect(items[0].PriceCandidates).To(Equal([]int64{479, 399}))
	})

	It("drops an item that closes with no price and records a note", func() {
		items, notes := resolve(
			"9652107 BANANAS",
			"1599844 ORG STRAWBERRIES",
			"6.99 E",
		)
		Expect(items).To(HaveLen(1))
		Expect(items[0].RawName).To(Equal("ORG STRAWBERRIES"))
		Expect(notes).To(HaveLen(1))
		Expect(notes[0]).To(ContainSubstring(`dropped item "BANANAS"`))
		Expect(notes[0]).To(ContainSubstring("no price candidates"))
	})

	It("closes the open item at a subtotal line and ignores what follows", func() {
		items, _ := resolve(
			"9652107 BANANAS",
			"2.42 E",
			"SUBTOTAL 2.42",
			"1599844 ORG STRAWBERRIES",
			"6.99 E",
		)
		Expect(items).To(HaveLen(1))
		Expect(items[0].RawName).To(Equal("BANANAS"))
	})

	It("preserves input order across many items", func() {
		items, notes := resolve(
			"1000001 APPLES",
			"1.00",
			"1000002 ORANGES",
			"2.00",
			"1000003 GRAPES",
			"3.00",
		)
		Expect(notes).To(BeEmpty())
		Expect(items).To(HaveLen(3))
		Expect(items[0].RawName).To(Equal("APPLES"))
		Expect(items[1].RawName).To(Equal("ORANGES"))
		Expect(items[2].RawName).To(Equal("GRAPES"))
	})

	It("extracts an item identically regardless of the preceding item", func() {
		extract := func(predecessor ...string) CandidateItem {
			lines := append(append([]string{}, predecessor...),
				"1599844 ORG STRAWBERRIES",
				"6.99 E",
			)
			items, _ := resolve(lines...)
			Expect(items).NotTo(BeEmpty())
			got := items[len(items)-1]
			// line offsets differ by construction, the content must not
			got.StartLine = 0
			got.EndLine = 0
			return got
		}

		afterBananas := extract("9652107 BANANAS", "2.42 E")
		afterAlmonds := extract("1234567 KS ALMONDS", "14.99 E")
		afterNothing := extract()

		Expect(afterBananas).To(Equal(afterNothing))
		Expect(afterAlmonds).To(Equal(afterNothing))
	})
})
