package heuristic

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SelectPrice", func() {
	It("returns a single candidate outright", func() {
		price, superseded := SelectPrice(CandidateItem{PriceCandidates: []int64{242}})
		Expect(price).To(Equal(int64(242)))
		Expect(superseded).To(BeEmpty())
	})

	It("lets the last of two positive candidates win", func() {
		price, superseded := SelectPrice(CandidateItem{PriceCandidates: []int64{479, 399}})
		Expect(price).To(Equal(int64(399)))
		Expect(superseded).To(Equal([]int64{479}))
	})

	It("applies a trailing negative candidate as a reduction", func() {
		price, superseded := SelectPrice(CandidateItem{PriceCandidates: []int64{500, -75}})
		Expect(price).To(Equal(int64(425)))
		Expect(superseded).To(Equal([]int64{500}))
	})

	It("clamps a reduction larger than the price at zero", func() {
		price, _ := SelectPrice(CandidateItem{PriceCandidates: []int64{100, -250}})
		Expect(price).To(Equal(int64(0)))
	})

	It("returns zero with no candidates", func() {
		price, superseded := SelectPrice(CandidateItem{})
		Expect(price).To(Equal(int64(0)))
		Expect(superseded).To(BeEmpty())
	})
})
