package llm

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("StructuredExtractor", func() {
	var (
		backend *fakeBackend
		req     ExtractRequest
	)

	goodExtraction := ItemExtraction{
		Merchant: "COSTCO",
		Items: []LineItem{
			{ItemName: "BANANAS", Price: "2.42"},
			{ItemName: "STRAWBERRIES", Price: "6.99"},
		},
		Total: "9.41",
	}

	BeforeEach(func() {
		req = ExtractRequest{OCRText: "receipt text", DetectedTotal: "9.41"}
	})

	When("the first attempt is valid and consistent", func() {
		BeforeEach(func() {
			backend = &fakeBackend{responses: []fakeResponse{{out: goodExtraction}}}
		})

		It("returns it without retrying", func() {
			ex := NewStructuredExtractor(backend, 2, 5, nil)
			out, _, err := ex.ExtractItems(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(goodExtraction))
			Expect(backend.requests).To(HaveLen(1))
		})
	})

	When("the first attempt fails schema validation", func() {
		BeforeEach(func() {
			backend = &fakeBackend{responses: []fakeResponse{
				{err: errors.New("json does not match schema")},
				{out: goodExtraction},
			}}
		})

		It("retries with a corrective note and succeeds", func() {
			ex := NewStructuredExtractor(backend, 2, 5, nil)
			out, _, err := ex.ExtractItems(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(goodExtraction))
			Expect(backend.requests).To(HaveLen(2))
			Expect(backend.requests[0].CorrectiveNote).To(BeEmpty())
			Expect(backend.requests[1].CorrectiveNote).To(ContainSubstring("previous response was rejected"))
		})
	})

	When("item prices disagree with the detected total", func() {
		BeforeEach(func() {
			inconsistent := goodExtraction
			inconsistent.Items = []LineItem{{ItemName: "BANANAS", Price: "2.42"}}
			backend = &fakeBackend{responses: []fakeResponse{
				{out: inconsistent},
				{out: goodExtraction},
			}}
		})

		It("retries with a corrective note naming both amounts", func() {
			ex := NewStructuredExtractor(backend, 2, 5, nil)
			out, _, err := ex.ExtractItems(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(goodExtraction))
			Expect(backend.requests[1].CorrectiveNote).To(ContainSubstring("2.42"))
			Expect(backend.requests[1].CorrectiveNote).To(ContainSubstring("9.41"))
		})
	})

	When("every attempt fails", func() {
		BeforeEach(func() {
			partial := ItemExtraction{Items: []LineItem{{ItemName: "BANANAS", Price: "2.42"}}}
			backend = &fakeBackend{responses: []fakeResponse{
				{out: partial},
				{out: partial},
			}}
		})

		It("returns the best partial with a budget-exhausted error", func() {
			ex := NewStructuredExtractor(backend, 2, 5, nil)
			out, _, err := ex.ExtractItems(context.Background(), req)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("retry budget (2) exhausted"))
			Expect(out.Items).To(HaveLen(1))
			Expect(backend.requests).To(HaveLen(2))
		})
	})

	When("the context is cancelled", func() {
		BeforeEach(func() {
			backend = &fakeBackend{responses: []fakeResponse{{out: goodExtraction}}}
		})

		It("stops immediately", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			ex := NewStructuredExtractor(backend, 2, 5, nil)
			_, _, err := ex.ExtractItems(ctx, req)
			Expect(err).To(MatchError(context.Canceled))
			Expect(backend.requests).To(BeEmpty())
		})
	})

	It("skips the financial check when no total was detected", func() {
		partial := ItemExtraction{Items: []LineItem{{ItemName: "BANANAS", Price: "2.42"}}}
		backend = &fakeBackend{responses: []fakeResponse{{out: partial}}}
		ex := NewStructuredExtractor(backend, 2, 5, nil)
		out, _, err := ex.ExtractItems(context.Background(), ExtractRequest{OCRText: "x"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(partial))
	})
})
