package llm

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("StripFences", func() {
	It("removes json code fences", func() {
		Expect(StripFences("```json\n{\"items\":[]}\n```")).To(Equal(`{"items":[]}`))
	})

	It("removes bare fences", func() {
		Expect(StripFences("```\n{}\n```")).To(Equal("{}"))
	})

	It("leaves unfenced text alone", func() {
		Expect(StripFences(`{"items":[]}`)).To(Equal(`{"items":[]}`))
	})
})

var _ = Describe("SanitizeExtraction", func() {
	sanitize := func(raw string) (ItemExtraction, []string) {
		out, dropped, err := SanitizeExtraction([]byte(raw))
		Expect(err).NotTo(HaveOccurred())
		var ex ItemExtraction
		Expect(json.Unmarshal(out, &ex)).To(Succeed())
		return ex, dropped
	}

	It("accepts an already-clean response unchanged", func() {
		ex, dropped := sanitize(`{"merchant":"COSTCO","items":[{"item_name":"BANANAS","price":"2.42"}],"total":"2.42"}`)
		Expect(dropped).To(BeEmpty())
		Expect(ex.Merchant).To(Equal("COSTCO"))
		Expect(ex.Items).To(HaveLen(1))
		Expect(ex.Items[0].Price).To(Equal("2.42"))
	})

	It("renames the common synonym keys", func() {
		ex, dropped := sanitize(`{"merchant_name":"COSTCO","line_items":[{"name":"BANANAS","amount":"2.42"}]}`)
		Expect(ex.Merchant).To(Equal("COSTCO"))
		Expect(ex.Items).To(HaveLen(1))
		Expect(ex.Items[0].ItemName).To(Equal("BANANAS"))
		Expect(dropped).To(ContainElement("merchant_name->merchant"))
		Expect(dropped).To(ContainElement("line_items->items"))
	})

	It("coerces numeric prices to decimal strings", func() {
		ex, _ := sanitize(`{"items":[{"item_name":"BANANAS","price":2.4}]}`)
		Expect(ex.Items[0].Price).To(Equal("2.40"))
	})

	It("strips currency signs from prices", func() {
		ex, _ := sanitize(`{"items":[{"item_name":"BANANAS","price":"$2.42"}]}`)
		Expect(ex.Items[0].Price).To(Equal("2.42"))
	})

	It("drops items without a name or price", func() {
		ex, dropped := sanitize(`{"items":[{"item_name":"","price":"1.00"},{"item_name":"OK","price":"1.00"},{"item_name":"NOPRICE"}]}`)
		Expect(ex.Items).To(HaveLen(1))
		Expect(ex.Items[0].ItemName).To(Equal("OK"))
		Expect(dropped).To(ContainElement("items[0](no name)"))
		Expect(dropped).To(ContainElement("items[2](no price)"))
	})

	It("removes unknown top-level keys", func() {
		out, dropped, err := SanitizeExtraction([]byte(`{"items":[],"explanation":"I found no items"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(dropped).To(ContainElement("explanation(unknown)"))

		var m map[string]any
		Expect(json.Unmarshal(out, &m)).To(Succeed())
		Expect(m).NotTo(HaveKey("explanation"))
	})

	It("fails on non-JSON input", func() {
		_, _, err := SanitizeExtraction([]byte("sorry, I cannot help with that"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("BuildLineItemsJSONSchema", func() {
	schema := BuildLineItemsJSONSchema()

	It("accepts a conforming document", func() {
		doc := []byte(`{"merchant":"COSTCO","items":[{"item_name":"BANANAS","price":"2.42"}],"total":"2.42"}`)
		Expect(ValidateJSONAgainstSchema(schema, doc)).To(Succeed())
	})

	It("accepts negative markdown prices", func() {
		doc := []byte(`{"items":[{"item_name":"TPD","price":"-0.75"}]}`)
		Expect(ValidateJSONAgainstSchema(schema, doc)).To(Succeed())
	})

	It("rejects a missing items array", func() {
		Expect(ValidateJSONAgainstSchema(schema, []byte(`{"merchant":"COSTCO"}`))).NotTo(Succeed())
	})

	It("rejects a non-decimal price", func() {
		doc := []byte(`{"items":[{"item_name":"BANANAS","price":"two dollars"}]}`)
		Expect(ValidateJSONAgainstSchema(schema, doc)).NotTo(Succeed())
	})

	It("rejects unknown item keys", func() {
		doc := []byte(`{"items":[{"item_name":"BANANAS","price":"2.42","sku":"9652107"}]}`)
		Expect(ValidateJSONAgainstSchema(schema, doc)).NotTo(Succeed())
	})
})
