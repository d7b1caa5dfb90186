package parsing

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

// row flattens a record for comparison; absent values become nil
type row struct {
	name     any
	quantity any
	price    any
}

func rows(records []Record) []row {
	out := make([]row, 0, len(records))
	for _, r := range records {
		var got row
		if r.ItemName != nil {
			got.name = *r.ItemName
		}
		if r.Quantity != nil {
			got.quantity = *r.Quantity
		}
		if r.Price != nil {
			got.price = r.Price.StringFixed(2)
		}
		out = append(out, got)
	}
	return out
}

var _ = Describe("ExtractItem", func() {
	DescribeTable("decomposing item lines",
		func(raw string, kind ExtractionKind, quantity int, name string) {
			Expect(ExtractItem(raw)).To(Equal(Extraction{Kind: kind, Quantity: quantity, Name: name}))
		},
		Entry("leading quantity", "2 Coffee", Matched, 2, "Coffee"),
		Entry("no quantity", "Coffee", Matched, 1, "Coffee"),
		Entry("multi-word name", "3 Everything Bagel", Matched, 3, "Everything Bagel"),
		Entry("tab after quantity", "4\tMuffin", Matched, 4, "Muffin"),
		Entry("no-break space after quantity", "2\u00a0Coffee", Matched, 2, "Coffee"),
		Entry("no-break space before annotation", "Tea\u00a0($1.10)", Matched, 1, "Tea"),
		Entry("dollar annotation", "2 Coffee ($4.50)", Matched, 2, "Coffee"),
		Entry("plain annotation", "Bagel (2.25)", Matched, 1, "Bagel"),
		Entry("annotation without space", "Tea(1.10)", Matched, 1, "Tea"),
		Entry("annotation mid-line is kept", "Latte (3.00) large", Matched, 1, "Latte (3.00) large"),
		Entry("digits glued to a word", "7UP", Matched, 1, "7UP"),
		Entry("lone number", "12", Matched, 1, "12"),
		Entry("only an annotation", "($4.50)", Matched, 1, ""),
		Entry("quantity overflowing int", "99999999999999999999999 Widget", Fallback, 1, "99999999999999999999999 Widget"),
	)

	It("should describe extraction kinds", func() {
		Expect(Matched.String()).To(Equal("matched"))
		Expect(Fallback.String()).To(Equal("fallback"))
	})
})

var _ = Describe("Assemble", func() {
	var (
		lines   Lines
		records []Record
	)

	price := func(s string) PriceLine {
		return PriceLine{Value: decimal.RequireFromString(s)}
	}

	JustBeforeEach(func() {
		records = Assemble(lines)
	})

	When("both lists have the same length", func() {
		BeforeEach(func() {
			lines = Lines{
				Items:  []ItemLine{{Raw: "2 Coffee"}, {Raw: "3 Bagel"}},
				Prices: []PriceLine{price("4.50"), price("2.25")},
			}
		})

		It("should pair lines by index", func() {
			Expect(rows(records)).To(Equal([]row{
				{name: "Coffee", quantity: 2, price: "4.50"},
				{name: "Bagel", quantity: 3, price: "2.25"},
			}))
		})

		It("should mark every record complete", func() {
			for _, r := range records {
				Expect(r.Complete()).To(BeTrue())
			}
		})
	})

	When("there are more prices than items", func() {
		BeforeEach(func() {
			lines = Lines{
				Items:  []ItemLine{{Raw: "Coffee"}},
				Prices: []PriceLine{price("4.50"), price("2.25"), price("1.00")},
			}
		})

		It("should emit price-only records for the excess", func() {
			Expect(rows(records)).To(Equal([]row{
				{name: "Coffee", quantity: 1, price: "4.50"},
				{price: "2.25"},
				{price: "1.00"},
			}))
		})

		It("should leave name and quantity nil on price-only records", func() {
			Expect(records[1].ItemName).To(BeNil())
			Expect(records[1].Quantity).To(BeNil())
			Expect(records[1].Complete()).To(BeFalse())
		})
	})

	When("there are more items than prices", func() {
		BeforeEach(func() {
			lines = Lines{
				Items:  []ItemLine{{Raw: "2 Coffee"}, {Raw: "3 Bagel"}},
				Prices: []PriceLine{price("4.50")},
			}
		})

		It("should emit records with a nil price for the excess", func() {
			Expect(rows(records)).To(Equal([]row{
				{name: "Coffee", quantity: 2, price: "4.50"},
				{name: "Bagel", quantity: 3},
			}))
			Expect(records[1].Price).To(BeNil())
		})
	})

	When("there are no prices at all", func() {
		BeforeEach(func() {
			lines = Lines{Items: []ItemLine{{Raw: "Coffee"}, {Raw: "Bagel"}}}
		})

		It("should still emit one record per item", func() {
			Expect(records).To(HaveLen(2))
		})
	})

	When("both lists are empty", func() {
		BeforeEach(func() {
			lines = Lines{}
		})

		It("should return an empty, non-nil slice", func() {
			Expect(records).NotTo(BeNil())
			Expect(records).To(BeEmpty())
		})
	})

	When("records are built", func() {
		BeforeEach(func() {
			lines = Lines{
				Items:  []ItemLine{{Raw: "Coffee"}, {Raw: "Bagel"}},
				Prices: []PriceLine{price("4.50"), price("2.25")},
			}
		})

		It("should not share pointers between records", func() {
			Expect(records[0].ItemName).NotTo(BeIdenticalTo(records[1].ItemName))
			Expect(records[0].Price).NotTo(BeIdenticalTo(records[1].Price))
		})
	})
})

var _ = Describe("Parse", func() {
	DescribeTable("receipt texts",
		func(text string, expected []row) {
			Expect(rows(Parse(text))).To(Equal(expected))
		},
		Entry("two items and two prices", "2 Coffee\n3 Bagel\n4.50\n2.25", []row{
			{name: "Coffee", quantity: 2, price: "4.50"},
			{name: "Bagel", quantity: 3, price: "2.25"},
		}),
		Entry("one item and two prices", "Coffee\n4.50\n2.25", []row{
			{name: "Coffee", quantity: 1, price: "4.50"},
			{price: "2.25"},
		}),
		Entry("two items and one price", "2 Coffee\n3 Bagel\n4.50", []row{
			{name: "Coffee", quantity: 2, price: "4.50"},
			{name: "Bagel", quantity: 3},
		}),
		Entry("price embedded mid-line", "Coffee $4.50 extra", []row{
			{name: "Coffee $4.50 extra", quantity: 1},
		}),
		Entry("three decimal digits", "5.000", []row{
			{name: "5.000", quantity: 1},
		}),
		Entry("interleaved lines pair by rank", "Coffee\n4.50\nBagel\n2.25", []row{
			{name: "Coffee", quantity: 1, price: "4.50"},
			{name: "Bagel", quantity: 1, price: "2.25"},
		}),
		Entry("annotations are discarded in favour of price lines", "2 Coffee ($9.99)\n4.50", []row{
			{name: "Coffee", quantity: 2, price: "4.50"},
		}),
		Entry("empty text", "", []row{}),
		Entry("whitespace only", " \n\t\n  ", []row{}),
	)

	It("should return a value that encodes as an empty JSON array for empty text", func() {
		Expect(Parse("")).To(Equal([]Record{}))
	})

	It("should be idempotent", func() {
		text := "Receipt\n2 Coffee ($4.50)\n3 Bagel\n4.50\n2.25\n1.00\n\nThanks"
		Expect(Parse(text)).To(Equal(Parse(text)))
	})

	DescribeTable("record count equals the longer classified list",
		func(text string) {
			prices, items := 0, 0
			for _, line := range strings.Split(text, "\n") {
				line = strings.TrimSpace(line)
				switch {
				case line == "":
				case priceLinePattern.MatchString(line):
					prices++
				default:
					items++
				}
			}
			Expect(Parse(text)).To(HaveLen(max(prices, items)))
		},
		Entry("balanced", "a\nb\n1.00\n2.00"),
		Entry("price heavy", "a\n1.00\n2.00\n3.00\n4.00"),
		Entry("item heavy", "a\nb\nc\nd\n1.00"),
		Entry("blank noise", "\n\na\n\n1.00\n\n\n"),
		Entry("mixed junk", "TOTAL\n$5.00\n5.000\n5.00\n(5.00)\n 5.00 "),
	)
})
