package bill

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

// describeDB runs the behavior every DB implementation must share
func describeDB(open func(dir string) (DB, error)) {
	var (
		db  DB
		now time.Time
	)

	BeforeEach(func() {
		var err error
		db, err = open(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		now = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newBill := func(id string, createdAt time.Time) *Bill {
		return &Bill{
			ID:        id,
			Title:     "Dinner " + id,
			UserID:    "alice",
			Total:     decimal.Zero,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
	}

	Describe("SaveBill and GetBill", func() {
		It("round-trips every field", func() {
			bill := newBill("b1", now)
			calculated := now.Add(time.Minute)
			bill.Total = decimal.RequireFromString("42.10")
			bill.ReceiptFilename = "x_receipt.jpg"
			bill.ReceiptContentType = "image/jpeg"
			bill.TotalCalculatedAt = &calculated
			Expect(db.SaveBill(bill)).To(Succeed())

			saved, err := db.GetBill("b1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Title).To(Equal("Dinner b1"))
			Expect(saved.UserID).To(Equal("alice"))
			Expect(saved.Total.Equal(bill.Total)).To(BeTrue())
			Expect(saved.ReceiptFilename).To(Equal("x_receipt.jpg"))
			Expect(saved.ReceiptContentType).To(Equal("image/jpeg"))
			Expect(saved.TotalCalculatedAt).NotTo(BeNil())
			Expect(*saved.TotalCalculatedAt).To(BeTemporally("==", calculated))
			Expect(saved.CreatedAt).To(BeTemporally("==", now))
		})

		It("keeps an unset calculation time nil", func() {
			Expect(db.SaveBill(newBill("b1", now))).To(Succeed())
			saved, err := db.GetBill("b1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.TotalCalculatedAt).To(BeNil())
		})

		It("replaces an existing bill", func() {
			bill := newBill("b1", now)
			Expect(db.SaveBill(bill)).To(Succeed())
			bill.Title = "Lunch"
			Expect(db.SaveBill(bill)).To(Succeed())

			saved, err := db.GetBill("b1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Title).To(Equal("Lunch"))
		})

		When("the bill does not exist", func() {
			It("returns ErrNotFound", func() {
				_, err := db.GetBill("nonexistent")
				Expect(err).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("ListBills", func() {
		When("bills exist", func() {
			BeforeEach(func() {
				Expect(db.SaveBill(newBill("b1", now))).To(Succeed())
				Expect(db.SaveBill(newBill("b2", now.Add(time.Hour)))).To(Succeed())
			})

			It("returns all bills", func() {
				bills, err := db.ListBills()
				Expect(err).NotTo(HaveOccurred())
				Expect(bills).To(HaveLen(2))
			})
		})

		When("no bills exist", func() {
			It("returns an empty list", func() {
				bills, err := db.ListBills()
				Expect(err).NotTo(HaveOccurred())
				Expect(bills).NotTo(BeNil())
				Expect(bills).To(BeEmpty())
			})
		})
	})

	Describe("SaveItem and ListItems", func() {
		BeforeEach(func() {
			Expect(db.SaveBill(newBill("b1", now))).To(Succeed())
			Expect(db.SaveBill(newBill("b2", now))).To(Succeed())
		})

		It("returns a bill's items in position order", func() {
			for _, item := range []*Item{
				{ID: "i10", BillID: "b1", Position: 10, Name: "Pie", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00"), CreatedAt: now},
				{ID: "i0", BillID: "b1", Position: 0, Name: "Coffee", Quantity: 2, UnitPrice: decimal.RequireFromString("4.50"), CreatedAt: now},
				{ID: "i2", BillID: "b1", Position: 2, Name: "Bagel", Quantity: 3, UnitPrice: decimal.RequireFromString("1.25"), CreatedAt: now},
				{ID: "x0", BillID: "b2", Position: 0, Name: "Other", Quantity: 1, UnitPrice: decimal.Zero, CreatedAt: now},
			} {
				Expect(db.SaveItem(item)).To(Succeed())
			}

			items, err := db.ListItems("b1")
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(3))
			Expect(items[0].Name).To(Equal("Coffee"))
			Expect(items[0].Quantity).To(Equal(2))
			Expect(items[0].UnitPrice.StringFixed(2)).To(Equal("4.50"))
			Expect(items[1].Name).To(Equal("Bagel"))
			Expect(items[2].Name).To(Equal("Pie"))
			Expect(items[2].BillID).To(Equal("b1"))
		})

		It("replaces an item saved again", func() {
			item := &Item{ID: "i0", BillID: "b1", Position: 0, Name: "Coffee", Quantity: 1, CreatedAt: now}
			Expect(db.SaveItem(item)).To(Succeed())
			item.Quantity = 4
			Expect(db.SaveItem(item)).To(Succeed())

			items, err := db.ListItems("b1")
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Quantity).To(Equal(4))
		})

		When("the bill has no items", func() {
			It("returns an empty list", func() {
				items, err := db.ListItems("b2")
				Expect(err).NotTo(HaveOccurred())
				Expect(items).NotTo(BeNil())
				Expect(items).To(BeEmpty())
			})
		})
	})
}

var _ = Describe("BoltDB", func() {
	describeDB(func(dir string) (DB, error) {
		return NewBoltDB(filepath.Join(dir, "test.db"))
	})

	It("fails when the file is not a database", func() {
		_, err := NewBoltDB(GinkgoT().TempDir())
		Expect(err).To(HaveOccurred())
	})
})
