package bill

import (
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SQLDB", func() {
	describeDB(func(dir string) (DB, error) {
		return NewSQLDB("sqlite3", filepath.Join(dir, "test.sqlite"))
	})

	It("creates the schema idempotently", func() {
		path := filepath.Join(GinkgoT().TempDir(), "twice.sqlite")
		first, err := NewSQLDB("sqlite3", path)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Close()).To(Succeed())

		second, err := NewSQLDB("sqlite3", path)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Close()).To(Succeed())
	})

	It("fails for an unregistered driver", func() {
		_, err := NewSQLDB("nosuchdriver", "")
		Expect(err).To(MatchError(ContainSubstring("nosuchdriver")))
	})
})
