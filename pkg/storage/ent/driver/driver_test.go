package entdriver_test

import (
	"context"
	"database/sql"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ideas/pkg/storage"
	entdriver "github.com/papercomputeco/ideas/pkg/storage/ent/driver"
	"github.com/papercomputeco/ideas/pkg/storage/storagetest"
)

// openSQLite wraps a single-connection SQLite database with ent's driver.
func openSQLite(dsn string) *entsql.Driver {
	db, err := sql.Open("sqlite3", dsn)
	Expect(err).NotTo(HaveOccurred())
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	Expect(err).NotTo(HaveOccurred())
	return entsql.OpenDB(dialect.SQLite, db)
}

var _ = Describe("EntDriver", func() {
	storagetest.DriverBehaviour(func() storage.Driver {
		d, err := entdriver.New(context.Background(), openSQLite(":memory:"))
		Expect(err).NotTo(HaveOccurred())
		return d
	})

	It("migrates an existing database without losing ideas", func() {
		ctx := context.Background()
		dsn := filepath.Join(GinkgoT().TempDir(), "ideas.db")

		d, err := entdriver.New(ctx, openSQLite(dsn))
		Expect(err).NotTo(HaveOccurred())
		_, err = d.Put(ctx, storagetest.NewIdea("first", 0))
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Close()).To(Succeed())

		d, err = entdriver.New(ctx, openSQLite(dsn))
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		n, err := d.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})

	It("creates the completion index", func() {
		ctx := context.Background()
		d, err := entdriver.New(ctx, openSQLite(":memory:"))
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		var name string
		err = d.DB().QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name = ?",
			entdriver.IdeasTable.Name, "idea_completed_at",
		).Scan(&name)
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("idea_completed_at"))
	})

	It("keeps the first idea when an ID is stored twice", func() {
		ctx := context.Background()
		d, err := entdriver.New(ctx, openSQLite(":memory:"))
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		first := storagetest.NewIdea("dup", 0)
		second := storagetest.NewIdea("dup", 0)
		second.Text = "replacement"

		inserted, err := d.Put(ctx, first)
		Expect(err).NotTo(HaveOccurred())
		Expect(inserted).To(BeTrue())
		inserted, err = d.Put(ctx, second)
		Expect(err).NotTo(HaveOccurred())
		Expect(inserted).To(BeFalse())

		got, err := d.Get(ctx, "dup")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Text).To(Equal(first.Text))
	})
})
