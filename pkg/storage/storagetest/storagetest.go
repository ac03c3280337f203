// Package storagetest holds the behaviour every storage.Driver must share,
// as ginkgo specs that driver test suites include.
package storagetest

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ideas/pkg/storage"
)

// NewIdea returns a valid idea completed at the given offset from a fixed
// base time.
func NewIdea(id string, offset time.Duration) *storage.Idea {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &storage.Idea{
		ID:          id,
		Agent:       "Assistant",
		Model:       "gpt-5-mini",
		Prompt:      "Reply with a new concise business idea",
		Text:        "# Idea " + id + "\n- \"quoted\" bullet\n",
		Fragments:   7,
		Subject:     "user-1",
		StartedAt:   base.Add(offset - time.Second),
		CompletedAt: base.Add(offset),
	}
}

// DriverBehaviour registers the shared driver specs. newDriver is called
// before each spec.
func DriverBehaviour(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
		DeferCleanup(driver.Close)
	})

	Describe("Put", func() {
		It("stores a new idea", func() {
			inserted, err := driver.Put(ctx, NewIdea("a", 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeTrue())

			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
		})

		It("is idempotent on the ID", func() {
			_, err := driver.Put(ctx, NewIdea("a", 0))
			Expect(err).NotTo(HaveOccurred())

			changed := NewIdea("a", time.Hour)
			changed.Text = "other"
			inserted, err := driver.Put(ctx, changed)
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeFalse())

			got, err := driver.Get(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Text).To(Equal(NewIdea("a", 0).Text))
		})

		It("rejects ideas without an ID", func() {
			_, err := driver.Put(ctx, &storage.Idea{})
			Expect(err).To(HaveOccurred())
		})

		It("rejects nil ideas", func() {
			_, err := driver.Put(ctx, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Get", func() {
		It("round trips every field", func() {
			want := NewIdea("a", 0)
			_, err := driver.Put(ctx, want)
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(want.ID))
			Expect(got.Agent).To(Equal(want.Agent))
			Expect(got.Model).To(Equal(want.Model))
			Expect(got.Prompt).To(Equal(want.Prompt))
			Expect(got.Text).To(Equal(want.Text))
			Expect(got.Fragments).To(Equal(want.Fragments))
			Expect(got.Subject).To(Equal(want.Subject))
			Expect(got.StartedAt).To(BeTemporally("==", want.StartedAt))
			Expect(got.CompletedAt).To(BeTemporally("==", want.CompletedAt))
		})

		It("returns NotFoundError for unknown IDs", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(MatchError(storage.NotFoundError{ID: "missing"}))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for i := range 5 {
				_, err := driver.Put(ctx, NewIdea(fmt.Sprintf("idea-%d", i), time.Duration(i)*time.Minute))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("returns the most recent ideas first", func() {
			ideas, err := driver.List(ctx, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(ideas).To(HaveLen(3))
			Expect(ideas[0].ID).To(Equal("idea-4"))
			Expect(ideas[1].ID).To(Equal("idea-3"))
			Expect(ideas[2].ID).To(Equal("idea-2"))
		})

		It("uses the default limit for non-positive limits", func() {
			ideas, err := driver.List(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(ideas).To(HaveLen(5))
		})
	})
}
