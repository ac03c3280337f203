package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ideas/pkg/logger"
)

func decodeLine(buf *bytes.Buffer) map[string]any {
	var record map[string]any
	ExpectWithOffset(1, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &record)).To(Succeed())
	return record
}

// failingHandler rejects every record.
type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

var _ = Describe("ParseFormat", func() {
	DescribeTable("accepts known formats",
		func(in string, want logger.Format) {
			f, err := logger.ParseFormat(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(f).To(Equal(want))
		},
		Entry("empty", "", logger.FormatText),
		Entry("text", "text", logger.FormatText),
		Entry("json", "JSON", logger.FormatJSON),
		Entry("pretty", " pretty ", logger.FormatPretty),
	)

	It("rejects anything else", func() {
		_, err := logger.ParseFormat("xml")
		Expect(err).To(MatchError(ContainSubstring(`unknown log format "xml"`)))
	})
})

var _ = Describe("New", func() {
	var buf bytes.Buffer

	BeforeEach(func() {
		buf.Reset()
	})

	It("writes text records at info level by default", func() {
		l := logger.New(logger.WithWriter(&buf))
		l.Debug("connecting")
		l.Info("session completed", "fragments", 3)

		Expect(buf.String()).NotTo(ContainSubstring("connecting"))
		Expect(buf.String()).To(ContainSubstring("session completed"))
		Expect(buf.String()).To(ContainSubstring("fragments=3"))
	})

	It("includes debug records when debug is on", func() {
		l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true))
		l.Debug("connecting", "attempt", 1)

		Expect(buf.String()).To(ContainSubstring("connecting"))
	})

	It("writes JSON records", func() {
		l := logger.New(logger.WithWriter(&buf), logger.WithFormat(logger.FormatJSON))
		l.Info("idea persisted", "id", "abc")

		record := decodeLine(&buf)
		Expect(record["msg"]).To(Equal("idea persisted"))
		Expect(record["id"]).To(Equal("abc"))
	})

	It("writes pretty records", func() {
		l := logger.New(logger.WithWriter(&buf), logger.WithFormat(logger.FormatPretty))
		l.Warn("skipping malformed event")

		Expect(buf.String()).To(ContainSubstring("skipping malformed event"))
	})

	It("binds the component attribute", func() {
		l := logger.New(
			logger.WithWriter(&buf),
			logger.WithFormat(logger.FormatJSON),
			logger.WithComponent("server"),
		)
		l.Info("listening")

		Expect(decodeLine(&buf)["component"]).To(Equal("server"))
	})

	It("adds the caller with source enabled", func() {
		l := logger.New(
			logger.WithWriter(&buf),
			logger.WithFormat(logger.FormatJSON),
			logger.WithSource(true),
		)
		l.Info("listening")

		Expect(decodeLine(&buf)).To(HaveKey(slog.SourceKey))
	})
})

var _ = Describe("Nop", func() {
	It("is disabled at every level", func() {
		h := logger.Nop().Handler()
		Expect(h.Enabled(context.Background(), slog.LevelError)).To(BeFalse())
	})
})

var _ = Describe("Multi", func() {
	var console, file bytes.Buffer

	BeforeEach(func() {
		console.Reset()
		file.Reset()
	})

	It("writes each record to every logger", func() {
		l := logger.Multi(
			logger.New(logger.WithWriter(&console)),
			logger.New(logger.WithWriter(&file), logger.WithFormat(logger.FormatJSON)),
		)
		l.Info("session completed", "outcome", "completed")

		Expect(console.String()).To(ContainSubstring("outcome=completed"))
		Expect(decodeLine(&file)["outcome"]).To(Equal("completed"))
	})

	It("respects each logger's level", func() {
		l := logger.Multi(
			logger.New(logger.WithWriter(&console)),
			logger.New(logger.WithWriter(&file), logger.WithDebug(true)),
		)
		l.Debug("retrying")

		Expect(console.String()).To(BeEmpty())
		Expect(file.String()).To(ContainSubstring("retrying"))
	})

	It("carries attributes and groups to every logger", func() {
		l := logger.Multi(
			logger.New(logger.WithWriter(&file), logger.WithFormat(logger.FormatJSON)),
		)
		l.With("session", "s1").WithGroup("upstream").Info("failed", "status", 502)

		record := decodeLine(&file)
		Expect(record["session"]).To(Equal("s1"))
		Expect(record["upstream"]).To(HaveKeyWithValue("status", BeNumerically("==", 502)))
	})

	It("keeps writing when one sink fails", func() {
		h := logger.Multi(
			slog.New(failingHandler{}),
			logger.New(logger.WithWriter(&file)),
		).Handler()

		err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "listening", 0))
		Expect(err).To(MatchError("disk full"))
		Expect(file.String()).To(ContainSubstring("listening"))
	})
})
