package sse

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

var _ = Describe("Writer", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("frames an unlabeled message event", func() {
		w := NewWriter(buf)
		Expect(w.WriteEvent(Event{Data: `{"chunk":"Hel"}`})).To(Succeed())
		Expect(buf.String()).To(Equal("data: {\"chunk\":\"Hel\"}\n\n"))
	})

	It("frames a labeled event", func() {
		w := NewWriter(buf)
		Expect(w.WriteEvent(Event{Type: "end", Data: "[DONE]"})).To(Succeed())
		Expect(buf.String()).To(Equal("event: end\ndata: [DONE]\n\n"))
	})

	It("writes id and retry fields before data", func() {
		w := NewWriter(buf)
		Expect(w.WriteEvent(Event{ID: "7", Retry: 1500 * time.Millisecond, Data: "x"})).To(Succeed())
		Expect(buf.String()).To(Equal("id: 7\nretry: 1500\ndata: x\n\n"))
	})

	It("splits multi-line data so a reader joins it back", func() {
		w := NewWriter(buf)
		Expect(w.WriteEvent(Event{Data: "one\ntwo\n\nfour"})).To(Succeed())
		Expect(buf.String()).To(Equal("data: one\ndata: two\ndata: \ndata: four\n\n"))

		ev, err := NewReader(strings.NewReader(buf.String())).Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Data).To(Equal("one\ntwo\n\nfour"))
	})

	It("writes comments as keep-alives", func() {
		w := NewWriter(buf)
		Expect(w.WriteComment("ping")).To(Succeed())
		Expect(buf.String()).To(Equal(": ping\n\n"))
	})

	It("flushes buffered destinations after every event", func() {
		bw := bufio.NewWriterSize(buf, 4096)
		w := NewWriter(bw)

		Expect(w.WriteEvent(Event{Data: "first"})).To(Succeed())
		Expect(buf.String()).To(Equal("data: first\n\n"))
	})

	It("returns destination write errors", func() {
		w := NewWriter(failingWriter{})
		err := w.WriteEvent(Event{Data: "x"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("broken pipe"))
	})

	It("rejects writes after Close", func() {
		w := NewWriter(buf)
		w.Close()
		Expect(w.WriteEvent(Event{Data: "x"})).To(MatchError(ErrWriterClosed))
		Expect(buf.Len()).To(BeZero())
	})
})
