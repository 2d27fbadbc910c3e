package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ssetap/pkg/cliui"
	"github.com/papercomputeco/ssetap/pkg/sse"
)

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below a second", func() {
		Expect(cliui.FormatDuration(250 * time.Millisecond)).To(Equal("250ms"))
	})

	It("uses seconds with one decimal above a second", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("PlainStep", func() {
	It("prints one line with the result mark", func() {
		var buf bytes.Buffer
		err := cliui.PlainStep(&buf, "Connecting", func() error { return nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("Connecting"))
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
	})

	It("returns the step error", func() {
		var buf bytes.Buffer
		boom := errors.New("refused")
		Expect(cliui.PlainStep(&buf, "Connecting", func() error { return boom })).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})
})

var _ = Describe("Step", func() {
	It("ends with the final mark and message", func() {
		var buf bytes.Buffer
		Expect(cliui.Step(&buf, "Opening stream", func() error { return nil })).To(Succeed())
		Expect(buf.String()).To(HaveSuffix("\n"))
		Expect(buf.String()).To(ContainSubstring("Opening stream"))
	})
})

var _ = Describe("RenderEvent", func() {
	It("shows seq, type, id and every data line", func() {
		out := cliui.RenderEvent(3, &sse.Event{ID: "7", Type: "delta", Data: "one\ntwo", Retry: "3000"})
		Expect(out).To(ContainSubstring("#3"))
		Expect(out).To(ContainSubstring("delta"))
		Expect(out).To(ContainSubstring("id=7"))
		Expect(out).To(ContainSubstring("retry=3000"))
		Expect(out).To(ContainSubstring("one"))
		Expect(out).To(ContainSubstring("two"))
	})

	It("omits id and retry when empty", func() {
		out := cliui.RenderEvent(1, &sse.Event{Type: "message", Data: "x"})
		Expect(out).NotTo(ContainSubstring("id="))
		Expect(out).NotTo(ContainSubstring("retry="))
	})
})

var _ = Describe("RenderMarkdown", func() {
	It("renders markdown text", func() {
		out, err := cliui.RenderMarkdown("# Title\n\nsome *text*")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Title"))
	})
})
