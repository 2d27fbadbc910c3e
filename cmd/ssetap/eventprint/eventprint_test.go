package eventprint_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ssetap/cmd/ssetap/eventprint"
	"github.com/papercomputeco/ssetap/pkg/sse"
)

var _ = Describe("ModeFromFlags", func() {
	It("maps flags to modes", func() {
		Expect(eventprint.ModeFromFlags(false, false, false)).To(Equal(eventprint.Pretty))
		Expect(eventprint.ModeFromFlags(true, false, false)).To(Equal(eventprint.JSON))
		Expect(eventprint.ModeFromFlags(false, true, false)).To(Equal(eventprint.Raw))
		Expect(eventprint.ModeFromFlags(false, false, true)).To(Equal(eventprint.Markdown))
	})
})

var _ = Describe("Printer", func() {
	var out *bytes.Buffer

	BeforeEach(func() {
		out = &bytes.Buffer{}
	})

	ev := &sse.Event{ID: "7", Type: "delta", Data: "a\nb", Retry: "3000"}

	It("renders pretty events", func() {
		p := eventprint.New(eventprint.Pretty, out, nil)
		Expect(p.Handle(3, ev)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("#3"))
		Expect(out.String()).To(ContainSubstring("id=7"))
		Expect(out.String()).To(ContainSubstring("   b\n"))
	})

	It("writes one JSON line per event", func() {
		p := eventprint.New(eventprint.JSON, out, nil)
		Expect(p.Handle(1, ev)).To(Succeed())
		Expect(p.Handle(2, &sse.Event{Type: "message", Data: "x"})).To(Succeed())

		lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
		Expect(lines).To(HaveLen(2))

		var first eventprint.Line
		Expect(json.Unmarshal(lines[0], &first)).To(Succeed())
		Expect(first.Seq).To(Equal(int64(1)))
		Expect(first.ID).To(Equal("7"))
		Expect(first.Data).To(Equal("a\nb"))
		Expect(first.Retry).To(Equal("3000"))
		Expect(first.ReceivedAt).NotTo(BeZero())
		Expect(string(lines[1])).NotTo(ContainSubstring(`"id"`))
	})

	It("writes nothing in raw mode", func() {
		p := eventprint.New(eventprint.Raw, out, nil)
		Expect(p.Handle(1, ev)).To(Succeed())
		Expect(p.Flush()).To(Succeed())
		Expect(out.Len()).To(BeZero())
	})

	It("buffers markdown until Flush", func() {
		p := eventprint.New(eventprint.Markdown, out, nil)
		Expect(p.Handle(1, &sse.Event{Type: "message", Data: "# Ti"})).To(Succeed())
		Expect(p.Handle(2, &sse.Event{Type: "message", Data: "tle"})).To(Succeed())
		Expect(out.Len()).To(BeZero())

		Expect(p.Flush()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Title"))
	})

	It("flushes nothing when no markdown arrived", func() {
		p := eventprint.New(eventprint.Markdown, out, nil)
		Expect(p.Flush()).To(Succeed())
		Expect(out.Len()).To(BeZero())
	})
})
