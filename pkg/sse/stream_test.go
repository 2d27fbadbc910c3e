package sse_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing/iotest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ssetap/pkg/sse"
	"github.com/papercomputeco/ssetap/pkg/transport"
)

// collect drains s with Next and returns the events.
func collect(s *sse.Stream) ([]sse.Event, error) {
	var out []sse.Event
	for {
		ev, err := s.Next()
		if err != nil {
			return out, err
		}
		if ev == nil {
			return out, nil
		}
		out = append(out, *ev)
	}
}

var _ = Describe("Stream", func() {
	Describe("Next", func() {
		It("decodes an event split across chunks", func() {
			s := sse.NewStream(transport.StringChunks("data: hel", "lo\n\n"))
			defer s.Close()

			got, err := collect(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]sse.Event{{Type: "message", Data: "hello"}}))
		})

		It("decodes a multi-field event", func() {
			s := sse.NewStream(transport.StringChunks("event: update\nid: 7\ndata: a\ndata: b\n\n"))
			defer s.Close()

			got, err := collect(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]sse.Event{{ID: "7", Type: "update", Data: "a\nb"}}))
		})

		It("emits a trailing event when the stream ends without a terminator", func() {
			s := sse.NewStream(transport.StringChunks("data: first\n\n", "data: trailing"))
			defer s.Close()

			got, err := collect(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
			Expect(got[1].Data).To(Equal("trailing"))
		})

		It("skips unknown fields without an error", func() {
			s := sse.NewStream(transport.StringChunks("foo: bar\ndata: x\n\n"))
			defer s.Close()

			got, err := collect(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]sse.Event{{Type: "message", Data: "x"}}))
		})

		It("skips frames that produce no event", func() {
			s := sse.NewStream(transport.StringChunks(
				": keep-alive\n\n",
				"id: 123\n\n",
				"retry: 10\n\n",
				"data: real\n\n",
			))
			defer s.Close()

			got, err := collect(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]sse.Event{{Type: "message", Data: "real"}}))
		})

		It("returns nil on an empty stream", func() {
			s := sse.NewStream(transport.StringChunks())
			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})

		It("parses OpenAI-style streaming chunks", func() {
			input := "data: {\"id\":\"chatcmpl-1\",\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n" +
				"data: {\"id\":\"chatcmpl-1\",\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n" +
				"data: [DONE]\n\n"
			s := sse.NewStream(io.NopCloser(iotest.HalfReader(strings.NewReader(input))))

			got, err := collect(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(3))
			Expect(got[1].Data).To(ContainSubstring(" world"))
			Expect(got[2].Data).To(Equal("[DONE]"))
		})

		It("parses Anthropic-style events with types", func() {
			input := "event: message_start\ndata: {\"type\":\"message_start\"}\n\n" +
				"event: content_block_delta\ndata: {\"delta\":{\"text\":\"Hi\"}}\n\n" +
				"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"
			s := sse.NewStream(io.NopCloser(strings.NewReader(input)), sse.WithReadSize(7))

			got, err := collect(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(3))
			Expect(got[0].Type).To(Equal("message_start"))
			Expect(got[1].Type).To(Equal("content_block_delta"))
			Expect(got[2].Type).To(Equal("message_stop"))
		})

		It("surfaces a transport failure once and then ends", func() {
			boom := errors.New("reset by peer")
			src := io.NopCloser(io.MultiReader(strings.NewReader("data: a\n\n"), iotest.ErrReader(boom)))
			s := sse.NewStream(src)

			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("a"))

			ev, err = s.Next()
			Expect(ev).To(BeNil())
			var transportErr *sse.TransportError
			Expect(errors.As(err, &transportErr)).To(BeTrue())
			Expect(err).To(MatchError(boom))

			ev, err = s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})

		It("returns a failure on the first read as a TransportError", func() {
			s := sse.NewStream(io.NopCloser(iotest.ErrReader(errors.New("reset by peer"))))

			ev, err := s.Next()
			Expect(ev).To(BeNil())
			var transportErr *sse.TransportError
			Expect(errors.As(err, &transportErr)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("reset by peer")))
		})

		It("surfaces a decode error instead of skipping the frame", func() {
			tr := transport.StringChunks("data: \xff\n\n", "data: after\n\n")
			s := sse.NewStream(tr)

			ev, err := s.Next()
			Expect(ev).To(BeNil())
			var decodeErr *sse.DecodeError
			Expect(errors.As(err, &decodeErr)).To(BeTrue())

			ev, err = s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
			Expect(tr.Closes()).To(Equal(1))
		})

		It("releases the transport when the stream is exhausted", func() {
			tr := transport.StringChunks("data: a\n\n")
			s := sse.NewStream(tr)

			_, err := collect(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Closes()).To(Equal(1))
		})
	})

	Describe("Close", func() {
		It("is idempotent and stops further events", func() {
			tr := transport.StringChunks("data: a\n\n", "data: b\n\n")
			s := sse.NewStream(tr)

			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("a"))

			Expect(s.Close()).To(Succeed())
			Expect(s.Close()).To(Succeed())
			Expect(tr.Closes()).To(Equal(1))

			ev, err = s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})

		It("unblocks a Next waiting on the transport", func() {
			pr, pw := io.Pipe()
			s := sse.NewStream(pr)

			go func() {
				defer GinkgoRecover()
				_, err := pw.Write([]byte("data: first\n\n"))
				Expect(err).NotTo(HaveOccurred())
			}()

			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("first"))

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)
				ev, err := s.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			}()

			time.Sleep(20 * time.Millisecond)
			Expect(s.Close()).To(Succeed())
			Eventually(done).Should(BeClosed())
		})
	})

	Describe("All", func() {
		It("yields every event lazily and closes the transport", func() {
			tr := transport.StringChunks("data: 1\n\n", "data: 2\n\n", "data: 3\n\n")
			var got []string
			for ev, err := range sse.Events(tr) {
				Expect(err).NotTo(HaveOccurred())
				got = append(got, ev.Data)
			}
			Expect(got).To(Equal([]string{"1", "2", "3"}))
			Expect(tr.Closes()).To(Equal(1))
		})

		It("closes the transport when the caller breaks early", func() {
			tr := transport.StringChunks("data: 1\n\n", "data: 2\n\n")
			s := sse.NewStream(tr)

			for ev, err := range s.All() {
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("1"))
				break
			}
			Expect(tr.Closes()).To(Equal(1))

			ev, err := s.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})

		It("yields a terminal error and stops", func() {
			src := io.NopCloser(iotest.ErrReader(errors.New("refused")))
			var errs []error
			for ev, err := range sse.Events(src) {
				Expect(ev).To(BeNil())
				errs = append(errs, err)
			}
			Expect(errs).To(HaveLen(1))
		})
	})

	Describe("WithTee", func() {
		It("forwards all bytes verbatim including delimiters and comments", func() {
			input := ": comment\ndata: first\n\nevent: e\r\ndata: second\r\n\r\ndata: tail"
			var dst bytes.Buffer
			s := sse.NewStream(io.NopCloser(iotest.OneByteReader(strings.NewReader(input))), sse.WithTee(&dst))

			got, err := collect(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(3))
			Expect(dst.String()).To(Equal(input))
		})

		It("stops on a tee write failure", func() {
			s := sse.NewStream(transport.StringChunks("data: x\n\n"), sse.WithTee(failingWriter{}))
			_, err := s.Next()
			Expect(err).To(MatchError(ContainSubstring("writing sse tee")))
		})
	})
})

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }
