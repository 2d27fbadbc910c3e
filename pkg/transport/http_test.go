package transport_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ssetap/pkg/transport"
)

var _ = Describe("OpenHTTP", func() {
	var upstream *httptest.Server

	AfterEach(func() {
		if upstream != nil {
			upstream.Close()
		}
	})

	It("posts the body and returns the event stream", func() {
		var (
			gotMethod      string
			gotContentType string
			gotAccept      string
			gotBody        string
			gotCustom      string
		)

		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotContentType = r.Header.Get("Content-Type")
			gotAccept = r.Header.Get("Accept")
			gotCustom = r.Header.Get("X-Corpus")
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)

			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: hello\n\n")
		}))

		body, err := transport.OpenHTTP(context.Background(), nil, transport.Request{
			URL:         upstream.URL,
			ContentType: "application/vnd.api+json",
			Body:        []byte(`{"data":{}}`),
			Header:      http.Header{"X-Corpus": []string{"pg"}},
		})
		Expect(err).NotTo(HaveOccurred())
		defer body.Close()

		raw, err := io.ReadAll(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(Equal("data: hello\n\n"))

		Expect(gotMethod).To(Equal(http.MethodPost))
		Expect(gotContentType).To(Equal("application/vnd.api+json"))
		Expect(gotAccept).To(Equal("text/event-stream"))
		Expect(gotBody).To(Equal(`{"data":{}}`))
		Expect(gotCustom).To(Equal("pg"))
	})

	It("uses GET when there is no body", func() {
		var gotMethod string
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
		}))

		body, err := transport.OpenHTTP(context.Background(), nil, transport.Request{URL: upstream.URL})
		Expect(err).NotTo(HaveOccurred())
		body.Close()
		Expect(gotMethod).To(Equal(http.MethodGet))
	})

	It("returns a StatusError for non-2xx responses", func() {
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "corpus not found", http.StatusNotFound)
		}))

		_, err := transport.OpenHTTP(context.Background(), nil, transport.Request{URL: upstream.URL})
		Expect(err).To(HaveOccurred())

		var statusErr *transport.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.StatusCode).To(Equal(http.StatusNotFound))
		Expect(statusErr.Body).To(Equal("corpus not found"))
	})

	It("does not follow redirects unless asked to", func() {
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/moved" {
				fmt.Fprint(w, "data: moved\n\n")
				return
			}
			http.Redirect(w, r, "/moved", http.StatusFound)
		}))

		_, err := transport.OpenHTTP(context.Background(), nil, transport.Request{URL: upstream.URL})
		var statusErr *transport.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.StatusCode).To(Equal(http.StatusFound))

		body, err := transport.OpenHTTP(context.Background(), nil, transport.Request{
			URL:             upstream.URL,
			FollowRedirects: true,
		})
		Expect(err).NotTo(HaveOccurred())
		defer body.Close()
		raw, _ := io.ReadAll(body)
		Expect(string(raw)).To(Equal("data: moved\n\n"))
	})

	It("requires a URL", func() {
		_, err := transport.OpenHTTP(context.Background(), nil, transport.Request{})
		Expect(err).To(MatchError(ContainSubstring("URL is required")))
	})
})

var _ = Describe("ParseHeaders", func() {
	It("parses key value pairs", func() {
		h, err := transport.ParseHeaders([]string{"Authorization: Bearer abc", "X-Trace:1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Get("Authorization")).To(Equal("Bearer abc"))
		Expect(h.Get("X-Trace")).To(Equal("1"))
	})

	It("rejects lines without a colon", func() {
		_, err := transport.ParseHeaders([]string{"nope"})
		Expect(err).To(HaveOccurred())
	})
})
