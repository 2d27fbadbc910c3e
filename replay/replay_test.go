package replay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ssetap/pkg/logger"
	"github.com/papercomputeco/ssetap/pkg/sse"
	"github.com/papercomputeco/ssetap/pkg/storage"
	"github.com/papercomputeco/ssetap/pkg/storage/inmemory"
)

func collectEvents(body io.ReadCloser) []sse.Event {
	var events []sse.Event
	for ev, err := range sse.Events(body) {
		Expect(err).NotTo(HaveOccurred())
		events = append(events, *ev)
	}
	return events
}

var _ = Describe("Server", func() {
	var (
		ctx     context.Context
		driver  *inmemory.Driver
		server  *Server
		session *storage.Session
		start   time.Time
		events  []sse.Event
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		server = NewServer(Config{ListenAddr: ":0"}, driver, logger.Nop())

		start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		session = storage.NewSession("http://localhost:5000/stream", start)
		Expect(driver.PutSession(ctx, session)).To(Succeed())

		events = []sse.Event{
			{ID: "1", Type: "message", Data: "hello"},
			{ID: "2", Type: "delta", Data: "multi\nline"},
			{ID: "3", Type: "done", Data: "[DONE]", Retry: "1000"},
		}
		for i, ev := range events {
			Expect(driver.Append(ctx, &storage.Record{
				SessionID:  session.ID,
				Seq:        int64(i + 1),
				Event:      ev,
				ReceivedAt: start.Add(time.Duration(i) * time.Millisecond),
			})).To(Succeed())
		}
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("GET /sessions", func() {
		It("lists recorded sessions with event counts", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/sessions", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body SessionsResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.Count).To(Equal(1))
			Expect(body.Sessions[0].ID).To(Equal(session.ID))
			Expect(body.Sessions[0].EventCount).To(Equal(3))
		})
	})

	Describe("GET /sessions/:id", func() {
		It("returns one session", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID.String(), nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var got storage.Session
			Expect(json.NewDecoder(resp.Body).Decode(&got)).To(Succeed())
			Expect(got.Source).To(Equal(session.Source))
		})

		It("returns 404 for an unknown session", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.NewString(), nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /sessions/:id/events", func() {
		It("replays every event in order as text/event-stream", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID.String()+"/events", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

			Expect(collectEvents(resp.Body)).To(Equal(events))
		})

		It("resumes after Last-Event-ID", func() {
			req := httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID.String()+"/events", nil)
			req.Header.Set("Last-Event-ID", "1")

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(collectEvents(resp.Body)).To(Equal(events[1:]))
		})

		It("paces events when speed is set", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID.String()+"/events?speed=1", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(collectEvents(resp.Body)).To(HaveLen(3))
		})

		It("returns 404 JSON for an unknown session", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.NewString()+"/events", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			var body ErrorResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.Error).To(Equal("session not found"))
		})

		It("returns 400 for a malformed id", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/sessions/nope/events", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 for a negative speed", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID.String()+"/events?speed=-1", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Handler", func() {
		It("serves the JSON routes through net/http", func() {
			ts := httptest.NewServer(server.Handler())
			defer ts.Close()

			resp, err := http.Get(ts.URL + "/sessions")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body SessionsResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.Count).To(Equal(1))
		})
	})
})

var _ = Describe("resumeAfter", func() {
	records := []*storage.Record{
		{Seq: 1, Event: sse.Event{ID: "a"}},
		{Seq: 2, Event: sse.Event{ID: "b"}},
	}

	It("keeps everything without an id", func() {
		Expect(resumeAfter(records, "")).To(HaveLen(2))
	})

	It("keeps everything for an unknown id", func() {
		Expect(resumeAfter(records, "zzz")).To(HaveLen(2))
	})

	It("returns nothing when resuming after the last event", func() {
		Expect(resumeAfter(records, "b")).To(BeEmpty())
	})
})

var _ = Describe("replayDelay", func() {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	It("scales the gap by speed", func() {
		Expect(replayDelay(t0, t0.Add(2*time.Second), 2)).To(Equal(time.Second))
	})

	It("never waits for out of order timestamps", func() {
		Expect(replayDelay(t0, t0.Add(-time.Second), 1)).To(BeZero())
	})

	It("caps long gaps", func() {
		Expect(replayDelay(t0, t0.Add(time.Hour), 1)).To(Equal(maxReplayDelay))
	})
})
