package replay

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/ssetap/pkg/sse"
	"github.com/papercomputeco/ssetap/pkg/storage"
)

// maxReplayDelay caps the pause between two paced events.
const maxReplayDelay = 10 * time.Second

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionsResponse lists recorded sessions.
type SessionsResponse struct {
	Count    int                `json:"count"`
	Sessions []*storage.Session `json:"sessions"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListSessions returns every recorded session, oldest first.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	sessions, err := s.driver.Sessions(c.Context())
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list sessions"})
	}

	return c.JSON(SessionsResponse{
		Count:    len(sessions),
		Sessions: sessions,
	})
}

// handleGetSession returns a single session with its event count.
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid session id"})
	}

	sessions, err := s.driver.Sessions(c.Context())
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list sessions"})
	}

	for _, session := range sessions {
		if session.ID == id {
			return c.JSON(session)
		}
	}

	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "session not found"})
}

// handleSessionEvents replays a session's events in wire format.
//
// A Last-Event-ID header resumes after the first record carrying that id.
// The speed query parameter paces events by their original spacing divided
// by speed; 0, the default, sends everything at once.
func (s *Server) handleSessionEvents(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid session id"})
	}

	speed := c.QueryFloat("speed", 0)
	if speed < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "speed must not be negative"})
	}

	records, err := s.driver.Records(c.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "session not found"})
		}
		s.logger.Error("failed to load records", "session_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load records"})
	}

	records = resumeAfter(records, c.Get("Last-Event-ID"))

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	s.logger.Debug("replaying session",
		"session_id", id,
		"events", len(records),
		"speed", speed,
	)

	// io.Pipe gives per-event backpressure; fasthttp flushes each chunk
	// it reads from the pipe. The handler's RequestCtx is recycled once
	// it returns, so the writer goroutine only touches records.
	pr, pw := io.Pipe()
	go s.writeRecords(pw, records, speed)

	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) writeRecords(pw *io.PipeWriter, records []*storage.Record, speed float64) {
	var prev time.Time
	for i, r := range records {
		if speed > 0 && i > 0 {
			time.Sleep(replayDelay(prev, r.ReceivedAt, speed))
		}
		prev = r.ReceivedAt

		if err := sse.Encode(pw, &r.Event); err != nil {
			s.logger.Debug("replay stopped", "seq", r.Seq, "error", err)
			pw.CloseWithError(err)
			return
		}
	}

	pw.Close()
}

// replayDelay scales the gap between two receive times.
func replayDelay(prev, next time.Time, speed float64) time.Duration {
	gap := next.Sub(prev)
	if gap <= 0 {
		return 0
	}

	d := time.Duration(float64(gap) / speed)
	return min(d, maxReplayDelay)
}

// resumeAfter drops records up to and including the first one whose event
// id is lastID. Unknown ids replay everything.
func resumeAfter(records []*storage.Record, lastID string) []*storage.Record {
	if lastID == "" {
		return records
	}

	for i, r := range records {
		if r.Event.ID == lastID {
			return records[i+1:]
		}
	}

	return records
}
