// Package storagetest holds Ginkgo specs shared by every storage.Driver
// implementation.
package storagetest

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ssetap/pkg/sse"
	"github.com/papercomputeco/ssetap/pkg/storage"
)

// DescribeDriver registers the driver contract specs. newDriver is called
// before each spec and must return an empty store.
func DescribeDriver(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
		start  time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		driver = newDriver()
		DeferCleanup(driver.Close)
	})

	record := func(s *storage.Session, seq int64, data string) *storage.Record {
		return &storage.Record{
			SessionID:  s.ID,
			Seq:        seq,
			Event:      sse.Event{Type: sse.DefaultEventType, Data: data},
			ReceivedAt: start.Add(time.Duration(seq) * time.Millisecond),
		}
	}

	Describe("PutSession", func() {
		It("stores a session", func() {
			s := storage.NewSession("http://localhost:5000/stream", start)
			Expect(driver.PutSession(ctx, s)).To(Succeed())

			sessions, err := driver.Sessions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(1))
			Expect(sessions[0].ID).To(Equal(s.ID))
			Expect(sessions[0].Source).To(Equal("http://localhost:5000/stream"))
			Expect(sessions[0].StartedAt.Equal(start)).To(BeTrue())
			Expect(sessions[0].EventCount).To(Equal(0))
		})

		It("rejects a duplicate id", func() {
			s := storage.NewSession("a", start)
			Expect(driver.PutSession(ctx, s)).To(Succeed())
			Expect(driver.PutSession(ctx, s)).NotTo(Succeed())
		})

		It("rejects nil", func() {
			Expect(driver.PutSession(ctx, nil)).To(MatchError(storage.ErrNilSession))
		})
	})

	Describe("Append and Records", func() {
		var s *storage.Session

		BeforeEach(func() {
			s = storage.NewSession("capture.sse", start)
			Expect(driver.PutSession(ctx, s)).To(Succeed())
		})

		It("returns records in seq order regardless of append order", func() {
			for _, seq := range []int64{3, 1, 2} {
				Expect(driver.Append(ctx, record(s, seq, "d"))).To(Succeed())
			}

			records, err := driver.Records(ctx, s.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			for i, r := range records {
				Expect(r.Seq).To(Equal(int64(i + 1)))
				Expect(r.SessionID).To(Equal(s.ID))
			}
		})

		It("preserves every event field", func() {
			r := &storage.Record{
				SessionID: s.ID,
				Seq:       1,
				Event: sse.Event{
					ID:    "42",
					Type:  "delta",
					Data:  "line one\nline two",
					Retry: "3000",
				},
				ReceivedAt: start,
			}
			Expect(driver.Append(ctx, r)).To(Succeed())

			records, err := driver.Records(ctx, s.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Event).To(Equal(r.Event))
			Expect(records[0].ReceivedAt.Equal(start)).To(BeTrue())
		})

		It("rejects a duplicate seq", func() {
			Expect(driver.Append(ctx, record(s, 1, "a"))).To(Succeed())
			Expect(driver.Append(ctx, record(s, 1, "b"))).NotTo(Succeed())
		})

		It("returns NotFoundError when appending to an unknown session", func() {
			unknown := &storage.Session{ID: uuid.New()}
			err := driver.Append(ctx, record(unknown, 1, "a"))
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("returns NotFoundError for records of an unknown session", func() {
			id := uuid.New()
			_, err := driver.Records(ctx, id)
			Expect(err).To(MatchError(storage.NotFoundError{SessionID: id}))
		})

		It("returns an empty list for a session without records", func() {
			records, err := driver.Records(ctx, s.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("rejects nil", func() {
			Expect(driver.Append(ctx, nil)).To(MatchError(storage.ErrNilRecord))
		})
	})

	Describe("Sessions", func() {
		It("orders sessions by start time and counts records", func() {
			later := storage.NewSession("b", start.Add(time.Minute))
			earlier := storage.NewSession("a", start)
			Expect(driver.PutSession(ctx, later)).To(Succeed())
			Expect(driver.PutSession(ctx, earlier)).To(Succeed())

			Expect(driver.Append(ctx, record(later, 1, "x"))).To(Succeed())
			Expect(driver.Append(ctx, record(later, 2, "y"))).To(Succeed())

			sessions, err := driver.Sessions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(2))
			Expect(sessions[0].ID).To(Equal(earlier.ID))
			Expect(sessions[0].EventCount).To(Equal(0))
			Expect(sessions[1].ID).To(Equal(later.ID))
			Expect(sessions[1].EventCount).To(Equal(2))
		})

		It("returns an empty list for an empty store", func() {
			sessions, err := driver.Sessions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(BeEmpty())
		})
	})
}
