package sqlite_test

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ssetap/pkg/sse"
	"github.com/papercomputeco/ssetap/pkg/storage"
	"github.com/papercomputeco/ssetap/pkg/storage/sqlite"
	"github.com/papercomputeco/ssetap/pkg/storage/storagetest"
)

var _ storage.Driver = (*sqlite.SQLiteDriver)(nil)

var _ = Describe("SQLiteDriver", func() {
	Context("in memory", func() {
		storagetest.DescribeDriver(func() storage.Driver {
			driver, err := sqlite.NewSQLiteDriver(":memory:")
			Expect(err).NotTo(HaveOccurred())
			return driver
		})
	})

	Describe("NewSQLiteDriver", func() {
		It("persists sessions across reopen of a file database", func() {
			ctx := context.Background()
			dbPath := filepath.Join(GinkgoT().TempDir(), "ssetap.sqlite")

			driver, err := sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())

			s := storage.NewSession("http://localhost:5000/stream", time.Now())
			Expect(driver.PutSession(ctx, s)).To(Succeed())
			Expect(driver.Append(ctx, &storage.Record{
				SessionID:  s.ID,
				Seq:        1,
				Event:      sse.Event{Type: "message", Data: "hello"},
				ReceivedAt: time.Now(),
			})).To(Succeed())
			Expect(driver.Close()).To(Succeed())

			driver, err = sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer driver.Close()

			records, err := driver.Records(ctx, s.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Event.Data).To(Equal("hello"))
		})

		It("gives every in-memory driver its own database", func() {
			ctx := context.Background()

			first, err := sqlite.NewSQLiteDriver(":memory:")
			Expect(err).NotTo(HaveOccurred())
			defer first.Close()
			second, err := sqlite.NewSQLiteDriver(":memory:")
			Expect(err).NotTo(HaveOccurred())
			defer second.Close()

			Expect(first.PutSession(ctx, storage.NewSession("a", time.Now()))).To(Succeed())

			sessions, err := second.Sessions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(BeEmpty())
		})

		It("rejects records for unknown sessions through the foreign key", func() {
			ctx := context.Background()
			driver, err := sqlite.NewSQLiteDriver(":memory:")
			Expect(err).NotTo(HaveOccurred())
			defer driver.Close()

			_, err = driver.DB().ExecContext(ctx,
				`INSERT INTO records (session_id, seq, event_id, event_type, data, retry, received_at)
				VALUES ('missing', 1, '', 'message', 'x', '', CURRENT_TIMESTAMP)`)
			Expect(err).To(MatchError(ContainSubstring("FOREIGN KEY")))
		})

		It("fails for a path in a missing directory", func() {
			_, err := sqlite.NewSQLiteDriver(filepath.Join(GinkgoT().TempDir(), "missing", "ssetap.sqlite"))
			Expect(err).To(HaveOccurred())
		})
	})
})
