package parsecmder_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	parsecmder "github.com/papercomputeco/ssetap/cmd/ssetap/parse"
	"github.com/papercomputeco/ssetap/pkg/storage/sqlite"
)

const capture = "event: delta\ndata: one\n\nid: 2\ndata: two\n\n"

// syncBuffer guards a bytes.Buffer shared with a command goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ = Describe("parse command", func() {
	var (
		configDir string
		stdout    *syncBuffer
		stderr    *syncBuffer
	)

	newRoot := func(stdin io.Reader, args ...string) *cobra.Command {
		root := &cobra.Command{Use: "ssetap", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().BoolP("debug", "d", false, "")
		root.PersistentFlags().String("config-dir", "", "")
		root.PersistentFlags().String("log-file", "", "")
		root.AddCommand(parsecmder.NewParseCmd())
		root.SetIn(stdin)
		root.SetOut(stdout)
		root.SetErr(stderr)
		root.SetArgs(append([]string{"--config-dir", configDir, "parse"}, args...))
		return root
	}

	execute := func(stdin io.Reader, args ...string) error {
		return newRoot(stdin, args...).ExecuteContext(context.Background())
	}

	writeCapture := func(data string) string {
		path := filepath.Join(GinkgoT().TempDir(), "stream.txt")
		Expect(os.WriteFile(path, []byte(data), 0o600)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		stdout = &syncBuffer{}
		stderr = &syncBuffer{}
	})

	It("decodes a capture file", func() {
		Expect(execute(nil, writeCapture(capture))).To(Succeed())

		Expect(stdout.String()).To(ContainSubstring("#1"))
		Expect(stdout.String()).To(ContainSubstring("delta"))
		Expect(stdout.String()).To(ContainSubstring("id=2"))
		Expect(stdout.String()).To(ContainSubstring("two"))
	})

	It("reads stdin when no file is given", func() {
		Expect(execute(strings.NewReader(capture), "--json")).To(Succeed())

		lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(ContainSubstring(`"type":"delta"`))
		Expect(lines[1]).To(ContainSubstring(`"id":"2"`))
	})

	It("reads stdin for -", func() {
		Expect(execute(strings.NewReader(capture), "-", "--summary")).To(Succeed())
		Expect(stderr.String()).To(ContainSubstring("Events:"))
	})

	It("decodes non-UTF-8 captures with --encoding", func() {
		path := writeCapture("data: caf\xe9\n\n")
		Expect(execute(nil, path, "--encoding", "latin1", "--json")).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring(`"data":"café"`))
	})

	It("reports invalid UTF-8 by default", func() {
		path := writeCapture("data: caf\xe9\n\n")
		Expect(execute(nil, path)).NotTo(Succeed())
	})

	It("records the parsed session", func() {
		db := filepath.Join(GinkgoT().TempDir(), "parsed.sqlite")
		path := writeCapture(capture)
		Expect(execute(nil, path, "--sqlite", db)).To(Succeed())

		driver, err := sqlite.NewSQLiteDriver(db)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(driver.Close)

		sessions, err := driver.Sessions(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions).To(HaveLen(1))
		Expect(sessions[0].Source).To(Equal(path))
		Expect(sessions[0].EventCount).To(Equal(2))
	})

	It("fails for a missing file", func() {
		err := execute(nil, filepath.Join(configDir, "missing.txt"))
		Expect(err).To(MatchError(ContainSubstring("opening")))
	})

	It("refuses to follow stdin", func() {
		err := execute(strings.NewReader(capture), "--follow")
		Expect(err).To(MatchError(ContainSubstring("--follow needs a file")))
	})

	It("follows a growing file until cancelled", func() {
		path := writeCapture("data: first\n\n")

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			done <- newRoot(nil, path, "--follow").ExecuteContext(ctx)
		}()

		Eventually(stdout.String).Should(ContainSubstring("first"))

		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
		Expect(err).NotTo(HaveOccurred())
		_, err = f.WriteString("data: second\n\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Close()).To(Succeed())

		Eventually(stdout.String).Should(ContainSubstring("second"))

		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
	})
})
