package cmdlog_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ssetap/cmd/ssetap/cmdlog"
)

var _ = Describe("Open", func() {
	It("logs to stderr only without a log file", func() {
		var stderr bytes.Buffer
		l, closeLog, err := cmdlog.Open(false, "", &stderr)
		Expect(err).NotTo(HaveOccurred())
		Expect(closeLog()).To(Succeed())

		l.Info("stream opened", "url", "http://localhost:5000/stream")
		Expect(stderr.String()).To(ContainSubstring("stream opened"))
	})

	It("appends JSON records to the log file as well", func() {
		path := filepath.Join(GinkgoT().TempDir(), "ssetap.log")
		Expect(os.WriteFile(path, []byte(`{"msg":"earlier"}`+"\n"), 0o600)).To(Succeed())

		var stderr bytes.Buffer
		l, closeLog, err := cmdlog.Open(true, path, &stderr)
		Expect(err).NotTo(HaveOccurred())

		l.Debug("event received", "seq", 1)
		Expect(closeLog()).To(Succeed())

		Expect(stderr.String()).To(ContainSubstring("event received"))

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		Expect(lines).To(HaveLen(2))

		var parsed map[string]any
		Expect(json.Unmarshal([]byte(lines[1]), &parsed)).To(Succeed())
		Expect(parsed["msg"]).To(Equal("event received"))
		Expect(parsed["seq"]).To(BeNumerically("==", 1))
	})

	It("fails when the log file cannot be opened", func() {
		path := filepath.Join(GinkgoT().TempDir(), "missing", "ssetap.log")
		_, _, err := cmdlog.Open(false, path, &bytes.Buffer{})
		Expect(err).To(MatchError(ContainSubstring("opening log file")))
	})
})
