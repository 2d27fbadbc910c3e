// Package cmdlog builds the logger used by ssetap commands.
package cmdlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/papercomputeco/ssetap/pkg/logger"
)

// FlagName is the persistent flag that names the JSON log file.
const FlagName = "log-file"

// Open returns a logger writing human output to stderr. When path is set,
// every record is also appended to path as JSON. The returned close func
// releases the file and is never nil.
func Open(debug bool, path string, stderr io.Writer) (*slog.Logger, func() error, error) {
	console := logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(logger.IsTerminal(os.Stderr)),
		logger.WithWriter(stderr),
	)
	if path == "" {
		return console, func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)

	return logger.Multi(console, file), f.Close, nil
}
