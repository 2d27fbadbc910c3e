// Package eventprint writes decoded events to a terminal or pipe in the
// output modes shared by the listen and parse commands.
package eventprint

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/ssetap/pkg/cliui"
	"github.com/papercomputeco/ssetap/pkg/eventstream"
	"github.com/papercomputeco/ssetap/pkg/sse"
	"github.com/papercomputeco/ssetap/pkg/utils"
)

// Mode selects how events are written.
type Mode int

const (
	// Pretty renders each event with lipgloss styles.
	Pretty Mode = iota

	// JSON writes one JSON object per line.
	JSON

	// Raw writes nothing per event; the stream tee carries the bytes.
	Raw

	// Markdown buffers event data and renders it on Flush.
	Markdown
)

// ModeFromFlags maps the mutually exclusive output flags to a Mode.
func ModeFromFlags(jsonOut, raw, markdown bool) Mode {
	switch {
	case jsonOut:
		return JSON
	case raw:
		return Raw
	case markdown:
		return Markdown
	default:
		return Pretty
	}
}

// Line is the JSON representation of one event.
type Line struct {
	Seq        int64     `json:"seq"`
	ReceivedAt time.Time `json:"received_at"`
	eventstream.EventPayload
}

// Printer writes events to out. It is not safe for concurrent use; the tap
// calls handlers from a single goroutine.
type Printer struct {
	mode   Mode
	out    io.Writer
	enc    *json.Encoder
	md     strings.Builder
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Printer.
func New(mode Mode, out io.Writer, logger *slog.Logger) *Printer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Printer{
		mode:   mode,
		out:    out,
		enc:    json.NewEncoder(out),
		logger: logger,
		now:    time.Now,
	}
}

// Handle writes one event. Its signature matches tap.Handler.
func (p *Printer) Handle(seq int64, ev *sse.Event) error {
	p.logger.Debug("event received",
		"seq", seq,
		"type", ev.Type,
		"data", utils.Truncate(ev.Data, 80),
	)

	switch p.mode {
	case JSON:
		return p.enc.Encode(Line{
			Seq:        seq,
			ReceivedAt: p.now().UTC(),
			EventPayload: eventstream.EventPayload{
				ID:    ev.ID,
				Type:  ev.Type,
				Data:  ev.Data,
				Retry: ev.Retry,
			},
		})
	case Raw:
		return nil
	case Markdown:
		p.md.WriteString(ev.Data)
		return nil
	default:
		_, err := io.WriteString(p.out, cliui.RenderEvent(seq, ev))
		return err
	}
}

// Flush renders buffered markdown. It is a no-op in other modes.
func (p *Printer) Flush() error {
	if p.mode != Markdown || p.md.Len() == 0 {
		return nil
	}

	rendered, err := cliui.RenderMarkdown(p.md.String())
	if err != nil {
		p.logger.Debug("markdown render failed, printing plain text", "error", err)
	}

	_, err = io.WriteString(p.out, rendered)
	return err
}
