package cliui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/ssetap/pkg/sse"
)

var (
	seqStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	typeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	fieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dataStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// RenderEvent formats one event for terminal display:
//
//	#3 delta id=7 retry=3000
//	   first data line
//	   second data line
func RenderEvent(seq int64, ev *sse.Event) string {
	var b strings.Builder

	b.WriteString(seqStyle.Render(fmt.Sprintf("#%d", seq)))
	b.WriteByte(' ')
	b.WriteString(typeStyle.Render(ev.Type))
	if ev.ID != "" {
		b.WriteString(fieldStyle.Render(" id=" + ev.ID))
	}
	if ev.Retry != "" {
		b.WriteString(fieldStyle.Render(" retry=" + ev.Retry))
	}
	b.WriteByte('\n')

	for line := range strings.SplitSeq(ev.Data, "\n") {
		b.WriteString("   ")
		b.WriteString(dataStyle.Render(line))
		b.WriteByte('\n')
	}

	return b.String()
}

// SummaryLine renders a "key value" pair for the end of run summary.
func SummaryLine(key, value string) string {
	return fmt.Sprintf("  %s %s\n", KeyStyle.Render(key), ValueStyle.Render(value))
}
