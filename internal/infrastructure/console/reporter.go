package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Reporter prints probe progress for a human at a terminal.
type Reporter struct {
	out io.Writer
}

func NewReporter(out io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{out: out}
}

// ElementReport is what a probe learned about one element.
type ElementReport struct {
	Locator   string
	Found     bool
	Total     int
	Text      string
	Displayed bool
	Enabled   bool
}

func (r *Reporter) Step(action, detail string) {
	icon, name := stepDisplay(action)

	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(r.out, "\n%s %s\n", icon, name)

	if detail != "" {
		dim := color.New(color.Faint)
		dim.Fprintf(r.out, "   %s\n", truncate(detail, 120))
	}
}

func (r *Reporter) Success(format string, args ...any) {
	green := color.New(color.FgGreen)
	green.Fprintf(r.out, "✓ %s\n", fmt.Sprintf(format, args...))
}

func (r *Reporter) Failure(err error) {
	red := color.New(color.FgRed)
	red.Fprint(r.out, "❌ Error: ")

	dim := color.New(color.Faint)
	dim.Fprintln(r.out, truncate(err.Error(), 300))
}

func (r *Reporter) Element(e ElementReport) {
	if !e.Found {
		color.New(color.FgRed).Fprintf(r.out, "✗ %s not found\n", e.Locator)
		return
	}

	green := color.New(color.FgGreen)
	green.Fprintf(r.out, "✓ %s (%d match", e.Locator, e.Total)
	if e.Total != 1 {
		green.Fprint(r.out, "es")
	}
	green.Fprintln(r.out, ")")

	dim := color.New(color.Faint)
	dim.Fprintf(r.out, "   displayed: %t  enabled: %t\n", e.Displayed, e.Enabled)
	if e.Text != "" {
		dim.Fprintf(r.out, "   text: %s\n", truncate(e.Text, 80))
	}
}

func (r *Reporter) List(title string, items []string) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(r.out, "%s\n", title)
	for _, item := range items {
		fmt.Fprintf(r.out, "  • %s\n", item)
	}
}

func stepDisplay(action string) (string, string) {
	displays := map[string][2]string{
		"launch":     {"🚀", "Launch"},
		"open":       {"🌐", "Open page"},
		"navigate":   {"🌐", "Navigate"},
		"peek":       {"🔍", "Peek element"},
		"screenshot": {"📸", "Screenshot"},
	}
	if display, ok := displays[action]; ok {
		return display[0], display[1]
	}
	return "🔧", action
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
