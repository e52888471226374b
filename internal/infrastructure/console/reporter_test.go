package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func newTestReporter(t *testing.T) (*Reporter, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	return NewReporter(&buf), &buf
}

func TestReporter_Step(t *testing.T) {
	r, buf := newTestReporter(t)

	r.Step("open", "LoginPage")
	r.Step("custom", "")

	assert.Equal(t, "\n🌐 Open page\n   LoginPage\n\n🔧 custom\n", buf.String())
}

func TestReporter_Element(t *testing.T) {
	r, buf := newTestReporter(t)

	r.Element(ElementReport{Locator: "id=login", Found: true, Total: 1, Text: "Log in", Displayed: true, Enabled: true})
	r.Element(ElementReport{Locator: "css selector=li", Found: true, Total: 3})
	r.Element(ElementReport{Locator: "id=ghost"})

	out := buf.String()
	assert.Contains(t, out, "✓ id=login (1 match)\n")
	assert.Contains(t, out, "   text: Log in\n")
	assert.Contains(t, out, "✓ css selector=li (3 matches)\n")
	assert.Contains(t, out, "✗ id=ghost not found\n")
}

func TestReporter_Failure(t *testing.T) {
	r, buf := newTestReporter(t)

	r.Failure(errors.New(strings.Repeat("x", 400)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "❌ Error: "))
	assert.True(t, strings.HasSuffix(out, "...\n"))
}

func TestReporter_ListAndSuccess(t *testing.T) {
	r, buf := newTestReporter(t)

	r.List("Engines", []string{"chrome", "rod"})
	r.Success("opened %s", "HomePage")

	assert.Equal(t, "Engines\n  • chrome\n  • rod\n✓ opened HomePage\n", buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("  abc ", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "привет", truncate("привет", 6))
}
