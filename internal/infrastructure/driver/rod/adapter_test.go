package rod

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagedrill/internal/domain/entity"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Headless)
	assert.Equal(t, time.Duration(defaultSlowMotion), cfg.SlowMotion)
	assert.False(t, cfg.NoSandbox, "Should be secure by default")
	assert.False(t, cfg.DevTools)
	assert.Empty(t, cfg.ControlURL)
	assert.Equal(t, 1920, cfg.WindowWidth)
	assert.Equal(t, 1080, cfg.WindowHeight)
}

func TestValidateURL(t *testing.T) {
	for _, ok := range []string{"http://localhost:8080", "https://example.com/a?b=c", "file:///tmp/x.html", "about:blank"} {
		assert.NoError(t, validateURL(ok), ok)
	}

	tests := []struct {
		name string
		url  string
	}{
		{"Empty URL", ""},
		{"Invalid scheme", "ftp://example.com"},
		{"JavaScript URL", "javascript:alert(1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, validateURL(tt.url), ErrInvalidURL)
		})
	}
}

func TestElement_Foreign(t *testing.T) {
	_, err := element("click", "not a rod element")
	assert.ErrorIs(t, err, ErrForeignElement)
	assert.ErrorIs(t, err, entity.ErrDriver)
}

func TestBrowserAdapter_ClosedState(t *testing.T) {
	adapter := &BrowserAdapter{closed: true}
	ctx := context.Background()

	assert.False(t, adapter.IsReady())
	assert.ErrorIs(t, adapter.Navigate(ctx, "http://localhost"), ErrClosed)
	_, err := adapter.Title(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, ok := adapter.ExecuteScript(ctx, "return 1")
	assert.False(t, ok)
	assert.NoError(t, adapter.Quit(), "Quit must be idempotent")
}

func TestBrowserAdapter_ImplicitWait(t *testing.T) {
	adapter := &BrowserAdapter{}
	require.NoError(t, adapter.SetImplicitWait(3*time.Second))
	assert.Equal(t, 3*time.Second, adapter.ImplicitWait())
}

// The tests below drive a real Chromium and only run when
// PAGEDRILL_BROWSER_TESTS is set.

func newTestAdapter(t *testing.T) *BrowserAdapter {
	t.Helper()
	if os.Getenv("PAGEDRILL_BROWSER_TESTS") == "" {
		t.Skip("set PAGEDRILL_BROWSER_TESTS=1 to run against a real browser")
	}
	cfg := DefaultConfig()
	cfg.Headless = true
	cfg.SlowMotion = 0

	adapter, err := NewBrowserAdapter(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Quit() })
	return adapter
}

func serve(t *testing.T, body string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func TestBrowserAdapter_Navigate(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()
	url := serve(t, BasicHTML)

	require.NoError(t, adapter.Navigate(ctx, url))

	current, err := adapter.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, url+"/", current)

	title, err := adapter.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Test Page", title)

	require.NoError(t, adapter.SetTitle(ctx, "Renamed"))
	title, err = adapter.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", title)
}

func TestBrowserAdapter_FindAndClick(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()
	require.NoError(t, adapter.Navigate(ctx, serve(t, InteractiveHTML)))

	btn, err := adapter.FindElement(ctx, nil, entity.ID("btn"))
	require.NoError(t, err)
	require.NotNil(t, btn)
	require.NoError(t, adapter.Click(ctx, btn))

	result, err := adapter.FindElement(ctx, nil, entity.XPath("//div[@id='result']"))
	require.NoError(t, err)
	text, err := adapter.Text(ctx, result)
	require.NoError(t, err)
	assert.Equal(t, "Clicked!", text)

	menu, err := adapter.FindElement(ctx, nil, entity.ID("menu"))
	require.NoError(t, err)
	items, err := adapter.FindElements(ctx, menu, entity.MustLocator(entity.ByClassName, "item"))
	require.NoError(t, err)
	assert.Len(t, items, 3)

	visible, err := adapter.IsDisplayed(ctx, items[2])
	require.NoError(t, err)
	assert.False(t, visible)

	link, err := adapter.FindElement(ctx, nil, entity.MustLocator(entity.ByPartialLinkText, "more"))
	require.NoError(t, err)
	assert.NotNil(t, link)
}

func TestBrowserAdapter_FindElement_Absent(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()
	require.NoError(t, adapter.Navigate(ctx, serve(t, BasicHTML)))
	require.NoError(t, adapter.SetImplicitWait(300*time.Millisecond))

	start := time.Now()
	el, err := adapter.FindElement(ctx, nil, entity.ID("missing"))
	require.NoError(t, err)
	assert.Nil(t, el)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func TestBrowserAdapter_Form(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()
	require.NoError(t, adapter.Navigate(ctx, serve(t, FormHTML)))

	user, err := adapter.FindElement(ctx, nil, entity.ID("username"))
	require.NoError(t, err)
	value, ok, err := adapter.Attribute(ctx, user, "value")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "preset", value)

	require.NoError(t, adapter.Clear(ctx, user))
	require.NoError(t, adapter.SendKeys(ctx, user, "tomsmith"))
	value, _, err = adapter.Attribute(ctx, user, "value")
	require.NoError(t, err)
	assert.Equal(t, "tomsmith", value)

	_, ok, err = adapter.Attribute(ctx, user, "data-missing")
	require.NoError(t, err)
	assert.False(t, ok)

	remember, err := adapter.FindElement(ctx, nil, entity.ID("remember"))
	require.NoError(t, err)
	selected, err := adapter.IsSelected(ctx, remember)
	require.NoError(t, err)
	assert.True(t, selected)

	submit, err := adapter.FindElement(ctx, nil, entity.ID("submit"))
	require.NoError(t, err)
	enabled, err := adapter.IsEnabled(ctx, submit)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestBrowserAdapter_ExecuteScript(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()
	require.NoError(t, adapter.Navigate(ctx, serve(t, BasicHTML)))

	v, ok := adapter.ExecuteScript(ctx, "return document.readyState")
	require.True(t, ok)
	assert.Equal(t, "complete", v)

	v, ok = adapter.ExecuteScript(ctx, "return arguments[0] + arguments[1]", 2, 3)
	require.True(t, ok)
	assert.EqualValues(t, 5, v)

	_, ok = adapter.ExecuteScript(ctx, "throw new Error('boom')")
	assert.False(t, ok)
}

func TestBrowserAdapter_DragAndDrop(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()
	require.NoError(t, adapter.Navigate(ctx, serve(t, DragHTML)))

	src, err := adapter.FindElement(ctx, nil, entity.ID("src"))
	require.NoError(t, err)
	dst, err := adapter.FindElement(ctx, nil, entity.ID("dst"))
	require.NoError(t, err)

	require.NoError(t, adapter.Hover(ctx, src))
	require.NoError(t, adapter.DragAndDrop(ctx, src, dst))

	log, err := adapter.FindElement(ctx, nil, entity.ID("log"))
	require.NoError(t, err)
	text, err := adapter.Text(ctx, log)
	require.NoError(t, err)
	assert.Equal(t, "dropped", text)
}

func TestBrowserAdapter_Screenshot(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()
	require.NoError(t, adapter.Navigate(ctx, serve(t, BasicHTML)))

	data, err := adapter.Screenshot(ctx)
	require.NoError(t, err)
	require.Greater(t, len(data), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2], "expected JPEG magic bytes")

	require.NoError(t, adapter.Refresh(ctx))
}

func TestBrowserAdapter_Quit(t *testing.T) {
	adapter := newTestAdapter(t)
	assert.True(t, adapter.IsReady())

	require.NoError(t, adapter.Quit())
	assert.False(t, adapter.IsReady())
	assert.NoError(t, adapter.Quit())
}
