package selenium

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wd "github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"

	"pagedrill/internal/domain/entity"
)

func TestBy(t *testing.T) {
	tests := []struct {
		locator entity.Locator
		by      string
		value   string
	}{
		{entity.ID("login"), wd.ByCSSSelector, `[id="login"]`},
		{entity.Name("q"), wd.ByCSSSelector, `[name="q"]`},
		{entity.MustLocator(entity.ByClassName, "btn"), wd.ByCSSSelector, `[class~="btn"]`},
		{entity.CSS("div > p"), wd.ByCSSSelector, "div > p"},
		{entity.XPath("//p"), wd.ByXPATH, "//p"},
		{entity.MustLocator(entity.ByTagName, "p"), wd.ByTagName, "p"},
		{entity.MustLocator(entity.ByLinkText, "Home"), wd.ByLinkText, "Home"},
		{entity.MustLocator(entity.ByPartialLinkText, "Ho"), wd.ByPartialLinkText, "Ho"},
	}

	for _, tt := range tests {
		by, value := By(tt.locator)
		assert.Equal(t, tt.by, by, tt.locator.String())
		assert.Equal(t, tt.value, value, tt.locator.String())
	}
}

func TestCapabilities(t *testing.T) {
	caps, err := Capabilities(Config{Browser: Chrome, Headless: true, WindowWidth: 1920, WindowHeight: 1080})
	require.NoError(t, err)
	assert.Equal(t, "chrome", caps["browserName"])
	var opts *chrome.Capabilities
	for _, v := range caps {
		if c, ok := v.(chrome.Capabilities); ok {
			opts = &c
		}
	}
	require.NotNil(t, opts, "chrome options attached")
	assert.Equal(t, []string{"--window-size=1920,1080", "--headless=new"}, opts.Args)
	assert.True(t, opts.W3C)

	caps, err = Capabilities(Config{Browser: Edge, WindowWidth: 800, WindowHeight: 600})
	require.NoError(t, err)
	assert.Equal(t, "MicrosoftEdge", caps["browserName"])
	assert.Equal(t, map[string]interface{}{"args": []string{"--window-size=800,600"}}, caps["ms:edgeOptions"])

	caps, err = Capabilities(Config{Browser: IE})
	require.NoError(t, err)
	assert.Equal(t, "internet explorer", caps["browserName"])

	_, err = Capabilities(Config{Browser: "netscape"})
	assert.ErrorIs(t, err, entity.ErrUnsupportedEngine)
}

func TestNewLocal_RemoteOnlyBrowsers(t *testing.T) {
	for _, name := range []string{Safari, IE} {
		_, err := NewLocal(Config{Browser: name}, nil)
		assert.ErrorIs(t, err, entity.ErrUnsupportedEngine, name)
	}
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(Chrome))
	assert.True(t, Supported(Opera))
	assert.False(t, Supported("rod"))
}

func TestDriverPath(t *testing.T) {
	assert.Equal(t, "chromedriver", DriverPath("", "chromedriver"))

	dir := t.TempDir()
	exe := filepath.Join(dir, "custom-driver")
	require.NoError(t, os.WriteFile(exe, []byte{}, 0o755))
	assert.Equal(t, exe, DriverPath(exe, "chromedriver"))

	got := DriverPath(dir, "geckodriver")
	assert.Equal(t, dir, filepath.Dir(got))
	assert.Contains(t, filepath.Base(got), "geckodriver")
}

func TestAdapter_RejectsForeignHandles(t *testing.T) {
	a := NewAdapter(nil, nil, nil)
	ctx := context.Background()

	err := a.Click(ctx, "not an element")
	assert.ErrorIs(t, err, ErrForeignElement)
	assert.ErrorIs(t, err, entity.ErrDriver)

	_, err = a.FindElements(ctx, 42, entity.ID("x"))
	assert.ErrorIs(t, err, ErrForeignElement)
}

func TestIsNoSuchElement(t *testing.T) {
	assert.True(t, isNoSuchElement(fmt.Errorf("find: %w", &wd.Error{Err: "no such element"})))
	assert.False(t, isNoSuchElement(&wd.Error{Err: "stale element reference"}))
	assert.False(t, isNoSuchElement(fmt.Errorf("plain")))
}

// TestAdapter_Chrome needs chromedriver on PATH or in PAGEDRILL_DRIVERS_PATH.
func TestAdapter_Chrome(t *testing.T) {
	if os.Getenv("PAGEDRILL_BROWSER_TESTS") == "" {
		t.Skip("set PAGEDRILL_BROWSER_TESTS=1 to run against a real browser")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<!DOCTYPE html><html><head><title>Selenium</title></head>
<body><ul><li class="i">a</li><li class="i">b</li></ul><input id="q" /></body></html>`)
	}))
	defer server.Close()

	a, err := NewLocal(Config{
		Browser:      Chrome,
		DriversPath:  os.Getenv("PAGEDRILL_DRIVERS_PATH"),
		Headless:     true,
		WindowWidth:  1280,
		WindowHeight: 800,
	}, nil)
	require.NoError(t, err)
	defer a.Quit()

	ctx := context.Background()
	require.NoError(t, a.SetImplicitWait(500*time.Millisecond))
	require.NoError(t, a.Navigate(ctx, server.URL))

	title, err := a.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Selenium", title)

	items, err := a.FindElements(ctx, nil, entity.CSS("li.i"))
	require.NoError(t, err)
	assert.Len(t, items, 2)

	q, err := a.FindElement(ctx, nil, entity.ID("q"))
	require.NoError(t, err)
	require.NoError(t, a.SendKeys(ctx, q, "hello"))
	v, ok, err := a.Attribute(ctx, q, "value")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", v)

	state, ok := a.ExecuteScript(ctx, "return document.readyState")
	assert.True(t, ok)
	assert.Equal(t, "complete", state)
}
