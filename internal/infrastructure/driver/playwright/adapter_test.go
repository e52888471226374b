package playwright

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

func TestSelector(t *testing.T) {
	tests := []struct {
		locator entity.Locator
		want    string
	}{
		{entity.ID("user"), `css=[id="user"]`},
		{entity.CSS("form > input"), "css=form > input"},
		{entity.MustLocator(entity.ByTagName, "li"), "css=li"},
		{entity.XPath("//div[@id='x']"), "xpath=//div[@id='x']"},
		{entity.MustLocator(entity.ByLinkText, "Home"), `xpath=.//a[normalize-space(.)="Home"]`},
	}
	for _, tt := range tests {
		t.Run(tt.locator.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Selector(tt.locator))
		})
	}
}

func TestBrowserType_Unsupported(t *testing.T) {
	_, err := browserType(nil, "opera")
	assert.ErrorIs(t, err, entity.ErrUnsupportedEngine)
}

func TestHandle_Foreign(t *testing.T) {
	_, err := handle("click", 42)
	assert.ErrorIs(t, err, ErrForeignElement)
	assert.ErrorIs(t, err, entity.ErrDriver)
}

func TestAdapter_ClosedState(t *testing.T) {
	a := &Adapter{closed: true}
	ctx := context.Background()

	assert.ErrorIs(t, a.Navigate(ctx, "about:blank"), ErrClosed)
	_, err := a.CurrentURL(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, ok := a.ExecuteScript(ctx, "return 1")
	assert.False(t, ok)
	assert.NoError(t, a.Quit())
}

func TestAdapter_CanceledContext(t *testing.T) {
	a := &Adapter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, entity.ErrDriver)
}

func TestAdapter_ImplicitWait(t *testing.T) {
	a := &Adapter{}
	require.NoError(t, a.SetImplicitWait(time.Second))
	assert.Equal(t, time.Second, a.ImplicitWait())
}

const fixture = `<!DOCTYPE html>
<html>
<head><title>Playwright Fixture</title></head>
<body>
	<input id="name" value="preset" />
	<input id="agree" type="checkbox" checked />
	<ul id="list"><li>a</li><li>b</li></ul>
	<button id="go" disabled>Go</button>
</body>
</html>`

func TestAdapter_Integration(t *testing.T) {
	if os.Getenv("PAGEDRILL_BROWSER_TESTS") == "" {
		t.Skip("set PAGEDRILL_BROWSER_TESTS=1 to run against a real browser")
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, fixture)
	}))
	defer server.Close()

	a, err := NewAdapter(Config{Browser: Chromium, Headless: true, Install: true}, nil)
	require.NoError(t, err)
	defer a.Quit()

	ctx := context.Background()
	require.NoError(t, a.Navigate(ctx, server.URL))

	title, err := a.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Playwright Fixture", title)

	name, err := a.FindElement(ctx, nil, entity.ID("name"))
	require.NoError(t, err)
	require.NoError(t, a.Clear(ctx, name))
	require.NoError(t, a.SendKeys(ctx, name, "tomsmith"))
	value, ok, err := a.Attribute(ctx, name, "value")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tomsmith", value)

	agree, err := a.FindElement(ctx, nil, entity.ID("agree"))
	require.NoError(t, err)
	selected, err := a.IsSelected(ctx, agree)
	require.NoError(t, err)
	assert.True(t, selected)

	list, err := a.FindElement(ctx, nil, entity.ID("list"))
	require.NoError(t, err)
	items, err := a.FindElements(ctx, list, entity.XPath("./li"))
	require.NoError(t, err)
	assert.Len(t, items, 2)

	v, ok := a.ExecuteScript(ctx, "return arguments[0] * 2", 21)
	require.True(t, ok)
	assert.EqualValues(t, 42, v)

	png, err := a.Screenshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}
