package demo

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagedrill/internal/application/browser"
	"pagedrill/internal/application/service"
	"pagedrill/internal/di"
	"pagedrill/internal/infrastructure/logger"
)

type noEnv struct{}

func (noEnv) Get(string) string                          { return "" }
func (noEnv) GetWithDefault(_ string, def string) string { return def }
func (noEnv) GetBool(_ string, def bool) bool            { return def }
func (noEnv) GetInt(_ string, def int) int               { return def }

func newContainer(t *testing.T) *di.Container {
	t.Helper()
	pages := service.NewPageRegistry()
	Register(pages)

	c, err := di.NewContainer(context.Background(), di.Config{
		SettingsFile: "testdata/pagedrill.yaml",
		Logger:       logger.NewNop(),
		Pages:        pages,
		Env:          noEnv{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLoginFlow(t *testing.T) {
	c := newContainer(t)
	ctx := context.Background()
	assert.Equal(t, 5*time.Second, c.Browser.Config().MaxWait)

	login, err := browser.Open(ctx, c.Browser, HomeKind())
	require.NoError(t, err)

	opened, err := c.Browser.CurrentURL(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(opened, "file:///"), opened)
	assert.True(t, strings.HasSuffix(opened, "/testdata/login.html"), opened)

	require.NoError(t, login.Menu.ChkRemember.Click(ctx))
	remembered, err := login.Menu.ChkRemember.IsSelected(ctx)
	require.NoError(t, err)
	assert.True(t, remembered)

	dashboard, err := login.Login(ctx, "tomsmith", "SuperSecretPassword!")
	require.NoError(t, err)

	greeting, err := dashboard.Greeting.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Welcome back", greeting)

	current, err := c.Browser.CurrentURL(ctx)
	require.NoError(t, err)
	u, err := url.Parse(current)
	require.NoError(t, err)
	assert.Equal(t, "tomsmith", u.Query().Get("userName"))
	assert.Equal(t, "on", u.Query().Get("remember"))

	names, err := dashboard.WidgetNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Orders", "Invoices", "Reports"}, names)

	back, err := dashboard.Logout.Navigate(ctx)
	require.NoError(t, err)
	assert.True(t, back.IsLoaded(ctx))
}

func TestOpenByName(t *testing.T) {
	c := newContainer(t)
	ctx := context.Background()

	page, err := c.Pages.Open(ctx, c.Browser, "DashboardPage")
	require.NoError(t, err)
	require.IsType(t, &DashboardPage{}, page)

	n, err := page.(*DashboardPage).Widgets.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, []string{"DashboardPage", "HomePage"}, c.Pages.Names())
}

func TestHomePage_HiddenFlash(t *testing.T) {
	c := newContainer(t)
	ctx := context.Background()

	login, err := browser.Open(ctx, c.Browser, HomeKind())
	require.NoError(t, err)

	flash, err := c.Browser.PeekElement(ctx, login.Flash)
	require.NoError(t, err)
	require.NotNil(t, flash, "flash is in the document even when hidden")

	visible, err := flash.IsDisplayed(ctx)
	require.NoError(t, err)
	assert.False(t, visible)

	missing, err := c.Browser.PeekElement(ctx, login.Menu.Child(login.Flash.Locator()))
	require.NoError(t, err)
	assert.Nil(t, missing, "flash is not inside the menu")
}
