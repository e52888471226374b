package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagedrill/internal/domain/entity"
	"pagedrill/internal/infrastructure/config"
	"pagedrill/internal/infrastructure/driver/htmlunit"
)

func TestFactory_Engines(t *testing.T) {
	f := NewFactory(config.Default(), nil)

	assert.Equal(t, []string{
		"chrome", "edge", "firefox", "htmlunit", "ie", "opera",
		"playwright-chromium", "playwright-firefox", "playwright-webkit",
		"rod", "safari",
	}, f.Engines())
}

func TestFactory_CreateHTMLUnit(t *testing.T) {
	f := NewFactory(config.Default(), nil)

	drv, err := f.Create(context.Background(), " HtmlUnit ")
	require.NoError(t, err)
	defer drv.Quit()

	assert.IsType(t, &htmlunit.Driver{}, drv)
}

func TestFactory_CreateConfiguredEngine(t *testing.T) {
	settings := config.Default()
	settings.WebDriver.BrowserDriver = "htmlunit"
	f := NewFactory(settings, nil)

	drv, err := f.Create(context.Background(), "")
	require.NoError(t, err)
	defer drv.Quit()

	assert.IsType(t, &htmlunit.Driver{}, drv)
}

func TestFactory_Unsupported(t *testing.T) {
	remote := config.Default()
	remote.WebDriver.IsRemote = true
	remote.WebDriver.SeleniumServerURI = "http://localhost:4444/wd/hub"

	tests := []struct {
		name     string
		settings config.Settings
		engine   string
	}{
		{"Unknown engine", config.Default(), "netscape"},
		{"Playwright without browser", config.Default(), "playwright-"},
		{"Safari has no local service", config.Default(), "safari"},
		{"Internet Explorer has no local service", config.Default(), "ie"},
		{"Remote htmlunit", remote, "htmlunit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFactory(tt.settings, nil).Create(context.Background(), tt.engine)
			assert.ErrorIs(t, err, entity.ErrUnsupportedEngine)
		})
	}
}

func TestIsFile(t *testing.T) {
	assert.False(t, isFile(""))
	assert.False(t, isFile(t.TempDir()))
	assert.True(t, isFile("factory.go"))
}
