// Package driver turns a configured engine name into a BrowserDriver.
package driver

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"pagedrill/internal/application/port/output"
	"pagedrill/internal/domain/entity"
	"pagedrill/internal/infrastructure/config"
	"pagedrill/internal/infrastructure/driver/htmlunit"
	"pagedrill/internal/infrastructure/driver/playwright"
	"pagedrill/internal/infrastructure/driver/rod"
	"pagedrill/internal/infrastructure/driver/selenium"
	"pagedrill/internal/infrastructure/logger"
)

const (
	Rod      = "rod"
	HTMLUnit = "htmlunit"

	playwrightPrefix = "playwright-"
)

type builder func(ctx context.Context, wd config.WebDriver, engine string) (output.BrowserDriver, error)

type Factory struct {
	webDriver config.WebDriver
	log       output.LoggerPort
	builders  map[string]builder
}

func NewFactory(settings config.Settings, log output.LoggerPort) *Factory {
	if log == nil {
		log = logger.NewNop()
	}
	f := &Factory{webDriver: settings.WebDriver, log: log}
	f.builders = map[string]builder{
		selenium.Chrome:                        f.selenium,
		selenium.Firefox:                       f.selenium,
		selenium.Edge:                          f.selenium,
		selenium.Safari:                        f.selenium,
		selenium.IE:                            f.selenium,
		selenium.Opera:                         f.selenium,
		Rod:                                    f.rod,
		playwrightPrefix + playwright.Chromium: f.playwright,
		playwrightPrefix + playwright.Firefox:  f.playwright,
		playwrightPrefix + playwright.WebKit:   f.playwright,
		HTMLUnit:                               f.htmlunit,
	}
	return f
}

// Engines lists every name Create accepts.
func (f *Factory) Engines() []string {
	names := make([]string, 0, len(f.builders))
	for name := range f.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create starts the named engine, or the configured one when engine is empty.
// Local or remote mode comes from the settings.
func (f *Factory) Create(ctx context.Context, engine string) (output.BrowserDriver, error) {
	if engine == "" {
		engine = f.webDriver.BrowserDriver
	}
	engine = strings.ToLower(strings.TrimSpace(engine))

	build, ok := f.builders[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedEngine, engine)
	}

	log := f.log.WithFields(map[string]interface{}{"engine": engine, "remote": f.webDriver.IsRemote})
	log.Info("starting browser driver")

	drv, err := build(ctx, f.webDriver, engine)
	if err != nil {
		log.Error("browser driver failed to start", "error", err)
		return nil, err
	}
	return drv, nil
}

func (f *Factory) selenium(_ context.Context, wd config.WebDriver, engine string) (output.BrowserDriver, error) {
	cfg := selenium.Config{
		Browser:      engine,
		DriversPath:  wd.BrowserDriversPath,
		ServerURI:    wd.SeleniumServerURI,
		Headless:     wd.Headless,
		WindowWidth:  wd.WindowWidth,
		WindowHeight: wd.WindowHeight,
	}
	if wd.IsRemote {
		return selenium.NewRemote(cfg, f.log)
	}
	return selenium.NewLocal(cfg, f.log)
}

func (f *Factory) rod(ctx context.Context, wd config.WebDriver, _ string) (output.BrowserDriver, error) {
	cfg := rod.DefaultConfig()
	cfg.Headless = wd.Headless
	cfg.WindowWidth = wd.WindowWidth
	cfg.WindowHeight = wd.WindowHeight
	if wd.IsRemote {
		cfg.ControlURL = wd.SeleniumServerURI
	} else if isFile(wd.BrowserDriversPath) {
		cfg.Bin = wd.BrowserDriversPath
	}
	return rod.NewBrowserAdapter(ctx, cfg, f.log)
}

func (f *Factory) playwright(_ context.Context, wd config.WebDriver, engine string) (output.BrowserDriver, error) {
	cfg := playwright.Config{
		Browser:      strings.TrimPrefix(engine, playwrightPrefix),
		Headless:     wd.Headless,
		WindowWidth:  wd.WindowWidth,
		WindowHeight: wd.WindowHeight,
	}
	if wd.IsRemote {
		cfg.Endpoint = wd.SeleniumServerURI
	} else if isFile(wd.BrowserDriversPath) {
		cfg.ExecutablePath = wd.BrowserDriversPath
	}
	return playwright.NewAdapter(cfg, f.log)
}

func (f *Factory) htmlunit(_ context.Context, wd config.WebDriver, _ string) (output.BrowserDriver, error) {
	if wd.IsRemote {
		return nil, fmt.Errorf("%w: htmlunit runs in process only", entity.ErrUnsupportedEngine)
	}
	return htmlunit.New(htmlunit.WithLogger(f.log)), nil
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
