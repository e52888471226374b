package di

import (
	"context"
	"errors"
	"fmt"

	"pagedrill/internal/application/browser"
	"pagedrill/internal/application/port/output"
	"pagedrill/internal/application/service"
	"pagedrill/internal/infrastructure/config"
	"pagedrill/internal/infrastructure/driver"
	"pagedrill/internal/infrastructure/env"
	"pagedrill/internal/infrastructure/logger"
)

type Container struct {
	Settings config.Settings
	Logger   output.LoggerPort
	Factory  *driver.Factory
	Browser  *browser.Browser
	Pages    *service.PageRegistry
}

type Config struct {
	// SettingsFile defaults to config.DefaultFile.
	SettingsFile string
	// Engine overrides webDriver.browserDriver.
	Engine string
	// LogName names the log file; empty means "pagedrill".
	LogName string
	// Logger replaces the file logger, mostly for tests.
	Logger output.LoggerPort
	Pages  *service.PageRegistry
	// Env supplies overrides; nil loads .env files through godotenv.
	Env output.ConfigPort
}

func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	envSvc := cfg.Env
	if envSvc == nil {
		envSvc = env.NewEnvService()
	}

	settings, err := config.Load(cfg.SettingsFile, envSvc)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if cfg.Engine != "" {
		settings.WebDriver.BrowserDriver = cfg.Engine
	}

	log := cfg.Logger
	if log == nil {
		name := cfg.LogName
		if name == "" {
			name = "pagedrill"
		}
		fileLog, err := logger.NewLoggerAdapter(name, settings.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		log = fileLog
	}

	factory := driver.NewFactory(settings, log)
	drv, err := factory.Create(ctx, settings.WebDriver.BrowserDriver)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create browser driver: %w", err)
	}

	b, err := browser.New(drv, BrowserConfig(settings), log)
	if err != nil {
		_ = drv.Quit()
		log.Close()
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}

	pages := cfg.Pages
	if pages == nil {
		pages = service.NewPageRegistry()
	}

	return &Container{
		Settings: settings,
		Logger:   log,
		Factory:  factory,
		Browser:  b,
		Pages:    pages,
	}, nil
}

// BrowserConfig maps file settings onto the browser facade.
func BrowserConfig(s config.Settings) browser.Config {
	return browser.Config{
		MaxWait:            s.MaxWaitDuration(),
		PollInterval:       s.PollIntervalDuration(),
		Renavigate:         s.RenavigateOnRetry(),
		Homepages:          s.Homepages,
		BaseDir:            s.BaseDir,
		ScreenshotDir:      s.Screenshots.Dir,
		ScreenshotMaxWidth: s.Screenshots.MaxWidth,
	}
}

func (c *Container) Close() error {
	var errs []error
	if c.Browser != nil {
		errs = append(errs, c.Browser.Exit())
	}
	if c.Logger != nil {
		errs = append(errs, c.Logger.Close())
	}
	return errors.Join(errs...)
}
