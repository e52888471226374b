package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"pagedrill/internal/application/port/output"
	"pagedrill/internal/domain/entity"
)

const (
	DefaultFile         = "pagedrill.yaml"
	DefaultMaxWait      = 60 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

type Settings struct {
	WebDriver   WebDriver         `yaml:"webDriver"`
	MaxWait     int               `yaml:"maxWait"` // milliseconds, 0 means DefaultMaxWait
	Wait        WaitSettings      `yaml:"wait"`
	Screenshots Screenshots       `yaml:"screenshots"`
	Log         LogSettings       `yaml:"log"`
	Homepages   []entity.HomePage `yaml:"homepages"`
	// BaseDir anchors file system home pages. Empty means the directory of
	// the running executable.
	BaseDir string `yaml:"baseDir"`
}

type WebDriver struct {
	BrowserDriver      string `yaml:"browserDriver"`
	BrowserDriversPath string `yaml:"browserDriversPath"`
	IsRemote           bool   `yaml:"isRemote"`
	SeleniumServerURI  string `yaml:"seleniumServerUri"`
	Headless           bool   `yaml:"headless"`
	WindowWidth        int    `yaml:"windowWidth"`
	WindowHeight       int    `yaml:"windowHeight"`
}

type WaitSettings struct {
	PollInterval int `yaml:"pollInterval"` // milliseconds
	// Renavigate repeats the navigation on every failed load check instead of
	// only polling the page.
	Renavigate *bool `yaml:"renavigate"`
}

type Screenshots struct {
	Dir      string `yaml:"dir"`
	MaxWidth int    `yaml:"maxWidth"`
}

type LogSettings struct {
	Level string `yaml:"level"`
}

func Default() Settings {
	renavigate := true
	return Settings{
		WebDriver: WebDriver{
			BrowserDriver: "chrome",
			Headless:      true,
			WindowWidth:   1920,
			WindowHeight:  1080,
		},
		Wait:        WaitSettings{PollInterval: int(DefaultPollInterval / time.Millisecond), Renavigate: &renavigate},
		Screenshots: Screenshots{Dir: "screenshots", MaxWidth: 1920},
		Log:         LogSettings{Level: "info"},
	}
}

// Load reads a yaml settings file over Default. A missing file yields the
// defaults; env may be nil.
func Load(path string, env output.ConfigPort) (Settings, error) {
	s := Default()
	if path == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("%w: parse %s: %v", entity.ErrInvalidSettings, path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	if env != nil {
		s.ApplyEnv(env)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ApplyEnv overrides file values with PAGEDRILL_* variables.
func (s *Settings) ApplyEnv(env output.ConfigPort) {
	w := &s.WebDriver
	w.BrowserDriver = env.GetWithDefault("PAGEDRILL_BROWSER", w.BrowserDriver)
	w.BrowserDriversPath = env.GetWithDefault("PAGEDRILL_DRIVERS_PATH", w.BrowserDriversPath)
	w.IsRemote = env.GetBool("PAGEDRILL_REMOTE", w.IsRemote)
	w.SeleniumServerURI = env.GetWithDefault("PAGEDRILL_SELENIUM_URI", w.SeleniumServerURI)
	w.Headless = env.GetBool("PAGEDRILL_HEADLESS", w.Headless)
	s.MaxWait = env.GetInt("PAGEDRILL_MAX_WAIT", s.MaxWait)
	s.Log.Level = env.GetWithDefault("PAGEDRILL_LOG_LEVEL", s.Log.Level)
	s.BaseDir = env.GetWithDefault("PAGEDRILL_BASE_DIR", s.BaseDir)
}

func (s Settings) Validate() error {
	if s.WebDriver.BrowserDriver == "" {
		return fmt.Errorf("%w: webDriver.browserDriver is required", entity.ErrInvalidSettings)
	}
	if s.WebDriver.IsRemote && s.WebDriver.SeleniumServerURI == "" {
		return fmt.Errorf("%w: remote mode needs webDriver.seleniumServerUri", entity.ErrInvalidSettings)
	}
	if s.MaxWait < 0 || s.Wait.PollInterval < 0 {
		return fmt.Errorf("%w: negative durations", entity.ErrInvalidSettings)
	}
	seen := make(map[string]bool, len(s.Homepages))
	for _, hp := range s.Homepages {
		if hp.PageType == "" || hp.URL == "" {
			return fmt.Errorf("%w: homepage entries need pageObjectType and url", entity.ErrInvalidSettings)
		}
		if seen[hp.PageType] {
			return fmt.Errorf("%w: duplicate homepage %q", entity.ErrInvalidSettings, hp.PageType)
		}
		seen[hp.PageType] = true
	}
	return nil
}

func (s Settings) MaxWaitDuration() time.Duration {
	if s.MaxWait <= 0 {
		return DefaultMaxWait
	}
	return time.Duration(s.MaxWait) * time.Millisecond
}

func (s Settings) PollIntervalDuration() time.Duration {
	if s.Wait.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(s.Wait.PollInterval) * time.Millisecond
}

func (s Settings) RenavigateOnRetry() bool {
	return s.Wait.Renavigate == nil || *s.Wait.Renavigate
}
