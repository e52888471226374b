// Package browser is the page-object facade over a BrowserDriver: lazy element
// handles, implicit-wait scopes and retrying page navigation.
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"pagedrill/internal/application/port/output"
	"pagedrill/internal/domain/entity"
	"pagedrill/internal/infrastructure/logger"
)

const (
	DefaultMaxWait      = 60 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
	DefaultPeekTimeout  = time.Second
)

type Config struct {
	MaxWait      time.Duration
	PollInterval time.Duration
	PeekTimeout  time.Duration
	// Renavigate repeats the navigation on every failed load check of Open.
	Renavigate bool
	Homepages  []entity.HomePage
	// BaseDir anchors file system home pages; empty means the executable's
	// directory.
	BaseDir            string
	ScreenshotDir      string
	ScreenshotMaxWidth int
}

type Browser struct {
	id      string
	drv     output.BrowserDriver
	cfg     Config
	log     output.LoggerPort
	history *timeoutHistory
}

// New takes ownership of drv and sets its implicit wait to cfg.MaxWait.
func New(drv output.BrowserDriver, cfg Config, log output.LoggerPort) (*Browser, error) {
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PeekTimeout <= 0 {
		cfg.PeekTimeout = DefaultPeekTimeout
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "screenshots"
	}
	if log == nil {
		log = logger.NewNop()
	}

	id := uuid.NewString()
	history, err := newTimeoutHistory(drv, cfg.MaxWait)
	if err != nil {
		return nil, fmt.Errorf("set initial implicit wait: %w", err)
	}

	return &Browser{
		id:      id,
		drv:     drv,
		cfg:     cfg,
		log:     log.WithField("session", id),
		history: history,
	}, nil
}

func (b *Browser) ID() string { return b.id }

func (b *Browser) Config() Config { return b.cfg }

func (b *Browser) Driver() output.BrowserDriver { return b.drv }

func (b *Browser) GoToURL(ctx context.Context, url string) error {
	b.log.Debug("navigate", "url", url)
	return b.drv.Navigate(ctx, url)
}

func (b *Browser) PageTitle(ctx context.Context) (string, error) {
	return b.drv.Title(ctx)
}

func (b *Browser) SetPageTitle(ctx context.Context, title string) error {
	return b.drv.SetTitle(ctx, title)
}

func (b *Browser) CurrentURL(ctx context.Context) (string, error) {
	return b.drv.CurrentURL(ctx)
}

// ExecuteJavascript is best effort: false means the engine could not run it.
func (b *Browser) ExecuteJavascript(ctx context.Context, js string, args ...any) (any, bool) {
	return b.drv.ExecuteScript(ctx, js, args...)
}

func (b *Browser) HoverOver(ctx context.Context, el *Element) error {
	native, err := el.Native(ctx)
	if err != nil {
		return err
	}
	return b.drv.Hover(ctx, native)
}

func (b *Browser) DragAndDropElement(ctx context.Context, from, to *Element) error {
	src, err := from.Native(ctx)
	if err != nil {
		return err
	}
	dst, err := to.Native(ctx)
	if err != nil {
		return err
	}
	return b.drv.DragAndDrop(ctx, src, dst)
}

func (b *Browser) RefreshPage(ctx context.Context) error {
	return b.drv.Refresh(ctx)
}

func (b *Browser) MaximizePage(ctx context.Context) error {
	return b.drv.Maximize(ctx)
}

func (b *Browser) Exit() error {
	b.log.Info("browser exit")
	return b.drv.Quit()
}

// FindElement returns a lazy handle; nothing is looked up yet.
func (b *Browser) FindElement(locator entity.Locator) *Element {
	return NewElement(b, nil, locator)
}

// FindElements returns one indexed handle per current match.
func (b *Browser) FindElements(ctx context.Context, locator entity.Locator) ([]*Element, error) {
	locator = locator.WithoutIndex()
	natives, err := b.drv.FindElements(ctx, nil, locator)
	if err != nil {
		return nil, err
	}

	result := make([]*Element, 0, len(natives))
	for i := range natives {
		indexed, err := locator.At(i)
		if err != nil {
			return nil, err
		}
		result = append(result, NewElement(b, nil, indexed))
	}
	return result, nil
}

// FindNativeElement resolves locator below parent (nil for the document). An
// absent element is a zero SearchResult, not an error; an ordinal beyond the
// available matches is ErrIndexOutOfRange.
func (b *Browser) FindNativeElement(ctx context.Context, parent *Element, locator entity.Locator) (entity.SearchResult, error) {
	if locator.IsZero() {
		return entity.SearchResult{}, fmt.Errorf("%w: empty locator", entity.ErrInvalidLocator)
	}

	var scope entity.NativeElement
	if parent != nil {
		res, err := parent.Resolve(ctx)
		if err != nil {
			return entity.SearchResult{}, err
		}
		if !res.Found() {
			return entity.SearchResult{}, nil
		}
		scope = res.Element
	}

	natives, err := b.drv.FindElements(ctx, scope, locator.WithoutIndex())
	if err != nil {
		return entity.SearchResult{}, err
	}

	idx, indexed := locator.Index()
	if !indexed {
		if len(natives) == 0 {
			return entity.SearchResult{}, nil
		}
		return entity.SearchResult{Element: natives[0], Total: len(natives)}, nil
	}
	if idx >= len(natives) {
		return entity.SearchResult{Total: len(natives)}, fmt.Errorf("%w: %s wants match %d but only %d found",
			entity.ErrIndexOutOfRange, locator, idx, len(natives))
	}
	return entity.SearchResult{Element: natives[idx], Total: len(natives)}, nil
}

// PeekElement checks for el under the short peek timeout. It returns nil
// without error when the element is absent.
func (b *Browser) PeekElement(ctx context.Context, el *Element) (*Element, error) {
	var found *Element
	err := b.WithImplicitTimeout(ctx, b.cfg.PeekTimeout, "peek "+el.String(), func(ctx context.Context) error {
		candidate := NewElement(b, el.Parent(), el.Locator())
		res, err := candidate.Resolve(ctx)
		if err != nil {
			if isAbsence(err) {
				return nil
			}
			return err
		}
		if res.Found() {
			found = candidate
		}
		return nil
	})
	if errors.Is(err, entity.ErrScopeOrder) {
		// A manual scope of another goroutine interleaved; the lookup itself
		// succeeded and the history is still consistent.
		b.log.Warn("peek scope closed out of order", "element", el.String(), "error", err)
		err = nil
	}
	return found, err
}

// TakeScreenshot stores the current viewport as PNG and returns its path.
func (b *Browser) TakeScreenshot(ctx context.Context, name string) (string, error) {
	data, err := b.drv.Screenshot(ctx)
	if err != nil {
		return "", err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	if limit := b.cfg.ScreenshotMaxWidth; limit > 0 && img.Bounds().Dx() > limit {
		img = imaging.Resize(img, limit, 0, imaging.Lanczos)
	}

	if err := os.MkdirAll(b.cfg.ScreenshotDir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	path := filepath.Join(b.cfg.ScreenshotDir, fmt.Sprintf("%s_%s.png", time.Now().Format("20060102_150405.000"), fileSafe(name)))
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("save screenshot: %w", err)
	}
	b.log.Info("screenshot saved", "path", path)
	return path, nil
}

// HomeURL resolves the configured home page of a page object identity.
func (b *Browser) HomeURL(pageType string) (string, error) {
	for _, hp := range b.cfg.Homepages {
		if hp.PageType != pageType {
			continue
		}
		if !hp.FileSystemPath {
			return hp.URL, nil
		}
		base := b.cfg.BaseDir
		if base == "" {
			exe, err := os.Executable()
			if err != nil {
				return "", fmt.Errorf("locate executable: %w", err)
			}
			base = filepath.Dir(exe)
		}
		abs, err := filepath.Abs(base)
		if err != nil {
			return "", fmt.Errorf("resolve base dir: %w", err)
		}
		return fileURL(abs, hp.URL), nil
	}
	return "", fmt.Errorf("%w: %s has no entry in homepages", entity.ErrPageNotRegistered, pageType)
}

func fileURL(base, rel string) string {
	p := filepath.ToSlash(filepath.Join(base, filepath.FromSlash(rel)))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

func fileSafe(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "screenshot"
	}
	return s
}
