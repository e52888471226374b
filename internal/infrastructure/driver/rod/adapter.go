package rod

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"pagedrill/internal/application/port/output"
	"pagedrill/internal/domain/entity"
	"pagedrill/internal/infrastructure/driver/locate"
	"pagedrill/internal/infrastructure/logger"
)

var _ output.BrowserDriver = (*BrowserAdapter)(nil)

var (
	ErrInvalidURL     = errors.New("invalid url")
	ErrClosed         = errors.New("browser is closed")
	ErrForeignElement = errors.New("element handle does not belong to rod")
)

const (
	defaultSlowMotion = 0
	defaultPoll       = locate.DefaultPollInterval
)

type BrowserAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	log      output.LoggerPort
	poll     time.Duration

	mu           sync.Mutex
	implicitWait time.Duration
	closed       bool
}

type BrowserConfig struct {
	Headless   bool
	SlowMotion time.Duration
	NoSandbox  bool
	DevTools   bool
	// Bin is the browser executable; empty lets the launcher find or
	// download one.
	Bin string
	// ControlURL attaches to a running browser instead of launching one.
	ControlURL   string
	WindowWidth  int
	WindowHeight int
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:     true,
		SlowMotion:   defaultSlowMotion,
		NoSandbox:    false,
		DevTools:     false,
		WindowWidth:  1920,
		WindowHeight: 1080,
	}
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig, log output.LoggerPort) (*BrowserAdapter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = logger.NewNop()
	}

	var l *launcher.Launcher
	controlURL := cfg.ControlURL
	if controlURL == "" {
		l = launcher.New().
			Context(ctx).
			Headless(cfg.Headless).
			Devtools(cfg.DevTools).
			NoSandbox(cfg.NoSandbox).
			Delete("use-mock-keychain")
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
			l = l.Set("window-size", fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
		}

		u, err := l.Launch()
		if err != nil {
			return nil, entity.NewDriverError("launch browser", err)
		}
		controlURL = u
	}

	browser := rod.New().
		ControlURL(controlURL).
		SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, entity.NewDriverError("connect", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		if l != nil {
			l.Kill()
		}
		return nil, entity.NewDriverError("open page", err)
	}

	return &BrowserAdapter{
		browser:  browser,
		launcher: l,
		page:     page,
		log:      log,
		poll:     defaultPoll,
	}, nil
}

func (b *BrowserAdapter) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && b.page != nil
}

func (b *BrowserAdapter) Navigate(ctx context.Context, raw string) error {
	if err := validateURL(raw); err != nil {
		return entity.NewDriverError("navigate", err)
	}
	p, err := b.currentPage(ctx)
	if err != nil {
		return entity.NewDriverError("navigate", err)
	}
	if err := p.Navigate(raw); err != nil {
		return entity.NewDriverError("navigate", err)
	}
	return entity.NewDriverError("wait load", p.WaitLoad())
}

func (b *BrowserAdapter) Refresh(ctx context.Context) error {
	p, err := b.currentPage(ctx)
	if err != nil {
		return entity.NewDriverError("refresh", err)
	}
	if err := p.Reload(); err != nil {
		return entity.NewDriverError("refresh", err)
	}
	return entity.NewDriverError("wait load", p.WaitLoad())
}

func (b *BrowserAdapter) Maximize(ctx context.Context) error {
	p, err := b.currentPage(ctx)
	if err != nil {
		return entity.NewDriverError("maximize", err)
	}
	return entity.NewDriverError("maximize", p.SetWindow(&proto.BrowserBounds{
		WindowState: proto.BrowserWindowStateMaximized,
	}))
}

func (b *BrowserAdapter) Title(ctx context.Context) (string, error) {
	info, err := b.info(ctx)
	if err != nil {
		return "", entity.NewDriverError("title", err)
	}
	return info.Title, nil
}

func (b *BrowserAdapter) SetTitle(ctx context.Context, title string) error {
	p, err := b.currentPage(ctx)
	if err != nil {
		return entity.NewDriverError("set title", err)
	}
	_, err = p.Eval(`t => { document.title = t }`, title)
	return entity.NewDriverError("set title", err)
}

func (b *BrowserAdapter) CurrentURL(ctx context.Context) (string, error) {
	info, err := b.info(ctx)
	if err != nil {
		return "", entity.NewDriverError("current url", err)
	}
	return info.URL, nil
}

func (b *BrowserAdapter) Screenshot(ctx context.Context) ([]byte, error) {
	p, err := b.currentPage(ctx)
	if err != nil {
		return nil, entity.NewDriverError("screenshot", err)
	}
	data, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(90),
	})
	return data, entity.NewDriverError("screenshot", err)
}

func (b *BrowserAdapter) SetImplicitWait(d time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.implicitWait = d
	return nil
}

func (b *BrowserAdapter) ImplicitWait() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.implicitWait
}

// FindElements polls for the implicit wait: CDP has no such setting.
func (b *BrowserAdapter) FindElements(ctx context.Context, parent entity.NativeElement, locator entity.Locator) ([]entity.NativeElement, error) {
	p, err := b.currentPage(ctx)
	if err != nil {
		return nil, entity.NewDriverError("find", err)
	}

	var scope *rod.Element
	if parent != nil {
		scope, err = element("find", parent)
		if err != nil {
			return nil, err
		}
		scope = scope.Context(ctx)
	}

	query := func(context.Context) ([]*rod.Element, error) {
		if css, ok := locate.CSS(locator); ok {
			if scope != nil {
				return scope.Elements(css)
			}
			return p.Elements(css)
		}
		xpath, _ := locate.XPath(locator)
		if scope != nil {
			return scope.ElementsX(xpath)
		}
		return p.ElementsX(xpath)
	}

	found, err := locate.Poll(ctx, b.ImplicitWait(), b.poll, query)
	if err != nil {
		return nil, entity.NewDriverError("find "+locator.String(), err)
	}
	result := make([]entity.NativeElement, 0, len(found))
	for _, el := range found {
		result = append(result, el)
	}
	return result, nil
}

func (b *BrowserAdapter) FindElement(ctx context.Context, parent entity.NativeElement, locator entity.Locator) (entity.NativeElement, error) {
	found, err := b.FindElements(ctx, parent, locator)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// ExecuteScript runs a WebDriver style body ("return ...", arguments[i]).
func (b *BrowserAdapter) ExecuteScript(ctx context.Context, script string, args ...any) (any, bool) {
	p, err := b.currentPage(ctx)
	if err != nil {
		b.log.Error("script execution failed", "error", err)
		return nil, false
	}
	res, err := p.Eval("function() {\n"+script+"\n}", args...)
	if err != nil {
		b.log.Error("script execution failed", "error", err)
		return nil, false
	}
	return res.Value.Val(), true
}

func (b *BrowserAdapter) Click(ctx context.Context, el entity.NativeElement) error {
	e, err := element("click", el)
	if err != nil {
		return err
	}
	return entity.NewDriverError("click", e.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}

func (b *BrowserAdapter) SendKeys(ctx context.Context, el entity.NativeElement, text string) error {
	e, err := element("send keys", el)
	if err != nil {
		return err
	}
	return entity.NewDriverError("send keys", e.Context(ctx).Input(text))
}

func (b *BrowserAdapter) Clear(ctx context.Context, el entity.NativeElement) error {
	e, err := element("clear", el)
	if err != nil {
		return err
	}
	e = e.Context(ctx)
	if err := e.SelectAllText(); err != nil {
		return entity.NewDriverError("clear", err)
	}
	return entity.NewDriverError("clear", e.Input(""))
}

func (b *BrowserAdapter) Text(ctx context.Context, el entity.NativeElement) (string, error) {
	e, err := element("text", el)
	if err != nil {
		return "", err
	}
	text, err := e.Context(ctx).Text()
	return strings.TrimSpace(text), entity.NewDriverError("text", err)
}

func (b *BrowserAdapter) Attribute(ctx context.Context, el entity.NativeElement, name string) (string, bool, error) {
	e, err := element("attribute", el)
	if err != nil {
		return "", false, err
	}
	if name == "value" {
		v, err := e.Context(ctx).Property("value")
		if err != nil {
			return "", false, entity.NewDriverError("attribute", err)
		}
		return v.String(), !v.Nil(), nil
	}
	v, err := e.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, entity.NewDriverError("attribute", err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (b *BrowserAdapter) IsDisplayed(ctx context.Context, el entity.NativeElement) (bool, error) {
	e, err := element("is displayed", el)
	if err != nil {
		return false, err
	}
	ok, err := e.Context(ctx).Visible()
	return ok, entity.NewDriverError("is displayed", err)
}

func (b *BrowserAdapter) IsEnabled(ctx context.Context, el entity.NativeElement) (bool, error) {
	e, err := element("is enabled", el)
	if err != nil {
		return false, err
	}
	disabled, err := e.Context(ctx).Property("disabled")
	if err != nil {
		return false, entity.NewDriverError("is enabled", err)
	}
	return !disabled.Bool(), nil
}

func (b *BrowserAdapter) IsSelected(ctx context.Context, el entity.NativeElement) (bool, error) {
	e, err := element("is selected", el)
	if err != nil {
		return false, err
	}
	e = e.Context(ctx)
	for _, prop := range []string{"checked", "selected"} {
		v, err := e.Property(prop)
		if err != nil {
			return false, entity.NewDriverError("is selected", err)
		}
		if v.Bool() {
			return true, nil
		}
	}
	return false, nil
}

func (b *BrowserAdapter) Hover(ctx context.Context, el entity.NativeElement) error {
	e, err := element("hover", el)
	if err != nil {
		return err
	}
	return entity.NewDriverError("hover", e.Context(ctx).Hover())
}

func (b *BrowserAdapter) DragAndDrop(ctx context.Context, source, target entity.NativeElement) error {
	src, err := element("drag and drop", source)
	if err != nil {
		return err
	}
	dst, err := element("drag and drop", target)
	if err != nil {
		return err
	}
	p, err := b.currentPage(ctx)
	if err != nil {
		return entity.NewDriverError("drag and drop", err)
	}

	if err := src.Context(ctx).Hover(); err != nil {
		return entity.NewDriverError("drag and drop", err)
	}
	if err := p.Mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return entity.NewDriverError("drag and drop", err)
	}
	if err := dst.Context(ctx).Hover(); err != nil {
		_ = p.Mouse.Up(proto.InputMouseButtonLeft, 1)
		return entity.NewDriverError("drag and drop", err)
	}
	return entity.NewDriverError("drag and drop", p.Mouse.Up(proto.InputMouseButtonLeft, 1))
}

func (b *BrowserAdapter) Quit() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
	return entity.NewDriverError("quit", err)
}

func (b *BrowserAdapter) currentPage(ctx context.Context) (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.page == nil {
		return nil, ErrClosed
	}
	if ctx == nil {
		return b.page, nil
	}
	return b.page.Context(ctx), nil
}

func (b *BrowserAdapter) info(ctx context.Context) (*proto.TargetTargetInfo, error) {
	p, err := b.currentPage(ctx)
	if err != nil {
		return nil, err
	}
	return p.Info()
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "http", "https", "file", "about", "data":
		return nil
	}
	return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
}

func element(op string, el entity.NativeElement) (*rod.Element, error) {
	e, ok := el.(*rod.Element)
	if !ok || e == nil {
		return nil, entity.NewDriverError(op, fmt.Errorf("%w: %T", ErrForeignElement, el))
	}
	return e, nil
}
