package playwright

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"pagedrill/internal/application/port/output"
	"pagedrill/internal/domain/entity"
	"pagedrill/internal/infrastructure/driver/locate"
	"pagedrill/internal/infrastructure/logger"
)

var _ output.BrowserDriver = (*Adapter)(nil)

const (
	Chromium = "chromium"
	Firefox  = "firefox"
	WebKit   = "webkit"
)

var (
	ErrClosed         = errors.New("playwright session is closed")
	ErrForeignElement = errors.New("element handle does not belong to playwright")
)

type Config struct {
	// Browser is one of Chromium, Firefox or WebKit.
	Browser string
	// Endpoint connects to a running playwright server instead of launching.
	Endpoint       string
	ExecutablePath string
	Headless       bool
	// Install downloads the driver and browsers before the first run.
	Install      bool
	WindowWidth  int
	WindowHeight int
}

type Adapter struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	log     output.LoggerPort
	poll    time.Duration
	width   int
	height  int

	mu           sync.Mutex
	implicitWait time.Duration
	closed       bool
}

func NewAdapter(cfg Config, log output.LoggerPort) (*Adapter, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		cfg.WindowWidth, cfg.WindowHeight = 1920, 1080
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if cfg.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, entity.NewDriverError("install playwright", err)
		}
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, entity.NewDriverError("start playwright", err)
	}

	bt, err := browserType(pw, cfg.Browser)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}

	var browser playwright.Browser
	if cfg.Endpoint != "" {
		browser, err = bt.Connect(cfg.Endpoint)
	} else {
		opts := playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(cfg.Headless)}
		if cfg.ExecutablePath != "" {
			opts.ExecutablePath = playwright.String(cfg.ExecutablePath)
		}
		browser, err = bt.Launch(opts)
	}
	if err != nil {
		_ = pw.Stop()
		return nil, entity.NewDriverError("launch "+cfg.Browser, err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: cfg.WindowWidth, Height: cfg.WindowHeight},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, entity.NewDriverError("new context", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, entity.NewDriverError("new page", err)
	}

	return &Adapter{
		pw:      pw,
		browser: browser,
		context: bctx,
		page:    page,
		log:     log,
		poll:    locate.DefaultPollInterval,
		width:   cfg.WindowWidth,
		height:  cfg.WindowHeight,
	}, nil
}

func browserType(pw *playwright.Playwright, name string) (playwright.BrowserType, error) {
	switch strings.ToLower(name) {
	case "", Chromium:
		return pw.Chromium, nil
	case Firefox:
		return pw.Firefox, nil
	case WebKit:
		return pw.WebKit, nil
	}
	return nil, fmt.Errorf("%w: playwright-%s", entity.ErrUnsupportedEngine, name)
}

// Selector renders a locator in playwright's engine=body syntax.
func Selector(l entity.Locator) string {
	if css, ok := locate.CSS(l); ok {
		return "css=" + css
	}
	xpath, _ := locate.XPath(l)
	return "xpath=" + xpath
}

func (a *Adapter) Navigate(ctx context.Context, url string) error {
	p, err := a.current(ctx)
	if err != nil {
		return entity.NewDriverError("navigate", err)
	}
	_, err = p.Goto(url, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateLoad})
	return entity.NewDriverError("navigate", err)
}

func (a *Adapter) Refresh(ctx context.Context) error {
	p, err := a.current(ctx)
	if err != nil {
		return entity.NewDriverError("refresh", err)
	}
	_, err = p.Reload()
	return entity.NewDriverError("refresh", err)
}

// Maximize grows the viewport to the configured window size; playwright
// pages have no window of their own.
func (a *Adapter) Maximize(ctx context.Context) error {
	p, err := a.current(ctx)
	if err != nil {
		return entity.NewDriverError("maximize", err)
	}
	return entity.NewDriverError("maximize", p.SetViewportSize(a.width, a.height))
}

func (a *Adapter) Title(ctx context.Context) (string, error) {
	p, err := a.current(ctx)
	if err != nil {
		return "", entity.NewDriverError("title", err)
	}
	title, err := p.Title()
	return title, entity.NewDriverError("title", err)
}

func (a *Adapter) SetTitle(ctx context.Context, title string) error {
	p, err := a.current(ctx)
	if err != nil {
		return entity.NewDriverError("set title", err)
	}
	_, err = p.Evaluate(`t => { document.title = t }`, title)
	return entity.NewDriverError("set title", err)
}

func (a *Adapter) CurrentURL(ctx context.Context) (string, error) {
	p, err := a.current(ctx)
	if err != nil {
		return "", entity.NewDriverError("current url", err)
	}
	return p.URL(), nil
}

func (a *Adapter) Screenshot(ctx context.Context) ([]byte, error) {
	p, err := a.current(ctx)
	if err != nil {
		return nil, entity.NewDriverError("screenshot", err)
	}
	data, err := p.Screenshot(playwright.PageScreenshotOptions{
		Type:     playwright.ScreenshotTypePng,
		FullPage: playwright.Bool(false),
	})
	return data, entity.NewDriverError("screenshot", err)
}

func (a *Adapter) SetImplicitWait(d time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.implicitWait = d
	return nil
}

func (a *Adapter) ImplicitWait() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.implicitWait
}

func (a *Adapter) FindElements(ctx context.Context, parent entity.NativeElement, locator entity.Locator) ([]entity.NativeElement, error) {
	p, err := a.current(ctx)
	if err != nil {
		return nil, entity.NewDriverError("find", err)
	}
	var scope playwright.ElementHandle
	if parent != nil {
		if scope, err = handle("find", parent); err != nil {
			return nil, err
		}
	}

	selector := Selector(locator)
	found, err := locate.Poll(ctx, a.ImplicitWait(), a.poll, func(context.Context) ([]playwright.ElementHandle, error) {
		if scope != nil {
			return scope.QuerySelectorAll(selector)
		}
		return p.QuerySelectorAll(selector)
	})
	if err != nil {
		return nil, entity.NewDriverError("find "+locator.String(), err)
	}
	result := make([]entity.NativeElement, 0, len(found))
	for _, el := range found {
		result = append(result, el)
	}
	return result, nil
}

func (a *Adapter) FindElement(ctx context.Context, parent entity.NativeElement, locator entity.Locator) (entity.NativeElement, error) {
	found, err := a.FindElements(ctx, parent, locator)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// ExecuteScript runs a WebDriver style body; arguments are exposed as
// arguments[i].
func (a *Adapter) ExecuteScript(ctx context.Context, script string, args ...any) (any, bool) {
	p, err := a.current(ctx)
	if err != nil {
		a.log.Error("script execution failed", "error", err)
		return nil, false
	}
	if args == nil {
		args = []any{}
	}
	v, err := p.Evaluate("args => (function() {\n"+script+"\n}).apply(null, args)", args)
	if err != nil {
		a.log.Error("script execution failed", "error", err)
		return nil, false
	}
	return v, true
}

func (a *Adapter) Click(ctx context.Context, el entity.NativeElement) error {
	h, err := a.live(ctx, "click", el)
	if err != nil {
		return err
	}
	return entity.NewDriverError("click", h.Click())
}

func (a *Adapter) SendKeys(ctx context.Context, el entity.NativeElement, text string) error {
	h, err := a.live(ctx, "send keys", el)
	if err != nil {
		return err
	}
	if err := h.Focus(); err != nil {
		return entity.NewDriverError("send keys", err)
	}
	p, _ := a.current(ctx)
	return entity.NewDriverError("send keys", p.Keyboard().Type(text))
}

func (a *Adapter) Clear(ctx context.Context, el entity.NativeElement) error {
	h, err := a.live(ctx, "clear", el)
	if err != nil {
		return err
	}
	return entity.NewDriverError("clear", h.Fill(""))
}

func (a *Adapter) Text(ctx context.Context, el entity.NativeElement) (string, error) {
	h, err := a.live(ctx, "text", el)
	if err != nil {
		return "", err
	}
	text, err := h.InnerText()
	return strings.TrimSpace(text), entity.NewDriverError("text", err)
}

func (a *Adapter) Attribute(ctx context.Context, el entity.NativeElement, name string) (string, bool, error) {
	h, err := a.live(ctx, "attribute", el)
	if err != nil {
		return "", false, err
	}
	v, err := h.Evaluate(`(el, name) => name === 'value' ? el.value ?? el.getAttribute(name) : el.getAttribute(name)`, name)
	if err != nil {
		return "", false, entity.NewDriverError("attribute", err)
	}
	if v == nil {
		return "", false, nil
	}
	return fmt.Sprint(v), true, nil
}

func (a *Adapter) IsDisplayed(ctx context.Context, el entity.NativeElement) (bool, error) {
	h, err := a.live(ctx, "is displayed", el)
	if err != nil {
		return false, err
	}
	ok, err := h.IsVisible()
	return ok, entity.NewDriverError("is displayed", err)
}

func (a *Adapter) IsEnabled(ctx context.Context, el entity.NativeElement) (bool, error) {
	h, err := a.live(ctx, "is enabled", el)
	if err != nil {
		return false, err
	}
	ok, err := h.IsEnabled()
	return ok, entity.NewDriverError("is enabled", err)
}

func (a *Adapter) IsSelected(ctx context.Context, el entity.NativeElement) (bool, error) {
	h, err := a.live(ctx, "is selected", el)
	if err != nil {
		return false, err
	}
	v, err := h.Evaluate(`el => !!(el.checked || el.selected)`)
	if err != nil {
		return false, entity.NewDriverError("is selected", err)
	}
	ok, _ := v.(bool)
	return ok, nil
}

func (a *Adapter) Hover(ctx context.Context, el entity.NativeElement) error {
	h, err := a.live(ctx, "hover", el)
	if err != nil {
		return err
	}
	return entity.NewDriverError("hover", h.Hover())
}

func (a *Adapter) DragAndDrop(ctx context.Context, source, target entity.NativeElement) error {
	src, err := a.live(ctx, "drag and drop", source)
	if err != nil {
		return err
	}
	dst, err := handle("drag and drop", target)
	if err != nil {
		return err
	}
	p, _ := a.current(ctx)

	from, err := center(src)
	if err != nil {
		return entity.NewDriverError("drag and drop", err)
	}
	to, err := center(dst)
	if err != nil {
		return entity.NewDriverError("drag and drop", err)
	}

	mouse := p.Mouse()
	if err := mouse.Move(from[0], from[1]); err != nil {
		return entity.NewDriverError("drag and drop", err)
	}
	if err := mouse.Down(); err != nil {
		return entity.NewDriverError("drag and drop", err)
	}
	if err := mouse.Move(to[0], to[1], playwright.MouseMoveOptions{Steps: playwright.Int(10)}); err != nil {
		_ = mouse.Up()
		return entity.NewDriverError("drag and drop", err)
	}
	return entity.NewDriverError("drag and drop", mouse.Up())
}

func (a *Adapter) Quit() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	var errs []error
	if a.context != nil {
		errs = append(errs, a.context.Close())
	}
	if a.browser != nil {
		errs = append(errs, a.browser.Close())
	}
	if a.pw != nil {
		errs = append(errs, a.pw.Stop())
	}
	return entity.NewDriverError("quit", errors.Join(errs...))
}

func (a *Adapter) current(ctx context.Context) (playwright.Page, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.page == nil {
		return nil, ErrClosed
	}
	return a.page, nil
}

// live checks the session before an element call; playwright-go calls are
// not cancellable so the context is only consulted up front.
func (a *Adapter) live(ctx context.Context, op string, el entity.NativeElement) (playwright.ElementHandle, error) {
	if _, err := a.current(ctx); err != nil {
		return nil, entity.NewDriverError(op, err)
	}
	return handle(op, el)
}

func handle(op string, el entity.NativeElement) (playwright.ElementHandle, error) {
	h, ok := el.(playwright.ElementHandle)
	if !ok || h == nil {
		return nil, entity.NewDriverError(op, fmt.Errorf("%w: %T", ErrForeignElement, el))
	}
	return h, nil
}

func center(h playwright.ElementHandle) ([2]float64, error) {
	box, err := h.BoundingBox()
	if err != nil {
		return [2]float64{}, err
	}
	if box == nil {
		return [2]float64{}, errors.New("element is not rendered")
	}
	return [2]float64{box.X + box.Width/2, box.Y + box.Height/2}, nil
}
