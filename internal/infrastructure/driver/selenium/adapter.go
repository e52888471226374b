package selenium

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	wd "github.com/tebeka/selenium"

	"pagedrill/internal/application/port/output"
	"pagedrill/internal/domain/entity"
	"pagedrill/internal/infrastructure/driver/locate"
	"pagedrill/internal/infrastructure/logger"
)

var _ output.BrowserDriver = (*Adapter)(nil)

var ErrForeignElement = errors.New("element handle does not belong to selenium")

// Adapter drives a browser through a WebDriver endpoint. It owns the local
// driver service, if any, and stops it on Quit.
type Adapter struct {
	wd      wd.WebDriver
	service *wd.Service
	log     output.LoggerPort

	mu           sync.Mutex
	implicitWait time.Duration
}

func NewAdapter(driver wd.WebDriver, service *wd.Service, log output.LoggerPort) *Adapter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Adapter{wd: driver, service: service, log: log}
}

func (a *Adapter) Navigate(_ context.Context, url string) error {
	return entity.NewDriverError("navigate", a.wd.Get(url))
}

func (a *Adapter) Refresh(context.Context) error {
	return entity.NewDriverError("refresh", a.wd.Refresh())
}

func (a *Adapter) Maximize(context.Context) error {
	return entity.NewDriverError("maximize", a.wd.MaximizeWindow(""))
}

func (a *Adapter) Title(context.Context) (string, error) {
	title, err := a.wd.Title()
	return title, entity.NewDriverError("title", err)
}

func (a *Adapter) SetTitle(_ context.Context, title string) error {
	_, err := a.wd.ExecuteScript("document.title = arguments[0];", []interface{}{title})
	return entity.NewDriverError("set title", err)
}

func (a *Adapter) CurrentURL(context.Context) (string, error) {
	u, err := a.wd.CurrentURL()
	return u, entity.NewDriverError("current url", err)
}

func (a *Adapter) Screenshot(context.Context) ([]byte, error) {
	data, err := a.wd.Screenshot()
	return data, entity.NewDriverError("screenshot", err)
}

func (a *Adapter) SetImplicitWait(d time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.wd.SetImplicitWaitTimeout(d); err != nil {
		return entity.NewDriverError("set implicit wait", err)
	}
	a.implicitWait = d
	return nil
}

func (a *Adapter) ImplicitWait() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.implicitWait
}

// FindElements relies on the endpoint's implicit wait.
func (a *Adapter) FindElements(_ context.Context, parent entity.NativeElement, locator entity.Locator) ([]entity.NativeElement, error) {
	by, value := By(locator)

	var found []wd.WebElement
	var err error
	if parent == nil {
		found, err = a.wd.FindElements(by, value)
	} else {
		p, perr := element("find", parent)
		if perr != nil {
			return nil, perr
		}
		found, err = p.FindElements(by, value)
	}
	if err != nil {
		if isNoSuchElement(err) {
			return nil, nil
		}
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

func (a *Adapter) ExecuteScript(_ context.Context, script string, args ...any) (any, bool) {
	if args == nil {
		args = []any{}
	}
	result, err := a.wd.ExecuteScript(script, args)
	if err != nil {
		a.log.Error("script execution failed", "error", err)
		return nil, false
	}
	return result, true
}

func (a *Adapter) Click(_ context.Context, el entity.NativeElement) error {
	e, err := element("click", el)
	if err != nil {
		return err
	}
	return entity.NewDriverError("click", e.Click())
}

func (a *Adapter) SendKeys(_ context.Context, el entity.NativeElement, text string) error {
	e, err := element("send keys", el)
	if err != nil {
		return err
	}
	return entity.NewDriverError("send keys", e.SendKeys(text))
}

func (a *Adapter) Clear(_ context.Context, el entity.NativeElement) error {
	e, err := element("clear", el)
	if err != nil {
		return err
	}
	return entity.NewDriverError("clear", e.Clear())
}

func (a *Adapter) Text(_ context.Context, el entity.NativeElement) (string, error) {
	e, err := element("text", el)
	if err != nil {
		return "", err
	}
	text, err := e.Text()
	return text, entity.NewDriverError("text", err)
}

func (a *Adapter) Attribute(_ context.Context, el entity.NativeElement, name string) (string, bool, error) {
	e, err := element("attribute", el)
	if err != nil {
		return "", false, err
	}
	v, err := e.GetAttribute(name)
	if err != nil {
		// a null attribute comes back as an error
		if strings.Contains(err.Error(), "nil return value") {
			return "", false, nil
		}
		return "", false, entity.NewDriverError("attribute", err)
	}
	return v, true, nil
}

func (a *Adapter) IsDisplayed(_ context.Context, el entity.NativeElement) (bool, error) {
	e, err := element("is displayed", el)
	if err != nil {
		return false, err
	}
	ok, err := e.IsDisplayed()
	return ok, entity.NewDriverError("is displayed", err)
}

func (a *Adapter) IsEnabled(_ context.Context, el entity.NativeElement) (bool, error) {
	e, err := element("is enabled", el)
	if err != nil {
		return false, err
	}
	ok, err := e.IsEnabled()
	return ok, entity.NewDriverError("is enabled", err)
}

func (a *Adapter) IsSelected(_ context.Context, el entity.NativeElement) (bool, error) {
	e, err := element("is selected", el)
	if err != nil {
		return false, err
	}
	ok, err := e.IsSelected()
	return ok, entity.NewDriverError("is selected", err)
}

func (a *Adapter) Hover(ctx context.Context, el entity.NativeElement) error {
	e, err := element("hover", el)
	if err != nil {
		return err
	}
	center, err := a.viewportCenter(ctx, e)
	if err != nil {
		return entity.NewDriverError("hover", err)
	}

	a.wd.StorePointerActions("mouse", wd.MousePointer,
		wd.PointerMoveAction(0, center, wd.FromViewport),
	)
	return entity.NewDriverError("hover", a.performActions())
}

func (a *Adapter) DragAndDrop(ctx context.Context, source, target entity.NativeElement) error {
	src, err := element("drag and drop", source)
	if err != nil {
		return err
	}
	dst, err := element("drag and drop", target)
	if err != nil {
		return err
	}
	from, err := a.viewportCenter(ctx, src)
	if err != nil {
		return entity.NewDriverError("drag and drop", err)
	}
	to, err := a.viewportCenter(ctx, dst)
	if err != nil {
		return entity.NewDriverError("drag and drop", err)
	}

	a.wd.StorePointerActions("mouse", wd.MousePointer,
		wd.PointerMoveAction(0, from, wd.FromViewport),
		wd.PointerDownAction(wd.LeftButton),
		wd.PointerPauseAction(100*time.Millisecond),
		wd.PointerMoveAction(250*time.Millisecond, to, wd.FromViewport),
		wd.PointerUpAction(wd.LeftButton),
	)
	return entity.NewDriverError("drag and drop", a.performActions())
}

func (a *Adapter) Quit() error {
	err := a.wd.Quit()
	if a.service != nil {
		if serr := a.service.Stop(); serr != nil && err == nil {
			err = serr
		}
	}
	return entity.NewDriverError("quit", err)
}

func (a *Adapter) performActions() error {
	if err := a.wd.PerformActions(); err != nil {
		return err
	}
	return a.wd.ReleaseActions()
}

// viewportCenter converts the element's page position to viewport
// coordinates of its center.
func (a *Adapter) viewportCenter(ctx context.Context, e wd.WebElement) (wd.Point, error) {
	loc, err := e.Location()
	if err != nil {
		return wd.Point{}, err
	}
	size, err := e.Size()
	if err != nil {
		return wd.Point{}, err
	}

	scrollX, scrollY := 0, 0
	if res, ok := a.ExecuteScript(ctx, "return [window.scrollX, window.scrollY];"); ok {
		if xy, ok := res.([]interface{}); ok && len(xy) == 2 {
			scrollX, scrollY = toInt(xy[0]), toInt(xy[1])
		}
	}
	return wd.Point{
		X: loc.X - scrollX + size.Width/2,
		Y: loc.Y - scrollY + size.Height/2,
	}, nil
}

// By maps a locator to a W3C location strategy. W3C endpoints only know css,
// xpath, tag name and link text, so id, name and class go through CSS.
func By(l entity.Locator) (string, string) {
	switch l.Strategy() {
	case entity.ByXPath:
		return wd.ByXPATH, l.Value()
	case entity.ByTagName:
		return wd.ByTagName, l.Value()
	case entity.ByLinkText:
		return wd.ByLinkText, l.Value()
	case entity.ByPartialLinkText:
		return wd.ByPartialLinkText, l.Value()
	}
	css, _ := locate.CSS(l)
	return wd.ByCSSSelector, css
}

func element(op string, el entity.NativeElement) (wd.WebElement, error) {
	e, ok := el.(wd.WebElement)
	if !ok || e == nil {
		return nil, entity.NewDriverError(op, fmt.Errorf("%w: %T", ErrForeignElement, el))
	}
	return e, nil
}

func isNoSuchElement(err error) bool {
	var werr *wd.Error
	return errors.As(err, &werr) && werr.Err == "no such element"
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
