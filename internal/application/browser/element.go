package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pagedrill/internal/application/wait"
	"pagedrill/internal/domain/entity"
)

// Element is a lazy handle: every operation resolves the locator again, so a
// handle stays valid across re-renders of the page.
type Element struct {
	browser *Browser
	parent  *Element
	locator entity.Locator
}

func NewElement(b *Browser, parent *Element, locator entity.Locator) *Element {
	return &Element{browser: b, parent: parent, locator: locator}
}

func (e *Element) Browser() *Browser       { return e.browser }
func (e *Element) Parent() *Element        { return e.parent }
func (e *Element) Locator() entity.Locator { return e.locator }

func (e *Element) String() string {
	if e.parent == nil {
		return e.locator.String()
	}
	return e.parent.String() + " > " + e.locator.String()
}

func (e *Element) Resolve(ctx context.Context) (entity.SearchResult, error) {
	return e.browser.FindNativeElement(ctx, e.parent, e.locator)
}

// Native resolves to the driver handle or ErrElementNotFound.
func (e *Element) Native(ctx context.Context) (entity.NativeElement, error) {
	res, err := e.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !res.Found() {
		return nil, fmt.Errorf("%w: %s", entity.ErrElementNotFound, e)
	}
	return res.Element, nil
}

// Exists waits up to the current implicit wait.
func (e *Element) Exists(ctx context.Context) bool {
	res, err := e.Resolve(ctx)
	return err == nil && res.Found()
}

// Count is the number of elements matching the locator, ignoring its ordinal.
func (e *Element) Count(ctx context.Context) (int, error) {
	res, err := e.browser.FindNativeElement(ctx, e.parent, e.locator.WithoutIndex())
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

func (e *Element) Click(ctx context.Context) error {
	native, err := e.Native(ctx)
	if err != nil {
		return err
	}
	return e.browser.drv.Click(ctx, native)
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	native, err := e.Native(ctx)
	if err != nil {
		return err
	}
	return e.browser.drv.SendKeys(ctx, native, text)
}

func (e *Element) Clear(ctx context.Context) error {
	native, err := e.Native(ctx)
	if err != nil {
		return err
	}
	return e.browser.drv.Clear(ctx, native)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	native, err := e.Native(ctx)
	if err != nil {
		return "", err
	}
	return e.browser.drv.Text(ctx, native)
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	native, err := e.Native(ctx)
	if err != nil {
		return "", false, err
	}
	return e.browser.drv.Attribute(ctx, native, name)
}

func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	native, err := e.Native(ctx)
	if err != nil {
		return false, err
	}
	return e.browser.drv.IsDisplayed(ctx, native)
}

func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	native, err := e.Native(ctx)
	if err != nil {
		return false, err
	}
	return e.browser.drv.IsEnabled(ctx, native)
}

func (e *Element) IsSelected(ctx context.Context) (bool, error) {
	native, err := e.Native(ctx)
	if err != nil {
		return false, err
	}
	return e.browser.drv.IsSelected(ctx, native)
}

func (e *Element) Hover(ctx context.Context) error {
	return e.browser.HoverOver(ctx, e)
}

func (e *Element) DragTo(ctx context.Context, target *Element) error {
	return e.browser.DragAndDropElement(ctx, e, target)
}

// WaitUntilVisible polls under the peek timeout until the element is
// displayed or timeout passes.
func (e *Element) WaitUntilVisible(ctx context.Context, timeout time.Duration) error {
	b := e.browser
	return b.WithImplicitTimeout(ctx, b.cfg.PeekTimeout, "visible "+e.String(), func(ctx context.Context) error {
		err := wait.WithRetry(wait.Timeout(timeout), wait.Interval(b.cfg.PollInterval), wait.Logger(b.log)).
			Until(ctx, func(ctx context.Context) bool {
				ok, err := e.IsDisplayed(ctx)
				return err == nil && ok
			})
		if err != nil {
			return fmt.Errorf("wait for %s: %w", e, err)
		}
		return nil
	})
}

// Control is a composite element whose children are looked up inside it.
type Control struct {
	*Element
}

func NewControl(b *Browser, parent *Element, locator entity.Locator) Control {
	return Control{Element: NewElement(b, parent, locator)}
}

func (c Control) Child(locator entity.Locator) *Element {
	return NewElement(c.browser, c.Element, locator)
}

// NavigationElement is an element whose click leads to page T.
type NavigationElement[T Page] struct {
	*Element
	target PageKind[T]
}

func NewNavigationElement[T Page](b *Browser, parent *Element, locator entity.Locator, target PageKind[T]) *NavigationElement[T] {
	return &NavigationElement[T]{Element: NewElement(b, parent, locator), target: target}
}

// Navigate clicks and waits, without clicking again, until the target page
// reports it is loaded.
func (n *NavigationElement[T]) Navigate(ctx context.Context) (T, error) {
	var zero T
	if err := n.Click(ctx); err != nil {
		return zero, err
	}

	b := n.browser
	page := n.target.New(b)
	err := wait.WithRetry(wait.Timeout(b.cfg.MaxWait), wait.Interval(b.cfg.PollInterval), wait.Logger(b.log)).
		Until(ctx, page.IsLoaded)
	if err != nil {
		return zero, fmt.Errorf("navigate to %s: %w", n.target.Name, err)
	}
	return page, nil
}

func isAbsence(err error) bool {
	return errors.Is(err, entity.ErrIndexOutOfRange) || errors.Is(err, entity.ErrElementNotFound)
}
