package browser

import (
	"context"
	"fmt"

	"pagedrill/internal/application/wait"
	"pagedrill/internal/domain/entity"
)

type Page interface {
	IsLoaded(ctx context.Context) bool
}

// PageKind names a page object type and knows how to build it. Name is the
// identity looked up in the homepages configuration.
type PageKind[T Page] struct {
	Name string
	New  func(b *Browser) T
}

// Create builds a page bound to b without navigating.
func Create[T Page](b *Browser, kind PageKind[T]) T {
	return kind.New(b)
}

// Open navigates to the home page registered for kind and waits until the
// page reports it is loaded. Depending on Config.Renavigate every failed
// check either repeats the navigation or only polls again.
func Open[T Page](ctx context.Context, b *Browser, kind PageKind[T]) (T, error) {
	var zero T

	target, err := b.HomeURL(kind.Name)
	if err != nil {
		return zero, err
	}
	page := kind.New(b)

	navigated := false
	navigate := func(ctx context.Context) error {
		if navigated && !b.cfg.Renavigate {
			return nil
		}
		navigated = true
		return b.GoToURL(ctx, target)
	}

	err = wait.WithRetry(wait.Timeout(b.cfg.MaxWait), wait.Interval(b.cfg.PollInterval), wait.Logger(b.log)).
		Doing(navigate).
		Until(ctx, page.IsLoaded)
	if err != nil {
		b.log.Error("page did not load", "page", kind.Name, "url", target, "error", err)
		return zero, fmt.Errorf("open %s at %s: %w", kind.Name, target, err)
	}

	b.log.Info("page opened", "page", kind.Name, "url", target)
	return page, nil
}

// WebPage is the base of page objects. A non-empty Title must match the
// document title for the page to count as loaded.
type WebPage struct {
	Browser *Browser
	Title   string
}

func NewWebPage(b *Browser, title string) WebPage {
	return WebPage{Browser: b, Title: title}
}

// IsLoaded checks document.readyState where the engine runs scripts, then the
// title.
func (p WebPage) IsLoaded(ctx context.Context) bool {
	if state, ok := p.Browser.ExecuteJavascript(ctx, "return document.readyState"); ok {
		if s, _ := state.(string); s != "complete" {
			return false
		}
	}
	if p.Title == "" {
		return true
	}
	title, err := p.Browser.PageTitle(ctx)
	return err == nil && title == p.Title
}

func (p WebPage) Element(locator entity.Locator) *Element {
	return NewElement(p.Browser, nil, locator)
}

func (p WebPage) Control(locator entity.Locator) Control {
	return NewControl(p.Browser, nil, locator)
}
