package output

import (
	"context"
	"time"

	"pagedrill/internal/domain/entity"
)

// BrowserDriver is the capability surface every automation engine adapter
// offers. Element arguments are handles previously returned by the same driver.
//
// Failures are reported as *entity.DriverError, except ExecuteScript which
// reports (nil, false).
type BrowserDriver interface {
	Navigate(ctx context.Context, url string) error
	Refresh(ctx context.Context) error
	Maximize(ctx context.Context) error
	Title(ctx context.Context) (string, error)
	SetTitle(ctx context.Context, title string) error
	CurrentURL(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)

	// SetImplicitWait changes how long lookups keep polling for a first match.
	SetImplicitWait(d time.Duration) error
	ImplicitWait() time.Duration

	// FindElements returns matches in document order. A nil parent searches
	// the whole document.
	FindElements(ctx context.Context, parent entity.NativeElement, locator entity.Locator) ([]entity.NativeElement, error)
	// FindElement returns nil without error when nothing matches.
	FindElement(ctx context.Context, parent entity.NativeElement, locator entity.Locator) (entity.NativeElement, error)

	ExecuteScript(ctx context.Context, script string, args ...any) (any, bool)

	ElementDriver

	Quit() error
}

type ElementDriver interface {
	Click(ctx context.Context, el entity.NativeElement) error
	SendKeys(ctx context.Context, el entity.NativeElement, text string) error
	Clear(ctx context.Context, el entity.NativeElement) error
	Text(ctx context.Context, el entity.NativeElement) (string, error)
	// Attribute reports false when the attribute is absent.
	Attribute(ctx context.Context, el entity.NativeElement, name string) (string, bool, error)
	IsDisplayed(ctx context.Context, el entity.NativeElement) (bool, error)
	IsEnabled(ctx context.Context, el entity.NativeElement) (bool, error)
	IsSelected(ctx context.Context, el entity.NativeElement) (bool, error)
	Hover(ctx context.Context, el entity.NativeElement) error
	DragAndDrop(ctx context.Context, source, target entity.NativeElement) error
}
