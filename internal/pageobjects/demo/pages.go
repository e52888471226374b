// Package demo holds example page objects for a login flow; the end-to-end
// tests run them against the static fixtures in testdata.
package demo

import (
	"context"

	"pagedrill/internal/application/browser"
	"pagedrill/internal/application/service"
	"pagedrill/internal/domain/entity"
)

// The kinds are functions: the two pages link to each other, and package
// variables would form an initialization cycle.

func HomeKind() browser.PageKind[*HomePage] {
	return browser.PageKind[*HomePage]{Name: "HomePage", New: NewHomePage}
}

func DashboardKind() browser.PageKind[*DashboardPage] {
	return browser.PageKind[*DashboardPage]{Name: "DashboardPage", New: NewDashboardPage}
}

// Register makes the demo pages available by name.
func Register(r *service.PageRegistry) {
	service.RegisterKind(r, HomeKind())
	service.RegisterKind(r, DashboardKind())
}

// MenuControl is the login form; its fields are looked up inside it.
type MenuControl struct {
	browser.Control
	TxtUserName *browser.Element
	TxtPassword *browser.Element
	ChkRemember *browser.Element
	BtnLogin    *browser.NavigationElement[*DashboardPage]
}

func NewMenuControl(b *browser.Browser, parent *browser.Element, locator entity.Locator) *MenuControl {
	c := browser.NewControl(b, parent, locator)
	return &MenuControl{
		Control:     c,
		TxtUserName: c.Child(entity.ID("userName")),
		TxtPassword: c.Child(entity.ID("password")),
		ChkRemember: c.Child(entity.ID("remember")),
		BtnLogin:    browser.NewNavigationElement(b, c.Element, entity.ID("login"), DashboardKind()),
	}
}

type HomePage struct {
	browser.WebPage
	Menu  *MenuControl
	Flash *browser.Element
}

func NewHomePage(b *browser.Browser) *HomePage {
	return &HomePage{
		WebPage: browser.NewWebPage(b, "Login"),
		Menu:    NewMenuControl(b, nil, entity.ID("menu")),
		Flash:   browser.NewElement(b, nil, entity.ID("flash")),
	}
}

// Login fills the form and follows the login button.
func (p *HomePage) Login(ctx context.Context, user, password string) (*DashboardPage, error) {
	if err := p.Menu.TxtUserName.Clear(ctx); err != nil {
		return nil, err
	}
	if err := p.Menu.TxtUserName.SendKeys(ctx, user); err != nil {
		return nil, err
	}
	if err := p.Menu.TxtPassword.SendKeys(ctx, password); err != nil {
		return nil, err
	}
	return p.Menu.BtnLogin.Navigate(ctx)
}

type DashboardPage struct {
	browser.WebPage
	Greeting *browser.Element
	Widgets  *browser.Element
	Logout   *browser.NavigationElement[*HomePage]
}

func NewDashboardPage(b *browser.Browser) *DashboardPage {
	return &DashboardPage{
		WebPage:  browser.NewWebPage(b, "Dashboard"),
		Greeting: browser.NewElement(b, nil, entity.ID("greeting")),
		Widgets:  browser.NewElement(b, nil, entity.CSS("#widgets li.widget")),
		Logout:   browser.NewNavigationElement(b, nil, entity.ID("logout"), HomeKind()),
	}
}

// IsLoaded also requires the greeting, which is rendered last.
func (p *DashboardPage) IsLoaded(ctx context.Context) bool {
	return p.WebPage.IsLoaded(ctx) && p.Greeting.Exists(ctx)
}

// WidgetNames returns the dashboard widgets in page order.
func (p *DashboardPage) WidgetNames(ctx context.Context) ([]string, error) {
	widgets, err := p.Browser.FindElements(ctx, p.Widgets.Locator())
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(widgets))
	for _, w := range widgets {
		text, err := w.Text(ctx)
		if err != nil {
			return nil, err
		}
		names = append(names, text)
	}
	return names, nil
}
