package entity

import (
	"fmt"
	"strings"
)

// Strategy is the lookup mechanism of a Locator. Values follow the WebDriver
// "using" names so they can be handed to a WebDriver endpoint unchanged.
type Strategy string

const (
	ByID              Strategy = "id"
	ByName            Strategy = "name"
	ByCSSSelector     Strategy = "css selector"
	ByXPath           Strategy = "xpath"
	ByClassName       Strategy = "class name"
	ByTagName         Strategy = "tag name"
	ByLinkText        Strategy = "link text"
	ByPartialLinkText Strategy = "partial link text"
)

var strategyAliases = map[string]Strategy{
	"id":                ByID,
	"name":              ByName,
	"css selector":      ByCSSSelector,
	"css":               ByCSSSelector,
	"cssselector":       ByCSSSelector,
	"xpath":             ByXPath,
	"class name":        ByClassName,
	"class":             ByClassName,
	"classname":         ByClassName,
	"tag name":          ByTagName,
	"tag":               ByTagName,
	"tagname":           ByTagName,
	"link text":         ByLinkText,
	"link":              ByLinkText,
	"linktext":          ByLinkText,
	"partial link text": ByPartialLinkText,
	"partial":           ByPartialLinkText,
	"partiallinktext":   ByPartialLinkText,
}

// ParseStrategy accepts WebDriver names and a few short aliases, case-insensitive.
func ParseStrategy(s string) (Strategy, error) {
	st, ok := strategyAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidLocator, s)
	}
	return st, nil
}

func (s Strategy) valid() bool {
	switch s {
	case ByID, ByName, ByCSSSelector, ByXPath, ByClassName, ByTagName, ByLinkText, ByPartialLinkText:
		return true
	}
	return false
}

// Locator describes how to find an element. It is a value type; the With*
// helpers return modified copies.
type Locator struct {
	strategy Strategy
	value    string
	index    int
	indexed  bool
}

// NewLocator validates strategy and value.
func NewLocator(strategy Strategy, value string) (Locator, error) {
	if !strategy.valid() {
		return Locator{}, fmt.Errorf("%w: unknown strategy %q", ErrInvalidLocator, string(strategy))
	}
	if strings.TrimSpace(value) == "" {
		return Locator{}, fmt.Errorf("%w: empty %s selector", ErrInvalidLocator, strategy)
	}
	return Locator{strategy: strategy, value: value}, nil
}

// MustLocator is NewLocator for page object declarations, where a bad locator
// is a programming error.
func MustLocator(strategy Strategy, value string) Locator {
	l, err := NewLocator(strategy, value)
	if err != nil {
		panic(err)
	}
	return l
}

// Shorthands used by page objects.
func ID(v string) Locator    { return MustLocator(ByID, v) }
func Name(v string) Locator  { return MustLocator(ByName, v) }
func CSS(v string) Locator   { return MustLocator(ByCSSSelector, v) }
func XPath(v string) Locator { return MustLocator(ByXPath, v) }

// At returns a copy selecting the i-th (zero based) match.
func (l Locator) At(i int) (Locator, error) {
	if i < 0 {
		return Locator{}, fmt.Errorf("%w: negative index %d", ErrInvalidLocator, i)
	}
	l.index = i
	l.indexed = true
	return l, nil
}

// WithoutIndex returns a copy matching every element.
func (l Locator) WithoutIndex() Locator {
	l.index = 0
	l.indexed = false
	return l
}

func (l Locator) Strategy() Strategy { return l.strategy }
func (l Locator) Value() string      { return l.value }

// Index reports the ordinal, if one was set.
func (l Locator) Index() (int, bool) { return l.index, l.indexed }

// IsZero reports whether l was never initialized.
func (l Locator) IsZero() bool { return l.strategy == "" }

func (l Locator) String() string {
	if l.indexed {
		return fmt.Sprintf("%s=%s[%d]", l.strategy, l.value, l.index)
	}
	return fmt.Sprintf("%s=%s", l.strategy, l.value)
}
