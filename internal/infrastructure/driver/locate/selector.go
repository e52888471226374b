// Package locate holds what the engine adapters share: translating locators
// into CSS or XPath and emulating WebDriver implicit waits.
package locate

import (
	"strings"

	"pagedrill/internal/domain/entity"
)

// CSS returns an equivalent CSS selector, or false when the strategy has no
// CSS form (xpath, link text).
func CSS(l entity.Locator) (string, bool) {
	v := l.Value()
	switch l.Strategy() {
	case entity.ByCSSSelector:
		return v, true
	case entity.ByID:
		return `[id=` + cssString(v) + `]`, true
	case entity.ByName:
		return `[name=` + cssString(v) + `]`, true
	case entity.ByClassName:
		return `[class~=` + cssString(v) + `]`, true
	case entity.ByTagName:
		return v, true
	}
	return "", false
}

// XPath returns an equivalent XPath expression relative to the context node,
// or false for CSS selectors.
func XPath(l entity.Locator) (string, bool) {
	v := l.Value()
	switch l.Strategy() {
	case entity.ByXPath:
		return v, true
	case entity.ByID:
		return `.//*[@id=` + xpathString(v) + `]`, true
	case entity.ByName:
		return `.//*[@name=` + xpathString(v) + `]`, true
	case entity.ByClassName:
		return `.//*[contains(concat(' ', normalize-space(@class), ' '), ` + xpathString(" "+v+" ") + `)]`, true
	case entity.ByTagName:
		return `.//` + v, true
	case entity.ByLinkText:
		return `.//a[normalize-space(.)=` + xpathString(strings.TrimSpace(v)) + `]`, true
	case entity.ByPartialLinkText:
		return `.//a[contains(., ` + xpathString(v) + `)]`, true
	}
	return "", false
}

func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}

// xpathString quotes s as an XPath 1.0 literal, which has no escapes.
func xpathString(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
