package htmlunit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pagedrill/internal/domain/entity"
)

var ErrNotEditable = errors.New("element is not editable")

// Click follows links, submits GET forms and toggles checkable inputs.
func (d *Driver) Click(ctx context.Context, el entity.NativeElement) error {
	n, err := node("click", el)
	if err != nil {
		return err
	}

	d.mu.Lock()
	base := d.url
	var next *url.URL
	switch {
	case isTag(n, atom.A):
		if href, ok := attr(n, "href"); ok && base != nil {
			next, err = base.Parse(href)
		}
	case isInput(n, "checkbox"):
		if _, checked := attr(n, "checked"); checked {
			removeAttr(n, "checked")
		} else {
			setAttr(n, "checked", "checked")
		}
	case isInput(n, "radio"):
		setAttr(n, "checked", "checked")
	case isTag(n, atom.Option):
		setAttr(n, "selected", "selected")
	case isSubmit(n):
		if form := ancestor(n, atom.Form); form != nil && base != nil {
			next, err = formTarget(base, form)
		}
	}
	d.mu.Unlock()

	if err != nil {
		return entity.NewDriverError("click", err)
	}
	if next == nil {
		return nil
	}
	return entity.NewDriverError("click", d.load(ctx, next))
}

func (d *Driver) SendKeys(_ context.Context, el entity.NativeElement, text string) error {
	n, err := node("send keys", el)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case isTag(n, atom.Textarea):
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	case isTag(n, atom.Input):
		v, _ := attr(n, "value")
		setAttr(n, "value", v+text)
	default:
		return entity.NewDriverError("send keys", fmt.Errorf("%w: <%s>", ErrNotEditable, n.Data))
	}
	return nil
}

func (d *Driver) Clear(_ context.Context, el entity.NativeElement) error {
	n, err := node("clear", el)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case isTag(n, atom.Textarea):
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
		}
	case isTag(n, atom.Input):
		setAttr(n, "value", "")
	default:
		return entity.NewDriverError("clear", fmt.Errorf("%w: <%s>", ErrNotEditable, n.Data))
	}
	return nil
}

// Text is the whitespace-normalized text of a displayed element, empty for
// hidden ones.
func (d *Driver) Text(_ context.Context, el entity.NativeElement) (string, error) {
	n, err := node("text", el)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !displayed(n) {
		return "", nil
	}
	return normalize(textContent(n)), nil
}

func (d *Driver) Attribute(_ context.Context, el entity.NativeElement, name string) (string, bool, error) {
	n, err := node("attribute", el)
	if err != nil {
		return "", false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	name = strings.ToLower(name)
	if name == "value" && isTag(n, atom.Textarea) {
		return textContent(n), true, nil
	}
	v, ok := attr(n, name)
	switch name {
	case "checked", "selected", "disabled", "hidden", "readonly", "required", "multiple":
		if ok {
			return "true", true, nil
		}
	}
	return v, ok, nil
}

func (d *Driver) IsDisplayed(_ context.Context, el entity.NativeElement) (bool, error) {
	n, err := node("is displayed", el)
	if err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return displayed(n), nil
}

func (d *Driver) IsEnabled(_ context.Context, el entity.NativeElement) (bool, error) {
	n, err := node("is enabled", el)
	if err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for p := n; p != nil; p = p.Parent {
		if p == n || isTag(p, atom.Fieldset) {
			if _, ok := attr(p, "disabled"); ok {
				return false, nil
			}
		}
	}
	return true, nil
}

func (d *Driver) IsSelected(_ context.Context, el entity.NativeElement) (bool, error) {
	n, err := node("is selected", el)
	if err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, checked := attr(n, "checked")
	_, selected := attr(n, "selected")
	return checked || selected, nil
}

// Hover only validates the handle: static documents have no pointer events.
func (d *Driver) Hover(_ context.Context, el entity.NativeElement) error {
	_, err := node("hover", el)
	return err
}

// DragAndDrop only validates the handles.
func (d *Driver) DragAndDrop(_ context.Context, source, target entity.NativeElement) error {
	if _, err := node("drag and drop", source); err != nil {
		return err
	}
	_, err := node("drag and drop", target)
	return err
}

func formTarget(base *url.URL, form *html.Node) (*url.URL, error) {
	if method, _ := attr(form, "method"); method != "" && !strings.EqualFold(method, "get") {
		return nil, fmt.Errorf("%w: %s form submission", ErrUnsupported, method)
	}
	action, _ := attr(form, "action")
	target, err := base.Parse(action)
	if err != nil {
		return nil, err
	}

	values := url.Values{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			name, named := attr(n, "name")
			_, disabled := attr(n, "disabled")
			if named && !disabled {
				switch {
				case isInput(n, "checkbox"), isInput(n, "radio"):
					if _, ok := attr(n, "checked"); ok {
						v, ok := attr(n, "value")
						if !ok {
							v = "on"
						}
						values.Add(name, v)
					}
				case isInput(n, "submit"), isInput(n, "button"), isInput(n, "image"), isInput(n, "reset"):
				case isTag(n, atom.Input):
					v, _ := attr(n, "value")
					values.Add(name, v)
				case isTag(n, atom.Textarea):
					values.Add(name, textContent(n))
				case isTag(n, atom.Select):
					values.Add(name, selectedOption(n))
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(form)

	target.RawQuery = values.Encode()
	return target, nil
}

func selectedOption(sel *html.Node) string {
	var first, chosen *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if isTag(n, atom.Option) {
			if first == nil {
				first = n
			}
			if _, ok := attr(n, "selected"); ok && chosen == nil {
				chosen = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(sel)
	if chosen == nil {
		chosen = first
	}
	if chosen == nil {
		return ""
	}
	if v, ok := attr(chosen, "value"); ok {
		return v
	}
	return normalize(textContent(chosen))
}

func displayed(n *html.Node) bool {
	if isInput(n, "hidden") {
		return false
	}
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		switch p.DataAtom {
		case atom.Head, atom.Script, atom.Style, atom.Template, atom.Title, atom.Noscript:
			return false
		}
		if _, ok := attr(p, "hidden"); ok {
			return false
		}
		style, _ := attr(p, "style")
		style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

func isInput(n *html.Node, typ string) bool {
	if !isTag(n, atom.Input) {
		return false
	}
	t, ok := attr(n, "type")
	if !ok {
		t = "text"
	}
	return strings.EqualFold(t, typ)
}

func isSubmit(n *html.Node) bool {
	if isTag(n, atom.Button) {
		t, ok := attr(n, "type")
		return !ok || strings.EqualFold(t, "submit")
	}
	return isInput(n, "submit") || isInput(n, "image")
}

func ancestor(n *html.Node, a atom.Atom) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if isTag(p, a) {
			return p
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if isTag(n, atom.Script) || isTag(n, atom.Style) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace != "" || a.Key != key {
			attrs = append(attrs, a)
		}
	}
	n.Attr = attrs
}
