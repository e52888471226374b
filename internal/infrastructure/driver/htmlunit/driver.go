// Package htmlunit is an in-process engine over static HTML. It parses
// documents with golang.org/x/net/html, answers lookups with CSS selectors and
// follows links and GET forms, but runs no scripts and has no layout.
package htmlunit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pagedrill/internal/application/port/output"
	"pagedrill/internal/domain/entity"
	"pagedrill/internal/infrastructure/driver/locate"
	"pagedrill/internal/infrastructure/logger"
)

var _ output.BrowserDriver = (*Driver)(nil)

var (
	ErrNoDocument  = errors.New("no document loaded")
	ErrUnsupported = errors.New("not supported by htmlunit")
	ErrForeignNode = errors.New("element handle does not belong to htmlunit")
)

type Option func(*Driver)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Driver) { d.client = c }
}

func WithLogger(log output.LoggerPort) Option {
	return func(d *Driver) { d.log = log }
}

// WithPollInterval sets how often a lookup is retried inside the implicit wait.
func WithPollInterval(p time.Duration) Option {
	return func(d *Driver) { d.poll = p }
}

type Driver struct {
	mu           sync.Mutex
	client       *http.Client
	log          output.LoggerPort
	poll         time.Duration
	doc          *goquery.Document
	url          *url.URL
	implicitWait time.Duration
	closed       bool
}

func New(opts ...Option) *Driver {
	d := &Driver{
		client: &http.Client{Timeout: 30 * time.Second},
		log:    logger.NewNop(),
		poll:   locate.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) Navigate(ctx context.Context, raw string) error {
	d.mu.Lock()
	base := d.url
	d.mu.Unlock()

	target, err := url.Parse(raw)
	if err != nil {
		return entity.NewDriverError("navigate", err)
	}
	if base != nil {
		target = base.ResolveReference(target)
	}
	return entity.NewDriverError("navigate", d.load(ctx, target))
}

func (d *Driver) load(ctx context.Context, target *url.URL) error {
	var body []byte
	switch target.Scheme {
	case "about":
		body = []byte("<html><head></head><body></body></html>")
	case "file":
		data, err := os.ReadFile(target.Path)
		if err != nil {
			return err
		}
		body = data
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return err
		}
		resp, err := d.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		body = data
	default:
		return fmt.Errorf("unsupported scheme %q", target.Scheme)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse %s: %w", target, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("driver quit")
	}
	d.doc = doc
	d.url = target
	d.log.Debug("document loaded", "url", target.String())
	return nil
}

func (d *Driver) Refresh(ctx context.Context) error {
	d.mu.Lock()
	current := d.url
	d.mu.Unlock()
	if current == nil {
		return entity.NewDriverError("refresh", ErrNoDocument)
	}
	return entity.NewDriverError("refresh", d.load(ctx, current))
}

// Maximize is a no-op: there is no window.
func (d *Driver) Maximize(context.Context) error { return nil }

func (d *Driver) Title(context.Context) (string, error) {
	doc, err := d.document("title")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func (d *Driver) SetTitle(_ context.Context, title string) error {
	doc, err := d.document("set title")
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := doc.Find("title").First()
	if sel.Length() == 0 {
		doc.Find("head").AppendHtml("<title></title>")
		sel = doc.Find("title").First()
	}
	sel.SetText(title)
	return nil
}

func (d *Driver) CurrentURL(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.url == nil {
		return "", entity.NewDriverError("current url", ErrNoDocument)
	}
	return d.url.String(), nil
}

func (d *Driver) Screenshot(context.Context) ([]byte, error) {
	return nil, entity.NewDriverError("screenshot", ErrUnsupported)
}

func (d *Driver) SetImplicitWait(w time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.implicitWait = w
	return nil
}

func (d *Driver) ImplicitWait() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.implicitWait
}

func (d *Driver) FindElements(ctx context.Context, parent entity.NativeElement, locator entity.Locator) ([]entity.NativeElement, error) {
	var root *html.Node
	if parent != nil {
		n, err := node("find", parent)
		if err != nil {
			return nil, err
		}
		root = n
	}
	match, err := matcher(locator)
	if err != nil {
		return nil, entity.NewDriverError("find", err)
	}

	found, err := locate.Poll(ctx, d.ImplicitWait(), d.poll, func(context.Context) ([]entity.NativeElement, error) {
		scope := root
		if scope == nil {
			doc, err := d.document("find")
			if err != nil {
				return nil, err
			}
			scope = doc.Get(0)
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		nodes := match(goquery.NewDocumentFromNode(scope).Selection)
		result := make([]entity.NativeElement, 0, len(nodes))
		for _, n := range nodes {
			result = append(result, n)
		}
		return result, nil
	})
	if err != nil {
		var de *entity.DriverError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, entity.NewDriverError("find", err)
	}
	return found, nil
}

func (d *Driver) FindElement(ctx context.Context, parent entity.NativeElement, locator entity.Locator) (entity.NativeElement, error) {
	found, err := d.FindElements(ctx, parent, locator)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// ExecuteScript always reports false: htmlunit has no script engine.
func (d *Driver) ExecuteScript(_ context.Context, script string, _ ...any) (any, bool) {
	d.log.Debug("script ignored", "script", script)
	return nil, false
}

func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.doc = nil
	return nil
}

func (d *Driver) document(op string) (*goquery.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil, entity.NewDriverError(op, ErrNoDocument)
	}
	return d.doc, nil
}

func node(op string, el entity.NativeElement) (*html.Node, error) {
	n, ok := el.(*html.Node)
	if !ok || n == nil {
		return nil, entity.NewDriverError(op, fmt.Errorf("%w: %T", ErrForeignNode, el))
	}
	return n, nil
}

type matchFunc func(*goquery.Selection) []*html.Node

func matcher(l entity.Locator) (matchFunc, error) {
	if css, ok := locate.CSS(l); ok {
		sel, err := cascadia.Compile(css)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrInvalidLocator, err)
		}
		return func(s *goquery.Selection) []*html.Node {
			return s.FindMatcher(sel).Nodes
		}, nil
	}

	switch l.Strategy() {
	case entity.ByLinkText, entity.ByPartialLinkText:
		want := normalize(l.Value())
		partial := l.Strategy() == entity.ByPartialLinkText
		return func(s *goquery.Selection) []*html.Node {
			return s.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
				text := normalize(a.Text())
				if partial {
					return strings.Contains(text, want)
				}
				return text == want
			}).Nodes
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, l.Strategy())
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isTag(n *html.Node, a atom.Atom) bool {
	return n.Type == html.ElementNode && n.DataAtom == a
}
