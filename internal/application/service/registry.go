package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pagedrill/internal/application/browser"
	"pagedrill/internal/domain/entity"
)

// PageRegistry maps page object names to constructors so pages can be
// opened by name, e.g. from the command line.
type PageRegistry struct {
	mu    sync.RWMutex
	pages map[string]func(*browser.Browser) browser.Page
}

func NewPageRegistry() *PageRegistry {
	return &PageRegistry{
		pages: make(map[string]func(*browser.Browser) browser.Page),
	}
}

// RegisterKind adds a typed page kind under its Name.
func RegisterKind[T browser.Page](r *PageRegistry, kind browser.PageKind[T]) {
	r.Register(kind.Name, func(b *browser.Browser) browser.Page { return kind.New(b) })
}

// Register adds or replaces the constructor for name.
func (r *PageRegistry) Register(name string, newPage func(*browser.Browser) browser.Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[name] = newPage
}

func (r *PageRegistry) Get(name string) (browser.PageKind[browser.Page], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	newPage, ok := r.pages[name]
	if !ok {
		return browser.PageKind[browser.Page]{}, false
	}
	return browser.PageKind[browser.Page]{Name: name, New: newPage}, true
}

func (r *PageRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]string, 0, len(r.pages))
	for name := range r.pages {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Open navigates to the home page of the named page object.
func (r *PageRegistry) Open(ctx context.Context, b *browser.Browser, name string) (browser.Page, error) {
	kind, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: no page object named %q", entity.ErrPageNotRegistered, name)
	}
	return browser.Open(ctx, b, kind)
}

// Create builds the named page object without navigating.
func (r *PageRegistry) Create(b *browser.Browser, name string) (browser.Page, error) {
	kind, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: no page object named %q", entity.ErrPageNotRegistered, name)
	}
	return browser.Create(b, kind), nil
}
