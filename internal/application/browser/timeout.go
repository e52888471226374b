package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pagedrill/internal/application/port/output"
	"pagedrill/internal/domain/entity"
)

// timeoutHistory is the stack of implicit waits of one Browser. The top entry
// is always the value the driver is currently configured with; the bottom is
// the configured max wait and is never popped.
type timeoutHistory struct {
	mu      sync.Mutex
	drv     output.BrowserDriver
	entries []timeoutEntry
	nextID  uint64

	// scope is held for the whole of a WithImplicitTimeout call.
	scope chan struct{}
}

// scopeKey marks a context that already holds the scope lock of one history.
type scopeKey struct{ h *timeoutHistory }

type timeoutEntry struct {
	id    uint64
	wait  time.Duration
	label string
}

func newTimeoutHistory(drv output.BrowserDriver, base time.Duration) (*timeoutHistory, error) {
	h := &timeoutHistory{drv: drv, scope: make(chan struct{}, 1)}
	if _, err := h.push(base, "max wait"); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *timeoutHistory) push(d time.Duration, label string) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.drv.SetImplicitWait(d); err != nil {
		return 0, err
	}
	h.nextID++
	h.entries = append(h.entries, timeoutEntry{id: h.nextID, wait: d, label: label})
	return h.nextID, nil
}

// pop removes the entry with the given id. Removing anything but the top
// leaves the driver on the current top value and reports ErrScopeOrder.
func (h *timeoutHistory) pop(id uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := -1
	for j := len(h.entries) - 1; j > 0; j-- {
		if h.entries[j].id == id {
			i = j
			break
		}
	}
	if i < 0 {
		return fmt.Errorf("%w: unknown scope %d", entity.ErrScopeOrder, id)
	}

	label := h.entries[i].label
	if newer := len(h.entries) - 1 - i; newer > 0 {
		h.entries = append(h.entries[:i], h.entries[i+1:]...)
		return fmt.Errorf("%w: %q closed while %d newer scope(s) open", entity.ErrScopeOrder, label, newer)
	}
	// The entry stays on top until the driver is back on the previous value.
	if err := h.drv.SetImplicitWait(h.entries[i-1].wait); err != nil {
		return fmt.Errorf("restore implicit wait after %q: %w", label, err)
	}
	h.entries = h.entries[:i]
	return nil
}

// lock serializes whole scopes. A context returned from an earlier lock of the
// same history passes straight through, so scopes nest along one call chain.
func (h *timeoutHistory) lock(ctx context.Context) (context.Context, func(), error) {
	key := scopeKey{h}
	if ctx.Value(key) != nil {
		return ctx, func() {}, nil
	}
	select {
	case h.scope <- struct{}{}:
		return context.WithValue(ctx, key, true), func() { <-h.scope }, nil
	case <-ctx.Done():
		return ctx, nil, ctx.Err()
	}
}

func (h *timeoutHistory) depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *timeoutHistory) current() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1].wait
}

// TimeoutScope is an implicit-wait override. Close restores the previous
// value and may be called more than once; after a driver failure it retries.
type TimeoutScope struct {
	history *timeoutHistory
	id      uint64
	label   string

	mu     sync.Mutex
	closed bool
	err    error
}

func (s *TimeoutScope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.err
	}
	s.err = s.history.pop(s.id)
	s.closed = s.err == nil || errors.Is(s.err, entity.ErrScopeOrder)
	return s.err
}

func (s *TimeoutScope) Label() string { return s.label }

// ImplicitTimeout overrides the driver's implicit wait until the returned
// scope is closed. Scopes must be closed in reverse order of creation; callers
// sharing a Browser across goroutines should use WithImplicitTimeout.
func (b *Browser) ImplicitTimeout(d time.Duration, label string) (*TimeoutScope, error) {
	id, err := b.history.push(d, label)
	if err != nil {
		return nil, fmt.Errorf("enter timeout scope %q: %w", label, err)
	}
	b.log.Debug("timeout scope entered", "label", label, "wait", d)
	return &TimeoutScope{history: b.history, id: id, label: label}, nil
}

// WithImplicitTimeout runs fn inside a scope that is closed on every path.
// Calls on one Browser run one at a time; fn may nest further calls as long
// as it passes on the context it was given.
func (b *Browser) WithImplicitTimeout(ctx context.Context, d time.Duration, label string, fn func(ctx context.Context) error) (err error) {
	ctx, unlock, err := b.history.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	scope, err := b.ImplicitTimeout(d, label)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := scope.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx)
}

// ImplicitWait is the wait currently in effect.
func (b *Browser) ImplicitWait() time.Duration {
	return b.history.current()
}
