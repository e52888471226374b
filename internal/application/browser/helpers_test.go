package browser

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pagedrill/internal/application/port/output"
	"pagedrill/internal/domain/entity"
	"pagedrill/internal/infrastructure/driver/htmlunit"
)

// recordingDriver wraps a real engine and records the calls the facade makes.
type recordingDriver struct {
	output.BrowserDriver

	mu          sync.Mutex
	waits       []time.Duration
	navigations int
	screenshot  []byte
	failWait    error
}

func (r *recordingDriver) SetImplicitWait(d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWait != nil {
		return r.failWait
	}
	r.waits = append(r.waits, d)
	return r.BrowserDriver.SetImplicitWait(d)
}

func (r *recordingDriver) Navigate(ctx context.Context, url string) error {
	r.mu.Lock()
	r.navigations++
	r.mu.Unlock()
	return r.BrowserDriver.Navigate(ctx, url)
}

func (r *recordingDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if r.screenshot != nil {
		return r.screenshot, nil
	}
	return r.BrowserDriver.Screenshot(ctx)
}

func (r *recordingDriver) Waits() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.waits...)
}

func (r *recordingDriver) Navigations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.navigations
}

const testMaxWait = 300 * time.Millisecond

func testConfig() Config {
	return Config{
		MaxWait:      testMaxWait,
		PollInterval: 10 * time.Millisecond,
		PeekTimeout:  20 * time.Millisecond,
		Renavigate:   true,
		BaseDir:      "testdata",
		Homepages: []entity.HomePage{
			{PageType: "Shop", URL: "/shop.html", FileSystemPath: true},
			{PageType: "Cart", URL: "cart.html", FileSystemPath: true},
		},
	}
}

func newTestBrowser(t *testing.T, cfg Config) (*Browser, *recordingDriver) {
	t.Helper()
	drv := &recordingDriver{BrowserDriver: htmlunit.New(htmlunit.WithPollInterval(5 * time.Millisecond))}
	b, err := New(drv, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Exit() })
	return b, drv
}

// openShop loads the shop fixture directly, without the retry loop.
func openShop(t *testing.T, b *Browser) {
	t.Helper()
	u, err := b.HomeURL("Shop")
	require.NoError(t, err)
	require.NoError(t, b.GoToURL(context.Background(), u))
}
