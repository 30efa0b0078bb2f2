package session

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// ChromeDriver launches Chrome through chromedp.
type ChromeDriver struct {
	port     int
	execPath string
	headful  bool
	logger   *slog.Logger
}

// ChromeOption configures a ChromeDriver.
type ChromeOption func(*ChromeDriver)

// WithExecPath sets the Chrome executable. Empty lets chromedp search PATH.
func WithExecPath(path string) ChromeOption {
	return func(d *ChromeDriver) {
		d.execPath = path
	}
}

// WithHeadful shows the browser window.
func WithHeadful(headful bool) ChromeOption {
	return func(d *ChromeDriver) {
		d.headful = headful
	}
}

// WithChromeLogger routes chromedp protocol errors to logger at debug level.
func WithChromeLogger(logger *slog.Logger) ChromeOption {
	return func(d *ChromeDriver) {
		d.logger = logger
	}
}

// NewChromeDriver creates a driver that exposes DevTools on port.
func NewChromeDriver(port int, opts ...ChromeOption) *ChromeDriver {
	d := &ChromeDriver{
		port:   port,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// allocatorOptions builds the Chrome command line.
func (d *ChromeDriver) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+4)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("remote-debugging-port", strconv.Itoa(d.port)),
		chromedp.Flag("show-paint-rects", true),
	)
	if d.headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if d.execPath != "" {
		opts = append(opts, chromedp.ExecPath(d.execPath))
	}
	return opts
}

// Launch starts Chrome and waits until the first tab is attached.
// The browser outlives ctx; only Close stops it.
func (d *ChromeDriver) Launch(ctx context.Context) (Handle, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), d.allocatorOptions()...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			d.logger.Debug("chromedp", "message", fmt.Sprintf(format, args...))
		}),
	)

	// The first Run on a chromedp context starts the browser.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(browserCtx)
	}()

	select {
	case err := <-started:
		if err != nil {
			cancelBrowser()
			cancelAlloc()
			return nil, fmt.Errorf("failed to launch chrome: %w", err)
		}
	case <-ctx.Done():
		cancelBrowser()
		cancelAlloc()
		return nil, ctx.Err()
	}

	return &chromeHandle{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		port:          d.port,
	}, nil
}

// chromeHandle is a running Chrome instance.
type chromeHandle struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	port          int
	closeOnce     sync.Once
	closeErr      error
}

func (h *chromeHandle) Endpoint() string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(h.port))
}

func (h *chromeHandle) Port() int {
	return h.port
}

// Alive sends Browser.getVersion over the browser-level connection.
func (h *chromeHandle) Alive(ctx context.Context) bool {
	if h.browserCtx.Err() != nil {
		return false
	}
	c := chromedp.FromContext(h.browserCtx)
	if c == nil || c.Browser == nil {
		return false
	}

	pctx, stop := h.bind(ctx)
	defer stop()

	_, _, _, _, _, err := browser.GetVersion().Do(cdp.WithExecutor(pctx, c.Browser))
	return err == nil
}

// Reset navigates the shared tab to about:blank.
func (h *chromeHandle) Reset(ctx context.Context) error {
	pctx, stop := h.bind(ctx)
	defer stop()

	if err := chromedp.Run(pctx, chromedp.Navigate("about:blank")); err != nil {
		return fmt.Errorf("failed to reset page: %w", err)
	}
	return nil
}

// Close shuts the browser down gracefully and releases the allocator.
func (h *chromeHandle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = chromedp.Cancel(h.browserCtx)
		h.cancelBrowser()
		h.cancelAlloc()
	})
	return h.closeErr
}

// bind derives a context that carries the browser but ends with ctx.
// Cancelling it stops the command without closing the tab.
func (h *chromeHandle) bind(ctx context.Context) (context.Context, func()) {
	pctx, cancel := context.WithCancel(h.browserCtx)
	stopAfter := context.AfterFunc(ctx, cancel)
	return pctx, func() {
		stopAfter()
		cancel()
	}
}
