package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeRenderer drives a local headless Chrome through the DevTools
// protocol. The browser process is started on first use and shared by all
// pages until Close.
type ChromeRenderer struct {
	options []chromedp.ExecAllocatorOption

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

func NewChromeRenderer(execPath string, userAgent string) *ChromeRenderer {
	options := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
	)
	if userAgent != "" {
		options = append(options, chromedp.UserAgent(userAgent))
	}
	if execPath != "" {
		options = append(options, chromedp.ExecPath(execPath))
	}
	return &ChromeRenderer{options: options}
}

func (c *ChromeRenderer) browser() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browserCtx != nil {
		return c.browserCtx, nil
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), c.options...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	// an empty Run starts the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	c.browserCtx = browserCtx
	c.cancelBrowser = func() {
		cancelBrowser()
		cancelAlloc()
	}
	return browserCtx, nil
}

func (c *ChromeRenderer) NewPage(ctx context.Context) (BrowserPage, error) {
	browserCtx, err := c.browser()
	if err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	// the tab follows the caller's cancellation, not only the browser's
	stop := context.AfterFunc(ctx, cancelTab)

	p := &chromePage{
		tabCtx: tabCtx,
		close: func() {
			stop()
			cancelTab()
		},
		idle: make(chan struct{}),
	}

	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			p.markIdle()
		}
	})

	if err := chromedp.Run(tabCtx, page.SetLifecycleEventsEnabled(true)); err != nil {
		p.Close()
		return nil, fmt.Errorf("enable lifecycle events: %w", err)
	}
	return p, nil
}

// Close shuts the browser down. Pages still open are closed with it.
func (c *ChromeRenderer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelBrowser != nil {
		c.cancelBrowser()
		c.browserCtx = nil
		c.cancelBrowser = nil
	}
	return nil
}

type chromePage struct {
	tabCtx context.Context
	close  func()

	idleOnce sync.Once
	idle     chan struct{}
	// armed is set once navigation started; idle events from the blank
	// start page are ignored before that.
	armed bool
	mu    sync.Mutex
}

func (p *chromePage) markIdle() {
	p.mu.Lock()
	armed := p.armed
	p.mu.Unlock()
	if armed {
		p.idleOnce.Do(func() { close(p.idle) })
	}
}

func (p *chromePage) Navigate(ctx context.Context, pageUrl string) error {
	p.mu.Lock()
	p.armed = true
	p.mu.Unlock()
	return p.run(ctx, chromedp.Navigate(pageUrl))
}

func (p *chromePage) WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.idle:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrNetworkIdleTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	case <-p.tabCtx.Done():
		return p.tabCtx.Err()
	}
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	var outer string
	if err := p.run(ctx, chromedp.OuterHTML("html", &outer, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return outer, nil
}

func (p *chromePage) Close() error {
	p.close()
	return nil
}

// run executes actions on the tab, bounded by ctx as well as the tab.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(p.tabCtx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// cancelling the tab aborts the running actions
		p.close()
		return ctx.Err()
	}
}
