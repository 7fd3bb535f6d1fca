// Package browser wraps chromedp behind the narrow Renderer capability
// the store adapters consume. Each retrieval task owns one session (one
// browser tab) exclusively for its lifetime; sessions are never shared.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// pollInterval is how often WaitVisibleAny re-checks its selectors.
const pollInterval = 250 * time.Millisecond

// Renderer is the rendering capability an adapter drives to obtain a
// stable content snapshot: navigate, wait for a selector, evaluate a
// script against the DOM. Implementations must honor ctx cancellation.
type Renderer interface {
	Navigate(ctx context.Context, url string) error
	WaitVisibleAny(ctx context.Context, selectors ...string) (string, error)
	Evaluate(ctx context.Context, js string, out any) error
}

// Factory hands out fresh isolated sessions. The returned context
// carries the session's browser target and must be used (or derived
// from) for all Renderer calls; release must always be called.
type Factory interface {
	NewSession() (r Renderer, ctx context.Context, release func(), err error)
}

// Options holds browser launch configuration.
type Options struct {
	Headless  bool
	UserAgent string
}

// Driver owns one Chrome process and creates isolated sessions (tabs)
// from it. It implements Factory.
type Driver struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewDriver prepares a Chrome allocator with the given options. The
// process itself launches lazily with the first session.
func NewDriver(ctx context.Context, opts Options) *Driver {
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.UserAgent(ua),
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-default-browser-check", true),
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	return &Driver{allocCtx: allocCtx, cancel: cancel}
}

// NewSession opens a fresh tab and returns it with its context and a
// release function that closes the tab.
func (d *Driver) NewSession() (Renderer, context.Context, func(), error) {
	ctx, cancel := chromedp.NewContext(d.allocCtx)

	// Starting with network headers both launches the tab eagerly (so
	// launch errors surface here, not mid-scrape) and makes the scraping
	// requests look like a regular browser locale.
	err := chromedp.Run(ctx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-GB,en;q=0.9",
		}),
	)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("failed to open browser session: %w", err)
	}

	return &Session{}, ctx, cancel, nil
}

// Close shuts down the Chrome process.
func (d *Driver) Close() {
	d.cancel()
}

// Session implements Renderer on a chromedp tab. The browser target is
// carried by the context passed to each call, so callers may derive
// timeouts from the session context without losing the target.
type Session struct{}

// Navigate loads a URL and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitVisibleAny polls until one of the selectors is present in the DOM
// and returns the selector that matched. It gives up when ctx expires.
func (s *Session) WaitVisibleAny(ctx context.Context, selectors ...string) (string, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		for _, sel := range selectors {
			var found bool
			js := fmt.Sprintf("!!document.querySelector(%q)", sel)
			if err := chromedp.Run(ctx, chromedp.Evaluate(js, &found)); err != nil {
				return "", fmt.Errorf("failed to check selector %s: %w", sel, err)
			}
			if found {
				slog.Debug("Found selector", "selector", sel)
				return sel, nil
			}
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("timeout waiting for %v: %w", selectors, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Evaluate runs a JavaScript expression on the page and unmarshals the
// result into out.
func (s *Session) Evaluate(ctx context.Context, js string, out any) error {
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, out)); err != nil {
		return fmt.Errorf("failed to evaluate script: %w", err)
	}
	return nil
}
