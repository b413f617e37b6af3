package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// DefaultPageTimeout bounds loading and reading a page in the browser.
const DefaultPageTimeout = 60 * time.Second

// documentScript reads the same page surface the side panel used to inject:
// visible text, first h1, title and every img src.
const documentScript = `(() => {
	const h1 = document.querySelector('h1');
	return {
		text: document.body ? document.body.innerText : '',
		heading: h1 ? h1.innerText : '',
		title: document.title,
		images: Array.from(document.querySelectorAll('img')).map(img => img.src).filter(Boolean)
	};
})()`

// BrowserOpts configures a BrowserSource.
type BrowserOpts struct {
	// RemoteURL is the DevTools websocket URL of an already running browser
	// (e.g. ws://127.0.0.1:9222/devtools/browser/<id>). When set, pages are
	// read in that browser with its cookies and logins, and an empty page URL
	// means the tab the user has open. When empty, Chrome is launched.
	RemoteURL string
	Headless  bool
	Timeout   time.Duration
}

// BrowserSource reads pages from a Chrome instance over the DevTools protocol.
type BrowserSource struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	remote        bool
	timeout       time.Duration
}

// NewBrowserSource starts or connects to the browser. Close must be called to
// release it.
func NewBrowserSource(opts BrowserOpts) (*BrowserSource, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultPageTimeout
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.WindowSize(1280, 1024),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Listing targets allocates the browser connection without opening a tab.
	if _, err := chromedp.Targets(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.Info().
		Bool("remote", opts.RemoteURL != "").
		Bool("headless", opts.Headless).
		Msg("browser ready")

	return &BrowserSource{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		remote:        opts.RemoteURL != "",
		timeout:       timeout,
	}, nil
}

// Close releases the browser. A remote browser is only disconnected from:
// cancelling its first context would close the user's browser.
func (b *BrowserSource) Close() {
	if !b.remote {
		b.browserCancel()
	}
	b.allocCancel()
}

// Document loads pageURL in a new tab and reads it. With an empty pageURL the
// URL of the first open tab of a remote browser is used.
func (b *BrowserSource) Document(ctx context.Context, pageURL string) (*Document, error) {
	if pageURL == "" {
		activeURL, err := b.activeTabURL()
		if err != nil {
			return nil, err
		}
		pageURL = activeURL
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	defer tabCancel()
	tabCtx, cancel := context.WithTimeout(tabCtx, b.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var doc Document
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(documentScript, &doc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read page in browser: %w", err)
	}

	log.Debug().Str("url", pageURL).Int("images", len(doc.Images)).Msg("read page in browser")
	return &doc, nil
}

// activeTabURL returns the URL of the first regular page tab. Tabs opened by
// this source are closed after reading, so they do not shadow the user's tab.
func (b *BrowserSource) activeTabURL() (string, error) {
	if !b.remote {
		return "", fmt.Errorf("%w: a page URL is required without a remote browser", ErrNoBrowserTab)
	}

	targets, err := chromedp.Targets(b.browserCtx)
	if err != nil {
		return "", fmt.Errorf("failed to list browser tabs: %w", err)
	}

	t := firstPageTarget(targets)
	if t == nil {
		return "", ErrNoBrowserTab
	}
	log.Debug().Str("url", t.URL).Str("title", t.Title).Msg("using open browser tab")
	return t.URL, nil
}

// firstPageTarget picks the first web page among the browser's targets,
// skipping service workers, extensions and internal chrome:// pages.
func firstPageTarget(targets []*target.Info) *target.Info {
	for _, t := range targets {
		if t.Type == "page" && isHTTPURL(t.URL) {
			return t
		}
	}
	return nil
}
