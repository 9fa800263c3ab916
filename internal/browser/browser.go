// Package browser defines the automation capability the scraper drives and
// its Chrome implementation. Callers depend on the Browser interface only, so
// tests can substitute a recording fake and the rest of the code never touches
// a browser engine directly.
package browser

import (
	"context"

	"github.com/chromedp/chromedp/kb"
)

// Key sequences accepted by SendKeys.
const (
	KeyArrowDown = kb.ArrowDown
	KeyEnter     = kb.Enter
)

// Link is an anchor element extracted from the current page.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Browser is the minimal automation surface the pipeline needs: navigate,
// inspect, interact, and capture. One instance is one browser session; all
// calls are sequential.
type Browser interface {
	// Navigate loads the given URL in the current window.
	Navigate(ctx context.Context, url string) error

	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)

	// Title returns the current page title.
	Title(ctx context.Context) (string, error)

	// Links returns text and href for every element matching the CSS
	// selector.
	Links(ctx context.Context, selector string) ([]Link, error)

	// Click clicks the first element matching the CSS selector.
	Click(ctx context.Context, selector string) error

	// SendKeys types the key sequence into the first matching element.
	SendKeys(ctx context.Context, selector, keys string) error

	// SetValue replaces the value of the first matching input element.
	SetValue(ctx context.Context, selector, value string) error

	// PageSource returns the full HTML of the current page.
	PageSource(ctx context.Context) (string, error)

	// Screenshot writes a capture of the current page to path.
	Screenshot(ctx context.Context, path string) error

	// WithPopup runs fn against the most recently opened popup window, then
	// detaches from it. The popup must already have been triggered.
	WithPopup(ctx context.Context, fn func(ctx context.Context, popup Browser) error) error

	// Close releases the browser session and its process.
	Close() error
}
