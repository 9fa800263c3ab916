package browser

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	cdbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// noProxyHosts is always bypassed so DevTools traffic to the local browser
// never routes through a corporate proxy.
const noProxyHosts = "localhost,127.0.0.1,::1"

// Options configures a Chrome session.
type Options struct {
	Headless     bool
	DownloadsDir string // browser-native downloads land here
	UseProxy     bool   // route through Proxy instead of system settings
	Proxy        string // host:port, only used when UseProxy is set
}

// Chrome drives a real Chrome process through the DevTools protocol.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

var _ Browser = (*Chrome)(nil)

// NewChrome launches a Chrome session with download preferences pointed at
// opts.DownloadsDir. The caller must Close it on every exit path.
func NewChrome(ctx context.Context, opts Options) (*Chrome, error) {
	// Mirror the proxy environment the way a corporate workstation expects:
	// bypass localhost always, and defer to system proxy settings unless an
	// explicit proxy was requested.
	os.Setenv("no_proxy", noProxyHosts)
	os.Setenv("NO_PROXY", noProxyHosts)
	if !opts.UseProxy {
		for _, v := range []string{"http_proxy", "HTTP_PROXY", "https_proxy", "HTTPS_PROXY"} {
			os.Unsetenv(v)
		}
	}

	if opts.DownloadsDir != "" {
		if err := os.MkdirAll(opts.DownloadsDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating downloads dir: %w", err)
		}
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.UseProxy && opts.Proxy != "" {
		log.Printf("[browser] using explicit proxy %s", opts.Proxy)
		allocOpts = append(allocOpts,
			chromedp.ProxyServer("http://"+opts.Proxy),
			chromedp.Flag("proxy-bypass-list", noProxyHosts),
		)
	} else {
		log.Printf("[browser] using system proxy settings")
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	c := &Chrome{ctx: browserCtx, cancel: cancel, allocCancel: allocCancel}

	actions := []chromedp.Action{}
	if opts.DownloadsDir != "" {
		actions = append(actions,
			cdbrowser.SetDownloadBehavior(cdbrowser.SetDownloadBehaviorBehaviorAllow).
				WithDownloadPath(opts.DownloadsDir).
				WithEventsEnabled(true))
	}
	if err := chromedp.Run(browserCtx, actions...); err != nil {
		c.Close()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	return c, nil
}

// run executes actions against the session, honoring the caller's deadline.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := c.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(c.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	log.Printf("[browser] navigate %s", url)
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) Location(ctx context.Context) (string, error) {
	var loc string
	err := c.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (c *Chrome) Title(ctx context.Context) (string, error) {
	var title string
	err := c.run(ctx, chromedp.Title(&title))
	return title, err
}

func (c *Chrome) Links(ctx context.Context, selector string) ([]Link, error) {
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).map(a => ({text: (a.textContent || "").trim(), href: a.href || ""}))`,
		strconv.Quote(selector))

	var links []Link
	if err := c.run(ctx, chromedp.Evaluate(script, &links)); err != nil {
		return nil, fmt.Errorf("querying %q: %w", selector, err)
	}
	return links, nil
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (c *Chrome) SendKeys(ctx context.Context, selector, keys string) error {
	return c.run(ctx, chromedp.SendKeys(selector, keys, chromedp.ByQuery))
}

func (c *Chrome) SetValue(ctx context.Context, selector, value string) error {
	return c.run(ctx, chromedp.SetValue(selector, value, chromedp.ByQuery))
}

func (c *Chrome) PageSource(ctx context.Context) (string, error) {
	var html string
	err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (c *Chrome) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := c.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("capturing screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}
	log.Printf("[browser] screenshot saved to %s", path)
	return nil
}

// WithPopup attaches to the newest popup window (a page target with an
// opener), runs fn against it, and detaches. The popup may still be opening
// when this is called, so discovery retries briefly.
func (c *Chrome) WithPopup(ctx context.Context, fn func(ctx context.Context, popup Browser) error) error {
	id, err := c.findPopupTarget(ctx)
	if err != nil {
		return err
	}

	popupCtx, cancel := chromedp.NewContext(c.ctx, chromedp.WithTargetID(id))
	defer cancel()

	popup := &Chrome{ctx: popupCtx}
	return fn(ctx, popup)
}

func (c *Chrome) findPopupTarget(ctx context.Context) (target.ID, error) {
	deadline := time.Now().Add(5 * time.Second)
	for {
		infos, err := chromedp.Targets(c.ctx)
		if err != nil {
			return "", fmt.Errorf("listing browser targets: %w", err)
		}
		for _, info := range infos {
			if info.Type == "page" && info.OpenerID != "" {
				return info.TargetID, nil
			}
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("no popup window appeared")
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func (c *Chrome) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}
