package tableau

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/browser"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/core"
)

// Login form selectors for the server's local sign-in page. Only reached when
// passive SSO never lands.
const (
	usernameSelector = `input[name="username"]`
	passwordSelector = `input[name="password"]`
	signInSelector   = `button[type="submit"]`
)

// Login establishes an authenticated session. It navigates to the server,
// waits a bounded interval for passive SSO to land, and only then falls back
// to credential entry. Every failure path wraps core.ErrAuth; callers treat
// that as fatal.
func (c *Client) Login(ctx context.Context) error {
	if hasBrowserSession(c.cfg.BaseURL) {
		log.Printf("[session] found existing browser cookies for %s, expecting passive SSO", c.cfg.BaseURL)
	}

	if err := c.b.Navigate(ctx, c.cfg.BaseURL); err != nil {
		return fmt.Errorf("%w: reaching %s: %v", core.ErrAuth, c.cfg.BaseURL, err)
	}
	if err := c.settle(ctx); err != nil {
		return fmt.Errorf("%w: %v", core.ErrAuth, err)
	}

	if ok, err := c.waitForLanding(ctx, time.Duration(c.cfg.SSOWaitSeconds)*time.Second); err != nil {
		return fmt.Errorf("%w: %v", core.ErrAuth, err)
	} else if ok {
		fmt.Println("Already logged in via SSO or existing session")
		return nil
	}

	fmt.Println("Manual login required...")
	password, err := c.cfg.ResolvePassword()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrAuth, err)
	}

	if err := c.submitCredentials(ctx, c.cfg.SSOUsername, password); err != nil {
		c.loginScreenshot(ctx)
		return fmt.Errorf("%w: submitting credentials: %v", core.ErrAuth, err)
	}

	if ok, err := c.waitForLanding(ctx, time.Duration(c.cfg.SSOWaitSeconds)*time.Second); err != nil {
		return fmt.Errorf("%w: %v", core.ErrAuth, err)
	} else if !ok {
		c.loginScreenshot(ctx)
		return fmt.Errorf("%w: no authenticated landing page after credential login", core.ErrAuth)
	}
	return nil
}

// waitForLanding polls until the page looks like an authenticated landing:
// the site URL fragment or the server title. Returns false (not an error)
// when the window expires without landing.
func (c *Client) waitForLanding(ctx context.Context, window time.Duration) (bool, error) {
	deadline := time.Now().Add(window)
	for {
		loc, err := c.b.Location(ctx)
		if err != nil {
			return false, err
		}
		title, err := c.b.Title(ctx)
		if err != nil {
			return false, err
		}
		if authenticatedLanding(loc, title) {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		if err := sleepCtx(ctx, time.Second); err != nil {
			return false, err
		}
	}
}

func authenticatedLanding(location, title string) bool {
	return strings.Contains(location, "/#/site") || strings.Contains(title, "Tableau Server")
}

func (c *Client) submitCredentials(ctx context.Context, username, password string) error {
	if err := c.b.SetValue(ctx, usernameSelector, username); err != nil {
		return fmt.Errorf("username field: %w", err)
	}
	if err := c.b.SetValue(ctx, passwordSelector, password); err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	if err := c.b.Click(ctx, signInSelector); err != nil {
		// Some SSO pages submit on enter instead of exposing a button.
		if kerr := c.b.SendKeys(ctx, passwordSelector, browser.KeyEnter); kerr != nil {
			return fmt.Errorf("sign-in control: %w", err)
		}
	}
	return c.settle(ctx)
}

func (c *Client) loginScreenshot(ctx context.Context) {
	path := filepath.Join(c.cfg.DownloadsDir, "login-failure.png")
	if err := os.MkdirAll(c.cfg.DownloadsDir, 0o755); err != nil {
		return
	}
	if err := c.b.Screenshot(ctx, path); err != nil {
		log.Printf("[session] diagnostic screenshot failed: %v", err)
	}
}

// hasBrowserSession checks the workstation's installed-browser cookie stores
// for a live cookie on the server host. Purely informational: a hit means
// passive SSO is likely, a miss means nothing (the session cookie may be
// HTTP-only in a profile kooky cannot read).
func hasBrowserSession(baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	cookies := kooky.ReadCookies(kooky.Valid, kooky.DomainContains(u.Hostname()))
	return len(cookies) > 0
}
