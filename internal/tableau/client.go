// Package tableau drives the Tableau Server web UI: login, workbook/view
// enumeration, and per-view "Who Has Seen This" stats downloads.
package tableau

import (
	"context"
	"time"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/browser"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/config"
)

// Client wraps one authenticated browser session against one server. All
// operations are sequential; the zero value is not usable.
type Client struct {
	b   browser.Browser
	cfg config.Config
}

func NewClient(b browser.Browser, cfg config.Config) *Client {
	return &Client{b: b, cfg: cfg}
}

// settle waits the configured page-render interval. The content grid and the
// admin viz render asynchronously after navigation commits.
func (c *Client) settle(ctx context.Context) error {
	return sleepCtx(ctx, time.Duration(c.cfg.NavSettleSeconds)*time.Second)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
