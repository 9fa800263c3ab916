// Package directory resolves short usernames to display names via the
// internal teamcards lookup page. Lookup failure is never an error: callers
// always get a name back, possibly the UNKNOWN literal.
package directory

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/browser"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/core"
)

// DefaultURL is the directory service entry page.
const DefaultURL = "https://go/teamcards"

// The search form is a bare HTML-table layout: one mode dropdown, one text
// input, one submit button.
const (
	searchModeSelector   = `td select`
	searchInputSelector  = `td input[type="text"]`
	searchButtonSelector = `td input[type="button"], td input[type="submit"]`
)

// empID matches employee ids like T845443 / X123456. The dropdown position
// and the search value both depend on this.
var empID = regexp.MustCompile(`(?i)^[TX]`)

// Client performs at most one live lookup per distinct username per run. A
// nil browser disables live lookups (cache-only mode for offline commands).
type Client struct {
	b      browser.Browser
	store  *Store
	url    string
	settle time.Duration

	cache    map[string]string
	resolved int
	unknown  int
}

func NewClient(b browser.Browser, store *Store) *Client {
	return &Client{
		b:      b,
		store:  store,
		url:    DefaultURL,
		settle: 2 * time.Second,
		cache:  make(map[string]string),
	}
}

// SetURL overrides the directory entry page (tests).
func (c *Client) SetURL(u string) { c.url = u }

// SetSettle overrides the post-navigation wait (tests).
func (c *Client) SetSettle(d time.Duration) { c.settle = d }

// Counts returns how many distinct usernames resolved to a real name and how
// many ended up UNKNOWN during this run.
func (c *Client) Counts() (resolved, unknown int) {
	return c.resolved, c.unknown
}

// Resolve returns the display name for username, consulting the per-run
// cache, then the persistent cache, then the live directory page. It never
// fails: any error path yields core.UnknownName.
func (c *Client) Resolve(ctx context.Context, username string) string {
	if name, ok := c.cache[username]; ok {
		return name
	}

	if name, ok, err := c.store.Get(ctx, username); err == nil && ok {
		c.cache[username] = name
		c.count(name)
		return name
	}

	name, definitive := c.lookup(ctx, username)
	c.cache[username] = name
	c.count(name)

	// Persist real names and definitive not-founds. Transient failures stay
	// per-run so the next run retries them.
	if definitive {
		if err := c.store.Put(ctx, username, name); err != nil {
			log.Printf("[directory] caching %s failed: %v", username, err)
		}
	}
	return name
}

func (c *Client) count(name string) {
	if name == core.UnknownName {
		c.unknown++
	} else {
		c.resolved++
	}
}

// lookup drives the teamcards search form. The second return reports whether
// the answer is definitive (page reached and parsed) as opposed to a
// transient navigation failure.
func (c *Client) lookup(ctx context.Context, username string) (string, bool) {
	if c.b == nil {
		return core.UnknownName, false
	}

	log.Printf("[directory] looking up %s", username)
	if err := c.b.Navigate(ctx, c.url); err != nil {
		log.Printf("[directory] %s: navigation failed: %v", username, err)
		return core.UnknownName, false
	}
	if err := sleepCtx(ctx, c.settle); err != nil {
		return core.UnknownName, false
	}

	// Pick the search mode: employee-id entry sits one position above the
	// ntid entry in the dropdown.
	downs := 6
	if empID.MatchString(username) {
		downs = 5
	}
	for i := 0; i < downs; i++ {
		if err := c.b.SendKeys(ctx, searchModeSelector, browser.KeyArrowDown); err != nil {
			log.Printf("[directory] %s: search form missing: %v", username, err)
			return core.UnknownName, false
		}
	}

	query := empID.ReplaceAllString(username, "")
	if err := c.b.SetValue(ctx, searchInputSelector, query); err != nil {
		log.Printf("[directory] %s: search input missing: %v", username, err)
		return core.UnknownName, false
	}
	if err := c.b.Click(ctx, searchButtonSelector); err != nil {
		log.Printf("[directory] %s: search submit failed: %v", username, err)
		return core.UnknownName, false
	}
	if err := sleepCtx(ctx, c.settle); err != nil {
		return core.UnknownName, false
	}

	src, err := c.b.PageSource(ctx)
	if err != nil {
		log.Printf("[directory] %s: reading result page failed: %v", username, err)
		return core.UnknownName, false
	}

	name, found := extractFullName(src)
	if !found {
		log.Printf("[directory] %s: no match", username)
		return core.UnknownName, true
	}
	return name, true
}

// extractFullName pulls the display name out of the result page: the last
// table's second row, second cell.
func extractFullName(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	rows := doc.Find("table").Last().Find("tr")
	if rows.Length() < 2 {
		return "", false
	}
	cells := rows.Eq(1).Find("td")
	if cells.Length() < 2 {
		return "", false
	}

	name := strings.TrimSpace(cells.Eq(1).Text())
	if name == "" {
		return "", false
	}
	return name, true
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
