package tableau

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/core"
)

// contentLinkSelector matches the name links inside the content grid on user
// and workbook pages. The grid markup is deeply nested and unstable; the
// anchor inside the name cell is the only reliable hook.
const contentLinkSelector = `div[role="gridcell"] span a, div.contentListing span a`

// trailingID extracts the numeric id Tableau appends to content URLs.
var trailingID = regexp.MustCompile(`(\d+)$`)

// ListWorkbooks enumerates workbooks owned by userID from the user's content
// page. Rows missing an id or name are skipped and counted, never fatal.
// Duplicates (pagination, repeated grid sections) are collapsed by id,
// keeping the first occurrence. An empty result is not an error.
func (c *Client) ListWorkbooks(ctx context.Context, userID string) ([]core.Workbook, int, error) {
	pageURL := fmt.Sprintf("%s/#/site/%s/user/corp.ads/%s/content", c.cfg.BaseURL, c.cfg.Site, userID)
	if err := c.b.Navigate(ctx, pageURL); err != nil {
		return nil, 0, fmt.Errorf("navigating to user content page: %w", err)
	}
	if err := c.settle(ctx); err != nil {
		return nil, 0, err
	}

	links, err := c.b.Links(ctx, contentLinkSelector)
	if err != nil {
		return nil, 0, fmt.Errorf("extracting workbook links: %w", err)
	}

	var workbooks []core.Workbook
	skipped := 0
	for _, l := range links {
		if !strings.Contains(l.Href, "workbooks") {
			continue
		}
		id := trailingID.FindString(l.Href)
		if id == "" || l.Text == "" {
			skipped++
			continue
		}
		workbooks = append(workbooks, core.Workbook{ID: id, Name: l.Text, URL: l.Href})
	}

	workbooks = lo.UniqBy(workbooks, func(w core.Workbook) string { return w.ID })
	log.Printf("[enumerate] found %d workbooks for %s (%d rows skipped)", len(workbooks), userID, skipped)
	return workbooks, skipped, nil
}

// ListViews enumerates the views of one workbook from its content page. Same
// tolerance rules as ListWorkbooks.
func (c *Client) ListViews(ctx context.Context, wb core.Workbook) ([]core.View, int, error) {
	if err := c.b.Navigate(ctx, wb.URL); err != nil {
		return nil, 0, fmt.Errorf("navigating to workbook %s: %w", wb.Name, err)
	}
	if err := c.settle(ctx); err != nil {
		return nil, 0, err
	}

	links, err := c.b.Links(ctx, contentLinkSelector)
	if err != nil {
		return nil, 0, fmt.Errorf("extracting view links: %w", err)
	}

	var views []core.View
	skipped := 0
	for _, l := range links {
		if !strings.Contains(l.Href, "views") {
			continue
		}
		id := trailingID.FindString(l.Href)
		if id == "" || l.Text == "" {
			skipped++
			continue
		}
		views = append(views, core.View{ID: id, Name: l.Text, WorkbookID: wb.ID, URL: l.Href})
	}

	views = lo.UniqBy(views, func(v core.View) string { return v.ID })
	log.Printf("[enumerate] workbook %q: %d views (%d rows skipped)", wb.Name, len(views), skipped)
	return views, skipped, nil
}
