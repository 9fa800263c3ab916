package tableau

import (
	"context"
	"fmt"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/browser"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/core"
)

func wb(id, name, url string) core.Workbook {
	return core.Workbook{ID: id, Name: name, URL: url}
}

// fakeBrowser records every interaction and serves canned pages keyed by the
// last navigated URL.
type fakeBrowser struct {
	navigations []string
	clicks      []string
	keys        []string
	screenshots []string

	current    string
	titleByURL map[string]string
	linksByURL map[string][]browser.Link
	sourceByURL map[string]string

	onClick func(selector string) error
	closed  bool
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		titleByURL:  map[string]string{},
		linksByURL:  map[string][]browser.Link{},
		sourceByURL: map[string]string{},
	}
}

func (f *fakeBrowser) Navigate(_ context.Context, url string) error {
	f.navigations = append(f.navigations, url)
	f.current = url
	return nil
}

func (f *fakeBrowser) Location(context.Context) (string, error) { return f.current, nil }

func (f *fakeBrowser) Title(context.Context) (string, error) { return f.titleByURL[f.current], nil }

func (f *fakeBrowser) Links(_ context.Context, selector string) ([]browser.Link, error) {
	return f.linksByURL[f.current], nil
}

func (f *fakeBrowser) Click(_ context.Context, selector string) error {
	f.clicks = append(f.clicks, selector)
	if f.onClick != nil {
		return f.onClick(selector)
	}
	return nil
}

func (f *fakeBrowser) SendKeys(_ context.Context, selector, keys string) error {
	f.keys = append(f.keys, selector+"<-"+keys)
	return nil
}

func (f *fakeBrowser) SetValue(_ context.Context, selector, value string) error {
	f.keys = append(f.keys, selector+"="+value)
	return nil
}

func (f *fakeBrowser) PageSource(context.Context) (string, error) {
	return f.sourceByURL[f.current], nil
}

func (f *fakeBrowser) Screenshot(_ context.Context, path string) error {
	f.screenshots = append(f.screenshots, path)
	return nil
}

func (f *fakeBrowser) WithPopup(ctx context.Context, fn func(context.Context, browser.Browser) error) error {
	return fn(ctx, f)
}

func (f *fakeBrowser) Close() error {
	if f.closed {
		return fmt.Errorf("already closed")
	}
	f.closed = true
	return nil
}
