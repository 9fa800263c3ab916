package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/browser"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/config"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/core"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/directory"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/report"
)

// fakeBrowser serves the whole run: the Tableau landing, the content grids,
// and the teamcards lookup pages.
type fakeBrowser struct {
	current     string
	navigations []string
	clicks      []string

	titleByURL   map[string]string
	linksByURL   map[string][]browser.Link
	pagesByQuery map[string]string
	lastQuery    string

	failClicks bool
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		titleByURL:   map[string]string{},
		linksByURL:   map[string][]browser.Link{},
		pagesByQuery: map[string]string{},
	}
}

func (f *fakeBrowser) Navigate(_ context.Context, url string) error {
	f.navigations = append(f.navigations, url)
	f.current = url
	return nil
}

func (f *fakeBrowser) Location(context.Context) (string, error) { return f.current, nil }
func (f *fakeBrowser) Title(context.Context) (string, error)    { return f.titleByURL[f.current], nil }

func (f *fakeBrowser) Links(context.Context, string) ([]browser.Link, error) {
	return f.linksByURL[f.current], nil
}

func (f *fakeBrowser) Click(_ context.Context, selector string) error {
	f.clicks = append(f.clicks, selector)
	if f.failClicks {
		return fmt.Errorf("element not found: %s", selector)
	}
	return nil
}

func (f *fakeBrowser) SendKeys(context.Context, string, string) error { return nil }

func (f *fakeBrowser) SetValue(_ context.Context, _, value string) error {
	f.lastQuery = value
	return nil
}

func (f *fakeBrowser) PageSource(context.Context) (string, error) {
	if page, ok := f.pagesByQuery[f.lastQuery]; ok {
		return page, nil
	}
	return "<html><body><table><tr><th>no results</th></tr></table></body></html>", nil
}

func (f *fakeBrowser) Screenshot(context.Context, string) error { return nil }

func (f *fakeBrowser) WithPopup(ctx context.Context, fn func(context.Context, browser.Browser) error) error {
	return fn(ctx, f)
}

func (f *fakeBrowser) Close() error { return nil }

func namePage(name string) string {
	return fmt.Sprintf(`<html><body>
		<table><tr><td>form</td></tr></table>
		<table><tr><th>ID</th><th>Name</th></tr><tr><td>1</td><td>%s</td></tr></table>
	</body></html>`, name)
}

func testConfig(dir string) config.Config {
	return config.Config{
		BaseURL:               "https://tableau.example.com",
		Site:                  "tqbi",
		UserID:                "T845443",
		DownloadsDir:          dir,
		SSOWaitSeconds:        1,
		NavSettleSeconds:      0,
		DownloadTimeoutSecond: 1,
	}
}

// seedServer wires an authenticated landing, two workbooks with one view
// each, and a directory that knows userA.
func seedServer(fake *fakeBrowser, cfg config.Config) {
	fake.titleByURL[cfg.BaseURL] = "Tableau Server"

	contentURL := cfg.BaseURL + "/#/site/tqbi/user/corp.ads/T845443/content"
	wb1 := cfg.BaseURL + "/#/site/tqbi/workbooks/1"
	wb2 := cfg.BaseURL + "/#/site/tqbi/workbooks/2"
	fake.linksByURL[contentURL] = []browser.Link{
		{Text: "Sales", Href: wb1},
		{Text: "Marketing", Href: wb2},
	}
	fake.linksByURL[wb1] = []browser.Link{
		{Text: "Sales Overview", Href: cfg.BaseURL + "/#/site/tqbi/views/10"},
	}
	fake.linksByURL[wb2] = []browser.Link{
		{Text: "Campaign Reach", Href: cfg.BaseURL + "/#/site/tqbi/views/20"},
	}

	fake.pagesByQuery["userA"] = namePage("John Doe")
}

func seedStatsFiles(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"Who Has Seen_data-1-10.csv": "View Name,Username,Last Viewed,Measure Values\n" +
			"Sales Overview,userA,2025-11-05 10:30:00,5\n" +
			"Sales Overview,userB,2025-11-04 09:00:00,3\n",
		"Who Has Seen_data-2-20.csv": "View Name,Username,Last Viewed,Measure Values\n" +
			"Campaign Reach,userC,2025-11-01 08:00:00,2\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newDirClient(fake *fakeBrowser) *directory.Client {
	c := directory.NewClient(fake, nil)
	c.SetSettle(0)
	return c
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	fake := newFakeBrowser()
	seedServer(fake, cfg)
	seedStatsFiles(t, dir)

	p := New(cfg, fake, newDirClient(fake))
	p.SetOutput(io.Discard)

	path, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening report: %v", err)
	}
	defer f.Close()

	// Summary: Sales 5+3=8 first, Marketing 2 second.
	if got, _ := f.GetCellValue(report.SummarySheet, "A2"); got != "Sales" {
		t.Errorf("summary A2 = %q, want Sales", got)
	}
	if got, _ := f.GetCellValue(report.SummarySheet, "D2"); got != "8" {
		t.Errorf("summary D2 = %q, want 8", got)
	}
	if got, _ := f.GetCellValue(report.SummarySheet, "A3"); got != "Marketing" {
		t.Errorf("summary A3 = %q, want Marketing", got)
	}
	if got, _ := f.GetCellValue(report.SummarySheet, "D3"); got != "2" {
		t.Errorf("summary D3 = %q, want 2", got)
	}

	// Detail: resolved and unknown names both present.
	if got, _ := f.GetCellValue(report.DetailSheet, "F2"); got != "John Doe" {
		t.Errorf("detail F2 = %q, want John Doe", got)
	}
	if got, _ := f.GetCellValue(report.DetailSheet, "F3"); got != core.UnknownName {
		t.Errorf("detail F3 = %q, want %q", got, core.UnknownName)
	}

	st := p.Stats()
	if st.WorkbooksFound != 2 || st.ViewsFound != 2 {
		t.Errorf("found %d workbooks / %d views, want 2 / 2", st.WorkbooksFound, st.ViewsFound)
	}
	if st.DownloadsCached != 2 || st.Downloaded != 0 {
		t.Errorf("downloads cached=%d fetched=%d, want all cache hits", st.DownloadsCached, st.Downloaded)
	}
	if st.RecordsParsed != 3 {
		t.Errorf("RecordsParsed = %d, want 3", st.RecordsParsed)
	}
	if st.LookupsResolved != 1 || st.LookupsUnknown != 2 {
		t.Errorf("lookups resolved=%d unknown=%d, want 1 / 2", st.LookupsResolved, st.LookupsUnknown)
	}

	// Cache hits must not touch the admin download pages.
	for _, url := range fake.navigations {
		if strings.Contains(url, "/vizql/") {
			t.Errorf("unexpected download navigation %s with warm cache", url)
		}
	}
}

func TestRunSurvivesMissingAndFailedDownloads(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	fake := newFakeBrowser()
	seedServer(fake, cfg)

	// Only view 10 has a cached file; view 20's download will fail at the
	// toolbar click (no file ever appears).
	if err := os.WriteFile(filepath.Join(dir, "Who Has Seen_data-1-10.csv"),
		[]byte("View Name,Username,Last Viewed,Measure Values\nSales Overview,userA,2025-11-05 10:30:00,5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fake.failClicks = true

	p := New(cfg, fake, newDirClient(fake))
	p.SetOutput(io.Discard)

	path, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want report from partial data", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report missing: %v", err)
	}

	st := p.Stats()
	if st.DownloadsFailed != 1 {
		t.Errorf("DownloadsFailed = %d, want 1", st.DownloadsFailed)
	}
	if st.FilesMissing != 1 {
		t.Errorf("FilesMissing = %d, want 1", st.FilesMissing)
	}
	if st.RecordsParsed != 1 {
		t.Errorf("RecordsParsed = %d, want 1 from the surviving view", st.RecordsParsed)
	}
	if !st.Degraded() {
		t.Error("Stats().Degraded() = false, want true")
	}
}

func TestRunNoDataAtAll(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	fake := newFakeBrowser()
	seedServer(fake, cfg)
	fake.failClicks = true // every download fails, nothing cached

	p := New(cfg, fake, newDirClient(fake))
	p.SetOutput(io.Discard)

	_, err := p.Run(context.Background())
	if !errors.Is(err, core.ErrNoData) {
		t.Fatalf("Run() error = %v, want core.ErrNoData", err)
	}
	if st := p.Stats(); st.DownloadsFailed != 2 {
		t.Errorf("DownloadsFailed = %d, want 2", st.DownloadsFailed)
	}
}

func TestRunAuthFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.SSOPassword = "wrong"
	fake := newFakeBrowser()
	fake.titleByURL[cfg.BaseURL] = "Sign In" // never lands

	p := New(cfg, fake, newDirClient(fake))
	p.SetOutput(io.Discard)

	_, err := p.Run(context.Background())
	if !errors.Is(err, core.ErrAuth) {
		t.Fatalf("Run() error = %v, want wrapped core.ErrAuth", err)
	}

	// Nothing past login may run.
	for _, url := range fake.navigations {
		if strings.Contains(url, "/content") || strings.Contains(url, "/vizql/") {
			t.Errorf("navigation %s happened after failed login", url)
		}
	}
}
