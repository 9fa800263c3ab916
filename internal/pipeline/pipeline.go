// Package pipeline sequences the full run: login, enumerate, download, parse,
// aggregate, write. One view at a time, one lookup at a time; item-level
// failures are absorbed into counters and only auth or report-write failures
// propagate.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/browser"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/config"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/core"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/directory"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/report"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/stats"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/tableau"
)

type Pipeline struct {
	cfg config.Config
	tc  *tableau.Client
	dir *directory.Client

	refresh bool
	outPath string
	out     io.Writer
	now     func() time.Time

	stats core.RunStats
}

// New wires a pipeline over one browser session. The caller owns the browser
// and must close it on every exit path.
func New(cfg config.Config, b browser.Browser, dir *directory.Client) *Pipeline {
	return &Pipeline{
		cfg: cfg,
		tc:  tableau.NewClient(b, cfg),
		dir: dir,
		out: os.Stdout,
		now: time.Now,
	}
}

// SetRefresh forces re-downloading stats files that are already cached.
func (p *Pipeline) SetRefresh(refresh bool) { p.refresh = refresh }

// SetOutputPath overrides the default report location.
func (p *Pipeline) SetOutputPath(path string) { p.outPath = path }

// SetOutput redirects progress lines (tests).
func (p *Pipeline) SetOutput(w io.Writer) { p.out = w }

// Stats returns the run counters accumulated so far.
func (p *Pipeline) Stats() core.RunStats { return p.stats }

// Run executes the whole pipeline and returns the report path. The run
// always tries to produce a report from whatever was collected; it returns
// core.ErrNoData when nothing at all was parseable.
func (p *Pipeline) Run(ctx context.Context) (string, error) {
	if err := p.tc.Login(ctx); err != nil {
		return "", err
	}

	workbooks, views := p.enumerate(ctx)
	p.download(ctx, views)

	records, ps := stats.ParseDir(p.cfg.DownloadsDir, views)
	p.stats.FilesMissing = ps.FilesMissing
	p.stats.FilesUnreadable = ps.FilesUnreadable
	p.stats.RowsDropped = ps.RowsDropped
	p.stats.RecordsParsed = len(records)

	if len(records) == 0 {
		return "", core.ErrNoData
	}

	summary, detail := stats.Aggregate(ctx, records, workbooks, views, p.dir)
	p.stats.LookupsResolved, p.stats.LookupsUnknown = p.dir.Counts()

	path := p.outPath
	if path == "" {
		path = filepath.Join(p.cfg.DownloadsDir, report.FileName(p.cfg.UserID, p.now()))
	}
	if err := report.Write(summary, detail, path); err != nil {
		return "", err
	}
	return path, nil
}

// enumerate lists workbooks and their views. Total enumeration failure is
// logged and yields empty results, not an error: the run still completes and
// reports what it can.
func (p *Pipeline) enumerate(ctx context.Context) ([]core.Workbook, []core.View) {
	workbooks, skipped, err := p.tc.ListWorkbooks(ctx, p.cfg.UserID)
	if err != nil {
		log.Printf("[pipeline] workbook enumeration failed: %v", err)
		fmt.Fprintf(p.out, "Workbook enumeration failed: %v\n", err)
		return nil, nil
	}
	p.stats.EnumerationSkips += skipped
	p.stats.WorkbooksFound = len(workbooks)
	fmt.Fprintf(p.out, "Found %d workbooks\n", len(workbooks))

	var views []core.View
	for _, wb := range workbooks {
		vs, skipped, err := p.tc.ListViews(ctx, wb)
		if err != nil {
			log.Printf("[pipeline] enumerating views of %q failed: %v", wb.Name, err)
			p.stats.EnumerationSkips++
			continue
		}
		p.stats.EnumerationSkips += skipped
		fmt.Fprintf(p.out, "Workbook %q: %d views\n", wb.Name, len(vs))
		views = append(views, vs...)
	}
	p.stats.ViewsFound = len(views)
	return workbooks, views
}

// download fetches stats per view. A failed view is counted and skipped; it
// never stops the loop.
func (p *Pipeline) download(ctx context.Context, views []core.View) {
	for _, v := range views {
		if ctx.Err() != nil {
			return
		}
		ref, err := p.tc.DownloadStats(ctx, v, p.refresh)
		switch {
		case err != nil:
			log.Printf("[pipeline] view %s download failed: %v", v.ID, err)
			fmt.Fprintf(p.out, "  view %q: download skipped (%v)\n", v.Name, err)
			p.stats.DownloadsFailed++
		case ref.Cached:
			p.stats.DownloadsCached++
		default:
			p.stats.Downloaded++
		}
	}
}
