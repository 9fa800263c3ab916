package tableau

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/browser"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/core"
)

// exportedFileName is what the server names every "Who Has Seen This" CSV
// export; the downloader renames it per view immediately after it lands.
const exportedFileName = "Who Has Seen_data.csv"

// Admin viz toolbar controls.
const (
	downloadButtonSelector  = `#download`
	downloadMenuSelector    = `#viz-viewer-toolbar-download-menu`
	downloadConfirmSelector = `div[data-tb-test-id="export-crosstab-export-Button"], div.tab-dialog button`
	dialogCloseSelector     = `button[data-tb-test-id="export-crosstab-dialog-CloseButton"], div.tab-dialog-close button`
)

// StatsFileName is the per-view cache filename inside the downloads dir.
func StatsFileName(workbookID, viewID string) string {
	return fmt.Sprintf("Who Has Seen_data-%s-%s.csv", workbookID, viewID)
}

// DownloadStats fetches the "Who Has Seen This" CSV for one view. When the
// per-view file already exists and refresh is false it returns a cached
// FileRef without touching the browser. A missing export after the configured
// wait returns a core.DownloadTimeoutError; callers skip the view and
// continue.
func (c *Client) DownloadStats(ctx context.Context, view core.View, refresh bool) (core.FileRef, error) {
	target := filepath.Join(c.cfg.DownloadsDir, StatsFileName(view.WorkbookID, view.ID))

	if !refresh {
		if _, err := os.Stat(target); err == nil {
			log.Printf("[download] view %s: using cached %s", view.ID, filepath.Base(target))
			return core.FileRef{Path: target, ViewID: view.ID, WorkbookID: view.WorkbookID, Cached: true}, nil
		}
	}

	adminURL := fmt.Sprintf("%s/vizql/showadminview/views/WhoHasSeen?views_id=%s", c.cfg.BaseURL, view.ID)
	if err := c.b.Navigate(ctx, adminURL); err != nil {
		return core.FileRef{}, fmt.Errorf("navigating to admin view for %s: %w", view.ID, err)
	}
	if err := c.settle(ctx); err != nil {
		return core.FileRef{}, err
	}

	if err := c.triggerExport(ctx, view); err != nil {
		c.downloadScreenshot(ctx, view)
		return core.FileRef{}, err
	}

	timeout := time.Duration(c.cfg.DownloadTimeoutSecond) * time.Second
	exported := filepath.Join(c.cfg.DownloadsDir, exportedFileName)
	if err := waitForDownload(ctx, exported, timeout); err != nil {
		if ctx.Err() != nil {
			return core.FileRef{}, ctx.Err()
		}
		return core.FileRef{}, &core.DownloadTimeoutError{ViewID: view.ID, Timeout: timeout}
	}

	if err := os.Rename(exported, target); err != nil {
		return core.FileRef{}, fmt.Errorf("renaming export for view %s: %w", view.ID, err)
	}

	log.Printf("[download] view %s: saved %s", view.ID, filepath.Base(target))
	return core.FileRef{Path: target, ViewID: view.ID, WorkbookID: view.WorkbookID}, nil
}

// triggerExport walks the admin viz download flow: toolbar button, crosstab
// menu entry, confirmation in the popup window, then the dialog close.
func (c *Client) triggerExport(ctx context.Context, view core.View) error {
	if err := c.b.Click(ctx, downloadButtonSelector); err != nil {
		return fmt.Errorf("download button for view %s: %w", view.ID, err)
	}
	if err := c.b.SendKeys(ctx, downloadMenuSelector, browser.KeyArrowDown); err != nil {
		return fmt.Errorf("download menu for view %s: %w", view.ID, err)
	}
	if err := c.b.SendKeys(ctx, downloadMenuSelector, browser.KeyEnter); err != nil {
		return fmt.Errorf("download menu for view %s: %w", view.ID, err)
	}
	if err := sleepCtx(ctx, time.Second); err != nil {
		return err
	}

	err := c.b.WithPopup(ctx, func(ctx context.Context, popup browser.Browser) error {
		return popup.Click(ctx, downloadConfirmSelector)
	})
	if err != nil {
		return fmt.Errorf("export confirmation for view %s: %w", view.ID, err)
	}

	// The originating page shows a modal while the export streams; closing it
	// is cosmetic, so a failure here is not an error.
	if err := c.b.Click(ctx, dialogCloseSelector); err != nil {
		log.Printf("[download] view %s: export dialog close failed: %v", view.ID, err)
	}
	return nil
}

func (c *Client) downloadScreenshot(ctx context.Context, view core.View) {
	path := filepath.Join(c.cfg.DownloadsDir, fmt.Sprintf("view-%s-error.png", view.ID))
	if err := c.b.Screenshot(ctx, path); err != nil {
		log.Printf("[download] view %s: diagnostic screenshot failed: %v", view.ID, err)
	}
}

// waitForDownload blocks until path exists and its size is unchanged across
// two consecutive polls, or the timeout expires. A directory watcher wakes
// the loop early when the browser creates the file; polling continues
// regardless so a missed event cannot hang the wait.
func waitForDownload(ctx context.Context, path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	var events chan fsnotify.Event
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(path)); err == nil {
			events = watcher.Events
		}
	}

	// Appearance.
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("download %s never appeared", filepath.Base(path))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-events:
		case <-time.After(500 * time.Millisecond):
		}
	}

	// Stabilization: the browser writes to a temp file and grows the final
	// one; equal sizes across consecutive polls signal completion.
	lastSize := int64(-1)
	for {
		fi, err := os.Stat(path)
		if err == nil {
			if fi.Size() == lastSize {
				return nil
			}
			lastSize = fi.Size()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("download %s never stabilized", filepath.Base(path))
		}
		if err := sleepCtx(ctx, 300*time.Millisecond); err != nil {
			return err
		}
	}
}
