// Package stats turns downloaded "Who Has Seen This" CSV exports into usage
// records and aggregates them into the report tables.
package stats

import (
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/core"
)

// statsFileName matches the renamed per-view exports and captures the
// workbook and view ids embedded by the downloader.
var statsFileName = regexp.MustCompile(`^Who Has Seen_data-(\d+)-(\d+)\.csv$`)

// usageRow mirrors one line of the export. Column presence varies between
// server versions; absent columns simply leave fields empty. Some exports
// carry the count under "Views" instead of the measure pair.
type usageRow struct {
	ViewName   string `csv:"View Name"`
	Username   string `csv:"Username"`
	LastViewed string `csv:"Last Viewed"`
	Measure    string `csv:"Measure Values"`
	Views      string `csv:"Views"`
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04",
	"2006-01-02",
}

// ParseStats reports what the parser had to skip. Per-file and per-row
// problems never abort the run; they land here.
type ParseStats struct {
	FilesParsed     int
	FilesMissing    int
	FilesUnreadable int
	RowsDropped     int

	// ViewNames carries the view display names seen inside the exports,
	// keyed by view id. Offline re-parsing uses it to reconstruct view
	// metadata when no enumeration ran.
	ViewNames map[string]string
}

// ParseDir reads every per-view export in dir. When views is non-empty only
// files for enumerated views are read and views without a file are counted
// missing; with no views (offline mode) every matching file is accepted.
func ParseDir(dir string, views []core.View) ([]core.UsageRecord, ParseStats) {
	stats := ParseStats{ViewNames: make(map[string]string)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("[parse] reading %s: %v", dir, err)
		stats.FilesMissing = len(views)
		return nil, stats
	}

	type fileKey struct{ workbookID, viewID string }
	files := make(map[fileKey]string)
	for _, e := range entries {
		m := statsFileName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		files[fileKey{m[1], m[2]}] = filepath.Join(dir, e.Name())
	}

	var keys []fileKey
	if len(views) > 0 {
		for _, v := range views {
			k := fileKey{v.WorkbookID, v.ID}
			if _, ok := files[k]; !ok {
				log.Printf("[parse] view %s: no downloaded file", v.ID)
				stats.FilesMissing++
				continue
			}
			keys = append(keys, k)
		}
	} else {
		for k := range files {
			keys = append(keys, k)
		}
	}

	var records []core.UsageRecord
	for _, k := range keys {
		path := files[k]
		recs, viewName, dropped, err := parseFile(path, k.workbookID, k.viewID)
		if err != nil {
			log.Printf("[parse] %s: %v", filepath.Base(path), err)
			stats.FilesUnreadable++
			continue
		}
		stats.FilesParsed++
		stats.RowsDropped += dropped
		if viewName != "" {
			stats.ViewNames[k.viewID] = viewName
		}
		records = append(records, recs...)
	}

	log.Printf("[parse] %d records from %d files (%d missing, %d unreadable, %d rows dropped)",
		len(records), stats.FilesParsed, stats.FilesMissing, stats.FilesUnreadable, stats.RowsDropped)
	return records, stats
}

func parseFile(path, workbookID, viewID string) ([]core.UsageRecord, string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", 0, err
	}
	defer f.Close()

	var rows []*usageRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, "", 0, err
	}

	var records []core.UsageRecord
	viewName := ""
	dropped := 0
	for _, row := range rows {
		if viewName == "" {
			viewName = strings.TrimSpace(row.ViewName)
		}

		username := strings.TrimSpace(row.Username)
		if username == "" {
			dropped++
			continue
		}

		ts, ok := parseTimestamp(row.LastViewed)
		if !ok {
			dropped++
			continue
		}

		records = append(records, core.UsageRecord{
			ViewID:     viewID,
			WorkbookID: workbookID,
			Username:   username,
			LastViewed: ts,
			ViewCount:  parseCount(row.Measure, row.Views),
		})
	}
	return records, viewName, dropped, nil
}

// parseTimestamp accepts the layouts the server has been seen exporting. An
// empty value is absent data (zero time, row kept); a garbled value drops the
// row.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// parseCount reads the view count from whichever column carried it. Absent or
// unreadable counts are zero, not errors.
func parseCount(values ...string) int {
	for _, v := range values {
		v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		if fl, err := strconv.ParseFloat(v, 64); err == nil {
			return int(fl)
		}
	}
	return 0
}
