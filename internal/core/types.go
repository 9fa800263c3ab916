package core

import "time"

// UnknownName is the literal recorded when a viewer's username cannot be
// resolved to a display name.
const UnknownName = "UNKNOWN"

// Workbook is a named collection of views on the Tableau server, owned by a
// user. Discovered from the user's content listing; immutable afterwards.
type Workbook struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// View is a single visualization inside a workbook. Stats are collected per
// view.
type View struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	WorkbookID string `json:"workbook_id"`
	URL        string `json:"url"`
}

// UsageRecord is one viewer's usage of one view, as exported by the server's
// "Who Has Seen This" admin report.
type UsageRecord struct {
	ViewID     string    `json:"view_id"`
	WorkbookID string    `json:"workbook_id"`
	Username   string    `json:"username"`
	LastViewed time.Time `json:"last_viewed"`
	ViewCount  int       `json:"view_count"`
}

// DirectoryEntry maps a short username to a display name, or UnknownName when
// the directory has no match.
type DirectoryEntry struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// SummaryRow aggregates all usage records for one workbook.
type SummaryRow struct {
	WorkbookID   string `json:"workbook_id"`
	WorkbookName string `json:"workbook_name"`
	URL          string `json:"url"`
	TotalViews   int    `json:"total_views"`
}

// DetailRow is a UsageRecord enriched with workbook/view names and the
// resolved viewer display name. One DetailRow per UsageRecord, never
// deduplicated.
type DetailRow struct {
	UsageRecord
	WorkbookName string `json:"workbook_name"`
	ViewName     string `json:"view_name"`
	FullName     string `json:"full_name"`
}

// FileRef points at a downloaded per-view stats file. Cached marks files that
// were already on disk and were reused without navigation.
type FileRef struct {
	Path       string
	ViewID     string
	WorkbookID string
	Cached     bool
}

// RunStats accumulates per-item skip counts across a run. Every stage absorbs
// its own item-level failures and reports them here; the closing summary is
// printed from these counters.
type RunStats struct {
	WorkbooksFound   int
	ViewsFound       int
	Downloaded       int
	DownloadsCached  int
	DownloadsFailed  int
	FilesMissing     int
	FilesUnreadable  int
	RowsDropped      int
	RecordsParsed    int
	LookupsResolved  int
	LookupsUnknown   int
	EnumerationSkips int
}

// Degraded reports whether any item-level failure reduced the completeness of
// the run's output.
func (s RunStats) Degraded() bool {
	return s.DownloadsFailed > 0 || s.FilesMissing > 0 || s.FilesUnreadable > 0 ||
		s.RowsDropped > 0 || s.LookupsUnknown > 0 || s.EnumerationSkips > 0
}
