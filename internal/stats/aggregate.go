package stats

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/core"
)

// Resolver maps a username to a display name. Satisfied by
// directory.Client.
type Resolver interface {
	Resolve(ctx context.Context, username string) string
}

// Aggregate groups records into the pivot summary (total views per workbook,
// descending) and the detail table (one row per record, enriched with names).
// Workbook and view metadata fill in display names when known; records for
// ids outside the metadata still aggregate, with blank names.
func Aggregate(ctx context.Context, records []core.UsageRecord, workbooks []core.Workbook, views []core.View, resolver Resolver) ([]core.SummaryRow, []core.DetailRow) {
	wbByID := lo.KeyBy(workbooks, func(w core.Workbook) string { return w.ID })
	viewByID := lo.KeyBy(views, func(v core.View) string { return v.ID })

	grouped := lo.GroupBy(records, func(r core.UsageRecord) string { return r.WorkbookID })

	summary := make([]core.SummaryRow, 0, len(grouped))
	for workbookID, recs := range grouped {
		row := core.SummaryRow{
			WorkbookID: workbookID,
			TotalViews: lo.SumBy(recs, func(r core.UsageRecord) int { return r.ViewCount }),
		}
		if wb, ok := wbByID[workbookID]; ok {
			row.WorkbookName = wb.Name
			row.URL = wb.URL
		}
		summary = append(summary, row)
	}
	sort.Slice(summary, func(i, j int) bool {
		if summary[i].TotalViews != summary[j].TotalViews {
			return summary[i].TotalViews > summary[j].TotalViews
		}
		return summary[i].WorkbookID < summary[j].WorkbookID
	})

	detail := lo.Map(records, func(r core.UsageRecord, _ int) core.DetailRow {
		row := core.DetailRow{UsageRecord: r, FullName: core.UnknownName}
		if wb, ok := wbByID[r.WorkbookID]; ok {
			row.WorkbookName = wb.Name
		}
		if v, ok := viewByID[r.ViewID]; ok {
			row.ViewName = v.Name
		}
		if resolver != nil {
			row.FullName = resolver.Resolve(ctx, r.Username)
		}
		return row
	})

	return summary, detail
}

// ViewsFromParse reconstructs view metadata from parsed records and the
// display names captured in the exports. Offline re-parsing uses this in
// place of live enumeration.
func ViewsFromParse(records []core.UsageRecord, viewNames map[string]string) []core.View {
	views := lo.Map(records, func(r core.UsageRecord, _ int) core.View {
		return core.View{ID: r.ViewID, WorkbookID: r.WorkbookID, Name: viewNames[r.ViewID]}
	})
	return lo.UniqBy(views, func(v core.View) string { return v.ID })
}
