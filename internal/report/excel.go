// Package report serializes the aggregated tables into the final
// spreadsheet.
package report

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/core"
)

// Sheet names match the original report consumers' expectations.
const (
	SummarySheet = "Workbook Views Pivot"
	DetailSheet  = "Workbook Views Details"
)

const timestampFormat = "2006-01-02 15:04:05"

// FileName builds the default report name from the user id and the run date.
func FileName(userID string, now time.Time) string {
	return fmt.Sprintf("tableau-views-by-workbook-and-view-%s-%s.xlsx", userID, now.Format("20060102"))
}

// Write produces the two-sheet report at path, summary sheet first. The file
// is assembled in a temp sibling and renamed into place, so a failure never
// leaves a corrupt partial report behind. All failures are core.WriteError
// and fatal to the run.
func Write(summary []core.SummaryRow, detail []core.DetailRow, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return &core.WriteError{Path: path, Err: err}
	}
	if err := writeSummarySheet(f, summary); err != nil {
		return &core.WriteError{Path: path, Err: err}
	}
	if _, err := f.NewSheet(DetailSheet); err != nil {
		return &core.WriteError{Path: path, Err: err}
	}
	if err := writeDetailSheet(f, detail); err != nil {
		return &core.WriteError{Path: path, Err: err}
	}

	tmp := path + ".tmp"
	if err := f.SaveAs(tmp); err != nil {
		os.Remove(tmp)
		return &core.WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &core.WriteError{Path: path, Err: err}
	}

	log.Printf("[report] wrote %s (%d summary rows, %d detail rows)", filepath.Base(path), len(summary), len(detail))
	return nil
}

func writeSummarySheet(f *excelize.File, summary []core.SummaryRow) error {
	header := []interface{}{"Workbook name", "URL", "Workbook ID", "Total views"}
	if err := f.SetSheetRow(SummarySheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{row.WorkbookName, row.URL, row.WorkbookID, row.TotalViews}
		if err := f.SetSheetRow(SummarySheet, cell, &values); err != nil {
			return err
		}
	}
	return boldHeader(f, SummarySheet, len(header))
}

func writeDetailSheet(f *excelize.File, detail []core.DetailRow) error {
	header := []interface{}{
		"Workbook name", "View name", "Workbook ID", "View ID",
		"Username", "Full name", "Last viewed", "Views",
	}
	if err := f.SetSheetRow(DetailSheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range detail {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		lastViewed := ""
		if !row.LastViewed.IsZero() {
			lastViewed = row.LastViewed.Format(timestampFormat)
		}
		values := []interface{}{
			row.WorkbookName, row.ViewName, row.WorkbookID, row.ViewID,
			row.Username, row.FullName, lastViewed, row.ViewCount,
		}
		if err := f.SetSheetRow(DetailSheet, cell, &values); err != nil {
			return err
		}
	}
	return boldHeader(f, DetailSheet, len(header))
}

func boldHeader(f *excelize.File, sheet string, columns int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", end, style)
}
