package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/core"
)

func sampleTables() ([]core.SummaryRow, []core.DetailRow) {
	summary := []core.SummaryRow{
		{WorkbookID: "1", WorkbookName: "Sales", URL: "https://tableau.example.com/#/workbooks/1", TotalViews: 8},
		{WorkbookID: "2", WorkbookName: "Marketing", URL: "https://tableau.example.com/#/workbooks/2", TotalViews: 2},
	}
	detail := []core.DetailRow{
		{
			UsageRecord: core.UsageRecord{
				ViewID: "10", WorkbookID: "1", Username: "userA",
				LastViewed: time.Date(2025, 11, 5, 10, 30, 0, 0, time.UTC), ViewCount: 5,
			},
			WorkbookName: "Sales", ViewName: "Sales Overview", FullName: "John Doe",
		},
		{
			UsageRecord:  core.UsageRecord{ViewID: "20", WorkbookID: "2", Username: "userC", ViewCount: 2},
			WorkbookName: "Marketing", ViewName: "Campaign Reach", FullName: core.UnknownName,
		},
	}
	return summary, detail
}

func TestWriteProducesTwoSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	summary, detail := sampleTables()

	if err := Write(summary, detail, path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening report: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != SummarySheet || sheets[1] != DetailSheet {
		t.Fatalf("sheets = %v, want [%s %s]", sheets, SummarySheet, DetailSheet)
	}

	if got, _ := f.GetCellValue(SummarySheet, "A2"); got != "Sales" {
		t.Errorf("summary A2 = %q, want Sales", got)
	}
	if got, _ := f.GetCellValue(SummarySheet, "D2"); got != "8" {
		t.Errorf("summary D2 = %q, want 8", got)
	}
	if got, _ := f.GetCellValue(DetailSheet, "F2"); got != "John Doe" {
		t.Errorf("detail F2 = %q, want John Doe", got)
	}
	if got, _ := f.GetCellValue(DetailSheet, "F3"); got != core.UnknownName {
		t.Errorf("detail F3 = %q, want %q", got, core.UnknownName)
	}
	// Zero LastViewed renders blank, not the zero time.
	if got, _ := f.GetCellValue(DetailSheet, "G3"); got != "" {
		t.Errorf("detail G3 = %q, want blank for zero timestamp", got)
	}
}

func TestWriteEmptyTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	if err := Write(nil, nil, path); err != nil {
		t.Fatalf("Write() with empty tables error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("report file missing: %v", err)
	}
}

func TestWriteUnwritablePathIsWriteError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "report.xlsx")
	summary, detail := sampleTables()

	err := Write(summary, detail, path)
	if err == nil {
		t.Fatal("Write() to missing dir succeeded, want error")
	}
	var we *core.WriteError
	if !errors.As(err, &we) {
		t.Errorf("error = %T, want *core.WriteError", err)
	}
	if _, statErr := os.Stat(path + ".tmp"); !os.IsNotExist(statErr) {
		t.Error("temp file left behind after failed write")
	}
}

func TestFileName(t *testing.T) {
	got := FileName("T845443", time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC))
	want := "tableau-views-by-workbook-and-view-T845443-20251105.xlsx"
	if got != want {
		t.Errorf("FileName() = %q, want %q", got, want)
	}
}
