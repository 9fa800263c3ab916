package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/core"
)

var (
	summaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	savedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

// printSummary renders the closing run summary. Failure counters only appear
// when non-zero so a clean run reads clean.
func printSummary(w io.Writer, st core.RunStats) {
	lines := []string{
		summaryTitle.Render("Run summary"),
		fmt.Sprintf("Workbooks found      %d", st.WorkbooksFound),
		fmt.Sprintf("Views found          %d", st.ViewsFound),
		fmt.Sprintf("Downloads            %d (%d cached)", st.Downloaded+st.DownloadsCached, st.DownloadsCached),
		fmt.Sprintf("Usage records        %d", st.RecordsParsed),
		fmt.Sprintf("Names resolved       %d", st.LookupsResolved),
	}

	warn := func(format string, n int) {
		if n > 0 {
			lines = append(lines, warnStyle.Render(fmt.Sprintf(format, n)))
		}
	}
	warn("Downloads failed     %d", st.DownloadsFailed)
	warn("Files missing        %d", st.FilesMissing)
	warn("Files unreadable     %d", st.FilesUnreadable)
	warn("Rows dropped         %d", st.RowsDropped)
	warn("Names unresolved     %d", st.LookupsUnknown)
	warn("Listing items skipped %d", st.EnumerationSkips)

	if st.Degraded() {
		lines = append(lines, "", warnStyle.Render("Some items were skipped; the report is partial."))
	}

	fmt.Fprintln(w, summaryBox.Render(strings.Join(lines, "\n")))
}
