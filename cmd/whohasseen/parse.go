package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/config"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/directory"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/report"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/stats"
)

// newParseCommand builds the offline subcommand: re-parse already-downloaded
// stats files and regenerate the report without opening a browser. Names come
// from the persistent cache only; anything not cached stays UNKNOWN.
func newParseCommand(cfgPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Rebuild the report from already-downloaded stats files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath, runFlags{})
			if err != nil {
				return err
			}

			records, ps := stats.ParseDir(cfg.DownloadsDir, nil)
			if len(records) == 0 {
				return fmt.Errorf("no stats files found in %s", cfg.DownloadsDir)
			}

			store := openNameCache()
			defer store.Close()
			resolver := directory.NewClient(nil, store)

			views := stats.ViewsFromParse(records, ps.ViewNames)
			summary, detail := stats.Aggregate(cmd.Context(), records, nil, views, resolver)

			path := output
			if path == "" {
				if cfg.UserID == "" {
					return fmt.Errorf("no user id configured for the report name: set userid in %s or pass --output", config.ConfigPath())
				}
				path = filepath.Join(cfg.DownloadsDir, report.FileName(cfg.UserID, time.Now()))
			}
			if err := report.Write(summary, detail, path); err != nil {
				return err
			}

			fmt.Printf("Parsed %d records from %d files (%d rows dropped).\n",
				len(records), ps.FilesParsed, ps.RowsDropped)
			fmt.Println(savedStyle.Render("Report saved to " + path))
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "report file path")
	return cmd
}
