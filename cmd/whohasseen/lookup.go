package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/browser"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/directory"
)

// newLookupCommand builds a diagnostic subcommand that resolves a single
// username against the directory, exercising the same path the pipeline uses.
func newLookupCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <username>",
		Short: "Resolve one username to a display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath, runFlags{})
			if err != nil {
				return err
			}

			chrome, err := browser.NewChrome(cmd.Context(), browser.Options{
				Headless:     cfg.Headless,
				DownloadsDir: cfg.DownloadsDir,
				UseProxy:     cfg.UseProxy,
				Proxy:        cfg.Proxy,
			})
			if err != nil {
				return fmt.Errorf("start browser: %w", err)
			}
			defer chrome.Close()

			store := openNameCache()
			defer store.Close()

			name := directory.NewClient(chrome, store).Resolve(cmd.Context(), args[0])
			fmt.Printf("%s -> %s\n", args[0], name)
			return nil
		},
	}
}
