package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/config"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/version"
)

func main() {
	if os.Getenv("WHOHASSEEN_DEBUG") != "" {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfgPath string
	var flags runFlags

	root := &cobra.Command{
		Use:           "whohasseen",
		Short:         `Collects Tableau "Who Has Seen This" usage stats into a spreadsheet report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgPath, flags)
			if err != nil {
				return err
			}
			return runPipeline(cmd.Context(), cfg, flags)
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "settings file (default "+config.ConfigPath()+")")
	root.Flags().BoolVar(&flags.refresh, "refresh", false, "re-download stats files even when already cached")
	root.Flags().BoolVar(&flags.headless, "headless", false, "run the browser headless")
	root.Flags().StringVar(&flags.user, "user", "", "user id to collect stats for (overrides config)")
	root.Flags().StringVar(&flags.downloadsDir, "downloads-dir", "", "directory for stats files (overrides config)")
	root.Flags().StringVar(&flags.output, "output", "", "report file path (default derived from user id and date)")

	root.AddCommand(newParseCommand(&cfgPath))
	root.AddCommand(newLookupCommand(&cfgPath))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(*cobra.Command, []string) {
			fmt.Println(version.String())
		},
	})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
