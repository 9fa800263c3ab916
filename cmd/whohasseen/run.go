package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/browser"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/config"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/core"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/directory"
	"github.com/xdrolma/Tableau-WhoHasSeen-Scraper/internal/pipeline"
)

type runFlags struct {
	refresh      bool
	headless     bool
	user         string
	downloadsDir string
	output       string
}

func loadConfig(path string, flags runFlags) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}
	if flags.user != "" {
		cfg.UserID = flags.user
		if cfg.SSOUsername == "" {
			cfg.SSOUsername = flags.user
		}
	}
	if flags.downloadsDir != "" {
		cfg.DownloadsDir = flags.downloadsDir
	}
	if flags.headless {
		cfg.Headless = true
	}
	return cfg, nil
}

func runPipeline(ctx context.Context, cfg config.Config, flags runFlags) error {
	if cfg.UserID == "" {
		return fmt.Errorf("no user id configured: set userid in %s or pass --user", config.ConfigPath())
	}

	chrome, err := browser.NewChrome(ctx, browser.Options{
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

	p := pipeline.New(cfg, chrome, directory.NewClient(chrome, store))
	p.SetRefresh(flags.refresh)
	if flags.output != "" {
		p.SetOutputPath(flags.output)
	}

	path, err := p.Run(ctx)
	printSummary(os.Stdout, p.Stats())
	switch {
	case errors.Is(err, core.ErrNoData):
		fmt.Println("No usage data found for", cfg.UserID+".", "Nothing to report.")
		return nil
	case err != nil:
		return err
	}
	fmt.Println(savedStyle.Render("Report saved to " + path))
	return nil
}

// openNameCache opens the persistent directory-name cache. The cache is
// an optimization, so failure to open it degrades to live lookups only.
func openNameCache() *directory.Store {
	store, err := directory.OpenStore(config.NameCachePath())
	if err != nil {
		log.Printf("[whohasseen] name cache unavailable: %v", err)
		return nil
	}
	return store
}
