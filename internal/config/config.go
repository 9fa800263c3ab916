package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Config holds everything a pipeline run needs. The scraper itself does no
// config parsing beyond this file; callers get a fully populated value from
// Load and pass it down.
type Config struct {
	BaseURL     string `json:"base_url"`
	Site        string `json:"site"`
	UserID      string `json:"userid"`
	SSOUsername string `json:"sso_username,omitempty"`
	SSOPassword string `json:"sso_password,omitempty"`

	UseProxy bool   `json:"use_proxy"`
	Proxy    string `json:"proxy,omitempty"`

	DownloadsDir string `json:"downloads_dir"`
	Headless     bool   `json:"headless"`

	SSOWaitSeconds        int `json:"sso_wait_seconds"`
	NavSettleSeconds      int `json:"nav_settle_seconds"`
	DownloadTimeoutSecond int `json:"download_timeout_seconds"`
}

func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		BaseURL:               "https://tableau.tsl.telus.com",
		Site:                  "tqbi",
		Proxy:                 "198.161.14.25:8080",
		DownloadsDir:          filepath.Join(home, "Downloads", "tableau-stats"),
		SSOWaitSeconds:        15,
		NavSettleSeconds:      3,
		DownloadTimeoutSecond: 30,
	}
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "whohasseen")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "whohasseen")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

// NameCachePath is where resolved directory names persist between runs.
func NameCachePath() string {
	return filepath.Join(ConfigDir(), "names.db")
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Site == "" {
		cfg.Site = def.Site
	}
	if cfg.DownloadsDir == "" {
		cfg.DownloadsDir = def.DownloadsDir
	}
	if cfg.SSOWaitSeconds <= 0 {
		cfg.SSOWaitSeconds = def.SSOWaitSeconds
	}
	if cfg.NavSettleSeconds <= 0 {
		cfg.NavSettleSeconds = def.NavSettleSeconds
	}
	if cfg.DownloadTimeoutSecond <= 0 {
		cfg.DownloadTimeoutSecond = def.DownloadTimeoutSecond
	}
	if cfg.SSOUsername == "" {
		cfg.SSOUsername = cfg.UserID
	}

	return cfg, nil
}

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
