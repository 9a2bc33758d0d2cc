package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
	SourcesFile    string `mapstructure:"sources_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	OutputDir  string `mapstructure:"output_dir"`
	OutputFile string `mapstructure:"output_file"`
	FeedFormat string `mapstructure:"feed_format"`
	FeedTitle  string `mapstructure:"feed_title"`
	FeedID     string `mapstructure:"feed_id"`

	AllowPartial       bool          `mapstructure:"allow_partial"`
	PageTimeoutSeconds int64         `mapstructure:"page_timeout_seconds"`
	PageTimeout        time.Duration `mapstructure:"-"`

	BrowserHeadless  bool   `mapstructure:"browser_headless"`
	BrowserExecPath  string `mapstructure:"browser_exec_path"`
	BrowserNoSandbox bool   `mapstructure:"browser_no_sandbox"`
	BrowserUserAgent string `mapstructure:"browser_user_agent"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

var feedFormats = map[string]struct{}{
	"atom": {},
	"rss":  {},
	"json": {},
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "listing-feed-harvester")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("sources_file", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("output_dir", "public")
	v.SetDefault("output_file", "feed.xml")
	v.SetDefault("feed_format", "atom")
	v.SetDefault("feed_title", "Combined feed")
	v.SetDefault("feed_id", "https://example.com")
	v.SetDefault("allow_partial", false)
	v.SetDefault("page_timeout_seconds", 90)
	v.SetDefault("browser_headless", true)
	v.SetDefault("browser_exec_path", "")
	v.SetDefault("browser_no_sandbox", false)
	v.SetDefault("browser_user_agent", "")
	v.SetDefault("storage_type", "none")
	v.SetDefault("bbolt_path", "./data/runs.db")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((24*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.OutputDir = strings.TrimSpace(c.OutputDir)
	c.OutputFile = strings.TrimSpace(c.OutputFile)
	c.FeedFormat = strings.ToLower(strings.TrimSpace(c.FeedFormat))

	if c.OutputDir == "" {
		return fmt.Errorf("invalid output_dir (must not be empty)")
	}
	if c.OutputFile == "" || strings.ContainsAny(c.OutputFile, `/\`) {
		return fmt.Errorf("invalid output_file %q (must be a bare file name)", c.OutputFile)
	}
	if _, ok := feedFormats[c.FeedFormat]; !ok {
		return fmt.Errorf("invalid feed_format %q (expected atom, rss or json)", c.FeedFormat)
	}
	if strings.TrimSpace(c.FeedID) == "" {
		return fmt.Errorf("invalid feed_id (must not be empty)")
	}

	if c.PageTimeoutSeconds < 0 {
		return fmt.Errorf("invalid page_timeout_seconds (must be zero or positive)")
	}
	c.PageTimeout = time.Duration(c.PageTimeoutSeconds) * time.Second

	if c.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	c.StorageTTL = time.Duration(c.StorageTTLSeconds) * time.Second
	c.StorageCleanupInterval = time.Duration(c.StorageCleanupSeconds) * time.Second

	return nil
}
