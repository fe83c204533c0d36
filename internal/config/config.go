package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pders01/scrp/internal/validation"
)

type Config struct {
	Site      SiteConfig     `mapstructure:"site"`
	Selectors SelectorConfig `mapstructure:"selectors"`
	Solver    SolverConfig   `mapstructure:"solver"`
	Paths     PathsConfig    `mapstructure:"paths"`
	Feed      FeedConfig     `mapstructure:"feed"`
	Logging   LoggingConfig  `mapstructure:"logging"`
}

type SiteConfig struct {
	Name        string `mapstructure:"name"`
	URL         string `mapstructure:"url"`
	Description string `mapstructure:"description"`
}

type SelectorConfig struct {
	Article     string   `mapstructure:"article"`
	Title       []string `mapstructure:"title"`
	Description string   `mapstructure:"description"`
	Published   string   `mapstructure:"published"`
	Image       string   `mapstructure:"image"`
}

type SolverConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	UserAgent  string        `mapstructure:"user_agent"`
}

type PathsConfig struct {
	Snapshot  string `mapstructure:"snapshot"`
	Feed      string `mapstructure:"feed"`
	Watermark string `mapstructure:"watermark"`
	DailyDir  string `mapstructure:"daily_dir"`
}

type FeedConfig struct {
	MaxItems      int    `mapstructure:"max_items"`
	MaxDailyItems int    `mapstructure:"max_daily_items"`
	DailyBase     string `mapstructure:"daily_base"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	stateDir := filepath.Join(homeDir, ".scrp")

	return &Config{
		Site: SiteConfig{
			Name:        "Samakal Opinion",
			URL:         "https://samakal.com/opinion",
			Description: "Latest opinion articles from Samakal",
		},
		Selectors: SelectorConfig{
			Article:     "a[href*='/opinion/article/']",
			Title:       []string{"h1", "h3"},
			Description: "p",
			Published:   ".publishTime",
			Image:       "img",
		},
		Solver: SolverConfig{
			URL:        "http://localhost:8191/v1",
			Timeout:    60 * time.Second,
			MaxRetries: 3,
			UserAgent:  "Mozilla/5.0 (compatible; scrp/1.0)",
		},
		Paths: PathsConfig{
			Snapshot:  filepath.Join(stateDir, "snapshot.html"),
			Feed:      filepath.Join(stateDir, "articles.xml"),
			Watermark: filepath.Join(stateDir, "watermark.json"),
			DailyDir:  stateDir,
		},
		Feed: FeedConfig{
			MaxItems:      500,
			MaxDailyItems: 100,
			DailyBase:     "daily",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	v.SetDefault("site.name", cfg.Site.Name)
	v.SetDefault("site.url", cfg.Site.URL)
	v.SetDefault("site.description", cfg.Site.Description)
	// Selector defaults stay unset so empty selectors fall through to the
	// site registry for the configured URL.
	v.SetDefault("solver.url", cfg.Solver.URL)
	v.SetDefault("solver.timeout", cfg.Solver.Timeout)
	v.SetDefault("solver.max_retries", cfg.Solver.MaxRetries)
	v.SetDefault("solver.user_agent", cfg.Solver.UserAgent)
	v.SetDefault("paths.snapshot", cfg.Paths.Snapshot)
	v.SetDefault("paths.feed", cfg.Paths.Feed)
	v.SetDefault("paths.watermark", cfg.Paths.Watermark)
	v.SetDefault("paths.daily_dir", cfg.Paths.DailyDir)
	v.SetDefault("feed.max_items", cfg.Feed.MaxItems)
	v.SetDefault("feed.max_daily_items", cfg.Feed.MaxDailyItems)
	v.SetDefault("feed.daily_base", cfg.Feed.DailyBase)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "scrp")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SCRP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand paths after loading
	expandPaths(&config)

	return &config, nil
}

// Validate checks the loaded configuration for values the pipeline cannot
// work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Site.Name) == "" {
		return fmt.Errorf("site.name cannot be empty")
	}

	if _, err := validation.NewSiteURLValidator().ValidateAndNormalize(c.Site.URL); err != nil {
		return fmt.Errorf("site.url: %w", err)
	}
	if _, err := validation.NewSolverURLValidator().ValidateAndNormalize(c.Solver.URL); err != nil {
		return fmt.Errorf("solver.url: %w", err)
	}

	if c.Solver.Timeout <= 0 {
		return fmt.Errorf("solver.timeout must be positive")
	}
	if c.Solver.MaxRetries < 0 {
		return fmt.Errorf("solver.max_retries cannot be negative")
	}

	if c.Feed.MaxItems <= 0 {
		return fmt.Errorf("feed.max_items must be positive")
	}
	if c.Feed.MaxDailyItems <= 0 {
		return fmt.Errorf("feed.max_daily_items must be positive")
	}
	if c.Feed.DailyBase == "" || strings.ContainsAny(c.Feed.DailyBase, `/\`) {
		return fmt.Errorf("feed.daily_base must be a bare file name")
	}

	pv := validation.NewPathValidator()
	filePaths := []struct {
		key  string
		path string
	}{
		{"paths.snapshot", c.Paths.Snapshot},
		{"paths.feed", c.Paths.Feed},
		{"paths.watermark", c.Paths.Watermark},
	}
	for _, fp := range filePaths {
		if _, err := pv.ValidateFile(fp.path); err != nil {
			return fmt.Errorf("%s: %w", fp.key, err)
		}
	}
	if _, err := pv.ValidateDirectory(c.Paths.DailyDir, false); err != nil {
		return fmt.Errorf("paths.daily_dir: %w", err)
	}

	return nil
}

// RootURL returns the scheme://host root of the listing URL. Digest
// placeholders link here when a run finds nothing new.
func (s SiteConfig) RootURL() string {
	u, err := url.Parse(s.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s.URL
	}
	return u.Scheme + "://" + u.Host
}

// ExpandPath expands ~ to home directory and converts to absolute path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	// Expand tilde
	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	// Convert to absolute path if not already absolute
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

// expandPaths expands all paths in the config
func expandPaths(cfg *Config) {
	cfg.Paths.Snapshot = ExpandPath(cfg.Paths.Snapshot)
	cfg.Paths.Feed = ExpandPath(cfg.Paths.Feed)
	cfg.Paths.Watermark = ExpandPath(cfg.Paths.Watermark)
	cfg.Paths.DailyDir = ExpandPath(cfg.Paths.DailyDir)
	if cfg.Logging.File != "" {
		cfg.Logging.File = ExpandPath(cfg.Logging.File)
	}
}

func Save(config *Config, path string) error {
	v := viper.New()

	siteCfg := map[string]interface{}{
		"name":        config.Site.Name,
		"url":         config.Site.URL,
		"description": config.Site.Description,
	}

	selectorsCfg := map[string]interface{}{
		"article":     config.Selectors.Article,
		"title":       config.Selectors.Title,
		"description": config.Selectors.Description,
		"published":   config.Selectors.Published,
		"image":       config.Selectors.Image,
	}

	// Convert durations to strings for TOML readability
	solverCfg := map[string]interface{}{
		"url":         config.Solver.URL,
		"timeout":     config.Solver.Timeout.String(),
		"max_retries": config.Solver.MaxRetries,
		"user_agent":  config.Solver.UserAgent,
	}

	pathsCfg := map[string]interface{}{
		"snapshot":  config.Paths.Snapshot,
		"feed":      config.Paths.Feed,
		"watermark": config.Paths.Watermark,
		"daily_dir": config.Paths.DailyDir,
	}

	feedCfg := map[string]interface{}{
		"max_items":       config.Feed.MaxItems,
		"max_daily_items": config.Feed.MaxDailyItems,
		"daily_base":      config.Feed.DailyBase,
	}

	loggingCfg := map[string]interface{}{
		"level": config.Logging.Level,
		"file":  config.Logging.File,
	}

	v.Set("site", siteCfg)
	v.Set("selectors", selectorsCfg)
	v.Set("solver", solverCfg)
	v.Set("paths", pathsCfg)
	v.Set("feed", feedCfg)
	v.Set("logging", loggingCfg)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
