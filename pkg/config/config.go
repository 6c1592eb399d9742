package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the search runner
type Config struct {
	// Browser session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Search behavior
	Search SearchConfig `yaml:"search" json:"search"`

	// Instagram profile scraping settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Rate limiting between queries
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Page-load retry behavior
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig holds Chrome session configuration
type BrowserConfig struct {
	Headless        bool          `yaml:"headless" json:"headless"`
	UserDataDir     string        `yaml:"user_data_dir" json:"user_data_dir"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	PageLoadTimeout time.Duration `yaml:"page_load_timeout" json:"page_load_timeout"`
}

// SearchConfig holds search-engine and candidate-selection configuration
type SearchConfig struct {
	BaseURL          string        `yaml:"base_url" json:"base_url"`
	EngineHost       string        `yaml:"engine_host" json:"engine_host"`
	PreferredDomains []string      `yaml:"preferred_domains" json:"preferred_domains"`
	Click            bool          `yaml:"click" json:"click"`
	ResultWait       time.Duration `yaml:"result_wait" json:"result_wait"`
	SettleTimeout    time.Duration `yaml:"settle_timeout" json:"settle_timeout"`
}

// InstagramConfig holds settings for the profile-scraping variant
type InstagramConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// RateLimitConfig holds pacing configuration between queries
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RetryConfig holds page-load retry configuration
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// OutputConfig holds result file configuration
type OutputConfig struct {
	ResultsFile string `yaml:"results_file" json:"results_file"`
	ReportFile  string `yaml:"report_file" json:"report_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:        true,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			PageLoadTimeout: 30 * time.Second,
		},
		Search: SearchConfig{
			BaseURL:       "https://duckduckgo.com/",
			EngineHost:    "duckduckgo.com",
			Click:         false,
			ResultWait:    8 * time.Second,
			SettleTimeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
		Output: OutputConfig{
			ResultsFile: "output.txt",
			ReportFile:  "profiles.csv",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if headless := os.Getenv("SERPGRAB_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) == "true" || headless == "1"
	}
	if dir := os.Getenv("SERPGRAB_USER_DATA_DIR"); dir != "" {
		c.Browser.UserDataDir = dir
	}
	if ua := os.Getenv("SERPGRAB_USER_AGENT"); ua != "" {
		c.Browser.UserAgent = ua
	}
	if prefer := os.Getenv("SERPGRAB_PREFER"); prefer != "" {
		c.Search.PreferredDomains = SplitDomains(prefer)
	}
	if username := os.Getenv("SERPGRAB_IG_USERNAME"); username != "" {
		c.Instagram.Username = username
	}
	if password := os.Getenv("SERPGRAB_IG_PASSWORD"); password != "" {
		c.Instagram.Password = password
	}
	if rpm := os.Getenv("SERPGRAB_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if logLevel := os.Getenv("SERPGRAB_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// SplitDomains parses a comma-separated preferred-domain list,
// trimming whitespace and dropping empty entries. Order is preserved:
// earlier entries win ties during selection.
func SplitDomains(s string) []string {
	var domains []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			domains = append(domains, part)
		}
	}
	return domains
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".serpgrab.yaml",
		".serpgrab.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "serpgrab", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "serpgrab", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".serpgrab.yaml"),
		filepath.Join(os.Getenv("HOME"), ".serpgrab.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Search.BaseURL == "" {
		errs = append(errs, errors.New("search base URL is required"))
	}
	if c.Search.EngineHost == "" {
		errs = append(errs, errors.New("search engine host is required"))
	}
	if c.Search.ResultWait <= 0 {
		errs = append(errs, errors.New("result wait must be positive"))
	}
	if c.Search.SettleTimeout <= 0 {
		errs = append(errs, errors.New("settle timeout must be positive"))
	}

	if c.Browser.PageLoadTimeout <= 0 {
		errs = append(errs, errors.New("page load timeout must be positive"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry attempts must be positive"))
	}

	if c.Output.ResultsFile == "" {
		errs = append(errs, errors.New("results file is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if prefer, ok := flags["prefer"].(string); ok && prefer != "" {
		c.Search.PreferredDomains = SplitDomains(prefer)
	}
	if click, ok := flags["click"].(bool); ok {
		c.Search.Click = click
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if output, ok := flags["output"].(string); ok && output != "" {
		c.Output.ResultsFile = output
	}
	if report, ok := flags["report"].(string); ok && report != "" {
		c.Output.ReportFile = report
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if maxAttempts, ok := flags["max-attempts"].(int); ok && maxAttempts > 0 {
		c.Retry.MaxAttempts = maxAttempts
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".serpgrab.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
