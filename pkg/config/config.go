package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the repost bot
type Config struct {
	// Bot account credentials
	Account AccountConfig `yaml:"account" json:"account"`

	// Polling and processing behavior
	Bot BotConfig `yaml:"bot" json:"bot"`

	// Browser session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Progress webhook settings
	Webhook WebhookConfig `yaml:"webhook" json:"webhook"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AccountConfig holds the bot account credentials
type AccountConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// BotConfig holds poll loop behavior
type BotConfig struct {
	AllowedSender string        `yaml:"allowed_sender" json:"allowed_sender"`
	PollInterval  time.Duration `yaml:"poll_interval" json:"poll_interval"`
	SettleDelay   time.Duration `yaml:"settle_delay" json:"settle_delay"`
	LedgerPath    string        `yaml:"ledger_path" json:"ledger_path"`
}

// BrowserConfig holds browser session settings
type BrowserConfig struct {
	Headless    bool   `yaml:"headless" json:"headless"`
	UserDataDir string `yaml:"user_data_dir" json:"user_data_dir"`
	UserAgent   string `yaml:"user_agent" json:"user_agent"`
}

// DownloadConfig holds video download settings
type DownloadConfig struct {
	Directory string        `yaml:"directory" json:"directory"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// WebhookConfig holds progress reporting settings
type WebhookConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			PollInterval: 60 * time.Second,
			SettleDelay:  10 * time.Second,
			LedgerPath:   "processed.json",
		},
		Browser: BrowserConfig{
			Headless:    true,
			UserDataDir: "browser_data",
			UserAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Download: DownloadConfig{
			Directory: "downloads",
			Timeout:   60 * time.Second,
		},
		Webhook: WebhookConfig{
			Timeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if username := os.Getenv("IG_USERNAME"); username != "" {
		c.Account.Username = username
	}
	if password := os.Getenv("IG_PASSWORD"); password != "" {
		c.Account.Password = password
	}
	if sender := os.Getenv("ALLOWED_SENDER"); sender != "" {
		c.Bot.AllowedSender = sender
	}
	if interval := os.Getenv("POLL_INTERVAL_SECONDS"); interval != "" {
		val, err := strconv.Atoi(interval)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL_SECONDS %q: %w", interval, err)
		}
		if val > 0 {
			c.Bot.PollInterval = time.Duration(val) * time.Second
		}
	}
	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		c.Webhook.URL = url
	}

	if ledgerPath := os.Getenv("IGREPOST_LEDGER_PATH"); ledgerPath != "" {
		c.Bot.LedgerPath = ledgerPath
	}
	if downloadDir := os.Getenv("IGREPOST_DOWNLOAD_DIR"); downloadDir != "" {
		c.Download.Directory = downloadDir
	}
	if userDataDir := os.Getenv("IGREPOST_USER_DATA_DIR"); userDataDir != "" {
		c.Browser.UserDataDir = userDataDir
	}
	if headless := os.Getenv("IGREPOST_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) != "false"
	}
	if logLevel := os.Getenv("IGREPOST_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
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
	// Check in order of precedence
	locations := []string{
		".igrepost.yaml",
		".igrepost.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igrepost", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igrepost", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".igrepost.yaml"),
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

	// Required fields: the bot cannot start without them
	if c.Account.Username == "" {
		errs = append(errs, errors.New("bot account username is required (IG_USERNAME)"))
	}
	if c.Account.Password == "" {
		errs = append(errs, errors.New("bot account password is required (IG_PASSWORD)"))
	}
	if c.Bot.AllowedSender == "" {
		errs = append(errs, errors.New("allowed sender is required (ALLOWED_SENDER)"))
	}

	if c.Bot.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if c.Bot.SettleDelay < 0 {
		errs = append(errs, errors.New("settle delay cannot be negative"))
	}
	if c.Bot.LedgerPath == "" {
		errs = append(errs, errors.New("ledger path is required"))
	}

	if c.Download.Directory == "" {
		errs = append(errs, errors.New("download directory is required"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
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

	// Create directory if it doesn't exist
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
	if sender, ok := flags["sender"].(string); ok && sender != "" {
		c.Bot.AllowedSender = sender
	}
	if interval, ok := flags["interval"].(time.Duration); ok && interval > 0 {
		c.Bot.PollInterval = interval
	}
	if webhookURL, ok := flags["webhook-url"].(string); ok && webhookURL != "" {
		c.Webhook.URL = webhookURL
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if downloadDir, ok := flags["download-dir"].(string); ok && downloadDir != "" {
		c.Download.Directory = downloadDir
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
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igrepost.env"))

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
