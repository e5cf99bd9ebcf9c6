package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igrepost/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igrepost configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.igrepost.yaml' in the current directory unless a
different path is given with the --config flag.`,
	RunE: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration as the bot would load it, merged from flags,
environment variables, the config file, and defaults. The account password
is never printed.`,
	RunE: runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# igrepost configuration file
#
# Environment variables override these values:
#   IG_USERNAME, IG_PASSWORD, ALLOWED_SENDER, POLL_INTERVAL_SECONDS,
#   WEBHOOK_URL, IGREPOST_LEDGER_PATH, IGREPOST_DOWNLOAD_DIR,
#   IGREPOST_USER_DATA_DIR, IGREPOST_HEADLESS, IGREPOST_LOG_LEVEL

# Bot account. Prefer 'igrepost auth login' or environment variables over
# writing the password here.
account:
  username: ""
  password: ""

bot:
  # Only shares from this user are reposted (required)
  allowed_sender: ""
  # How often the DM inbox is polled
  poll_interval: 60s
  # Pause between two consecutive reels in the same poll
  settle_delay: 10s
  # Dedup ledger file
  ledger_path: "processed.json"

browser:
  headless: true
  # Persistent profile directory; keeps the login session across restarts
  user_data_dir: "browser_data"

download:
  directory: "downloads"
  timeout: 60s

webhook:
  # Optional status page base URL; progress is POSTed to <url>/api/progress
  url: ""
  timeout: 5s

logging:
  level: "info"
  # Optional log file; empty logs to stderr only
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".igrepost.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("Edit it, then run 'igrepost config validate' to check it.")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigLenient()
	if err != nil {
		return err
	}

	// Mask the password before printing
	shown := *cfg
	if shown.Account.Password != "" {
		shown.Account.Password = "********"
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}

	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigLenient()
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration is invalid:\n%w", err)
	}

	fmt.Println("Configuration is valid.")
	return nil
}

// loadConfigLenient merges all config sources without validating, so show
// and validate work on incomplete configurations
func loadConfigLenient() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}
