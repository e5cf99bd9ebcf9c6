package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"igrepost/pkg/auth"
	"igrepost/pkg/bot"
	"igrepost/pkg/browser"
	"igrepost/pkg/config"
	"igrepost/pkg/detector"
	"igrepost/pkg/fetcher"
	"igrepost/pkg/instagram"
	"igrepost/pkg/ledger"
	"igrepost/pkg/logger"
	"igrepost/pkg/publisher"
	"igrepost/pkg/storage"
	"igrepost/pkg/webhook"
)

var (
	// Run command flags
	allowedSender string
	pollInterval  time.Duration
	webhookURL    string
	headless      bool
	downloadDir   string
	accountName   string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the repost bot",
	Long: `Start the poll-process loop.

The bot logs into Instagram with a persistent browser profile, then polls
the DM inbox on an interval. Every new reel share from the allowed sender
is downloaded and reposted with credit to the original creator. Stop with
Ctrl-C; the current item finishes cleanly before exit.

Credentials are resolved in order from:
  - Stored credentials (use 'igrepost auth login' to store)
  - Environment variables (IG_USERNAME and IG_PASSWORD)
  - Configuration file`,
	Example: `  # Run with the sender configured via environment or config file
  igrepost run

  # Watch a specific sender, polling every 30 seconds
  igrepost run --sender alice --interval 30s

  # Run with a visible browser window for debugging
  igrepost run --headless=false`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&allowedSender, "sender", "s", "", "username whose shares are reposted")
	runCmd.Flags().DurationVarP(&pollInterval, "interval", "i", 0, "inbox poll interval (e.g. 60s)")
	runCmd.Flags().StringVar(&webhookURL, "webhook-url", "", "progress webhook base URL")
	runCmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	runCmd.Flags().StringVar(&downloadDir, "download-dir", "", "directory for downloaded videos")
	runCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
}

func runBot(cmd *cobra.Command) error {
	flags := make(map[string]interface{})
	if allowedSender != "" {
		flags["sender"] = allowedSender
	}
	if pollInterval > 0 {
		flags["interval"] = pollInterval
	}
	if webhookURL != "" {
		flags["webhook-url"] = webhookURL
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = headless
	}
	if downloadDir != "" {
		flags["download-dir"] = downloadDir
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	// Surface stored credentials through the environment before loading,
	// so a config without them still validates when an account is stored
	resolveStoredCredentials()

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("igrepost starting")

	led := ledger.New(cfg.Bot.LedgerPath, log)

	store, err := storage.NewManager(cfg.Download.Directory, log)
	if err != nil {
		return err
	}

	session, err := browser.NewChromeSession(browser.Options{
		Headless:    cfg.Browser.Headless,
		UserDataDir: cfg.Browser.UserDataDir,
		UserAgent:   cfg.Browser.UserAgent,
		APIHeaders: map[string]string{
			"x-ig-app-id":      instagram.AppID,
			"x-requested-with": "XMLHttpRequest",
		},
	}, log)
	if err != nil {
		return err
	}
	defer session.Close()

	// Stop on Ctrl-C or SIGTERM; the loop finishes the current item first
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := browser.LoginIfNeeded(ctx, session, cfg.Account.Username, cfg.Account.Password, log); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	client := instagram.NewClient(cfg.Download.Timeout, log)
	notifier := webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Timeout, log)

	b := bot.New(bot.Options{
		Detector:     detector.New(session, led, cfg.Bot.AllowedSender, log),
		Fetcher:      fetcher.New(session, client, store, log),
		Publisher:    publisher.New(session, cfg.Download.Directory, log),
		Ledger:       led,
		Store:        store,
		Session:      session,
		Notifier:     notifier,
		Logger:       log,
		PollInterval: cfg.Bot.PollInterval,
		SettleDelay:  cfg.Bot.SettleDelay,
		HomeURL:      instagram.GetHomeURL(),
	})

	log.InfoWithFields("watching inbox", map[string]interface{}{
		"sender":   cfg.Bot.AllowedSender,
		"interval": cfg.Bot.PollInterval.String(),
	})

	return b.Run(ctx)
}

// resolveStoredCredentials exports stored account credentials as IG_USERNAME
// and IG_PASSWORD when the environment does not already provide them.
// Best-effort: with nothing stored, config validation reports what is missing.
func resolveStoredCredentials() {
	_ = godotenv.Load(".env")
	if os.Getenv("IG_USERNAME") != "" && os.Getenv("IG_PASSWORD") != "" {
		return
	}

	manager, err := auth.NewManager()
	if err != nil {
		return
	}

	var account *auth.Account
	if accountName != "" {
		account, err = manager.Retrieve(accountName)
	} else {
		account, err = manager.RetrieveDefault()
	}
	if err != nil || account == nil {
		return
	}

	os.Setenv("IG_USERNAME", account.Username)
	os.Setenv("IG_PASSWORD", account.Password)
}
