package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

const banner = `
  _                                _
 (_)__ _ _ _ ___ _ __  ___ ___ _ _| |_
 | / _` + "`" + ` | '_/ -_) '_ \/ _ (_-<  _|  _|
 |_\__, |_| \___| .__/\___/__/\__|\__|
   |___/        |_|  DM reel repost bot
`

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igrepost",
	Short: "A DM-triggered Instagram reel repost bot",
	Long: `igrepost watches your Instagram DM inbox and reposts every reel a
designated sender shares with you, with credit to the original creator.

Features:
  - Polls the DM inbox through a persistent headless browser session
  - Downloads reel videos and republishes them via the create flow
  - Durable dedup ledger, so nothing is reposted twice across restarts
  - Secure credential storage using the system keychain
  - Optional progress webhook for a status page`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			fmt.Print(banner + "\n")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .igrepost.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`igrepost {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
