package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile string

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ttsync",
	Short: "Table tennis federation results scraper and API",
	Long: `Ttsync scrapes the Belgian table tennis federation results site into
a local SQLite catalog of clubs, players, matches, and tournaments, and
serves the reconciled data over an HTTP API.

Scraping runs as background tasks (organizations, profiles-all,
competitions), each recorded in a durable task ledger.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date

	// Signal handling for graceful shutdown; a second signal kills the
	// process the usual way.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})

	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.ttsync.yaml)")
}

// initConfig points viper at an explicit config file when one was given.
// Everything else (defaults, .env files, TTSYNC_ env vars, the standard
// config search path) happens inside config.Load.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	}
}
