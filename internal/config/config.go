// Package config loads the application configuration from config files,
// environment variables, and .env files.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/racketdata/ttsync/pkg/constants"
)

// Config holds the application configuration.
type Config struct {
	// UpstreamURL is the base URL of the federation results site.
	UpstreamURL string

	// DatabasePath is the SQLite file holding the reconciled catalog and
	// the task ledger.
	DatabasePath string

	// ListenAddr is the HTTP API bind address.
	ListenAddr string

	// FetchTimeout bounds one upstream request.
	FetchTimeout time.Duration

	// CacheTTL bounds how long read endpoints may serve a cached answer.
	CacheTTL time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
}

// Load builds the configuration, in order of precedence: environment
// variables, .env files, config file (~/.ttsync.yaml), defaults.
func Load() (*Config, error) {
	loadEnvFiles()

	viper.SetEnvPrefix("TTSYNC")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults()

	// Search for a config file in standard locations; a missing file is
	// not an error.
	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ttsync")
	}
	_ = viper.ReadInConfig()

	config := &Config{
		UpstreamURL:  viper.GetString("upstream_url"),
		DatabasePath: viper.GetString("database_path"),
		ListenAddr:   viper.GetString("listen_addr"),
		FetchTimeout: viper.GetDuration("fetch_timeout"),
		CacheTTL:     viper.GetDuration("cache_ttl"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:    getEnvOrDefault("LOG_FORMAT", "auto"),
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("upstream_url", "https://resultats.aftt.be")
	viper.SetDefault("database_path", "ttsync.db")
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("fetch_timeout", constants.DefaultFetchTimeout)
	viper.SetDefault("cache_ttl", constants.CacheTTL)
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
