package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/racketdata/ttsync/internal/config"
	"github.com/racketdata/ttsync/internal/server"
	"github.com/racketdata/ttsync/internal/store"
	"github.com/racketdata/ttsync/internal/task"
	"github.com/racketdata/ttsync/internal/upstream"
	"github.com/racketdata/ttsync/pkg/logging"
)

var (
	serveAddr string
	serveCORS bool
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the HTTP API server",
	GroupID: "core",
	Long: `Serve runs the ttsync HTTP API: catalog reads over the local store
and task control endpoints for starting, watching, and cancelling
scrape runs. The server runs until interrupted.`,
	Example: `  ttsync serve
  ttsync serve --addr :9090 --cors`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveCORS, "cors", false, "add CORS headers for browser frontends")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	// Tasks left running by a previous process are unfinishable; mark
	// them failed before accepting new work.
	recovered, err := st.RecoverInterrupted(cmd.Context())
	if err != nil {
		return fmt.Errorf("recovering interrupted tasks: %w", err)
	}
	if recovered > 0 {
		logging.Warn().Int("tasks", recovered).Msg("Marked interrupted tasks as failed")
	}

	fetcher := upstream.New(cfg.UpstreamURL, upstream.WithTimeout(cfg.FetchTimeout))
	orchestrator := task.New(fetcher, st)

	srv := server.New(st, orchestrator, server.Config{
		ListenAddr:  cfg.ListenAddr,
		CacheTTL:    cfg.CacheTTL,
		CORSEnabled: serveCORS,
	})

	logging.Info().
		Str("addr", cfg.ListenAddr).
		Str("database", cfg.DatabasePath).
		Str("upstream", cfg.UpstreamURL).
		Msg("Starting ttsync")

	return srv.Serve(cmd.Context())
}
