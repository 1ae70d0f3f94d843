package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/racketdata/ttsync/internal/config"
	"github.com/racketdata/ttsync/internal/store"
	"github.com/racketdata/ttsync/internal/task"
	"github.com/racketdata/ttsync/internal/upstream"
	"github.com/racketdata/ttsync/pkg/entities"
)

// timeRound is the display precision for task durations.
const timeRound = time.Second

// scrapeCmd represents the scrape command.
var scrapeCmd = &cobra.Command{
	Use:     "scrape <kind>",
	Short:   "Run one scrape task to completion",
	GroupID: "core",
	Long: `Scrape runs a single task of the given kind in the foreground and
waits for it to finish. Ctrl+C cancels the run at the next unit
boundary; progress made so far stays in the store.

Kinds:
  organizations  club directory, ranking lists, and member rosters
  profiles-all   player sheets for every known licence
  competitions   tournament calendar and series
  interclubs     division list and weekly team standings`,
	Example: `  ttsync scrape organizations
  ttsync scrape profiles-all`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"organizations", "profiles-all", "competitions", "interclubs"},
	RunE:      runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	kind := entities.TaskKind(args[0])
	if !kind.Valid() {
		return fmt.Errorf("unknown task kind %q", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx := cmd.Context()
	if _, err := st.RecoverInterrupted(ctx); err != nil {
		return fmt.Errorf("recovering interrupted tasks: %w", err)
	}

	fetcher := upstream.New(cfg.UpstreamURL, upstream.WithTimeout(cfg.FetchTimeout))
	orchestrator := task.New(fetcher, st)

	started, err := orchestrator.Start(ctx, kind, entities.TriggerManual)
	if err != nil {
		return fmt.Errorf("starting task: %w", err)
	}
	fmt.Printf("Task %d (%s) started\n", started.ID, started.Kind)

	// Forward the first interrupt as a cancellation request; the run then
	// stops at the next unit boundary and finalizes normally.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = orchestrator.CancelByID(started.ID)
		case <-done:
		}
	}()

	orchestrator.Wait(kind)
	close(done)

	// The signal context may already be cancelled.
	final, err := orchestrator.Status(context.Background(), started.ID)
	if err != nil {
		return fmt.Errorf("reading task result: %w", err)
	}
	printTaskSummary(final)

	if final.Status == entities.StatusFailed {
		return fmt.Errorf("task %d failed", final.ID)
	}
	return nil
}

func printTaskSummary(t entities.Task) {
	fmt.Printf("Task %d (%s): %s\n", t.ID, t.Kind, t.Status)
	fmt.Printf("  units: %d/%d\n", t.CompletedUnits, t.TotalUnits)
	if t.FinishedAt != nil {
		fmt.Printf("  duration: %s\n", t.FinishedAt.Sub(t.StartedAt).Round(timeRound))
	}

	if len(t.Counters) > 0 {
		keys := make([]string, 0, len(t.Counters))
		for k := range t.Counters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%d", k, t.Counters[k]))
		}
		fmt.Printf("  merged: %s\n", strings.Join(parts, " "))
	}

	if len(t.Errors) > 0 {
		fmt.Printf("  errors (%d):\n", len(t.Errors))
		for _, e := range t.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
}
