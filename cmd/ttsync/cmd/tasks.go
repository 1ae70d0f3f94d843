package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/racketdata/ttsync/internal/config"
	"github.com/racketdata/ttsync/internal/store"
	"github.com/racketdata/ttsync/pkg/entities"
)

var (
	tasksKind  string
	tasksLimit int
)

// tasksCmd represents the tasks command.
var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Short:   "List the task ledger",
	GroupID: "management",
	Long: `Tasks lists recorded scrape runs, newest first, with their outcome
and progress.`,
	Example: `  ttsync tasks
  ttsync tasks --kind organizations --limit 5`,
	RunE: runTasks,
}

func init() {
	rootCmd.AddCommand(tasksCmd)

	tasksCmd.Flags().StringVar(&tasksKind, "kind", "", "filter by task kind")
	tasksCmd.Flags().IntVar(&tasksLimit, "limit", 0, "maximum rows to show (default 20, max 100)")
}

func runTasks(cmd *cobra.Command, _ []string) error {
	kind := entities.TaskKind(tasksKind)
	if kind != "" && !kind.Valid() {
		return fmt.Errorf("unknown task kind %q", tasksKind)
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

	tasks, err := st.ListTasks(cmd.Context(), kind, tasksLimit)
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks recorded")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout)
	table.Header("ID", "KIND", "STATUS", "TRIGGER", "STARTED", "DURATION", "UNITS", "ERRORS")
	for _, t := range tasks {
		duration := "-"
		if t.FinishedAt != nil {
			duration = t.FinishedAt.Sub(t.StartedAt).Round(timeRound).String()
		}
		if err := table.Append(
			strconv.FormatInt(t.ID, 10),
			string(t.Kind),
			string(t.Status),
			string(t.Trigger),
			t.StartedAt.Format("2006-01-02 15:04:05"),
			duration,
			fmt.Sprintf("%d/%d", t.CompletedUnits, t.TotalUnits),
			strconv.Itoa(len(t.Errors)),
		); err != nil {
			return err
		}
	}
	return table.Render()
}
