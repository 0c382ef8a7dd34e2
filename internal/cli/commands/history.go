package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/leapstack-labs/leadaudit/internal/cli/output"
	"github.com/leapstack-labs/leadaudit/internal/state"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit  int
	Format string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded audit runs",
		Long: `List audit runs recorded in the history database, newest first.

Runs are only recorded when history is enabled (history.enabled in
leadaudit.yaml, LEADAUDIT_HISTORY_ENABLED or --history). Pass a run ID to
see the per-rule failure counts of that run.`,
		Example: `  # List the last 10 runs
  leadaudit history

  # Show one run
  leadaudit history 3f2b6c1e-...

  # List all runs as JSON
  leadaudit history --limit 0 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showHistoryRun(cmd, args[0], opts)
			}
			return listHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "Maximum number of runs to show (0 for all)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json, markdown")

	return cmd
}

// openHistory opens the configured history database. It returns a nil store
// when the database does not exist yet.
func openHistory(cmd *cobra.Command, cc *CommandContext) (*state.SQLiteStore, error) {
	path := cc.Cfg.History.Path
	if path == "" {
		return nil, WrapStage(StageConfig, errors.New("history.path is not set"))
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	store, err := state.OpenStore(cmd.Context(), path, cc.Logger)
	if err != nil {
		return nil, WrapStage(StageHistory, err)
	}
	return store, nil
}

func noHistory(r *output.Renderer, path string) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"runs": []*state.Run{}})
	}
	r.Printf("No runs recorded in %s. Enable history with --history or history.enabled.\n", path)
	return nil
}

func listHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cc := NewCommandContext(cmd)
	r := cc.WithFormat(cmd, opts.Format)

	store, err := openHistory(cmd, cc)
	if err != nil {
		return err
	}
	if store == nil {
		return noHistory(r, cc.Cfg.History.Path)
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapStage(StageHistory, err)
	}
	if len(runs) == 0 {
		return noHistory(r, cc.Cfg.History.Path)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"runs": runs})
	}

	r.Header(1, fmt.Sprintf("Audit Runs (%d)", len(runs)))
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			string(run.Status),
			run.Input,
			strconv.Itoa(run.Total),
			strconv.Itoa(run.Passed),
			strconv.Itoa(run.Failed),
			fmt.Sprintf("%.1f", run.AverageScore),
		})
	}
	r.Table([]string{"Run", "Started", "Status", "Input", "Leads", "Passed", "Failed", "Avg score"}, rows)
	return nil
}

// HistoryRunJSON is the JSON output of a single run.
type HistoryRunJSON struct {
	*state.Run
	RuleFailures []state.RuleFailure `json:"rule_failures"`
}

func showHistoryRun(cmd *cobra.Command, id string, opts *HistoryOptions) error {
	cc := NewCommandContext(cmd)
	r := cc.WithFormat(cmd, opts.Format)

	store, err := openHistory(cmd, cc)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("run %q: %w", id, state.ErrRunNotFound)
	}
	defer store.Close()

	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	failures, err := store.RuleFailures(cmd.Context(), id)
	if err != nil {
		return WrapStage(StageHistory, err)
	}

	if r.EffectiveMode() == output.ModeJSON {
		if failures == nil {
			failures = []state.RuleFailure{}
		}
		return r.JSON(HistoryRunJSON{Run: run, RuleFailures: failures})
	}

	r.Header(1, "Run "+run.ID)
	r.KeyValue("Status", string(run.Status))
	r.KeyValue("Input", run.Input)
	r.KeyValue("Output", run.Output)
	r.KeyValue("Started", run.StartedAt.Local().Format(time.DateTime))
	if d := run.Duration(); d > 0 {
		r.KeyValue("Duration", d.Round(time.Millisecond).String())
	}
	r.KeyValue("Pass score", strconv.Itoa(run.PassScore))
	if run.Status == state.RunStatusFailed {
		r.KeyValue("Error", run.Error)
		return nil
	}
	r.KeyValue("Leads", strconv.Itoa(run.Total))
	r.KeyValue("Passed", strconv.Itoa(run.Passed))
	r.KeyValue("Failed", strconv.Itoa(run.Failed))
	r.KeyValue("Average score", fmt.Sprintf("%.1f", run.AverageScore))
	r.Println("")

	if len(failures) > 0 {
		rows := make([][]string, 0, len(failures))
		for _, f := range failures {
			rows = append(rows, []string{f.Rule, strconv.Itoa(f.Count)})
		}
		r.Header(2, "Failures by rule")
		r.Table([]string{"Rule", "Failures"}, rows)
	}
	return nil
}
