package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leadaudit/internal/cli/config"
	"github.com/leapstack-labs/leadaudit/internal/state"
	"github.com/leapstack-labs/leadaudit/pkg/audit"
	"github.com/leapstack-labs/leadaudit/pkg/tabular"
	"github.com/spf13/cobra"
)

// AuditReport describes one finished audit run.
type AuditReport struct {
	RunID    string        `json:"run_id,omitempty"`
	Input    string        `json:"input"`
	Output   string        `json:"output"`
	Replaced []string      `json:"replaced_columns,omitempty"`
	Summary  audit.Summary `json:"summary"`
	Duration time.Duration `json:"duration_ns"`
}

// NewAuditCommand creates the audit command.
func NewAuditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "audit [input] [output]",
		Short: "Audit a lead export and write the annotated copy",
		Long: `Read every lead from the input file, evaluate the data-quality rules
against each one and write the leads with the audit columns appended.

Input and output default to hubspot_export.xlsx and audit_result.xlsx.
The file extension selects the format: xlsx, csv, tsv, parquet, json, ndjson.`,
		Example: `  # Audit the default export
  leadaudit audit

  # Audit a CSV export into a workbook
  leadaudit audit leads.csv audited.xlsx

  # Print a summary after writing
  leadaudit audit --summary`,
		Args: cobra.MaximumNArgs(2),
		RunE: RunAudit,
	}
}

// RunAudit runs the audit for cmd. Positional args override input and output.
func RunAudit(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)

	cfg := *cc.Cfg
	cfg.ApplyArgs(args)
	if err := cfg.Validate(); err != nil {
		return WrapStage(StageConfig, err)
	}

	report, err := Audit(cmd.Context(), &cfg, cc.Logger)
	if err != nil {
		return err
	}

	if cfg.Summary {
		return renderAuditReport(cc.Renderer, report)
	}
	return nil
}

// Audit reads cfg.Input, evaluates every record and writes cfg.Output.
// Errors carry the stage that failed. When history is enabled the run is
// recorded; history failures are logged and never fail the audit.
func Audit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*AuditReport, error) {
	start := time.Now()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	rs, err := cfg.RuleSet()
	if err != nil {
		return nil, WrapStage(StageConfig, err)
	}
	reader, err := tabular.ForPath(cfg.Input, logger)
	if err != nil {
		return nil, WrapStage(StageConfig, err)
	}
	writer, err := tabular.ForPath(cfg.Output, logger)
	if err != nil {
		return nil, WrapStage(StageConfig, err)
	}

	rec := startHistory(ctx, cfg, logger)
	defer rec.close()

	report, err := runPipeline(ctx, cfg, logger, rs, reader, writer)
	if err != nil {
		rec.fail(ctx, err)
		return nil, err
	}
	report.RunID = rec.complete(ctx, report.Summary)
	report.Duration = time.Since(start)

	logger.Info("Audit completed successfully",
		"output", cfg.Output,
		"records", report.Summary.Total,
		"passed", report.Summary.Passed,
		"failed", report.Summary.Failed)

	return report, nil
}

func runPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, rs *audit.RuleSet, reader, writer tabular.Format) (*AuditReport, error) {
	logger.Info("Reading input file", "path", cfg.Input)
	ds, err := reader.Read(ctx, cfg.Input, tabular.ReadOptions{
		Sheet:      cfg.Sheet,
		NullPolicy: cfg.NullPolicy(),
	})
	if err != nil {
		return nil, WrapStage(StageRead, err)
	}
	logger.Debug("input loaded", "records", ds.Len(), "columns", len(ds.Columns))

	engine := audit.NewEngine(rs, audit.Options{Workers: cfg.Workers, Logger: logger})
	res, err := engine.Audit(ctx, ds)
	if err != nil {
		return nil, WrapStage(StageEvaluate, err)
	}

	logger.Debug("writing output", "path", cfg.Output, "format", writer.Name())
	if err := writer.Write(ctx, cfg.Output, res.Dataset); err != nil {
		return nil, WrapStage(StageWrite, err)
	}

	return &AuditReport{
		Input:    cfg.Input,
		Output:   cfg.Output,
		Replaced: res.Dropped,
		Summary:  res.Summary(),
	}, nil
}

// historyRecorder records one run in the history store. A nil store makes
// every method a no-op.
type historyRecorder struct {
	store  state.Store
	run    *state.Run
	logger *slog.Logger
}

func startHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) *historyRecorder {
	rec := &historyRecorder{logger: logger}
	if !cfg.History.Enabled {
		return rec
	}

	store, err := state.OpenStore(ctx, cfg.History.Path, logger)
	if err != nil {
		logger.Warn("run history unavailable", "path", cfg.History.Path, "error", WrapStage(StageHistory, err))
		return rec
	}
	run, err := store.CreateRun(ctx, cfg.Input, cfg.Output, cfg.PassScore)
	if err != nil {
		logger.Warn("failed to record run", "error", WrapStage(StageHistory, err))
		_ = store.Close()
		return rec
	}

	rec.store = store
	rec.run = run
	return rec
}

func (h *historyRecorder) complete(ctx context.Context, summary audit.Summary) string {
	if h.store == nil {
		return ""
	}
	if err := h.store.CompleteRun(ctx, h.run.ID, summary); err != nil {
		h.logger.Warn("failed to record run result", "run_id", h.run.ID, "error", WrapStage(StageHistory, err))
	}
	return h.run.ID
}

func (h *historyRecorder) fail(ctx context.Context, cause error) {
	if h.store == nil {
		return
	}
	// The audit context may already be canceled.
	ctx = context.WithoutCancel(ctx)
	if err := h.store.FailRun(ctx, h.run.ID, cause); err != nil {
		h.logger.Warn("failed to record run failure", "run_id", h.run.ID, "error", WrapStage(StageHistory, err))
	}
}

func (h *historyRecorder) close() {
	if h.store == nil {
		return
	}
	if err := h.store.Close(); err != nil {
		h.logger.Warn("failed to close history store", "error", err)
	}
}

// describeRun returns a short status detail such as "42 leads, 30 passed".
func describeRun(s audit.Summary) string {
	return fmt.Sprintf("%d leads, %d passed, %d failed", s.Total, s.Passed, s.Failed)
}
