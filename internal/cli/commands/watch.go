package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leadaudit/internal/cli/config"
	"github.com/leapstack-labs/leadaudit/internal/cli/output"
	"github.com/spf13/cobra"
)

// DefaultDebounce is how long the input must stay quiet before a re-audit.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Debounce time.Duration
	// OnAudit, when set, is called after every audit attempt.
	OnAudit func(*AuditReport, error)
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}
	cmd := &cobra.Command{
		Use:   "watch [input] [output]",
		Short: "Re-run the audit whenever the input file changes",
		Long: `Audit the input once, then watch it and audit again each time it is
saved. Failed audits are reported and watching continues. Press Ctrl+C to stop.`,
		Example: `  # Watch the default export
  leadaudit watch

  # Watch a CSV export
  leadaudit watch leads.csv audited.xlsx --debounce 2s`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			cfg := *cc.Cfg
			cfg.ApplyArgs(args)
			if err := cfg.Validate(); err != nil {
				return WrapStage(StageConfig, err)
			}
			return Watch(cmd.Context(), &cfg, cc.Logger, cc.Renderer, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", DefaultDebounce, "Quiet period after a change before re-auditing")

	return cmd
}

// Watch audits cfg.Input once and again after every change until ctx is done.
func Watch(ctx context.Context, cfg *config.Config, logger *slog.Logger, r *output.Renderer, opts *WatchOptions) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	input, err := filepath.Abs(cfg.Input)
	if err != nil {
		return WrapStage(StageConfig, err)
	}
	outputPath, err := filepath.Abs(cfg.Output)
	if err != nil {
		return WrapStage(StageConfig, err)
	}
	if input == outputPath {
		return WrapStage(StageConfig, errors.New("watch needs an output path different from the input"))
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors and exporters often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(input)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(input), err)
	}

	run := func() {
		report, err := Audit(ctx, cfg, logger)
		if opts.OnAudit != nil {
			opts.OnAudit(report, err)
		}
		if err != nil {
			if ctx.Err() == nil {
				r.Error(err.Error())
			}
			return
		}
		r.StatusLine(cfg.Output, "success", describeRun(report.Summary))
	}

	run()
	logger.Info("Watching for changes", "path", cfg.Input)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != input {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("input changed", "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", err)
		case <-fire:
			fire = nil
			run()
		}
	}
}
