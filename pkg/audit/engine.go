package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leadaudit/pkg/dataset"
	"golang.org/x/sync/errgroup"
)

// chunkSize is the number of records handed to one worker at a time.
const chunkSize = 512

// Options configures an Engine.
type Options struct {
	// Workers bounds concurrent evaluation. Values <= 1 evaluate sequentially.
	Workers int
	// Logger receives debug output. Nil discards.
	Logger *slog.Logger
}

// Engine applies a RuleSet to datasets.
type Engine struct {
	rules   *RuleSet
	workers int
	logger  *slog.Logger
}

// NewEngine creates an engine for the given rule set.
func NewEngine(rules *RuleSet, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{rules: rules, workers: workers, logger: logger}
}

// RuleSet returns the rules the engine evaluates.
func (e *Engine) RuleSet() *RuleSet {
	return e.rules
}

// Result is an audited dataset together with the per-record outcomes.
type Result struct {
	Dataset  *dataset.Dataset
	Outcomes []Outcome
	// Dropped lists input columns that were stale audit columns and were
	// replaced by fresh values.
	Dropped []string

	rules *RuleSet
}

// Audit evaluates every record of ds and returns a new dataset with the audit
// columns appended. ds is not modified.
func (e *Engine) Audit(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	keep, dropped := e.originalColumns(ds)
	if len(dropped) > 0 {
		e.logger.Debug("replacing existing audit columns", "columns", dropped)
	}

	columns := make([]string, 0, len(keep)+e.rules.Len()+len(DerivedColumns))
	for _, i := range keep {
		columns = append(columns, ds.Columns[i])
	}
	columns = append(columns, e.rules.Columns()...)

	outcomes := make([]Outcome, ds.Len())
	if err := e.evaluateAll(ctx, ds, outcomes); err != nil {
		return nil, err
	}

	out := dataset.New(columns)
	for i, o := range outcomes {
		rec := ds.Records[i]
		values := make([]dataset.Value, 0, len(columns))
		for _, k := range keep {
			if k < len(rec.Values) {
				values = append(values, rec.Values[k])
			} else {
				values = append(values, dataset.Null())
			}
		}
		values = append(values, o.Values()...)
		if err := out.Append(values...); err != nil {
			return nil, fmt.Errorf("failed to assemble record %d: %w", i+1, err)
		}
	}

	e.logger.Debug("audit complete", "records", len(outcomes), "workers", e.workers)

	return &Result{Dataset: out, Outcomes: outcomes, Dropped: dropped, rules: e.rules}, nil
}

// evaluateAll fills outcomes[i] for every record. Each worker owns a disjoint
// index range so no locking is needed.
func (e *Engine) evaluateAll(ctx context.Context, ds *dataset.Dataset, outcomes []Outcome) error {
	n := ds.Len()
	if e.workers <= 1 || n <= chunkSize {
		for i := 0; i < n; i++ {
			if i%chunkSize == 0 {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("audit canceled: %w", err)
				}
			}
			outcomes[i] = e.rules.Evaluate(ds.Record(i))
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				outcomes[i] = e.rules.Evaluate(ds.Record(i))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("audit canceled: %w", err)
	}
	return nil
}

// originalColumns returns the indexes of input columns to carry over, skipping
// columns the audit itself produces so that re-auditing is idempotent.
func (e *Engine) originalColumns(ds *dataset.Dataset) ([]int, []string) {
	produced := make(map[string]bool)
	for _, c := range e.rules.Columns() {
		produced[c] = true
	}

	keep := make([]int, 0, len(ds.Columns))
	var dropped []string
	for i, c := range ds.Columns {
		if produced[c] {
			dropped = append(dropped, c)
			continue
		}
		keep = append(keep, i)
	}
	return keep, dropped
}
