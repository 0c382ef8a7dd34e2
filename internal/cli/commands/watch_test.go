package commands

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leadaudit/internal/cli/output"
	clitest "github.com/leapstack-labs/leadaudit/internal/cli/testutil"
	"github.com/leapstack-labs/leadaudit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReauditsOnChange(t *testing.T) {
	cfg := testConfig(t)
	r := clitest.NewTestRenderer(output.ModeMarkdown, false)

	reports := make(chan *AuditReport, 16)
	opts := &WatchOptions{
		Debounce: 50 * time.Millisecond,
		OnAudit: func(report *AuditReport, err error) {
			if err == nil {
				reports <- report
			}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, cfg, testutil.NewTestLogger(t), r.Renderer, opts)
	}()

	waitFor := func(total int) {
		t.Helper()
		timeout := time.After(10 * time.Second)
		for {
			select {
			case report := <-reports:
				if report.Summary.Total == total {
					return
				}
			case <-timeout:
				t.Fatalf("no audit with %d leads before timeout", total)
			}
		}
	}

	waitFor(3)
	assert.FileExists(t, cfg.Output)

	clitest.WriteWorkbook(t, cfg.Input, clitest.LeadHeaders, clitest.SampleLeads[:1])
	waitFor(1)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	assert.Len(t, clitest.ReadWorkbook(t, cfg.Output), 2, "header plus the single remaining lead")
	assert.Contains(t, r.Output(), "1 leads, 1 passed, 0 failed")
	assert.Contains(t, r.Output(), "✓ "+cfg.Output+"  3 leads, 2 passed, 1 failed")
	assert.NotContains(t, r.Output(), "✗", "failing leads do not mark the run failed")
}

func TestWatch_RejectsSameInputAndOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output = cfg.Input

	err := Watch(context.Background(), cfg, nil, clitest.NewTestRenderer(output.ModeText, false).Renderer, &WatchOptions{})
	require.Error(t, err)
	assert.Equal(t, StageConfig, StageOf(err))
}

func TestWatch_ReportsFailedAudit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input = filepath.Join(t.TempDir(), "later.xlsx")
	r := clitest.NewTestRenderer(output.ModeMarkdown, false)

	results := make(chan error, 16)
	opts := &WatchOptions{
		Debounce: 50 * time.Millisecond,
		OnAudit:  func(_ *AuditReport, err error) { results <- err },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, cfg, testutil.NewTestLogger(t), r.Renderer, opts)
	}()

	select {
	case err := <-results:
		require.Error(t, err, "the input does not exist yet")
		assert.Equal(t, StageRead, StageOf(err))
	case <-time.After(10 * time.Second):
		t.Fatal("initial audit did not run")
	}

	clitest.WriteWorkbook(t, cfg.Input, clitest.LeadHeaders, clitest.SampleLeads)

	timeout := time.After(10 * time.Second)
	for {
		select {
		case err := <-results:
			if err == nil {
				cancel()
				require.NoError(t, <-done)
				assert.Contains(t, r.ErrorOutput(), "read failed")
				return
			}
		case <-timeout:
			t.Fatal("watch did not recover after the input appeared")
		}
	}
}
