package commands

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/leapstack-labs/leadaudit/internal/cli/output"
	"github.com/leapstack-labs/leadaudit/pkg/audit"
)

func renderAuditReport(r *output.Renderer, report *AuditReport) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(report)
	}

	s := report.Summary
	r.Header(1, "Audit Summary")
	r.KeyValue("Input", report.Input)
	r.KeyValue("Output", report.Output)
	if report.RunID != "" {
		r.KeyValue("Run", report.RunID)
	}
	if len(report.Replaced) > 0 {
		r.KeyValue("Replaced columns", fmt.Sprint(report.Replaced))
	}
	r.KeyValue("Leads", strconv.Itoa(s.Total))
	r.KeyValue("Passed", fmt.Sprintf("%d (%.1f%%)", s.Passed, s.PassRate()*100))
	r.KeyValue("Failed", strconv.Itoa(s.Failed))
	r.KeyValue("Average score", fmt.Sprintf("%.1f", s.AverageScore))
	if report.Duration > 0 {
		r.KeyValue("Duration", report.Duration.Round(time.Millisecond).String())
	}
	r.Println("")

	renderRuleFailures(r, s.ByRule)

	if len(s.ByScore) > 0 {
		r.Header(2, "Score distribution")
		r.Table([]string{"Score", "Leads"}, scoreRows(s.ByScore))
		r.Println("")
	}

	if r.EffectiveMode() == output.ModeText {
		r.StatusLine(report.Output, "success", describeRun(s))
	}
	return nil
}

func renderRuleFailures(r *output.Renderer, byRule []audit.RuleFailures) {
	if len(byRule) == 0 {
		return
	}
	rows := make([][]string, 0, len(byRule))
	for _, rf := range byRule {
		rows = append(rows, []string{rf.Rule, strconv.Itoa(rf.Count)})
	}
	r.Header(2, "Failures by rule")
	r.Table([]string{"Rule", "Failures"}, rows)
	r.Println("")
}

// scoreRows returns the score histogram, best score first.
func scoreRows(byScore map[int]int) [][]string {
	scores := make([]int, 0, len(byScore))
	for score := range byScore {
		scores = append(scores, score)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(scores)))

	rows := make([][]string, 0, len(scores))
	for _, score := range scores {
		rows = append(rows, []string{strconv.Itoa(score), strconv.Itoa(byScore[score])})
	}
	return rows
}
