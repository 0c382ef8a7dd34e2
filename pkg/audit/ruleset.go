package audit

import (
	"strings"

	"github.com/leapstack-labs/leadaudit/pkg/dataset"
)

// Derived column names appended after the per-rule columns.
const (
	ColumnFailCount     = "Fail Count"
	ColumnAuditScore    = "Audit Score"
	ColumnAuditResult   = "Audit Result"
	ColumnFailureReason = "Failure Reason"
)

// Outcome and result texts.
const (
	CheckYes      = "Yes"
	CheckNo       = "No"
	ResultPass    = "PASS"
	ResultFail    = "FAIL"
	NoFailures    = "None"
	reasonJoiner  = ", "
	maxScore      = 100
	DefaultPassAt = 80
)

// DerivedColumns lists the summary columns in output order.
var DerivedColumns = []string{ColumnFailCount, ColumnAuditScore, ColumnAuditResult, ColumnFailureReason}

// DefaultRules is the built-in lead audit rule table.
var DefaultRules = []Rule{
	{Name: "Contact Owner Present", Field: "Contact owner", Predicate: PredicatePresent},
	{Name: "Owner Assigned Date Present", Field: "Owner assigned date", Predicate: PredicatePresent},
	{Name: "BDR SLA Met", Field: "SLA ALERT BDR", Predicate: PredicateAbsent},
	{Name: "AM SLA Met", Field: "SLA ALERT AM", Predicate: PredicateAbsent},
	{Name: "Lead Source Present", Field: "Lead Source", Predicate: PredicatePresent},
}

// RuleSet is a validated, immutable, ordered list of rules plus the pass
// threshold.
type RuleSet struct {
	rules         []Rule
	passScore     int
	pointsPerFail int
}

// NewRuleSet validates rules and returns a RuleSet that owns a copy of them.
func NewRuleSet(rules []Rule, passScore int) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, ErrEmptyRuleSet
	}
	if passScore < 0 || passScore > maxScore {
		return nil, ErrInvalidPassScore
	}

	reserved := make(map[string]bool, len(DerivedColumns))
	for _, c := range DerivedColumns {
		reserved[c] = true
	}
	fields := make(map[string]bool, len(rules))
	for _, r := range rules {
		fields[r.Field] = true
	}

	names := make(map[string]bool, len(rules))
	for i, r := range rules {
		switch {
		case strings.TrimSpace(r.Name) == "":
			return nil, &InvalidRuleError{Index: i, Reason: "name is required"}
		case strings.TrimSpace(r.Field) == "":
			return nil, &InvalidRuleError{Index: i, Name: r.Name, Reason: "field is required"}
		case r.Predicate != PredicatePresent && r.Predicate != PredicateAbsent:
			return nil, &InvalidRuleError{Index: i, Name: r.Name, Reason: "predicate must be PRESENT or ABSENT"}
		case names[r.Name]:
			return nil, &InvalidRuleError{Index: i, Name: r.Name, Reason: "duplicate rule name"}
		case reserved[r.Name]:
			return nil, &InvalidRuleError{Index: i, Name: r.Name, Reason: "name collides with a derived audit column"}
		case fields[r.Name]:
			return nil, &InvalidRuleError{Index: i, Name: r.Name, Reason: "name collides with a source field"}
		}
		names[r.Name] = true
	}

	return &RuleSet{
		rules:         append([]Rule(nil), rules...),
		passScore:     passScore,
		pointsPerFail: maxScore / len(rules),
	}, nil
}

// DefaultRuleSet returns the built-in rules with the default pass threshold.
func DefaultRuleSet() *RuleSet {
	rs, err := NewRuleSet(DefaultRules, DefaultPassAt)
	if err != nil {
		panic(err)
	}
	return rs
}

// Rules returns a copy of the rules in evaluation order.
func (rs *RuleSet) Rules() []Rule {
	return append([]Rule(nil), rs.rules...)
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// PassScore returns the minimum score that passes.
func (rs *RuleSet) PassScore() int {
	return rs.passScore
}

// PointsPerFail returns the score penalty for one failed rule.
func (rs *RuleSet) PointsPerFail() int {
	return rs.pointsPerFail
}

// Columns returns the audit columns this rule set appends, in order.
func (rs *RuleSet) Columns() []string {
	cols := make([]string, 0, len(rs.rules)+len(DerivedColumns))
	for _, r := range rs.rules {
		cols = append(cols, r.Name)
	}
	return append(cols, DerivedColumns...)
}

// Outcome is the audit result for one record.
type Outcome struct {
	Checks        []string // CheckYes or CheckNo per rule, in rule order
	FailCount     int
	Score         int
	Result        string
	FailureReason string
}

// Passed reports whether the record passed the audit.
func (o Outcome) Passed() bool {
	return o.Result == ResultPass
}

// Values returns the outcome as cells in RuleSet.Columns order.
func (o Outcome) Values() []dataset.Value {
	vals := make([]dataset.Value, 0, len(o.Checks)+len(DerivedColumns))
	for _, c := range o.Checks {
		vals = append(vals, dataset.String(c))
	}
	return append(vals,
		dataset.Int(o.FailCount),
		dataset.Int(o.Score),
		dataset.String(o.Result),
		dataset.String(o.FailureReason),
	)
}

// Evaluate applies every rule to rec. It has no side effects.
func (rs *RuleSet) Evaluate(rec dataset.Record) Outcome {
	out := Outcome{Checks: make([]string, len(rs.rules))}
	var failed []string
	for i, r := range rs.rules {
		if r.Passes(rec) {
			out.Checks[i] = CheckYes
			continue
		}
		out.Checks[i] = CheckNo
		failed = append(failed, r.Name)
	}

	out.FailCount = len(failed)
	out.Score = Score(out.FailCount, len(rs.rules))
	out.Result = ResultFail
	if out.Score >= rs.passScore {
		out.Result = ResultPass
	}
	out.FailureReason = NoFailures
	if len(failed) > 0 {
		out.FailureReason = strings.Join(failed, reasonJoiner)
	}
	return out
}

// Score computes max(0, 100 - failCount*(100/total)) with integer division.
func Score(failCount, total int) int {
	if total <= 0 {
		return maxScore
	}
	score := maxScore - failCount*(maxScore/total)
	if score < 0 {
		return 0
	}
	return score
}
