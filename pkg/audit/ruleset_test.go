package audit

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leadaudit/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leadColumns = []string{"Record ID", "Contact owner", "Owner assigned date", "SLA ALERT BDR", "SLA ALERT AM", "Lead Source"}

// cleanLead passes every default rule.
func cleanLead() map[string]dataset.Value {
	return map[string]dataset.Value{
		"Record ID":           dataset.String("1"),
		"Contact owner":       dataset.String("Jane"),
		"Owner assigned date": dataset.String("2024-01-01"),
		"SLA ALERT BDR":       dataset.Null(),
		"SLA ALERT AM":        dataset.Null(),
		"Lead Source":         dataset.String("Web"),
	}
}

func lead(overrides map[string]dataset.Value) dataset.Record {
	fields := cleanLead()
	for k, v := range overrides {
		fields[k] = v
	}
	return dataset.NewRecord(leadColumns, fields)
}

func TestRuleSet_EvaluateScenarios(t *testing.T) {
	rs := DefaultRuleSet()

	tests := []struct {
		name       string
		overrides  map[string]dataset.Value
		wantChecks []string
		wantFails  int
		wantScore  int
		wantResult string
		wantReason string
	}{
		{
			name:       "all rules pass",
			wantChecks: []string{"Yes", "Yes", "Yes", "Yes", "Yes"},
			wantFails:  0,
			wantScore:  100,
			wantResult: "PASS",
			wantReason: "None",
		},
		{
			name:       "owner missing still passes at threshold",
			overrides:  map[string]dataset.Value{"Contact owner": dataset.Null()},
			wantChecks: []string{"No", "Yes", "Yes", "Yes", "Yes"},
			wantFails:  1,
			wantScore:  80,
			wantResult: "PASS",
			wantReason: "Contact Owner Present",
		},
		{
			name: "three failures",
			overrides: map[string]dataset.Value{
				"Lead Source":   dataset.Null(),
				"SLA ALERT BDR": dataset.String("Overdue"),
				"Contact owner": dataset.Null(),
			},
			wantChecks: []string{"No", "Yes", "No", "Yes", "No"},
			wantFails:  3,
			wantScore:  40,
			wantResult: "FAIL",
			wantReason: "Contact Owner Present, BDR SLA Met, Lead Source Present",
		},
		{
			name: "all rules fail",
			overrides: map[string]dataset.Value{
				"Contact owner":       dataset.Null(),
				"Owner assigned date": dataset.Null(),
				"SLA ALERT BDR":       dataset.String("x"),
				"SLA ALERT AM":        dataset.String("y"),
				"Lead Source":         dataset.Null(),
			},
			wantChecks: []string{"No", "No", "No", "No", "No"},
			wantFails:  5,
			wantScore:  0,
			wantResult: "FAIL",
			wantReason: "Contact Owner Present, Owner Assigned Date Present, BDR SLA Met, AM SLA Met, Lead Source Present",
		},
		{
			name:       "two failures lands below threshold",
			overrides:  map[string]dataset.Value{"SLA ALERT AM": dataset.String("late"), "Owner assigned date": dataset.Null()},
			wantChecks: []string{"Yes", "No", "Yes", "No", "Yes"},
			wantFails:  2,
			wantScore:  60,
			wantResult: "FAIL",
			wantReason: "Owner Assigned Date Present, AM SLA Met",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := rs.Evaluate(lead(tt.overrides))
			assert.Equal(t, tt.wantChecks, out.Checks)
			assert.Equal(t, tt.wantFails, out.FailCount)
			assert.Equal(t, tt.wantScore, out.Score)
			assert.Equal(t, tt.wantResult, out.Result)
			assert.Equal(t, tt.wantReason, out.FailureReason)
		})
	}
}

func TestRuleSet_MissingFieldIsAbsent(t *testing.T) {
	rs := DefaultRuleSet()
	rec := dataset.NewRecord([]string{"Unrelated"}, map[string]dataset.Value{"Unrelated": dataset.String("x")})

	out := rs.Evaluate(rec)

	// Three PRESENT rules fail, both ABSENT rules pass.
	assert.Equal(t, []string{"No", "No", "Yes", "Yes", "No"}, out.Checks)
	assert.Equal(t, 3, out.FailCount)
	assert.Equal(t, 40, out.Score)
}

func TestRuleSet_NullMarkerCountsAsAbsent(t *testing.T) {
	rs := DefaultRuleSet()
	out := rs.Evaluate(lead(map[string]dataset.Value{
		"Contact owner": dataset.Text("N/A", dataset.DefaultNullPolicy()),
		"SLA ALERT AM":  dataset.Text("N/A", dataset.DefaultNullPolicy()),
	}))
	assert.Equal(t, "Contact Owner Present", out.FailureReason)

	out = rs.Evaluate(lead(map[string]dataset.Value{
		"Contact owner": dataset.Text("N/A", dataset.StrictNullPolicy()),
	}))
	assert.Equal(t, "None", out.FailureReason)
}

func TestScore(t *testing.T) {
	tests := []struct {
		fails, total, want int
	}{
		{0, 5, 100},
		{1, 5, 80},
		{5, 5, 0},
		{0, 3, 100},
		{1, 3, 67},
		{2, 3, 34},
		{3, 3, 1}, // truncated penalty never reaches zero
		{0, 7, 100},
		{7, 7, 2},
		{1, 1, 0},
		{2, 1, 0}, // clipped
		{5, 101, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Score(tt.fails, tt.total), "Score(%d, %d)", tt.fails, tt.total)
	}
}

func TestNewRuleSet_Validation(t *testing.T) {
	tests := []struct {
		name      string
		rules     []Rule
		passScore int
		wantErr   error
		errSubstr string
	}{
		{name: "empty", rules: nil, passScore: 80, wantErr: ErrEmptyRuleSet},
		{name: "pass score too high", rules: DefaultRules, passScore: 101, wantErr: ErrInvalidPassScore},
		{name: "pass score negative", rules: DefaultRules, passScore: -1, wantErr: ErrInvalidPassScore},
		{
			name:      "unknown predicate",
			rules:     []Rule{{Name: "X", Field: "x"}},
			passScore: 80,
			errSubstr: "predicate must be PRESENT or ABSENT",
		},
		{
			name:      "missing name",
			rules:     []Rule{{Field: "x", Predicate: PredicatePresent}},
			passScore: 80,
			errSubstr: "name is required",
		},
		{
			name:      "missing field",
			rules:     []Rule{{Name: "X", Predicate: PredicatePresent}},
			passScore: 80,
			errSubstr: "field is required",
		},
		{
			name: "duplicate name",
			rules: []Rule{
				{Name: "X", Field: "a", Predicate: PredicatePresent},
				{Name: "X", Field: "b", Predicate: PredicateAbsent},
			},
			passScore: 80,
			errSubstr: "duplicate rule name",
		},
		{
			name:      "reserved name",
			rules:     []Rule{{Name: "Audit Score", Field: "a", Predicate: PredicatePresent}},
			passScore: 80,
			errSubstr: "derived audit column",
		},
		{
			name:      "name shadows source field",
			rules:     []Rule{{Name: "Lead Source", Field: "Lead Source", Predicate: PredicatePresent}},
			passScore: 80,
			errSubstr: "source field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRuleSet(tt.rules, tt.passScore)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			if tt.errSubstr != "" {
				var ruleErr *InvalidRuleError
				require.True(t, errors.As(err, &ruleErr))
				assert.Contains(t, err.Error(), tt.errSubstr)
			}
		})
	}
}

func TestNewRuleSet_CopiesRules(t *testing.T) {
	rules := []Rule{{Name: "A", Field: "a", Predicate: PredicatePresent}}
	rs, err := NewRuleSet(rules, 80)
	require.NoError(t, err)

	rules[0].Name = "mutated"
	assert.Equal(t, "A", rs.Rules()[0].Name)

	got := rs.Rules()
	got[0].Name = "mutated"
	assert.Equal(t, "A", rs.Rules()[0].Name)
}

func TestRuleSet_Columns(t *testing.T) {
	rs := DefaultRuleSet()
	assert.Equal(t, []string{
		"Contact Owner Present",
		"Owner Assigned Date Present",
		"BDR SLA Met",
		"AM SLA Met",
		"Lead Source Present",
		"Fail Count",
		"Audit Score",
		"Audit Result",
		"Failure Reason",
	}, rs.Columns())
	assert.Equal(t, 20, rs.PointsPerFail())
	assert.Equal(t, 80, rs.PassScore())
}

func TestParsePredicate(t *testing.T) {
	tests := []struct {
		in   string
		want Predicate
		ok   bool
	}{
		{"PRESENT", PredicatePresent, true},
		{"present", PredicatePresent, true},
		{"notna", PredicatePresent, true},
		{" ABSENT ", PredicateAbsent, true},
		{"isna", PredicateAbsent, true},
		{"regex", PredicateUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePredicate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	var p Predicate
	require.NoError(t, p.UnmarshalText([]byte("absent")))
	assert.Equal(t, PredicateAbsent, p)
	assert.Error(t, p.UnmarshalText([]byte("sometimes")))

	text, err := PredicatePresent.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "PRESENT", string(text))
}
