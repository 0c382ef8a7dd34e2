package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leadaudit/internal/cli/output"
	"github.com/leapstack-labs/leadaudit/pkg/audit"
	"github.com/spf13/cobra"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Format string // Output format
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [rule-name]",
		Short: "List the active audit rules",
		Long: `List the rules leads are audited against, in evaluation order.

Rules come from the 'rules' section of leadaudit.yaml, or the built-in
lead rules when none are configured. Each failed rule costs the same number
of points; a lead passes when its score reaches the pass score.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List all rules
  leadaudit rules

  # Show one rule
  leadaudit rules "Lead Source Present"

  # Output as JSON
  leadaudit rules --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRule(cmd, args[0], opts)
			}
			return listRules(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json, markdown")

	return cmd
}

// RulesJSONOutput is the JSON output structure for rules listing.
type RulesJSONOutput struct {
	Rules         []RuleJSON `json:"rules"`
	PassScore     int        `json:"pass_score"`
	PointsPerFail int        `json:"points_per_fail"`
	Columns       []string   `json:"columns"`
}

// RuleJSON is one rule in JSON output.
type RuleJSON struct {
	audit.Rule
	Description string `json:"description"`
}

func activeRuleSet(cmd *cobra.Command) (*CommandContext, *audit.RuleSet, error) {
	cc := NewCommandContext(cmd)
	rs, err := cc.Cfg.RuleSet()
	if err != nil {
		return nil, nil, WrapStage(StageConfig, err)
	}
	return cc, rs, nil
}

func listRules(cmd *cobra.Command, opts *RulesOptions) error {
	cc, rs, err := activeRuleSet(cmd)
	if err != nil {
		return err
	}
	r := cc.WithFormat(cmd, opts.Format)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		out := RulesJSONOutput{
			PassScore:     rs.PassScore(),
			PointsPerFail: rs.PointsPerFail(),
			Columns:       rs.Columns(),
		}
		for _, rule := range rs.Rules() {
			out.Rules = append(out.Rules, RuleJSON{Rule: rule, Description: rule.Description()})
		}
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Header(1, "Audit Rules")
	default:
		r.Println("")
		r.Header(1, fmt.Sprintf("Audit Rules (%d)", rs.Len()))
	}

	rows := make([][]string, 0, rs.Len())
	for i, rule := range rs.Rules() {
		rows = append(rows, []string{strconv.Itoa(i + 1), rule.Name, rule.Field, rule.Predicate.String()})
	}
	r.Table([]string{"#", "Rule", "Field", "Check"}, rows)
	r.Println("")
	r.KeyValue("Pass score", strconv.Itoa(rs.PassScore()))
	r.KeyValue("Points per failed rule", strconv.Itoa(rs.PointsPerFail()))

	if r.EffectiveMode() == output.ModeText {
		r.Println("")
		r.Println(r.Muted("Use 'leadaudit rules <rule-name>' for details"))
	}
	return nil
}

func showRule(cmd *cobra.Command, name string, opts *RulesOptions) error {
	cc, rs, err := activeRuleSet(cmd)
	if err != nil {
		return err
	}
	r := cc.WithFormat(cmd, opts.Format)

	position := -1
	for i, rule := range rs.Rules() {
		if strings.EqualFold(rule.Name, name) {
			position = i
			break
		}
	}
	if position < 0 {
		return fmt.Errorf("rule %q not found", name)
	}
	rule := rs.Rules()[position]

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(RuleJSON{Rule: rule, Description: rule.Description()})
	}

	r.Header(1, rule.Name)
	r.KeyValue("Position", strconv.Itoa(position+1))
	r.KeyValue("Field", rule.Field)
	r.KeyValue("Check", rule.Predicate.String())
	r.KeyValue("Column", rule.Name)
	r.KeyValue("Description", rule.Description())
	r.KeyValue("Points on failure", strconv.Itoa(rs.PointsPerFail()))
	return nil
}
