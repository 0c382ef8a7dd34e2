package config

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leadaudit/internal/cli/output"
	"github.com/leapstack-labs/leadaudit/pkg/audit"
	"github.com/leapstack-labs/leadaudit/pkg/dataset"
)

// Validate checks the configuration before any file is touched.
func (c *Config) Validate() error {
	var errs []error
	if c.Input == "" {
		errs = append(errs, fmt.Errorf("input is required"))
	}
	if c.Output == "" {
		errs = append(errs, fmt.Errorf("output is required"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		errs = append(errs, err)
	}
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, fmt.Errorf("history.path is required when history is enabled"))
	}
	if _, err := c.RuleSet(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RuleSet builds the configured rule set. Without configured rules the
// default lead rules are used.
func (c *Config) RuleSet() (*audit.RuleSet, error) {
	rules := c.Rules
	if len(rules) == 0 {
		rules = audit.DefaultRules
	}
	rs, err := audit.NewRuleSet(rules, c.PassScore)
	if err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	return rs, nil
}

// NullPolicy returns the policy used to classify cells as absent.
func (c *Config) NullPolicy() dataset.NullPolicy {
	if c.Null.Strict {
		return dataset.NewNullPolicy(nil, c.Null.TrimSpace)
	}
	markers := c.Null.Markers
	if markers == nil {
		markers = dataset.DefaultNullMarkers
	}
	return dataset.NewNullPolicy(markers, c.Null.TrimSpace)
}
