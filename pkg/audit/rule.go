package audit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leadaudit/pkg/dataset"
)

// Predicate is the check a rule applies to its source field.
type Predicate int

// Predicate kinds. The zero value is invalid.
const (
	PredicateUnknown Predicate = iota
	// PredicatePresent passes when the field has a value.
	PredicatePresent
	// PredicateAbsent passes when the field has no value.
	PredicateAbsent
)

// String returns the canonical name of the predicate.
func (p Predicate) String() string {
	switch p {
	case PredicatePresent:
		return "PRESENT"
	case PredicateAbsent:
		return "ABSENT"
	default:
		return "UNKNOWN"
	}
}

// ParsePredicate converts text to a Predicate. "notna" and "isna" are accepted
// as aliases of PRESENT and ABSENT.
func ParsePredicate(s string) (Predicate, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "present", "notna":
		return PredicatePresent, true
	case "absent", "isna":
		return PredicateAbsent, true
	default:
		return PredicateUnknown, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Predicate) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Predicate) UnmarshalText(text []byte) error {
	parsed, ok := ParsePredicate(string(text))
	if !ok {
		return fmt.Errorf("unknown predicate %q (want PRESENT or ABSENT)", string(text))
	}
	*p = parsed
	return nil
}

// Rule is a named check over one source field.
type Rule struct {
	Name      string    `koanf:"name" yaml:"name" json:"name"`
	Field     string    `koanf:"field" yaml:"field" json:"field"`
	Predicate Predicate `koanf:"predicate" yaml:"predicate" json:"predicate"`
}

// Passes reports whether the record satisfies the rule.
func (r Rule) Passes(rec dataset.Record) bool {
	v, _ := rec.Get(r.Field)
	switch r.Predicate {
	case PredicatePresent:
		return !v.IsNull()
	case PredicateAbsent:
		return v.IsNull()
	default:
		return false
	}
}

// Description returns a one-line explanation of when the rule passes.
func (r Rule) Description() string {
	switch r.Predicate {
	case PredicatePresent:
		return fmt.Sprintf("passes when %q has a value", r.Field)
	case PredicateAbsent:
		return fmt.Sprintf("passes when %q is empty", r.Field)
	default:
		return "invalid predicate"
	}
}

// ErrEmptyRuleSet is returned when a rule set has no rules.
var ErrEmptyRuleSet = errors.New("rule set is empty")

// ErrInvalidPassScore is returned when the pass threshold is outside 0..100.
var ErrInvalidPassScore = errors.New("pass score must be between 0 and 100")

// InvalidRuleError describes a malformed rule.
type InvalidRuleError struct {
	Index  int
	Name   string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("rule #%d: %s", e.Index+1, e.Reason)
	}
	return fmt.Sprintf("rule #%d %q: %s", e.Index+1, e.Name, e.Reason)
}
