// Package audit scores lead records against an ordered set of data-quality
// rules.
//
// # Rules
//
// A Rule names one source field and a predicate. PRESENT passes when the field
// has a value, ABSENT passes when it does not. A field missing from the record
// is treated as absent, never as an error.
//
// Rules are grouped into a RuleSet, which is validated once and then shared
// read-only by every record of a run:
//
//	rs := audit.DefaultRuleSet()
//	out := rs.Evaluate(rec)
//	fmt.Println(out.Score, out.Result, out.FailureReason)
//
// # Scoring
//
// Each failed rule costs 100/len(rules) points (integer division). The score
// is clipped at zero, and a record passes when its score is at least the rule
// set's pass threshold.
//
// # Engine
//
// Engine applies a RuleSet to a whole dataset and appends the outcome columns
// after the original ones:
//
//	original columns | one Yes/No column per rule | Fail Count | Audit Score | Audit Result | Failure Reason
//
// Records may be evaluated concurrently but output order always matches input
// order.
package audit
