package dataset

import "strings"

// DefaultNullMarkers are the cell texts that spreadsheet exports conventionally
// use for "no value". A cell equal to one of them is read as absent.
var DefaultNullMarkers = []string{
	"#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// NullPolicy decides which cell texts count as absent. A blank cell is always
// absent.
type NullPolicy struct {
	// Markers are exact (case-sensitive) texts treated as absent.
	Markers []string
	// TrimSpace makes whitespace-only cells absent and trims text before
	// comparing it against Markers.
	TrimSpace bool

	set map[string]struct{}
}

// DefaultNullPolicy treats blank cells and DefaultNullMarkers as absent.
func DefaultNullPolicy() NullPolicy {
	return NewNullPolicy(DefaultNullMarkers, false)
}

// StrictNullPolicy treats only blank cells as absent.
func StrictNullPolicy() NullPolicy {
	return NewNullPolicy(nil, false)
}

// NewNullPolicy builds a policy from a marker list.
func NewNullPolicy(markers []string, trimSpace bool) NullPolicy {
	set := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		set[m] = struct{}{}
	}
	return NullPolicy{
		Markers:   append([]string(nil), markers...),
		TrimSpace: trimSpace,
		set:       set,
	}
}

// IsNull reports whether s is an absent cell under this policy.
func (p NullPolicy) IsNull(s string) bool {
	if p.TrimSpace {
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return true
	}
	if p.set != nil {
		_, ok := p.set[s]
		return ok
	}
	for _, m := range p.Markers {
		if m == s {
			return true
		}
	}
	return false
}
