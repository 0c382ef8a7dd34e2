package audit

// RuleFailures is the number of records that failed one rule.
type RuleFailures struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// Summary aggregates the outcomes of a run. It is reporting only and never
// feeds back into per-record values.
type Summary struct {
	Total        int            `json:"total"`
	Passed       int            `json:"passed"`
	Failed       int            `json:"failed"`
	AverageScore float64        `json:"average_score"`
	ByRule       []RuleFailures `json:"by_rule"`
	ByScore      map[int]int    `json:"by_score"`
}

// Summarize builds a Summary for outcomes produced by rs.
func Summarize(rs *RuleSet, outcomes []Outcome) Summary {
	s := Summary{
		Total:   len(outcomes),
		ByRule:  make([]RuleFailures, rs.Len()),
		ByScore: make(map[int]int),
	}
	for i, r := range rs.rules {
		s.ByRule[i].Rule = r.Name
	}

	var scoreSum int
	for _, o := range outcomes {
		if o.Passed() {
			s.Passed++
		} else {
			s.Failed++
		}
		scoreSum += o.Score
		s.ByScore[o.Score]++
		for i, c := range o.Checks {
			if c == CheckNo && i < len(s.ByRule) {
				s.ByRule[i].Count++
			}
		}
	}
	if s.Total > 0 {
		s.AverageScore = float64(scoreSum) / float64(s.Total)
	}
	return s
}

// PassRate returns the fraction of records that passed, or 0 for an empty run.
func (s Summary) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total)
}

// Summary returns the aggregate view of r.
func (r *Result) Summary() Summary {
	return Summarize(r.rules, r.Outcomes)
}
