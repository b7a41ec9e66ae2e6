package assessment

// DefaultFactorTrigger is the analyzer score above which its factor-specific
// recommendation is appended.
const DefaultFactorTrigger = 0.7

// Recommendations is the rule table mapping levels and high-scoring factors
// to action strings.
type Recommendations struct {
	// ByLevel holds the base recommendations chosen per level.
	ByLevel map[Level][]string
	// ByFactor holds per-analyzer recommendations, appended when that
	// analyzer's score exceeds Trigger.
	ByFactor map[string]string
	// Trigger defaults to DefaultFactorTrigger when zero.
	Trigger float64
}

// For builds the recommendation list for an assessment. Factor rules are
// evaluated in analyzer registration order so output is deterministic; the
// result is deduplicated preserving first-seen order.
func (r Recommendations) For(level Level, order []string, factors map[string]FactorResult) []string {
	trigger := r.Trigger
	if trigger == 0 {
		trigger = DefaultFactorTrigger
	}

	var out []string
	out = append(out, r.ByLevel[level]...)
	for _, name := range order {
		f, ok := factors[name]
		if !ok || f.Score <= trigger {
			continue
		}
		if rec := r.ByFactor[name]; rec != "" {
			out = append(out, rec)
		}
	}
	return dedupe(out)
}

// dedupe removes duplicate strings preserving first-seen order.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
