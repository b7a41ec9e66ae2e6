package assessment

import "fmt"

// Bound pairs a level with its upper score bound.
type Bound struct {
	Level Level
	Upper float64
}

// Thresholds maps an aggregate score to a level via ordered bounds.
// The final level catches every score above the highest bound.
//
// The two instantiations disagree on boundary inclusivity: payment risk
// assigns a score equal to a bound to the lower level (score <= upper),
// route anomaly assigns it to the higher one (score < upper). ExclusiveUpper
// selects the latter.
type Thresholds struct {
	bounds         []Bound
	last           Level
	exclusiveUpper bool
}

// NewThresholds validates and builds a threshold table. Bounds must be
// strictly increasing and inside (0, 1).
func NewThresholds(bounds []Bound, last Level, exclusiveUpper bool) (Thresholds, error) {
	if len(bounds) == 0 {
		return Thresholds{}, fmt.Errorf("thresholds: at least one bound required")
	}
	prev := 0.0
	for i, b := range bounds {
		if b.Upper <= prev || b.Upper >= 1.0 {
			return Thresholds{}, fmt.Errorf("thresholds: bound %d (%s=%.3f) not strictly increasing in (0,1)", i, b.Level, b.Upper)
		}
		prev = b.Upper
	}
	return Thresholds{bounds: bounds, last: last, exclusiveUpper: exclusiveUpper}, nil
}

// MustThresholds is NewThresholds for static configuration; panics on error.
func MustThresholds(bounds []Bound, last Level, exclusiveUpper bool) Thresholds {
	t, err := NewThresholds(bounds, last, exclusiveUpper)
	if err != nil {
		panic(err)
	}
	return t
}

// Classify maps a score to its level. Monotonic: a higher score never maps
// to a lower level.
func (t Thresholds) Classify(score float64) Level {
	for _, b := range t.bounds {
		if t.exclusiveUpper {
			if score < b.Upper {
				return b.Level
			}
		} else if score <= b.Upper {
			return b.Level
		}
	}
	return t.last
}

// MidLevel returns the level used for fallback assessments (the level a 0.5
// aggregate classifies to).
func (t Thresholds) MidLevel() Level {
	return t.Classify(0.5)
}
