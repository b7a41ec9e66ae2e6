package assessment

import "testing"

func TestClassifyInclusiveBounds(t *testing.T) {
	th := MustThresholds([]Bound{
		{Level: LevelLow, Upper: 0.3},
		{Level: LevelMedium, Upper: 0.6},
		{Level: LevelHigh, Upper: 0.8},
	}, LevelCritical, false)

	cases := []struct {
		score float64
		want  Level
	}{
		{0, LevelLow},
		{0.3, LevelLow}, // boundary goes to the lower level
		{0.31, LevelMedium},
		{0.6, LevelMedium},
		{0.8, LevelHigh},
		{0.81, LevelCritical},
		{1.0, LevelCritical},
	}
	for _, tc := range cases {
		if got := th.Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestClassifyExclusiveBounds(t *testing.T) {
	th := MustThresholds([]Bound{
		{Level: LevelLow, Upper: 0.3},
		{Level: LevelMedium, Upper: 0.6},
		{Level: LevelHigh, Upper: 0.8},
	}, LevelCritical, true)

	cases := []struct {
		score float64
		want  Level
	}{
		{0.3, LevelMedium}, // boundary goes to the higher level
		{0.6, LevelHigh},
		{0.8, LevelCritical},
	}
	for _, tc := range cases {
		if got := th.Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	th := MustThresholds([]Bound{
		{Level: LevelLow, Upper: 0.3},
		{Level: LevelMedium, Upper: 0.6},
		{Level: LevelHigh, Upper: 0.8},
	}, LevelCritical, false)

	prev := -1
	for s := 0.0; s <= 1.0; s += 0.001 {
		rank := th.Classify(s).Rank()
		if rank < prev {
			t.Fatalf("classification not monotonic at score %f", s)
		}
		prev = rank
	}
}

func TestNewThresholdsValidation(t *testing.T) {
	cases := []struct {
		name   string
		bounds []Bound
	}{
		{"empty", nil},
		{"not increasing", []Bound{{LevelLow, 0.6}, {LevelMedium, 0.3}}},
		{"zero bound", []Bound{{LevelLow, 0}}},
		{"bound at one", []Bound{{LevelLow, 1.0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewThresholds(tc.bounds, LevelCritical, false); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMidLevel(t *testing.T) {
	th := MustThresholds([]Bound{
		{Level: LevelLow, Upper: 0.3},
		{Level: LevelMedium, Upper: 0.6},
		{Level: LevelHigh, Upper: 0.8},
	}, LevelCritical, false)

	if got := th.MidLevel(); got != LevelMedium {
		t.Errorf("MidLevel = %s, want medium", got)
	}
}
