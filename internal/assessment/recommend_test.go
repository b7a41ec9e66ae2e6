package assessment

import (
	"reflect"
	"testing"
)

func TestRecommendationsForLevel(t *testing.T) {
	r := Recommendations{
		ByLevel: map[Level][]string{
			LevelHigh: {"Require prepayment", "Flag for review"},
		},
	}

	got := r.For(LevelHigh, nil, nil)
	want := []string{"Require prepayment", "Flag for review"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFactorRecommendationAppendedAboveTrigger(t *testing.T) {
	r := Recommendations{
		ByLevel:  map[Level][]string{LevelMedium: {"Monitor order"}},
		ByFactor: map[string]string{"geographic": "Verify delivery address"},
	}
	factors := map[string]FactorResult{
		"geographic": {Score: 0.75},
	}

	got := r.For(LevelMedium, []string{"geographic"}, factors)
	want := []string{"Monitor order", "Verify delivery address"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFactorRecommendationSkippedAtTrigger(t *testing.T) {
	r := Recommendations{
		ByFactor: map[string]string{"geographic": "Verify delivery address"},
	}
	factors := map[string]FactorResult{
		"geographic": {Score: 0.7}, // exactly at trigger, not above
	}

	if got := r.For(LevelLow, []string{"geographic"}, factors); len(got) != 0 {
		t.Errorf("expected no recommendations, got %v", got)
	}
}

func TestRecommendationsDeduplicated(t *testing.T) {
	r := Recommendations{
		ByLevel: map[Level][]string{
			LevelHigh: {"Route to manual review"},
		},
		ByFactor: map[string]string{
			"payment_history": "Route to manual review",
			"account_age":     "Request identity verification",
		},
	}
	factors := map[string]FactorResult{
		"payment_history": {Score: 0.9},
		"account_age":     {Score: 0.8},
	}

	got := r.For(LevelHigh, []string{"payment_history", "account_age"}, factors)
	want := []string{"Route to manual review", "Request identity verification"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFactorOrderDeterministic(t *testing.T) {
	r := Recommendations{
		ByFactor: map[string]string{
			"a": "first",
			"b": "second",
		},
	}
	factors := map[string]FactorResult{
		"a": {Score: 0.9},
		"b": {Score: 0.9},
	}

	want := []string{"first", "second"}
	for i := 0; i < 20; i++ {
		got := r.For(LevelLow, []string{"a", "b"}, factors)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("iteration %d: got %v, want %v", i, got, want)
		}
	}
}
