package assessment

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func storedAssessment(subject string, kind Kind, level Level, score float64) *Assessment {
	return &Assessment{
		ID:        fmt.Sprintf("asm_%s_%d", subject, time.Now().UnixNano()),
		Kind:      kind,
		SubjectID: subject,
		Score:     score,
		Level:     level,
		Factors:   map[string]FactorResult{},
		CreatedAt: time.Now(),
	}
}

func TestMemoryStoreListRecentNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		a := storedAssessment(fmt.Sprintf("ord-%d", i), KindPaymentRisk, LevelLow, 0.1)
		if err := s.Record(ctx, a); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := s.ListRecent(ctx, Filter{}, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	if got[0].SubjectID != "ord-4" || got[2].SubjectID != "ord-2" {
		t.Errorf("wrong ordering: %s, %s", got[0].SubjectID, got[2].SubjectID)
	}
}

func TestMemoryStoreFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Record(ctx, storedAssessment("ord-1", KindPaymentRisk, LevelHigh, 0.7))
	_ = s.Record(ctx, storedAssessment("trk-1", KindRouteAnomaly, LevelLow, 0.1))
	_ = s.Record(ctx, storedAssessment("ord-2", KindPaymentRisk, LevelLow, 0.2))

	got, _ := s.ListRecent(ctx, Filter{Kind: KindRouteAnomaly}, 10)
	if len(got) != 1 || got[0].SubjectID != "trk-1" {
		t.Errorf("kind filter failed: %v", got)
	}

	got, _ = s.ListRecent(ctx, Filter{Level: LevelHigh}, 10)
	if len(got) != 1 || got[0].SubjectID != "ord-1" {
		t.Errorf("level filter failed: %v", got)
	}

	got, _ = s.ListRecent(ctx, Filter{SubjectID: "ord-2"}, 10)
	if len(got) != 1 {
		t.Errorf("subject filter failed: %v", got)
	}
}

func TestRecordOutcomeLastWriteWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Record(ctx, storedAssessment("ord-1", KindPaymentRisk, LevelLow, 0.2))

	if err := s.RecordOutcome(ctx, "ord-1", OutcomeSuccess, ""); err != nil {
		t.Fatalf("first outcome: %v", err)
	}
	if err := s.RecordOutcome(ctx, "ord-1", OutcomeFailure, "chargeback"); err != nil {
		t.Fatalf("second outcome: %v", err)
	}

	got, _ := s.ListRecent(ctx, Filter{SubjectID: "ord-1"}, 1)
	if got[0].Outcome == nil || got[0].Outcome.Outcome != OutcomeFailure {
		t.Errorf("expected failure outcome to win, got %+v", got[0].Outcome)
	}
	if got[0].Outcome.Reason != "chargeback" {
		t.Errorf("expected reason carried, got %q", got[0].Outcome.Reason)
	}
}

func TestRecordOutcomeAttachesToMostRecent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := storedAssessment("ord-1", KindPaymentRisk, LevelLow, 0.2)
	second := storedAssessment("ord-1", KindPaymentRisk, LevelHigh, 0.7)
	_ = s.Record(ctx, first)
	_ = s.Record(ctx, second)

	if err := s.RecordOutcome(ctx, "ord-1", OutcomeFailure, ""); err != nil {
		t.Fatalf("outcome: %v", err)
	}

	got, _ := s.ListRecent(ctx, Filter{SubjectID: "ord-1"}, 10)
	if got[0].Outcome == nil {
		t.Error("most recent assessment should carry the outcome")
	}
	if got[1].Outcome != nil {
		t.Error("older assessment should not carry the outcome")
	}
}

func TestRecordOutcomeUnknownSubject(t *testing.T) {
	s := NewMemoryStore()
	err := s.RecordOutcome(context.Background(), "nope", OutcomeSuccess, "")
	if err != ErrNoAssessment {
		t.Errorf("expected ErrNoAssessment, got %v", err)
	}
}

func TestMemoryStoreStats(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Record(ctx, storedAssessment("ord-1", KindPaymentRisk, LevelLow, 0.1))
	_ = s.Record(ctx, storedAssessment("ord-2", KindPaymentRisk, LevelLow, 0.3))
	_ = s.Record(ctx, storedAssessment("ord-3", KindPaymentRisk, LevelHigh, 0.7))
	_ = s.RecordOutcome(ctx, "ord-3", OutcomeFailure, "")

	stats, err := s.Stats(ctx, time.Hour)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	low := stats.ByLevel[LevelLow]
	if low.Count != 2 {
		t.Errorf("low count = %d, want 2", low.Count)
	}
	if low.MeanScore < 0.19 || low.MeanScore > 0.21 {
		t.Errorf("low mean = %f, want 0.2", low.MeanScore)
	}
	high := stats.ByLevel[LevelHigh]
	if high.Failures != 1 {
		t.Errorf("high failures = %d, want 1", high.Failures)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := storedAssessment("ord-1", KindPaymentRisk, LevelLow, 0.1)
	a.Factors["f"] = FactorResult{Score: 0.1, Reasons: []string{"ok"}}
	_ = s.Record(ctx, a)

	got, _ := s.ListRecent(ctx, Filter{}, 1)
	got[0].Factors["f"] = FactorResult{Score: 0.9}

	again, _ := s.ListRecent(ctx, Filter{}, 1)
	if again[0].Factors["f"].Score != 0.1 {
		t.Error("store contents mutated through returned assessment")
	}
}
