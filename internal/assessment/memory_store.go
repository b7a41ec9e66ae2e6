package assessment

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for demo mode and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments []*Assessment
	bySubject   map[string]int // subjectID -> index of most recent assessment
}

// NewMemoryStore creates an empty in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bySubject: make(map[string]int)}
}

func (s *MemoryStore) Record(_ context.Context, a *Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneAssessment(a)
	s.assessments = append(s.assessments, cp)
	s.bySubject[a.SubjectID] = len(s.assessments) - 1
	return nil
}

func (s *MemoryStore) RecordOutcome(_ context.Context, subjectID string, outcome Outcome, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.bySubject[subjectID]
	if !ok {
		return ErrNoAssessment
	}
	// Last write wins by design: outcomes are issued by a single
	// authoritative event per subject.
	s.assessments[idx].Outcome = &OutcomeRecord{
		Outcome:    outcome,
		Reason:     reason,
		RecordedAt: time.Now(),
	}
	return nil
}

func (s *MemoryStore) ListRecent(_ context.Context, f Filter, limit int) ([]*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	var out []*Assessment
	for i := len(s.assessments) - 1; i >= 0 && len(out) < limit; i-- {
		a := s.assessments[i]
		if f.Kind != "" && a.Kind != f.Kind {
			continue
		}
		if f.Level != "" && a.Level != f.Level {
			continue
		}
		if f.SubjectID != "" && a.SubjectID != f.SubjectID {
			continue
		}
		if !f.Before.IsZero() {
			if a.CreatedAt.After(f.Before) || (a.CreatedAt.Equal(f.Before) && a.ID >= f.BeforeID) {
				continue
			}
		}
		out = append(out, cloneAssessment(a))
	}
	return out, nil
}

func (s *MemoryStore) Stats(_ context.Context, window time.Duration) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	stats := &Stats{Window: window, ByLevel: make(map[Level]LevelStats)}
	sums := make(map[Level]float64)
	for _, a := range s.assessments {
		if a.CreatedAt.Before(cutoff) {
			continue
		}
		stats.Total++
		ls := stats.ByLevel[a.Level]
		ls.Count++
		sums[a.Level] += a.Score
		if a.Outcome != nil {
			switch a.Outcome.Outcome {
			case OutcomeSuccess:
				ls.Successes++
			case OutcomeFailure:
				ls.Failures++
			}
		}
		stats.ByLevel[a.Level] = ls
	}
	for level, ls := range stats.ByLevel {
		ls.MeanScore = sums[level] / float64(ls.Count)
		stats.ByLevel[level] = ls
	}
	return stats, nil
}

func cloneAssessment(a *Assessment) *Assessment {
	cp := *a
	cp.Factors = make(map[string]FactorResult, len(a.Factors))
	for k, v := range a.Factors {
		f := v
		f.Reasons = append([]string(nil), v.Reasons...)
		if v.Data != nil {
			f.Data = make(map[string]float64, len(v.Data))
			for dk, dv := range v.Data {
				f.Data[dk] = dv
			}
		}
		cp.Factors[k] = f
	}
	cp.Recommendations = append([]string(nil), a.Recommendations...)
	if a.Outcome != nil {
		o := *a.Outcome
		cp.Outcome = &o
	}
	return &cp
}
