package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/agrilink/sentinel/internal/idgen"
	"github.com/agrilink/sentinel/internal/metrics"
	"github.com/agrilink/sentinel/internal/retry"
	"github.com/agrilink/sentinel/internal/traces"
)

// weightEpsilon is the tolerance when checking that weights sum to 1.0.
const weightEpsilon = 1e-9

// Analyzer is one registered signal: a name, its weight in the aggregate,
// the default score used when the analyzer fails, and the scoring function.
//
// Run may return an error or panic; the engine recovers either into the
// Fallback score with an explanatory reason. It must not mutate the subject.
type Analyzer[S any] struct {
	Name     string
	Weight   float64
	Fallback float64
	Run      func(ctx context.Context, subject S) (FactorResult, error)
}

// Engine orchestrates the registered analyzers for one instantiation.
// A single Engine is safe for concurrent use; assessments share no state.
type Engine[S any] struct {
	kind       Kind
	analyzers  []Analyzer[S]
	thresholds Thresholds
	recs       Recommendations
	store      Store
	logger     *slog.Logger
	subjectID  func(S) string
	now        func() time.Time
}

// NewEngine validates the analyzer registry and builds an engine.
// Weights must be non-negative and sum to 1.0 within a small epsilon.
func NewEngine[S any](
	kind Kind,
	analyzers []Analyzer[S],
	thresholds Thresholds,
	recs Recommendations,
	store Store,
	subjectID func(S) string,
	logger *slog.Logger,
) (*Engine[S], error) {
	if len(analyzers) == 0 {
		return nil, fmt.Errorf("engine %s: no analyzers registered", kind)
	}
	seen := make(map[string]struct{}, len(analyzers))
	sum := 0.0
	for _, a := range analyzers {
		if a.Name == "" || a.Run == nil {
			return nil, fmt.Errorf("engine %s: analyzer with empty name or nil fn", kind)
		}
		if _, dup := seen[a.Name]; dup {
			return nil, fmt.Errorf("engine %s: duplicate analyzer %q", kind, a.Name)
		}
		seen[a.Name] = struct{}{}
		if a.Weight < 0 {
			return nil, fmt.Errorf("engine %s: analyzer %q has negative weight", kind, a.Name)
		}
		if a.Fallback < 0 || a.Fallback > 1 {
			return nil, fmt.Errorf("engine %s: analyzer %q fallback outside [0,1]", kind, a.Name)
		}
		sum += a.Weight
	}
	if math.Abs(sum-1.0) > weightEpsilon {
		return nil, fmt.Errorf("engine %s: weights sum to %.6f, want 1.0", kind, sum)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine[S]{
		kind:       kind,
		analyzers:  analyzers,
		thresholds: thresholds,
		recs:       recs,
		store:      store,
		logger:     logger,
		subjectID:  subjectID,
		now:        time.Now,
	}, nil
}

// WithClock overrides the engine's clock, for deterministic tests.
func (e *Engine[S]) WithClock(now func() time.Time) *Engine[S] {
	e.now = now
	return e
}

// AnalyzerNames returns the registered analyzer names in registration order.
func (e *Engine[S]) AnalyzerNames() []string {
	names := make([]string, len(e.analyzers))
	for i, a := range e.analyzers {
		names[i] = a.Name
	}
	return names
}

// Assess runs every registered analyzer against the subject, aggregates the
// weighted scores, classifies the total, derives recommendations, and
// persists the result asynchronously. It always returns a well-formed
// Assessment: if the subject cannot be resolved the documented fallback is
// returned with Error set, never an error to the caller.
func (e *Engine[S]) Assess(ctx context.Context, subject S) *Assessment {
	start := e.now()
	ctx, span := traces.StartSpan(ctx, "assessment.assess",
		attribute.String("assessment.kind", string(e.kind)))
	defer span.End()

	id := e.subjectID(subject)
	if id == "" {
		e.logger.Error("assessment subject unresolvable", "kind", e.kind)
		return e.Fallback("")
	}

	factors := make(map[string]FactorResult, len(e.analyzers))
	total := 0.0
	for _, a := range e.analyzers {
		res := e.runAnalyzer(ctx, a, subject)
		factors[a.Name] = res
		total += res.Score * a.Weight
	}
	total = clamp(total)
	level := e.thresholds.Classify(total)

	a := &Assessment{
		ID:              idgen.WithPrefix("asm_"),
		Kind:            e.kind,
		SubjectID:       id,
		Score:           math.Round(total*1000) / 1000,
		Level:           level,
		Factors:         factors,
		Recommendations: e.recs.For(level, e.AnalyzerNames(), factors),
		CreatedAt:       start,
	}

	metrics.AssessmentsTotal.WithLabelValues(string(e.kind), string(level)).Inc()
	metrics.AssessmentScore.WithLabelValues(string(e.kind)).Observe(a.Score)
	metrics.AssessmentDuration.WithLabelValues(string(e.kind)).Observe(e.now().Sub(start).Seconds())

	e.persist(a)
	return a
}

// Fallback returns the documented orchestration-failure assessment: a fixed
// mid score, the mid level, a manual-review recommendation, and Error set.
func (e *Engine[S]) Fallback(subjectID string) *Assessment {
	const fallbackScore = 0.5
	a := &Assessment{
		ID:        idgen.WithPrefix("asm_"),
		Kind:      e.kind,
		SubjectID: subjectID,
		Score:     fallbackScore,
		Level:     e.thresholds.MidLevel(),
		Factors:   map[string]FactorResult{},
		Recommendations: []string{
			"Assessment could not be completed; route to manual review",
		},
		Error:     true,
		CreatedAt: e.now(),
	}
	metrics.AssessmentFallbacksTotal.WithLabelValues(string(e.kind)).Inc()
	e.persist(a)
	return a
}

// runAnalyzer executes one analyzer, recovering panics and errors into the
// analyzer's fallback score so a single failing signal never blocks the
// aggregate. Scores are clamped to [0,1] whatever the analyzer produced.
func (e *Engine[S]) runAnalyzer(ctx context.Context, a Analyzer[S], subject S) (res FactorResult) {
	_, span := traces.StartSpan(ctx, "assessment.analyzer",
		attribute.String("analyzer.name", a.Name))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("analyzer panicked",
				"kind", e.kind, "analyzer", a.Name, "panic", r)
			metrics.AnalyzerFailuresTotal.WithLabelValues(string(e.kind), a.Name).Inc()
			res = FactorResult{
				Score:   a.Fallback,
				Reasons: []string{fmt.Sprintf("%s unavailable (internal error)", a.Name)},
			}
		}
	}()

	res, err := a.Run(ctx, subject)
	if err != nil {
		e.logger.Warn("analyzer failed",
			"kind", e.kind, "analyzer", a.Name, "error", err)
		metrics.AnalyzerFailuresTotal.WithLabelValues(string(e.kind), a.Name).Inc()
		return FactorResult{
			Score:   a.Fallback,
			Reasons: []string{fmt.Sprintf("%s unavailable: %v", a.Name, err)},
		}
	}
	res.Score = clamp(res.Score)
	return res
}

// persist writes the assessment asynchronously. Best-effort: failures are
// retried briefly, then logged and dropped.
func (e *Engine[S]) persist(a *Assessment) {
	if e.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := retry.Do(ctx, 3, 100*time.Millisecond, func() error {
			return e.store.Record(ctx, a)
		})
		if err != nil {
			e.logger.Warn("failed to record assessment",
				"kind", e.kind, "subject_id", a.SubjectID, "error", err)
		}
	}()
}

func clamp(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
