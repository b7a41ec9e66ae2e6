// Package assessment implements the shared multi-factor scoring core used by
// both engine instantiations: payment risk for placed orders and route
// anomaly for in-transit shipments.
//
// Each registered analyzer contributes one normalized score in [0,1] plus
// human-readable reasons. The engine combines analyzer scores under
// configured weights, classifies the total into a discrete level via ordered
// thresholds, derives deduplicated recommendations, and persists the result
// as an append-only audit record. Assessments are advisory: the engine never
// fails the caller because of an internal error.
package assessment

import (
	"context"
	"errors"
	"time"
)

// ErrNoAssessment is returned by RecordOutcome when no assessment exists for
// the subject.
var ErrNoAssessment = errors.New("assessment: no assessment for subject")

// Kind distinguishes the two engine instantiations.
type Kind string

const (
	KindPaymentRisk  Kind = "payment_risk"
	KindRouteAnomaly Kind = "route_anomaly"
)

// Level is the discrete severity derived from the aggregate score.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Rank orders levels so callers can compare severities.
func (l Level) Rank() int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	case LevelCritical:
		return 3
	default:
		return -1
	}
}

// Outcome is the ground-truth label attached to an assessment once the real
// result is known (payment settled or failed, delivery completed or aborted).
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Valid reports whether o is a known outcome label.
func (o Outcome) Valid() bool {
	return o == OutcomeSuccess || o == OutcomeFailure
}

// FactorResult is one analyzer's contribution to an assessment.
type FactorResult struct {
	Score   float64            `json:"score"`
	Reasons []string           `json:"reasons,omitempty"`
	Data    map[string]float64 `json:"data,omitempty"`
}

// OutcomeRecord is the stored ground-truth label for an assessment.
type OutcomeRecord struct {
	Outcome    Outcome   `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Assessment is the composed result of one scoring request.
type Assessment struct {
	ID              string                  `json:"id"`
	Kind            Kind                    `json:"kind"`
	SubjectID       string                  `json:"subjectId"`
	Score           float64                 `json:"score"`
	Level           Level                   `json:"level"`
	Factors         map[string]FactorResult `json:"factors"`
	Recommendations []string                `json:"recommendations"`
	Error           bool                    `json:"error,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
	Outcome         *OutcomeRecord          `json:"outcome,omitempty"`
}

// Filter narrows ListRecent queries.
type Filter struct {
	Kind      Kind
	Level     Level
	SubjectID string

	// Keyset position for cursor pagination: only rows strictly older
	// than (Before, BeforeID) are returned. Zero Before means no bound.
	Before   time.Time
	BeforeID string
}

// LevelStats aggregates stored assessments for one level.
type LevelStats struct {
	Count     int     `json:"count"`
	MeanScore float64 `json:"meanScore"`
	Successes int     `json:"successes"`
	Failures  int     `json:"failures"`
}

// Stats is a windowed per-level summary used by reporting collaborators.
type Stats struct {
	Window  time.Duration        `json:"-"`
	Total   int                  `json:"total"`
	ByLevel map[Level]LevelStats `json:"byLevel"`
}

// Store persists assessments for audit and calibration.
//
// Record is append-only. RecordOutcome attaches the ground-truth label to
// the most recent assessment for a subject, last write wins. Both are
// best-effort from the engine's perspective: failures are logged, never
// surfaced to the caller that received the Assessment.
type Store interface {
	Record(ctx context.Context, a *Assessment) error
	RecordOutcome(ctx context.Context, subjectID string, outcome Outcome, reason string) error
	ListRecent(ctx context.Context, f Filter, limit int) ([]*Assessment, error)
	Stats(ctx context.Context, window time.Duration) (*Stats, error)
}
