package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore persists assessments in PostgreSQL. Schema lives in the
// migrations/ directory (assessments table).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, a *Assessment) error {
	factorsJSON, err := json.Marshal(a.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	recsJSON, err := json.Marshal(a.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (id, kind, subject_id, score, level, factors, recommendations, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		a.ID,
		string(a.Kind),
		a.SubjectID,
		a.Score,
		string(a.Level),
		factorsJSON,
		recsJSON,
		a.Error,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordOutcome(ctx context.Context, subjectID string, outcome Outcome, reason string) error {
	// Attach the outcome to the most recent assessment for the subject.
	// Repeated updates overwrite: last write wins.
	res, err := s.db.ExecContext(ctx, `
		UPDATE assessments
		SET outcome = $2, outcome_reason = $3, outcome_at = NOW()
		WHERE id = (
			SELECT id FROM assessments
			WHERE subject_id = $1
			ORDER BY created_at DESC
			LIMIT 1
		)
	`, subjectID, string(outcome), reason)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	if n == 0 {
		return ErrNoAssessment
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, f Filter, limit int) ([]*Assessment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, subject_id, score, level, factors, recommendations, error,
		       created_at, outcome, outcome_reason, outcome_at
		FROM assessments
		WHERE ($1 = '' OR kind = $1)
		  AND ($2 = '' OR level = $2)
		  AND ($3 = '' OR subject_id = $3)
		  AND ($5 = '' OR (created_at, id) < ($4::timestamptz, $5))
		ORDER BY created_at DESC, id DESC
		LIMIT $6
	`, string(f.Kind), string(f.Level), f.SubjectID, f.Before, f.BeforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Assessment
	for rows.Next() {
		var a Assessment
		var factorsJSON, recsJSON []byte
		var outcome, outcomeReason sql.NullString
		var outcomeAt sql.NullTime
		if err := rows.Scan(
			&a.ID, &a.Kind, &a.SubjectID, &a.Score, &a.Level,
			&factorsJSON, &recsJSON, &a.Error,
			&a.CreatedAt, &outcome, &outcomeReason, &outcomeAt,
		); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		a.Factors = make(map[string]FactorResult)
		_ = json.Unmarshal(factorsJSON, &a.Factors)
		_ = json.Unmarshal(recsJSON, &a.Recommendations)
		if outcome.Valid {
			a.Outcome = &OutcomeRecord{
				Outcome:    Outcome(outcome.String),
				Reason:     outcomeReason.String,
				RecordedAt: outcomeAt.Time,
			}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context, window time.Duration) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT level,
		       COUNT(*),
		       AVG(score),
		       COUNT(*) FILTER (WHERE outcome = 'success'),
		       COUNT(*) FILTER (WHERE outcome = 'failure')
		FROM assessments
		WHERE created_at >= NOW() - $1::interval
		GROUP BY level
	`, fmt.Sprintf("%d seconds", int64(window.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &Stats{Window: window, ByLevel: make(map[Level]LevelStats)}
	for rows.Next() {
		var level string
		var ls LevelStats
		if err := rows.Scan(&level, &ls.Count, &ls.MeanScore, &ls.Successes, &ls.Failures); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByLevel[Level(level)] = ls
		stats.Total += ls.Count
	}
	return stats, rows.Err()
}
