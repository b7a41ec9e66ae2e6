package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// queryTimeout bounds every historical read so one slow query cannot
// hold up an assessment.
const queryTimeout = 2 * time.Second

// PostgresProvider reads marketplace history from PostgreSQL.
type PostgresProvider struct {
	db *sql.DB
}

// NewPostgresProvider creates a provider backed by the marketplace database.
func NewPostgresProvider(db *sql.DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

func (p *PostgresProvider) PaymentStats(ctx context.Context, buyerID string, window time.Duration) (*PaymentStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var s PaymentStats
	err := p.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE method = 'cod'),
			COUNT(*) FILTER (WHERE method = 'cod' AND status = 'failed')
		FROM payments
		WHERE buyer_id = $1 AND created_at >= NOW() - $2::interval
	`, buyerID, intervalArg(window)).Scan(&s.Total, &s.Successful, &s.Failed, &s.CODTotal, &s.CODFailed)
	if err != nil {
		return nil, fmt.Errorf("query payment stats: %w", err)
	}
	return &s, nil
}

func (p *PostgresProvider) OrderStats(ctx context.Context, buyerID string, window time.Duration) (*OrderStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var s OrderStats
	var mean, stddev sql.NullFloat64
	var lastAt sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COUNT(DISTINCT farmer_id),
			AVG(amount),
			STDDEV_SAMP(amount),
			COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '24 hours'),
			COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '7 days'),
			MAX(created_at)
		FROM orders
		WHERE buyer_id = $1 AND created_at >= NOW() - $2::interval
	`, buyerID, intervalArg(window)).Scan(
		&s.Total, &s.Cancelled, &s.Delivered, &s.DistinctFarmers,
		&mean, &stddev, &s.Last24h, &s.Last7d, &lastAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query order stats: %w", err)
	}
	s.MeanAmount = mean.Float64
	s.StddevAmount = stddev.Float64
	if lastAt.Valid {
		s.LastOrderAt = lastAt.Time
	}
	return &s, nil
}

func (p *PostgresProvider) RegionCODStats(ctx context.Context, region string, window time.Duration) (*RegionCODStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var s RegionCODStats
	err := p.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE p.status = 'failed')
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		WHERE p.method = 'cod'
		  AND o.buyer_region = $1
		  AND p.created_at >= NOW() - $2::interval
	`, region, intervalArg(window)).Scan(&s.Orders, &s.Failed)
	if err != nil {
		return nil, fmt.Errorf("query region cod stats: %w", err)
	}
	return &s, nil
}

func (p *PostgresProvider) Account(ctx context.Context, userID string) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	a := Account{UserID: userID}
	err := p.db.QueryRowContext(ctx, `
		SELECT created_at FROM users WHERE id = $1
	`, userID).Scan(&a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	return &a, nil
}

func (p *PostgresProvider) TrackingPoints(ctx context.Context, transportID string, lookback time.Duration) ([]TrackingPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
		SELECT lat, lon, speed_kmh, recorded_at
		FROM tracking_points
		WHERE transport_id = $1 AND recorded_at >= NOW() - $2::interval
		ORDER BY recorded_at ASC
	`, transportID, intervalArg(lookback))
	if err != nil {
		return nil, fmt.Errorf("query tracking points: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var points []TrackingPoint
	for rows.Next() {
		var tp TrackingPoint
		if err := rows.Scan(&tp.Lat, &tp.Lon, &tp.SpeedKmh, &tp.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan tracking point: %w", err)
		}
		points = append(points, tp)
	}
	return points, rows.Err()
}

func (p *PostgresProvider) RoutePlan(ctx context.Context, transportID string) (*RoutePlan, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	plan := RoutePlan{TransportID: transportID}
	err := p.db.QueryRowContext(ctx, `
		SELECT vehicle_type, expected_distance_km, expected_arrival
		FROM route_plans
		WHERE transport_id = $1
	`, transportID).Scan(&plan.VehicleType, &plan.ExpectedDistanceKm, &plan.ExpectedArrival)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query route plan: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT lat, lon
		FROM route_waypoints
		WHERE transport_id = $1
		ORDER BY seq ASC
	`, transportID)
	if err != nil {
		return nil, fmt.Errorf("query waypoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var w Waypoint
		if err := rows.Scan(&w.Lat, &w.Lon); err != nil {
			return nil, fmt.Errorf("scan waypoint: %w", err)
		}
		plan.Waypoints = append(plan.Waypoints, w)
	}
	return &plan, rows.Err()
}

// intervalArg renders a duration as a Postgres interval literal.
func intervalArg(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(d.Seconds()))
}
