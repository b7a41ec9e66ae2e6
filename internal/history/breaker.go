package history

import (
	"context"
	"errors"
	"time"

	"github.com/agrilink/sentinel/internal/circuitbreaker"
)

// ErrCircuitOpen is returned when a read is rejected because the circuit
// for that query family is open. Analyzers degrade to their fallback
// scores, so a struggling database slows assessments down instead of
// taking them out.
var ErrCircuitOpen = errors.New("history: circuit open")

// BreakerProvider wraps a Provider with a per-query-family circuit
// breaker. Each method is its own key: a failing tracking-point query
// does not block payment-history reads.
type BreakerProvider struct {
	inner   Provider
	breaker *circuitbreaker.Breaker
}

// NewBreakerProvider wraps inner, opening a query family's circuit after
// threshold consecutive failures and probing again after openDuration.
func NewBreakerProvider(inner Provider, threshold int, openDuration time.Duration) *BreakerProvider {
	return &BreakerProvider{
		inner:   inner,
		breaker: circuitbreaker.New(threshold, openDuration),
	}
}

func guard[T any](p *BreakerProvider, key string, call func() (T, error)) (T, error) {
	var zero T
	if !p.breaker.Allow(key) {
		return zero, ErrCircuitOpen
	}
	v, err := call()
	if err != nil && !errors.Is(err, ErrNotFound) {
		p.breaker.RecordFailure(key)
		return zero, err
	}
	// A not-found miss is a healthy backend answer.
	p.breaker.RecordSuccess(key)
	return v, err
}

func (p *BreakerProvider) PaymentStats(ctx context.Context, buyerID string, window time.Duration) (*PaymentStats, error) {
	return guard(p, "payment_stats", func() (*PaymentStats, error) {
		return p.inner.PaymentStats(ctx, buyerID, window)
	})
}

func (p *BreakerProvider) OrderStats(ctx context.Context, buyerID string, window time.Duration) (*OrderStats, error) {
	return guard(p, "order_stats", func() (*OrderStats, error) {
		return p.inner.OrderStats(ctx, buyerID, window)
	})
}

func (p *BreakerProvider) RegionCODStats(ctx context.Context, region string, window time.Duration) (*RegionCODStats, error) {
	return guard(p, "region_cod_stats", func() (*RegionCODStats, error) {
		return p.inner.RegionCODStats(ctx, region, window)
	})
}

func (p *BreakerProvider) Account(ctx context.Context, userID string) (*Account, error) {
	return guard(p, "account", func() (*Account, error) {
		return p.inner.Account(ctx, userID)
	})
}

func (p *BreakerProvider) TrackingPoints(ctx context.Context, transportID string, lookback time.Duration) ([]TrackingPoint, error) {
	return guard(p, "tracking_points", func() ([]TrackingPoint, error) {
		return p.inner.TrackingPoints(ctx, transportID, lookback)
	})
}

func (p *BreakerProvider) RoutePlan(ctx context.Context, transportID string) (*RoutePlan, error) {
	return guard(p, "route_plan", func() (*RoutePlan, error) {
		return p.inner.RoutePlan(ctx, transportID)
	})
}
