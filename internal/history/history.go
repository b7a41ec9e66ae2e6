// Package history exposes read-only queries over the marketplace's
// historical records: orders, payments, user accounts, and shipment
// tracking points. The scoring engines consume this data through the
// Provider interface; they never write through it.
package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("history: not found")

// PaymentStats summarizes a buyer's payment record over a window.
type PaymentStats struct {
	Total      int
	Successful int
	Failed     int
	CODTotal   int
	CODFailed  int
}

// SuccessRate returns the fraction of successful payments, or 0 with no data.
func (p PaymentStats) SuccessRate() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Successful) / float64(p.Total)
}

// CODFailureRate returns the fraction of failed cash-on-delivery payments.
func (p PaymentStats) CODFailureRate() float64 {
	if p.CODTotal == 0 {
		return 0
	}
	return float64(p.CODFailed) / float64(p.CODTotal)
}

// OrderStats summarizes a buyer's ordering behavior over a window.
type OrderStats struct {
	Total           int
	Cancelled       int
	Delivered       int
	DistinctFarmers int
	MeanAmount      float64
	StddevAmount    float64
	Last24h         int
	Last7d          int
	LastOrderAt     time.Time // zero if the buyer has no orders
}

// CancellationRate returns the fraction of cancelled orders.
func (o OrderStats) CancellationRate() float64 {
	if o.Total == 0 {
		return 0
	}
	return float64(o.Cancelled) / float64(o.Total)
}

// DeliveryRate returns the fraction of orders that completed delivery.
func (o OrderStats) DeliveryRate() float64 {
	if o.Total == 0 {
		return 0
	}
	return float64(o.Delivered) / float64(o.Total)
}

// FarmerDiversity returns distinct farmers over total orders.
func (o OrderStats) FarmerDiversity() float64 {
	if o.Total == 0 {
		return 0
	}
	return float64(o.DistinctFarmers) / float64(o.Total)
}

// RegionCODStats summarizes cash-on-delivery outcomes for a region.
type RegionCODStats struct {
	Orders int
	Failed int
}

// FailureRate returns the regional COD failure rate.
func (r RegionCODStats) FailureRate() float64 {
	if r.Orders == 0 {
		return 0
	}
	return float64(r.Failed) / float64(r.Orders)
}

// Account is the subset of a user record the engines need.
type Account struct {
	UserID    string
	CreatedAt time.Time
}

// TrackingPoint is a single GPS sample from an in-transit shipment.
type TrackingPoint struct {
	Lat        float64
	Lon        float64
	SpeedKmh   float64
	RecordedAt time.Time
}

// Waypoint is a planned stop or via point on a shipment route.
type Waypoint struct {
	Lat float64
	Lon float64
}

// RoutePlan is the expected route for a shipment.
type RoutePlan struct {
	TransportID        string
	VehicleType        string
	Waypoints          []Waypoint
	ExpectedDistanceKm float64
	ExpectedArrival    time.Time
}

// Provider is the read-only view of marketplace history the engines consume.
// Implementations must respect ctx deadlines; a slow or failed read is
// recovered by the caller as an analyzer-local failure.
type Provider interface {
	PaymentStats(ctx context.Context, buyerID string, window time.Duration) (*PaymentStats, error)
	OrderStats(ctx context.Context, buyerID string, window time.Duration) (*OrderStats, error)
	RegionCODStats(ctx context.Context, region string, window time.Duration) (*RegionCODStats, error)
	Account(ctx context.Context, userID string) (*Account, error)
	TrackingPoints(ctx context.Context, transportID string, lookback time.Duration) ([]TrackingPoint, error)
	RoutePlan(ctx context.Context, transportID string) (*RoutePlan, error)
}
