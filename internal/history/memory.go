package history

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// PaymentRecord is a seedable payment event for the in-memory provider.
type PaymentRecord struct {
	BuyerID   string
	Method    string // "cod" or "prepaid"
	Status    string // "completed", "failed", "pending"
	Region    string
	CreatedAt time.Time
}

// OrderRecord is a seedable order event for the in-memory provider.
type OrderRecord struct {
	BuyerID   string
	FarmerID  string
	Amount    float64
	Status    string // "placed", "cancelled", "delivered"
	CreatedAt time.Time
}

// MemoryProvider is a seedable in-memory Provider for tests and demo mode.
type MemoryProvider struct {
	mu       sync.RWMutex
	payments []PaymentRecord
	orders   []OrderRecord
	accounts map[string]time.Time
	tracking map[string][]TrackingPoint
	plans    map[string]*RoutePlan
	now      func() time.Time
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		accounts: make(map[string]time.Time),
		tracking: make(map[string][]TrackingPoint),
		plans:    make(map[string]*RoutePlan),
		now:      time.Now,
	}
}

// WithClock overrides the provider's clock, for deterministic tests.
func (m *MemoryProvider) WithClock(now func() time.Time) *MemoryProvider {
	m.now = now
	return m
}

// AddPayment seeds a payment record.
func (m *MemoryProvider) AddPayment(r PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, r)
}

// AddOrder seeds an order record.
func (m *MemoryProvider) AddOrder(r OrderRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, r)
}

// SetAccount seeds a user account creation time.
func (m *MemoryProvider) SetAccount(userID string, createdAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[userID] = createdAt
}

// AddTrackingPoints seeds tracking points for a transport.
func (m *MemoryProvider) AddTrackingPoints(transportID string, points ...TrackingPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracking[transportID] = append(m.tracking[transportID], points...)
}

// SetRoutePlan seeds the expected route for a transport.
func (m *MemoryProvider) SetRoutePlan(plan *RoutePlan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[plan.TransportID] = plan
}

func (m *MemoryProvider) PaymentStats(_ context.Context, buyerID string, window time.Duration) (*PaymentStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := m.now().Add(-window)
	var s PaymentStats
	for _, p := range m.payments {
		if p.BuyerID != buyerID || p.CreatedAt.Before(cutoff) {
			continue
		}
		s.Total++
		switch p.Status {
		case "completed":
			s.Successful++
		case "failed":
			s.Failed++
		}
		if p.Method == "cod" {
			s.CODTotal++
			if p.Status == "failed" {
				s.CODFailed++
			}
		}
	}
	return &s, nil
}

func (m *MemoryProvider) OrderStats(_ context.Context, buyerID string, window time.Duration) (*OrderStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	cutoff := now.Add(-window)
	var s OrderStats
	farmers := make(map[string]struct{})
	var amounts []float64
	for _, o := range m.orders {
		if o.BuyerID != buyerID || o.CreatedAt.Before(cutoff) {
			continue
		}
		s.Total++
		farmers[o.FarmerID] = struct{}{}
		amounts = append(amounts, o.Amount)
		switch o.Status {
		case "cancelled":
			s.Cancelled++
		case "delivered":
			s.Delivered++
		}
		if o.CreatedAt.After(now.Add(-24 * time.Hour)) {
			s.Last24h++
		}
		if o.CreatedAt.After(now.Add(-7 * 24 * time.Hour)) {
			s.Last7d++
		}
		if o.CreatedAt.After(s.LastOrderAt) {
			s.LastOrderAt = o.CreatedAt
		}
	}
	s.DistinctFarmers = len(farmers)
	s.MeanAmount, s.StddevAmount = meanStddev(amounts)
	return &s, nil
}

func (m *MemoryProvider) RegionCODStats(_ context.Context, region string, window time.Duration) (*RegionCODStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := m.now().Add(-window)
	var s RegionCODStats
	for _, p := range m.payments {
		if p.Method != "cod" || p.Region != region || p.CreatedAt.Before(cutoff) {
			continue
		}
		s.Orders++
		if p.Status == "failed" {
			s.Failed++
		}
	}
	return &s, nil
}

func (m *MemoryProvider) Account(_ context.Context, userID string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	createdAt, ok := m.accounts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &Account{UserID: userID, CreatedAt: createdAt}, nil
}

func (m *MemoryProvider) TrackingPoints(_ context.Context, transportID string, lookback time.Duration) ([]TrackingPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := m.now().Add(-lookback)
	var points []TrackingPoint
	for _, tp := range m.tracking[transportID] {
		if tp.RecordedAt.Before(cutoff) {
			continue
		}
		points = append(points, tp)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].RecordedAt.Before(points[j].RecordedAt)
	})
	return points, nil
}

func (m *MemoryProvider) RoutePlan(_ context.Context, transportID string) (*RoutePlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plan, ok := m.plans[transportID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *plan
	cp.Waypoints = append([]Waypoint(nil), plan.Waypoints...)
	return &cp, nil
}

// meanStddev computes the mean and sample standard deviation.
func meanStddev(xs []float64) (mean, stddev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)-1))
}
