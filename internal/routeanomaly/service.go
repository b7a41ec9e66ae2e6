package routeanomaly

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agrilink/sentinel/internal/assessment"
	"github.com/agrilink/sentinel/internal/history"
)

// Service is the route-anomaly engine instantiation.
type Service struct {
	engine *assessment.Engine[Shipment]
	an     *analyzers
}

// New wires the six route-anomaly analyzers into a scoring engine.
// store may be nil (assessments are not persisted, demo/test use).
func New(provider history.Provider, store assessment.Store, cfg Config, logger *slog.Logger) (*Service, error) {
	an := &analyzers{provider: provider, cfg: cfg, now: time.Now}

	registry := []assessment.Analyzer[Shipment]{
		{Name: FactorRouteDeviation, Weight: cfg.Weights[FactorRouteDeviation], Fallback: 0.3, Run: an.routeDeviation},
		{Name: FactorSpeedAnomaly, Weight: cfg.Weights[FactorSpeedAnomaly], Fallback: 0.2, Run: an.speedAnomaly},
		{Name: FactorStallDetection, Weight: cfg.Weights[FactorStallDetection], Fallback: 0.2, Run: an.stallDetection},
		{Name: FactorStopPattern, Weight: cfg.Weights[FactorStopPattern], Fallback: 0.2, Run: an.stopPattern},
		{Name: FactorTimeAnomaly, Weight: cfg.Weights[FactorTimeAnomaly], Fallback: 0.3, Run: an.timeAnomaly},
		{Name: FactorAcceleration, Weight: cfg.Weights[FactorAcceleration], Fallback: 0.2, Run: an.accelerationAnomaly},
	}

	engine, err := assessment.NewEngine(
		assessment.KindRouteAnomaly,
		registry,
		defaultThresholds(),
		defaultRecommendations(),
		store,
		func(s Shipment) string { return s.TransportID },
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("routeanomaly: %w", err)
	}

	return &Service{engine: engine, an: an}, nil
}

// WithClock overrides the service clock, for deterministic tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.an.now = now
	s.engine.WithClock(now)
	return s
}

// AssessShipment scores an in-transit shipment's recent tracking series.
// Always returns a well-formed Assessment.
func (s *Service) AssessShipment(ctx context.Context, sh Shipment) *assessment.Assessment {
	return s.engine.Assess(ctx, sh)
}
