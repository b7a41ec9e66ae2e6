package paymentrisk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agrilink/sentinel/internal/assessment"
	"github.com/agrilink/sentinel/internal/history"
)

// Service is the payment-risk engine instantiation.
type Service struct {
	engine *assessment.Engine[Order]
	an     *analyzers
}

// New wires the six payment-risk analyzers into a scoring engine.
// store may be nil (assessments are not persisted, demo/test use).
func New(provider history.Provider, store assessment.Store, cfg Config, logger *slog.Logger) (*Service, error) {
	an := &analyzers{provider: provider, cfg: cfg, now: time.Now}

	registry := []assessment.Analyzer[Order]{
		{Name: FactorPaymentHistory, Weight: cfg.Weights[FactorPaymentHistory], Fallback: 0.5, Run: an.paymentHistory},
		{Name: FactorOrderPatterns, Weight: cfg.Weights[FactorOrderPatterns], Fallback: 0.4, Run: an.orderPatterns},
		{Name: FactorGeographic, Weight: cfg.Weights[FactorGeographic], Fallback: 0.3, Run: an.geographic},
		{Name: FactorAccountAge, Weight: cfg.Weights[FactorAccountAge], Fallback: 0.4, Run: an.accountAge},
		{Name: FactorOrderFrequency, Weight: cfg.Weights[FactorOrderFrequency], Fallback: 0.2, Run: an.orderFrequency},
		{Name: FactorAmountAnomaly, Weight: cfg.Weights[FactorAmountAnomaly], Fallback: 0.2, Run: an.amountAnomaly},
	}

	engine, err := assessment.NewEngine(
		assessment.KindPaymentRisk,
		registry,
		defaultThresholds(),
		defaultRecommendations(),
		store,
		func(o Order) string { return o.OrderID },
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("paymentrisk: %w", err)
	}

	return &Service{engine: engine, an: an}, nil
}

// WithClock overrides the service clock, for deterministic tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.an.now = now
	s.engine.WithClock(now)
	return s
}

// AssessOrder scores a placed order. Always returns a well-formed
// Assessment; failures degrade to documented defaults, never errors.
func (s *Service) AssessOrder(ctx context.Context, o Order) *assessment.Assessment {
	return s.engine.Assess(ctx, o)
}
