package paymentrisk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/agrilink/sentinel/internal/assessment"
	"github.com/agrilink/sentinel/internal/history"
)

// analyzers bundles the provider, tuning, and clock the scoring functions
// share. Each function is pure given its inputs; failures surface as errors
// and are recovered by the engine into the analyzer's fallback score.
type analyzers struct {
	provider history.Provider
	cfg      Config
	now      func() time.Time
}

// paymentHistory bands the buyer's payment success rate and adds a penalty
// proportional to their COD-specific failure rate. A brand-new payer scores
// a fixed 0.5: unknown, not trusted, not condemned.
func (a *analyzers) paymentHistory(ctx context.Context, o Order) (assessment.FactorResult, error) {
	stats, err := a.provider.PaymentStats(ctx, o.BuyerID, a.cfg.HistoryWindow)
	if err != nil {
		return assessment.FactorResult{}, err
	}

	if stats.Total == 0 {
		return assessment.FactorResult{
			Score:   0.5,
			Reasons: []string{"no payment history for buyer"},
			Data:    map[string]float64{"payments": 0},
		}, nil
	}

	rate := stats.SuccessRate()
	var score float64
	switch {
	case rate >= 0.9:
		score = 0.1
	case rate >= 0.7:
		score = 0.3
	case rate >= 0.5:
		score = 0.6
	default:
		score = 0.9
	}

	reasons := []string{fmt.Sprintf("payment success rate %.0f%% over %d payments", rate*100, stats.Total)}

	codRate := stats.CODFailureRate()
	if codRate > 0 {
		score += codRate * a.cfg.CODFailurePenaltyScale
		reasons = append(reasons, fmt.Sprintf("COD failure rate %.0f%%", codRate*100))
	}
	if score > 1.0 {
		score = 1.0
	}

	return assessment.FactorResult{
		Score:   score,
		Reasons: reasons,
		Data: map[string]float64{
			"payments":         float64(stats.Total),
			"success_rate":     rate,
			"cod_failure_rate": codRate,
		},
	}, nil
}

// orderPatterns adds penalties for cancellation-heavy, supplier-hopping, or
// out-of-character ordering. New buyers get a flat 0.4.
func (a *analyzers) orderPatterns(ctx context.Context, o Order) (assessment.FactorResult, error) {
	stats, err := a.provider.OrderStats(ctx, o.BuyerID, a.cfg.HistoryWindow)
	if err != nil {
		return assessment.FactorResult{}, err
	}

	if stats.Total == 0 {
		return assessment.FactorResult{
			Score:   0.4,
			Reasons: []string{"no order history for buyer"},
			Data:    map[string]float64{"orders": 0},
		}, nil
	}

	score := 0.1
	var reasons []string

	if cr := stats.CancellationRate(); cr > 0.3 {
		score += 0.4
		reasons = append(reasons, fmt.Sprintf("high cancellation rate %.0f%%", cr*100))
	}
	if stats.MeanAmount > 0 && o.Amount > 3*stats.MeanAmount {
		score += 0.3
		reasons = append(reasons, fmt.Sprintf("order value %.0f is over 3x historical mean %.0f", o.Amount, stats.MeanAmount))
	}
	if stats.FarmerDiversity() > 0.8 && stats.DistinctFarmers > 10 {
		score += 0.2
		reasons = append(reasons, fmt.Sprintf("unusually broad supplier spread (%d distinct farmers)", stats.DistinctFarmers))
	}
	if dr := stats.DeliveryRate(); dr < 0.5 {
		score += 0.3
		reasons = append(reasons, fmt.Sprintf("low delivery completion rate %.0f%%", dr*100))
	}
	if score > 1.0 {
		score = 1.0
	}
	if len(reasons) == 0 {
		reasons = []string{"order patterns within normal range"}
	}

	return assessment.FactorResult{
		Score:   score,
		Reasons: reasons,
		Data: map[string]float64{
			"orders":            float64(stats.Total),
			"cancellation_rate": stats.CancellationRate(),
			"delivery_rate":     stats.DeliveryRate(),
			"distinct_farmers":  float64(stats.DistinctFarmers),
		},
	}, nil
}

// geographic combines a static per-region base score, a cross-region
// penalty, and the region's recent COD failure rate. The COD penalty is only
// applied when the region has enough COD orders to be meaningful.
func (a *analyzers) geographic(ctx context.Context, o Order) (assessment.FactorResult, error) {
	base, ok := a.cfg.RegionBaseScores[o.BuyerRegion]
	if !ok {
		base = a.cfg.RegionBaseDefault
	}
	score := base
	reasons := []string{fmt.Sprintf("base risk for region %q", o.BuyerRegion)}
	data := map[string]float64{"region_base": base}

	if o.FarmerRegion != "" && o.BuyerRegion != o.FarmerRegion {
		score += a.cfg.CrossRegionPenalty
		reasons = append(reasons, "buyer and farmer are in different regions")
	}

	stats, err := a.provider.RegionCODStats(ctx, o.BuyerRegion, a.cfg.RegionWindow)
	if err != nil {
		return assessment.FactorResult{}, err
	}
	data["region_cod_orders"] = float64(stats.Orders)
	data["region_cod_failure_rate"] = stats.FailureRate()
	if stats.Orders > a.cfg.RegionCODMinOrders && stats.FailureRate() > a.cfg.RegionCODFailureThreshold {
		score += a.cfg.RegionCODPenalty
		reasons = append(reasons, fmt.Sprintf("region COD failure rate %.0f%% over %d orders", stats.FailureRate()*100, stats.Orders))
	}
	if score > 1.0 {
		score = 1.0
	}

	return assessment.FactorResult{Score: score, Reasons: reasons, Data: data}, nil
}

// accountAge is a monotonic step function of the buyer's account age.
func (a *analyzers) accountAge(ctx context.Context, o Order) (assessment.FactorResult, error) {
	acct, err := a.provider.Account(ctx, o.BuyerID)
	if err != nil {
		return assessment.FactorResult{}, err
	}

	days := int(a.now().Sub(acct.CreatedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	var score float64
	switch {
	case days == 0:
		score = 0.8
	case days < 7:
		score = 0.6
	case days < 30:
		score = 0.4
	case days < 90:
		score = 0.2
	default:
		score = 0.1
	}

	return assessment.FactorResult{
		Score:   score,
		Reasons: []string{fmt.Sprintf("account age %d days", days)},
		Data:    map[string]float64{"account_age_days": float64(days)},
	}, nil
}

// orderFrequency penalizes burst ordering in the last 24h/7d and nudges up
// buyers returning after a month of silence.
func (a *analyzers) orderFrequency(ctx context.Context, o Order) (assessment.FactorResult, error) {
	stats, err := a.provider.OrderStats(ctx, o.BuyerID, a.cfg.HistoryWindow)
	if err != nil {
		return assessment.FactorResult{}, err
	}

	score := 0.0
	var reasons []string

	switch {
	case stats.Last24h > 5:
		score += 0.5
		reasons = append(reasons, fmt.Sprintf("%d orders in the last 24 hours", stats.Last24h))
	case stats.Last24h > 3:
		score += 0.3
		reasons = append(reasons, fmt.Sprintf("%d orders in the last 24 hours", stats.Last24h))
	}
	if stats.Last7d > 15 {
		score += 0.3
		reasons = append(reasons, fmt.Sprintf("%d orders in the last 7 days", stats.Last7d))
	}
	if stats.LastOrderAt.IsZero() || a.now().Sub(stats.LastOrderAt) > 30*24*time.Hour {
		score += 0.1
		reasons = append(reasons, "first order in 30 days")
	}
	if score > 1.0 {
		score = 1.0
	}
	if len(reasons) == 0 {
		reasons = []string{"order frequency within normal range"}
	}

	return assessment.FactorResult{
		Score:   score,
		Reasons: reasons,
		Data: map[string]float64{
			"orders_24h": float64(stats.Last24h),
			"orders_7d":  float64(stats.Last7d),
		},
	}, nil
}

// amountAnomaly measures how far the order amount deviates from the buyer's
// recent mean in standard deviations, plus a flat penalty for very large
// absolute amounts. With fewer than two historical orders there is nothing
// to compare against: insufficient data scores a mild 0.2.
func (a *analyzers) amountAnomaly(ctx context.Context, o Order) (assessment.FactorResult, error) {
	stats, err := a.provider.OrderStats(ctx, o.BuyerID, a.cfg.HistoryWindow)
	if err != nil {
		return assessment.FactorResult{}, err
	}

	var score float64
	var reasons []string
	data := map[string]float64{"amount": o.Amount, "mean": stats.MeanAmount, "stddev": stats.StddevAmount}

	switch {
	case stats.Total < 2:
		score = 0.2
		reasons = append(reasons, "insufficient order history for amount comparison")
	case stats.StddevAmount <= 0:
		// All historical amounts identical: any deviation is notable.
		if o.Amount != stats.MeanAmount {
			score = 0.5
			reasons = append(reasons, "order amount deviates from a perfectly uniform history")
		} else {
			score = 0.1
			reasons = append(reasons, "order amount matches uniform history")
		}
	default:
		z := math.Abs(o.Amount-stats.MeanAmount) / stats.StddevAmount
		data["z_score"] = z
		switch {
		case z > 3:
			score = 0.8
			reasons = append(reasons, fmt.Sprintf("amount is %.1f standard deviations from the buyer's mean", z))
		case z > 2:
			score = 0.5
			reasons = append(reasons, fmt.Sprintf("amount is %.1f standard deviations from the buyer's mean", z))
		case z > 1.5:
			score = 0.2
			reasons = append(reasons, fmt.Sprintf("amount is %.1f standard deviations from the buyer's mean", z))
		default:
			score = 0.1
			reasons = append(reasons, "amount consistent with buyer's history")
		}
	}

	if o.Amount > a.cfg.LargeOrderThreshold {
		score += 0.3
		reasons = append(reasons, fmt.Sprintf("amount exceeds large-order threshold %.0f", a.cfg.LargeOrderThreshold))
	}
	if score > 1.0 {
		score = 1.0
	}

	return assessment.FactorResult{Score: score, Reasons: reasons, Data: data}, nil
}
