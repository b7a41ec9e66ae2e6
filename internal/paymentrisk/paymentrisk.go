// Package paymentrisk scores placed marketplace orders for payment risk.
//
// Six weighted signals are evaluated per order: the buyer's payment history,
// ordering patterns, regional risk, account age, order frequency, and amount
// anomaly. Scores range from 0.0 (safe) to 1.0 (high risk). The resulting
// assessment is advisory: order placement proceeds regardless of the verdict
// unless the caller's own policy escalates on critical.
package paymentrisk

import (
	"time"

	"github.com/agrilink/sentinel/internal/assessment"
)

// Analyzer names, also used as factor keys in stored assessments.
const (
	FactorPaymentHistory = "payment_history"
	FactorOrderPatterns  = "order_patterns"
	FactorGeographic     = "geographic"
	FactorAccountAge     = "account_age"
	FactorOrderFrequency = "order_frequency"
	FactorAmountAnomaly  = "amount_anomaly"
)

// Order is the immutable subject snapshot taken at assessment time.
type Order struct {
	OrderID       string  `json:"orderId" binding:"required"`
	BuyerID       string  `json:"buyerId" binding:"required"`
	FarmerID      string  `json:"farmerId"`
	ProductID     string  `json:"productId"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"` // "cod" or "prepaid"
	BuyerRegion   string  `json:"buyerRegion"`
	FarmerRegion  string  `json:"farmerRegion"`
}

// Config tunes the payment-risk instantiation. All values are heuristic
// constants, injected so deployments can tune them without code changes.
type Config struct {
	// Weights per factor; must sum to 1.0.
	Weights map[string]float64

	// HistoryWindow scopes payment and order history lookups.
	HistoryWindow time.Duration
	// RegionWindow scopes regional COD failure lookups.
	RegionWindow time.Duration

	// RegionBaseScores is the static per-region base risk table.
	RegionBaseScores map[string]float64
	// RegionBaseDefault applies to regions missing from the table.
	RegionBaseDefault float64
	// CrossRegionPenalty is added when buyer and farmer regions differ.
	CrossRegionPenalty float64
	// RegionCODPenalty is added when the region's COD failure rate exceeds
	// RegionCODFailureThreshold, provided at least RegionCODMinOrders COD
	// orders exist (small samples are ignored as noise).
	RegionCODPenalty          float64
	RegionCODFailureThreshold float64
	RegionCODMinOrders        int

	// CODFailurePenaltyScale multiplies the buyer's own COD failure rate
	// into the payment-history score.
	CODFailurePenaltyScale float64

	// LargeOrderThreshold is the absolute amount above which a fixed
	// anomaly penalty applies regardless of the buyer's history.
	LargeOrderThreshold float64
}

// DefaultConfig returns the hand-tuned production defaults.
func DefaultConfig() Config {
	return Config{
		Weights: map[string]float64{
			FactorPaymentHistory: 0.25,
			FactorOrderPatterns:  0.20,
			FactorGeographic:     0.15,
			FactorAccountAge:     0.15,
			FactorOrderFrequency: 0.10,
			FactorAmountAnomaly:  0.15,
		},
		HistoryWindow: 90 * 24 * time.Hour,
		RegionWindow:  90 * 24 * time.Hour,
		RegionBaseScores: map[string]float64{
			"north":   0.1,
			"south":   0.1,
			"east":    0.2,
			"west":    0.1,
			"central": 0.1,
		},
		RegionBaseDefault:         0.2,
		CrossRegionPenalty:        0.2,
		RegionCODPenalty:          0.2,
		RegionCODFailureThreshold: 0.3,
		RegionCODMinOrders:        10,
		CODFailurePenaltyScale:    0.5,
		LargeOrderThreshold:       50000,
	}
}

// defaultThresholds: low <= 0.3 < medium <= 0.6 < high <= 0.8 < critical.
func defaultThresholds() assessment.Thresholds {
	return assessment.MustThresholds([]assessment.Bound{
		{Level: assessment.LevelLow, Upper: 0.3},
		{Level: assessment.LevelMedium, Upper: 0.6},
		{Level: assessment.LevelHigh, Upper: 0.8},
	}, assessment.LevelCritical, false)
}

func defaultRecommendations() assessment.Recommendations {
	return assessment.Recommendations{
		ByLevel: map[assessment.Level][]string{
			assessment.LevelLow: {
				"No action required; process normally",
			},
			assessment.LevelMedium: {
				"Monitor order; verify delivery details before dispatch",
			},
			assessment.LevelHigh: {
				"Require payment confirmation before dispatch",
				"Flag order for review",
			},
			assessment.LevelCritical: {
				"Block automatic processing; require manual approval",
				"Prefer prepaid payment over cash on delivery",
			},
		},
		ByFactor: map[string]string{
			FactorPaymentHistory: "Request advance payment; buyer has weak payment history",
			FactorOrderPatterns:  "Review buyer's recent order activity",
			FactorGeographic:     "Verify delivery address; destination region is high risk",
			FactorAccountAge:     "Verify account identity before fulfilment",
			FactorOrderFrequency: "Throttle buyer's order placement pending review",
			FactorAmountAnomaly:  "Confirm order amount with buyer before processing",
		},
	}
}
