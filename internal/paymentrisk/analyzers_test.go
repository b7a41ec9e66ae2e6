package paymentrisk

import (
	"context"
	"testing"
	"time"

	"github.com/agrilink/sentinel/internal/history"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestAnalyzers(provider history.Provider) *analyzers {
	return &analyzers{
		provider: provider,
		cfg:      DefaultConfig(),
		now:      func() time.Time { return testNow },
	}
}

func seedPayments(m *history.MemoryProvider, buyerID string, completed, failed, codFailed int) {
	for i := 0; i < completed; i++ {
		m.AddPayment(history.PaymentRecord{
			BuyerID: buyerID, Method: "prepaid", Status: "completed",
			CreatedAt: testNow.Add(-time.Duration(i+1) * 24 * time.Hour),
		})
	}
	for i := 0; i < failed; i++ {
		m.AddPayment(history.PaymentRecord{
			BuyerID: buyerID, Method: "prepaid", Status: "failed",
			CreatedAt: testNow.Add(-time.Duration(i+1) * 24 * time.Hour),
		})
	}
	for i := 0; i < codFailed; i++ {
		m.AddPayment(history.PaymentRecord{
			BuyerID: buyerID, Method: "cod", Status: "failed",
			CreatedAt: testNow.Add(-time.Duration(i+1) * 24 * time.Hour),
		})
	}
}

func TestPaymentHistoryNewPayer(t *testing.T) {
	m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
	an := newTestAnalyzers(m)

	res, err := an.paymentHistory(context.Background(), Order{BuyerID: "b1"})
	if err != nil {
		t.Fatalf("payment history: %v", err)
	}
	if res.Score != 0.5 {
		t.Errorf("new payer score = %f, want 0.5", res.Score)
	}
}

func TestPaymentHistoryBanding(t *testing.T) {
	cases := []struct {
		name      string
		completed int
		failed    int
		want      float64
	}{
		{"excellent", 19, 1, 0.1},  // 95%
		{"good", 8, 2, 0.3},        // 80%
		{"mediocre", 6, 4, 0.6},    // 60%
		{"poor", 4, 6, 0.9},        // 40%
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
			seedPayments(m, "b1", tc.completed, tc.failed, 0)
			an := newTestAnalyzers(m)

			res, err := an.paymentHistory(context.Background(), Order{BuyerID: "b1"})
			if err != nil {
				t.Fatalf("payment history: %v", err)
			}
			if res.Score != tc.want {
				t.Errorf("score = %f, want %f", res.Score, tc.want)
			}
		})
	}
}

func TestPaymentHistoryCODPenalty(t *testing.T) {
	m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
	// 18 completed prepaid + 2 failed COD: 90% success rate band (0.1),
	// COD failure rate 100% adds 1.0 * 0.5.
	seedPayments(m, "b1", 18, 0, 2)
	an := newTestAnalyzers(m)

	res, err := an.paymentHistory(context.Background(), Order{BuyerID: "b1"})
	if err != nil {
		t.Fatalf("payment history: %v", err)
	}
	if res.Score != 0.6 {
		t.Errorf("score = %f, want 0.1 band + 0.5 COD penalty", res.Score)
	}
}

func TestOrderPatternsNewBuyer(t *testing.T) {
	m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
	an := newTestAnalyzers(m)

	res, err := an.orderPatterns(context.Background(), Order{BuyerID: "b1", Amount: 500})
	if err != nil {
		t.Fatalf("order patterns: %v", err)
	}
	if res.Score != 0.4 {
		t.Errorf("new buyer score = %f, want 0.4", res.Score)
	}
}

func TestOrderPatternsCancellationHeavy(t *testing.T) {
	m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
	for i := 0; i < 10; i++ {
		status := "delivered"
		if i < 4 {
			status = "cancelled"
		}
		m.AddOrder(history.OrderRecord{
			BuyerID: "b1", FarmerID: "f1", Amount: 500, Status: status,
			CreatedAt: testNow.Add(-time.Duration(i+10) * 24 * time.Hour),
		})
	}
	an := newTestAnalyzers(m)

	res, err := an.orderPatterns(context.Background(), Order{BuyerID: "b1", Amount: 500})
	if err != nil {
		t.Fatalf("order patterns: %v", err)
	}
	// base 0.1 + 0.4 cancellation (40%) ; delivery rate 60% is fine
	if res.Score != 0.5 {
		t.Errorf("score = %f, want 0.5", res.Score)
	}
}

func TestGeographicCrossRegion(t *testing.T) {
	m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
	an := newTestAnalyzers(m)

	res, err := an.geographic(context.Background(), Order{
		BuyerID: "b1", BuyerRegion: "north", FarmerRegion: "south",
	})
	if err != nil {
		t.Fatalf("geographic: %v", err)
	}
	// north base 0.1 + cross-region 0.2
	if res.Score < 0.299 || res.Score > 0.301 {
		t.Errorf("score = %f, want 0.3", res.Score)
	}
}

func TestGeographicRegionalCODPenaltyNeedsSampleSize(t *testing.T) {
	m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
	// 5 COD orders all failed: rate is high but below the 10-order minimum.
	for i := 0; i < 5; i++ {
		m.AddPayment(history.PaymentRecord{
			BuyerID: "other", Method: "cod", Status: "failed", Region: "east",
			CreatedAt: testNow.Add(-24 * time.Hour),
		})
	}
	an := newTestAnalyzers(m)

	res, err := an.geographic(context.Background(), Order{BuyerID: "b1", BuyerRegion: "east"})
	if err != nil {
		t.Fatalf("geographic: %v", err)
	}
	if res.Score != 0.2 { // east base only
		t.Errorf("score = %f, want base 0.2 (sample too small for penalty)", res.Score)
	}

	// Push past the minimum and the penalty applies.
	for i := 0; i < 10; i++ {
		m.AddPayment(history.PaymentRecord{
			BuyerID: "other", Method: "cod", Status: "failed", Region: "east",
			CreatedAt: testNow.Add(-24 * time.Hour),
		})
	}
	res, err = an.geographic(context.Background(), Order{BuyerID: "b1", BuyerRegion: "east"})
	if err != nil {
		t.Fatalf("geographic: %v", err)
	}
	if res.Score < 0.399 || res.Score > 0.401 {
		t.Errorf("score = %f, want base 0.2 + COD penalty 0.2", res.Score)
	}
}

func TestAccountAgeSteps(t *testing.T) {
	cases := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"same day", 2 * time.Hour, 0.8},
		{"three days", 3 * 24 * time.Hour, 0.6},
		{"two weeks", 14 * 24 * time.Hour, 0.4},
		{"two months", 60 * 24 * time.Hour, 0.2},
		{"veteran", 200 * 24 * time.Hour, 0.1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
			m.SetAccount("b1", testNow.Add(-tc.age))
			an := newTestAnalyzers(m)

			res, err := an.accountAge(context.Background(), Order{BuyerID: "b1"})
			if err != nil {
				t.Fatalf("account age: %v", err)
			}
			if res.Score != tc.want {
				t.Errorf("score = %f, want %f", res.Score, tc.want)
			}
		})
	}
}

func TestAccountAgeUnknownAccountErrors(t *testing.T) {
	m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
	an := newTestAnalyzers(m)

	if _, err := an.accountAge(context.Background(), Order{BuyerID: "ghost"}); err == nil {
		t.Error("expected error for unknown account")
	}
}

func TestOrderFrequencyBurst(t *testing.T) {
	m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
	for i := 0; i < 6; i++ {
		m.AddOrder(history.OrderRecord{
			BuyerID: "b1", FarmerID: "f1", Amount: 100, Status: "placed",
			CreatedAt: testNow.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	an := newTestAnalyzers(m)

	res, err := an.orderFrequency(context.Background(), Order{BuyerID: "b1"})
	if err != nil {
		t.Fatalf("order frequency: %v", err)
	}
	if res.Score != 0.5 {
		t.Errorf("score = %f, want 0.5 for >5 orders in 24h", res.Score)
	}
}

func TestOrderFrequencyDormantBuyer(t *testing.T) {
	m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
	m.AddOrder(history.OrderRecord{
		BuyerID: "b1", FarmerID: "f1", Amount: 100, Status: "delivered",
		CreatedAt: testNow.Add(-45 * 24 * time.Hour),
	})
	an := newTestAnalyzers(m)

	res, err := an.orderFrequency(context.Background(), Order{BuyerID: "b1"})
	if err != nil {
		t.Fatalf("order frequency: %v", err)
	}
	if res.Score != 0.1 {
		t.Errorf("score = %f, want 0.1 for first order in 30 days", res.Score)
	}
}

func TestAmountAnomalyZScore(t *testing.T) {
	m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
	// Mean 1000, sample stddev ~102.6.
	for i := 0; i < 20; i++ {
		amount := 900.0
		if i%2 == 0 {
			amount = 1100.0
		}
		m.AddOrder(history.OrderRecord{
			BuyerID: "b1", FarmerID: "f1", Amount: amount, Status: "delivered",
			CreatedAt: testNow.Add(-time.Duration(i+2) * 24 * time.Hour),
		})
	}
	an := newTestAnalyzers(m)

	// ~39 standard deviations out.
	res, err := an.amountAnomaly(context.Background(), Order{BuyerID: "b1", Amount: 5000})
	if err != nil {
		t.Fatalf("amount anomaly: %v", err)
	}
	if res.Score != 0.8 {
		t.Errorf("score = %f, want 0.8 for z > 3", res.Score)
	}

	// In line with history.
	res, err = an.amountAnomaly(context.Background(), Order{BuyerID: "b1", Amount: 1000})
	if err != nil {
		t.Fatalf("amount anomaly: %v", err)
	}
	if res.Score != 0.1 {
		t.Errorf("score = %f, want 0.1 for consistent amount", res.Score)
	}
}

func TestAmountAnomalyUniformHistory(t *testing.T) {
	m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
	for i := 0; i < 5; i++ {
		m.AddOrder(history.OrderRecord{
			BuyerID: "b1", FarmerID: "f1", Amount: 1000, Status: "delivered",
			CreatedAt: testNow.Add(-time.Duration(i+2) * 24 * time.Hour),
		})
	}
	an := newTestAnalyzers(m)

	res, _ := an.amountAnomaly(context.Background(), Order{BuyerID: "b1", Amount: 1000})
	if res.Score != 0.1 {
		t.Errorf("matching uniform history score = %f, want 0.1", res.Score)
	}

	res, _ = an.amountAnomaly(context.Background(), Order{BuyerID: "b1", Amount: 1500})
	if res.Score != 0.5 {
		t.Errorf("deviating from uniform history score = %f, want 0.5", res.Score)
	}
}

func TestAmountAnomalyLargeOrderPenalty(t *testing.T) {
	m := history.NewMemoryProvider().WithClock(func() time.Time { return testNow })
	an := newTestAnalyzers(m)

	// No history (0.2) + large-order penalty (0.3).
	res, err := an.amountAnomaly(context.Background(), Order{BuyerID: "b1", Amount: 60000})
	if err != nil {
		t.Fatalf("amount anomaly: %v", err)
	}
	if res.Score != 0.5 {
		t.Errorf("score = %f, want 0.5", res.Score)
	}
}
