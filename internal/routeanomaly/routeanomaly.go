// Package routeanomaly detects anomalous behavior in in-transit shipment
// tracking series.
//
// Six weighted signals are evaluated over a rolling lookback window of GPS
// samples: route deviation, speed anomalies, stalls, stop patterns, timing
// against the predicted arrival, and acceleration anomalies. Like payment
// risk, the verdict is advisory; the tracking flow proceeds regardless.
package routeanomaly

import (
	"time"

	"github.com/agrilink/sentinel/internal/assessment"
)

// Analyzer names, also used as factor keys in stored assessments.
const (
	FactorRouteDeviation = "route_deviation"
	FactorSpeedAnomaly   = "speed_anomaly"
	FactorStallDetection = "stall_detection"
	FactorStopPattern    = "stop_pattern"
	FactorTimeAnomaly    = "time_anomaly"
	FactorAcceleration   = "acceleration_anomaly"
)

// Shipment is the immutable subject snapshot taken at assessment time.
type Shipment struct {
	TransportID string  `json:"transportId" binding:"required"`
	VehicleType string  `json:"vehicleType"`
	CurrentLat  float64 `json:"currentLat"`
	CurrentLon  float64 `json:"currentLon"`
}

// SpeedEnvelope is the expected speed range for a vehicle type.
type SpeedEnvelope struct {
	MaxKmh     float64
	MinMeanKmh float64
}

// Config tunes the route-anomaly instantiation.
type Config struct {
	// Weights per factor; must sum to 1.0.
	Weights map[string]float64

	// Lookback is the tracking-point window analyzed per assessment.
	Lookback time.Duration

	// Route deviation.
	MaxLateralKm     float64 // lateral distance from the planned path before flagging
	MaxDistanceRatio float64 // traveled/expected ratio before flagging

	// Speed.
	SpeedEnvelopes  map[string]SpeedEnvelope
	DefaultEnvelope SpeedEnvelope
	SpeedJumpKmh    float64 // consecutive-sample delta counted as a jump
	MaxSpeedJumps   int

	// Stalls: contiguous samples at or below StallSpeedKmh.
	StallSpeedKmh     float64
	MinStallDuration  time.Duration // shorter runs are ignored
	LongStallDuration time.Duration // anomalous on its own
	ShortStallMax     time.Duration // upper bound of a "short" stall
	MaxShortStalls    int

	// Stops.
	MaxStopsPerHour  float64
	WaypointRadiusKm float64 // a stop farther than this from every waypoint is unknown
	ReversalAngleDeg float64 // heading change counted as a direction reversal
	MaxReversals     int

	// Timing.
	LateHigh   time.Duration // lateness treated as high severity
	LateMinor  time.Duration // lateness treated as minor
	EarlyLimit time.Duration // early arrival worth flagging

	// Acceleration, in km/h per minute of consecutive-sample delta.
	ExtremeAccel      float64
	ModerateAccel     float64
	MaxModerateEvents int
}

// DefaultConfig returns the hand-tuned production defaults.
func DefaultConfig() Config {
	return Config{
		Weights: map[string]float64{
			FactorRouteDeviation: 0.25,
			FactorSpeedAnomaly:   0.20,
			FactorStallDetection: 0.20,
			FactorStopPattern:    0.15,
			FactorTimeAnomaly:    0.10,
			FactorAcceleration:   0.10,
		},
		Lookback:         60 * time.Minute,
		MaxLateralKm:     2.0,
		MaxDistanceRatio: 1.3,
		SpeedEnvelopes: map[string]SpeedEnvelope{
			"truck":     {MaxKmh: 90, MinMeanKmh: 25},
			"van":       {MaxKmh: 100, MinMeanKmh: 30},
			"tractor":   {MaxKmh: 45, MinMeanKmh: 10},
			"motorbike": {MaxKmh: 80, MinMeanKmh: 20},
		},
		DefaultEnvelope:   SpeedEnvelope{MaxKmh: 90, MinMeanKmh: 20},
		SpeedJumpKmh:      20,
		MaxSpeedJumps:     3,
		StallSpeedKmh:     2,
		MinStallDuration:  5 * time.Minute,
		LongStallDuration: 30 * time.Minute,
		ShortStallMax:     15 * time.Minute,
		MaxShortStalls:    3,
		MaxStopsPerHour:   3,
		WaypointRadiusKm:  1.0,
		ReversalAngleDeg:  120,
		MaxReversals:      3,
		LateHigh:          2 * time.Hour,
		LateMinor:         30 * time.Minute,
		EarlyLimit:        time.Hour,
		ExtremeAccel:      30,
		ModerateAccel:     5,
		MaxModerateEvents: 5,
	}
}

// defaultThresholds: low < 0.3 <= medium < 0.6 <= high < 0.8 <= critical.
func defaultThresholds() assessment.Thresholds {
	return assessment.MustThresholds([]assessment.Bound{
		{Level: assessment.LevelLow, Upper: 0.3},
		{Level: assessment.LevelMedium, Upper: 0.6},
		{Level: assessment.LevelHigh, Upper: 0.8},
	}, assessment.LevelCritical, true)
}

func defaultRecommendations() assessment.Recommendations {
	return assessment.Recommendations{
		ByLevel: map[assessment.Level][]string{
			assessment.LevelLow: {
				"No action required; continue monitoring",
			},
			assessment.LevelMedium: {
				"Increase tracking frequency for this shipment",
			},
			assessment.LevelHigh: {
				"Contact driver to confirm status",
				"Notify logistics coordinator",
			},
			assessment.LevelCritical: {
				"Contact driver immediately",
				"Consider rerouting or dispatching assistance",
			},
		},
		ByFactor: map[string]string{
			FactorRouteDeviation: "Verify the vehicle is following the planned route",
			FactorSpeedAnomaly:   "Check vehicle condition and driving behavior",
			FactorStallDetection: "Confirm reason for prolonged stop",
			FactorStopPattern:    "Audit unscheduled stops against the delivery plan",
			FactorTimeAnomaly:    "Send the buyer a revised delivery estimate",
			FactorAcceleration:   "Flag harsh driving for fleet safety review",
		},
	}
}
