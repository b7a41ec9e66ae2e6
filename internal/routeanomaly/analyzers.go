package routeanomaly

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/agrilink/sentinel/internal/assessment"
	"github.com/agrilink/sentinel/internal/history"
)

// analyzers bundles the provider, tuning, and clock shared by the scoring
// functions. Failures surface as errors and are recovered by the engine.
type analyzers struct {
	provider history.Provider
	cfg      Config
	now      func() time.Time
}

// insufficientData is the mild default when the tracking series is too
// short to say anything.
func insufficientData(n int) assessment.FactorResult {
	return assessment.FactorResult{
		Score:   0.2,
		Reasons: []string{"insufficient tracking data in lookback window"},
		Data:    map[string]float64{"points": float64(n)},
	}
}

// stall is a contiguous run of low-speed samples.
type stall struct {
	start    history.TrackingPoint
	duration time.Duration
}

// findStalls scans the series for contiguous runs at or below the stall
// speed lasting at least MinStallDuration.
func (a *analyzers) findStalls(points []history.TrackingPoint) []stall {
	var stalls []stall
	runStart := -1
	for i := 0; i <= len(points); i++ {
		low := i < len(points) && points[i].SpeedKmh <= a.cfg.StallSpeedKmh
		if low && runStart == -1 {
			runStart = i
		}
		if !low && runStart != -1 {
			dur := points[i-1].RecordedAt.Sub(points[runStart].RecordedAt)
			if dur >= a.cfg.MinStallDuration {
				stalls = append(stalls, stall{start: points[runStart], duration: dur})
			}
			runStart = -1
		}
	}
	return stalls
}

// routeDeviation compares the observed track against the planned route:
// maximum lateral distance from the waypoint polyline, and the ratio of
// traveled distance to the expected route length. Each component is capped
// before summing so one wildly bad metric cannot saturate the score alone.
func (a *analyzers) routeDeviation(ctx context.Context, s Shipment) (assessment.FactorResult, error) {
	points, err := a.provider.TrackingPoints(ctx, s.TransportID, a.cfg.Lookback)
	if err != nil {
		return assessment.FactorResult{}, err
	}
	if len(points) < 2 {
		return insufficientData(len(points)), nil
	}
	plan, err := a.provider.RoutePlan(ctx, s.TransportID)
	if err != nil {
		return assessment.FactorResult{}, err
	}

	var maxLateral float64
	if len(plan.Waypoints) >= 2 {
		for _, p := range points {
			minDist := math.Inf(1)
			for i := 0; i < len(plan.Waypoints)-1; i++ {
				w1, w2 := plan.Waypoints[i], plan.Waypoints[i+1]
				d := segmentDistanceKm(p.Lat, p.Lon, w1.Lat, w1.Lon, w2.Lat, w2.Lon)
				if d < minDist {
					minDist = d
				}
			}
			if minDist > maxLateral {
				maxLateral = minDist
			}
		}
	}

	var traveled float64
	for i := 1; i < len(points); i++ {
		traveled += haversineKm(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
	}
	ratio := 0.0
	if plan.ExpectedDistanceKm > 0 {
		ratio = traveled / plan.ExpectedDistanceKm
	}

	var score float64
	var reasons []string
	if maxLateral > a.cfg.MaxLateralKm {
		score += math.Min(maxLateral/a.cfg.MaxLateralKm*0.3, 0.5)
		reasons = append(reasons, fmt.Sprintf("vehicle strayed %.1f km from the planned route", maxLateral))
	}
	if ratio > a.cfg.MaxDistanceRatio {
		score += math.Min((ratio-a.cfg.MaxDistanceRatio)*0.8, 0.5)
		reasons = append(reasons, fmt.Sprintf("traveled distance is %.0f%% of the expected route length", ratio*100))
	}
	if len(reasons) == 0 {
		reasons = []string{"track follows the planned route"}
	}

	return assessment.FactorResult{
		Score:   score,
		Reasons: reasons,
		Data: map[string]float64{
			"max_lateral_km": maxLateral,
			"traveled_km":    traveled,
			"distance_ratio": ratio,
		},
	}, nil
}

// speedAnomaly compares the observed speed profile against the vehicle
// type's expected envelope: excessive max speed, abnormally low mean,
// high variability, and frequent large jumps between samples.
func (a *analyzers) speedAnomaly(ctx context.Context, s Shipment) (assessment.FactorResult, error) {
	points, err := a.provider.TrackingPoints(ctx, s.TransportID, a.cfg.Lookback)
	if err != nil {
		return assessment.FactorResult{}, err
	}
	if len(points) < 2 {
		return insufficientData(len(points)), nil
	}

	env, ok := a.cfg.SpeedEnvelopes[s.VehicleType]
	if !ok {
		env = a.cfg.DefaultEnvelope
	}

	var sum, maxSpeed float64
	for _, p := range points {
		sum += p.SpeedKmh
		if p.SpeedKmh > maxSpeed {
			maxSpeed = p.SpeedKmh
		}
	}
	mean := sum / float64(len(points))
	var sq float64
	for _, p := range points {
		sq += (p.SpeedKmh - mean) * (p.SpeedKmh - mean)
	}
	stddev := math.Sqrt(sq / float64(len(points)))

	jumps := 0
	for i := 1; i < len(points); i++ {
		if math.Abs(points[i].SpeedKmh-points[i-1].SpeedKmh) > a.cfg.SpeedJumpKmh {
			jumps++
		}
	}

	var score float64
	var reasons []string
	if maxSpeed > env.MaxKmh {
		score += 0.3
		reasons = append(reasons, fmt.Sprintf("max speed %.0f km/h exceeds %.0f km/h for vehicle type", maxSpeed, env.MaxKmh))
	}
	if mean < env.MinMeanKmh {
		score += 0.2
		reasons = append(reasons, fmt.Sprintf("mean speed %.0f km/h is abnormally low", mean))
	}
	if mean > 0 && stddev/mean > 0.5 {
		score += 0.2
		reasons = append(reasons, fmt.Sprintf("speed is highly variable (cv %.2f)", stddev/mean))
	}
	if jumps > a.cfg.MaxSpeedJumps {
		score += 0.3
		reasons = append(reasons, fmt.Sprintf("%d large speed jumps between samples", jumps))
	}
	if score > 1.0 {
		score = 1.0
	}
	if len(reasons) == 0 {
		reasons = []string{"speed profile within expected envelope"}
	}

	return assessment.FactorResult{
		Score:   score,
		Reasons: reasons,
		Data: map[string]float64{
			"mean_kmh":   mean,
			"max_kmh":    maxSpeed,
			"stddev_kmh": stddev,
			"jumps":      float64(jumps),
		},
	}, nil
}

// stallDetection flags long stalls (severity scaling with duration) and an
// excessive count of short ones.
func (a *analyzers) stallDetection(ctx context.Context, s Shipment) (assessment.FactorResult, error) {
	points, err := a.provider.TrackingPoints(ctx, s.TransportID, a.cfg.Lookback)
	if err != nil {
		return assessment.FactorResult{}, err
	}
	if len(points) < 2 {
		return insufficientData(len(points)), nil
	}

	stalls := a.findStalls(points)
	var longest time.Duration
	shortCount := 0
	for _, st := range stalls {
		if st.duration > longest {
			longest = st.duration
		}
		if st.duration <= a.cfg.ShortStallMax {
			shortCount++
		}
	}

	var score float64
	var reasons []string
	if longest >= a.cfg.LongStallDuration {
		extra := (longest - a.cfg.LongStallDuration).Minutes() / 60
		score = math.Min(0.5+extra*0.5, 1.0)
		reasons = append(reasons, fmt.Sprintf("vehicle stalled for %.0f minutes", longest.Minutes()))
	}
	if shortCount > a.cfg.MaxShortStalls {
		if score < 0.5 {
			score = 0.5
		}
		reasons = append(reasons, fmt.Sprintf("%d short stalls in the window", shortCount))
	}
	if len(reasons) == 0 {
		reasons = []string{"no significant stalls detected"}
	}

	return assessment.FactorResult{
		Score:   score,
		Reasons: reasons,
		Data: map[string]float64{
			"stalls":              float64(len(stalls)),
			"short_stalls":        float64(shortCount),
			"longest_stall_min":   longest.Minutes(),
			"stall_threshold_min": a.cfg.LongStallDuration.Minutes(),
		},
	}, nil
}

// stopPattern examines where and how often the vehicle stops: stop
// frequency per hour, stops away from known waypoints, and a simple
// repeated-direction-reversal heuristic.
func (a *analyzers) stopPattern(ctx context.Context, s Shipment) (assessment.FactorResult, error) {
	points, err := a.provider.TrackingPoints(ctx, s.TransportID, a.cfg.Lookback)
	if err != nil {
		return assessment.FactorResult{}, err
	}
	if len(points) < 2 {
		return insufficientData(len(points)), nil
	}
	plan, err := a.provider.RoutePlan(ctx, s.TransportID)
	if err != nil {
		return assessment.FactorResult{}, err
	}

	stops := a.findStalls(points)
	windowHours := points[len(points)-1].RecordedAt.Sub(points[0].RecordedAt).Hours()
	if windowHours <= 0 {
		windowHours = a.cfg.Lookback.Hours()
	}
	stopsPerHour := float64(len(stops)) / windowHours

	unknownStops := 0
	if len(plan.Waypoints) > 0 {
		for _, st := range stops {
			minDist := math.Inf(1)
			for _, w := range plan.Waypoints {
				if d := haversineKm(st.start.Lat, st.start.Lon, w.Lat, w.Lon); d < minDist {
					minDist = d
				}
			}
			if minDist > a.cfg.WaypointRadiusKm {
				unknownStops++
			}
		}
	}

	// Direction reversals over moving segments.
	reversals := 0
	prevBearing := -1.0
	for i := 1; i < len(points); i++ {
		if points[i].SpeedKmh <= a.cfg.StallSpeedKmh {
			continue
		}
		b := bearingDeg(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
		if prevBearing >= 0 && bearingDiff(prevBearing, b) > a.cfg.ReversalAngleDeg {
			reversals++
		}
		prevBearing = b
	}

	var score float64
	var reasons []string
	if stopsPerHour > a.cfg.MaxStopsPerHour {
		score += 0.4
		reasons = append(reasons, fmt.Sprintf("%.1f stops per hour exceeds the expected cap", stopsPerHour))
	}
	if unknownStops > 0 {
		score += 0.3
		reasons = append(reasons, fmt.Sprintf("%d stops away from known waypoints", unknownStops))
	}
	if reversals > a.cfg.MaxReversals {
		score += 0.3
		reasons = append(reasons, fmt.Sprintf("%d direction reversals suggest a zigzag pattern", reversals))
	}
	if score > 1.0 {
		score = 1.0
	}
	if len(reasons) == 0 {
		reasons = []string{"stop pattern consistent with the delivery plan"}
	}

	return assessment.FactorResult{
		Score:   score,
		Reasons: reasons,
		Data: map[string]float64{
			"stops_per_hour": stopsPerHour,
			"unknown_stops":  float64(unknownStops),
			"reversals":      float64(reversals),
		},
	}, nil
}

// timeAnomaly compares the clock against the predicted arrival. Severe
// lateness scores high; mildly late is minor; arriving well ahead of
// schedule is flagged too, since it often means a shortcut or unsafe speed.
func (a *analyzers) timeAnomaly(ctx context.Context, s Shipment) (assessment.FactorResult, error) {
	plan, err := a.provider.RoutePlan(ctx, s.TransportID)
	if err != nil {
		return assessment.FactorResult{}, err
	}
	if plan.ExpectedArrival.IsZero() {
		return assessment.FactorResult{
			Score:   0.2,
			Reasons: []string{"no predicted arrival available"},
		}, nil
	}

	now := a.now()
	late := now.Sub(plan.ExpectedArrival)

	var score float64
	var reasons []string
	data := map[string]float64{"late_minutes": late.Minutes()}
	switch {
	case late > a.cfg.LateHigh:
		score = 0.8
		reasons = append(reasons, fmt.Sprintf("shipment is %.1f hours past the predicted arrival", late.Hours()))
	case late > a.cfg.LateMinor:
		score = 0.3
		reasons = append(reasons, fmt.Sprintf("shipment is %.0f minutes past the predicted arrival", late.Minutes()))
	case late < -a.cfg.EarlyLimit && a.nearDestination(ctx, s, plan):
		score = 0.4
		reasons = append(reasons, fmt.Sprintf("arriving %.1f hours early; possible shortcut or unsafe speed", (-late).Hours()))
	default:
		reasons = append(reasons, "on schedule")
	}

	return assessment.FactorResult{Score: score, Reasons: reasons, Data: data}, nil
}

// nearDestination reports whether the shipment's last known position is
// within the waypoint radius of the final waypoint.
func (a *analyzers) nearDestination(ctx context.Context, s Shipment, plan *history.RoutePlan) bool {
	if len(plan.Waypoints) == 0 {
		return false
	}
	dest := plan.Waypoints[len(plan.Waypoints)-1]
	lat, lon := s.CurrentLat, s.CurrentLon
	if lat == 0 && lon == 0 {
		points, err := a.provider.TrackingPoints(ctx, s.TransportID, a.cfg.Lookback)
		if err != nil || len(points) == 0 {
			return false
		}
		last := points[len(points)-1]
		lat, lon = last.Lat, last.Lon
	}
	return haversineKm(lat, lon, dest.Lat, dest.Lon) <= a.cfg.WaypointRadiusKm
}

// accelerationAnomaly derives per-interval acceleration from consecutive
// speed/time deltas, flagging individual extreme values and a high count of
// moderate events.
func (a *analyzers) accelerationAnomaly(ctx context.Context, s Shipment) (assessment.FactorResult, error) {
	points, err := a.provider.TrackingPoints(ctx, s.TransportID, a.cfg.Lookback)
	if err != nil {
		return assessment.FactorResult{}, err
	}
	if len(points) < 2 {
		return insufficientData(len(points)), nil
	}

	extreme, moderate := 0, 0
	var maxAccel float64
	for i := 1; i < len(points); i++ {
		dtMin := points[i].RecordedAt.Sub(points[i-1].RecordedAt).Minutes()
		if dtMin <= 0 {
			continue
		}
		accel := math.Abs(points[i].SpeedKmh-points[i-1].SpeedKmh) / dtMin
		if accel > maxAccel {
			maxAccel = accel
		}
		if accel > a.cfg.ExtremeAccel {
			extreme++
		} else if accel > a.cfg.ModerateAccel {
			moderate++
		}
	}

	var score float64
	var reasons []string
	if extreme > 0 {
		score = math.Min(0.5+0.1*float64(extreme), 0.8)
		reasons = append(reasons, fmt.Sprintf("%d extreme acceleration events", extreme))
	}
	if moderate > a.cfg.MaxModerateEvents {
		score += 0.3
		reasons = append(reasons, fmt.Sprintf("%d moderate acceleration events", moderate))
	}
	if score > 1.0 {
		score = 1.0
	}
	if len(reasons) == 0 {
		reasons = []string{"acceleration profile normal"}
	}

	return assessment.FactorResult{
		Score:   score,
		Reasons: reasons,
		Data: map[string]float64{
			"extreme_events":  float64(extreme),
			"moderate_events": float64(moderate),
			"max_accel":       maxAccel,
		},
	}, nil
}
