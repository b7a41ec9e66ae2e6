package routeanomaly

import "math"

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// segmentDistanceKm returns the distance from point p to the segment ab,
// using an equirectangular projection around the segment. Accurate enough
// for the few-kilometer scales route deviation cares about.
func segmentDistanceKm(plat, plon, alat, alon, blat, blon float64) float64 {
	// Project to a local flat plane (km).
	cosLat := math.Cos(rad((alat + blat) / 2))
	ax, ay := 0.0, 0.0
	bx := rad(blon-alon) * cosLat * earthRadiusKm
	by := rad(blat-alat) * earthRadiusKm
	px := rad(plon-alon) * cosLat * earthRadiusKm
	py := rad(plat-alat) * earthRadiusKm

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}

// bearingDeg returns the initial bearing from one coordinate to another,
// in degrees [0, 360).
func bearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	dLon := rad(lon2 - lon1)
	y := math.Sin(dLon) * math.Cos(rad(lat2))
	x := math.Cos(rad(lat1))*math.Sin(rad(lat2)) -
		math.Sin(rad(lat1))*math.Cos(rad(lat2))*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// bearingDiff returns the absolute angular difference between two bearings,
// in degrees [0, 180].
func bearingDiff(b1, b2 float64) float64 {
	d := math.Abs(b1 - b2)
	if d > 180 {
		d = 360 - d
	}
	return d
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}
