package matching

import "math"

const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two coordinate
// pairs in decimal degrees.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// DistanceBands are the banded distance→confidence cutoffs, in meters.
type DistanceBands struct {
	Exact  float64 // <= Exact  -> 1.00
	High   float64 // <= High   -> 0.95
	Medium float64 // <= Medium -> 0.85
	Low    float64 // <= Low    -> 0.70
}

// Score maps a distance to a confidence contribution. Past the Low band the
// score decays exponentially toward zero.
func (b DistanceBands) Score(meters float64) float64 {
	if math.IsInf(meters, 1) {
		return 0
	}
	switch {
	case meters <= b.Exact:
		return 1.0
	case meters <= b.High:
		return 0.95
	case meters <= b.Medium:
		return 0.85
	case meters <= b.Low:
		return 0.70
	}
	return math.Max(0, 0.70*math.Exp(-(meters-b.Low)/1000))
}
