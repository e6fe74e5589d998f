package stats

import (
	"math"

	"github.com/planbiir/gpxmerge/internal/geo"
	"github.com/planbiir/gpxmerge/internal/gpx"
)

// RouteStatistics summarizes an ordered route.
type RouteStatistics struct {
	TotalDistanceKm float64 `json:"total_distance_km"`
	ElevationGainM  int     `json:"elevation_gain_m"`
	ElevationLossM  int     `json:"elevation_loss_m"`

	// nil when no point carries an elevation
	MinElevationM *int `json:"min_elevation_m"`
	MaxElevationM *int `json:"max_elevation_m"`

	TotalPoints int `json:"total_points"`
}

// Compute derives distance and elevation statistics from points in the
// order given. Pairs where either point lacks an elevation do not contribute
// to gain or loss.
func Compute(points []gpx.TrackPoint) RouteStatistics {
	if len(points) < 2 {
		return RouteStatistics{TotalPoints: len(points)}
	}

	var (
		distance float64
		gain     float64
		loss     float64
	)

	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1], points[i]
		distance += geo.DistanceKm(prev.Lat, prev.Lon, curr.Lat, curr.Lon)

		if prev.HasElevation && curr.HasElevation {
			delta := curr.Elevation - prev.Elevation
			if delta > 0 {
				gain += delta
			} else {
				loss += -delta
			}
		}
	}

	result := RouteStatistics{
		TotalDistanceKm: roundHalfUp(distance*100) / 100,
		ElevationGainM:  int(roundHalfUp(gain)),
		ElevationLossM:  int(roundHalfUp(loss)),
		TotalPoints:     len(points),
	}

	if lo, hi, ok := elevationRange(points); ok {
		minM := int(roundHalfUp(lo))
		maxM := int(roundHalfUp(hi))
		result.MinElevationM = &minM
		result.MaxElevationM = &maxM
	}

	return result
}

func elevationRange(points []gpx.TrackPoint) (lo, hi float64, ok bool) {
	for _, p := range points {
		if !p.HasElevation {
			continue
		}
		if !ok {
			lo, hi, ok = p.Elevation, p.Elevation, true
			continue
		}
		lo = math.Min(lo, p.Elevation)
		hi = math.Max(hi, p.Elevation)
	}
	return lo, hi, ok
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
