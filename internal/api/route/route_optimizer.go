package route

import (
	"math"

	"github.com/FACorreiaa/go-city-routes/internal/types"
)

// OptimizeOrder orders places into a travel-efficient sequence using greedy
// nearest-neighbor: start from the anchor (a first point carried over from a
// previous turn) when it is part of the set, otherwise from the first place,
// and repeatedly hop to the closest unvisited place by great-circle
// distance. Exact distance ties break on the lexicographically smaller
// place ID, so the order is deterministic.
//
// This is a heuristic, not an optimal-tour solver: it trades tour
// optimality for O(n²) simplicity, which is plenty for the small sets
// (<= 10 points) the pipeline produces. The output is always a permutation
// of the input.
func OptimizeOrder(places []types.ResolvedPlace, anchor *types.ResolvedPlace) []types.ResolvedPlace {
	if len(places) <= 2 && anchor == nil {
		return places
	}

	start := 0
	if anchor != nil {
		for i, place := range places {
			if place.PlaceID == anchor.PlaceID {
				start = i
				break
			}
		}
	}

	ordered := make([]types.ResolvedPlace, 0, len(places))
	remaining := make([]types.ResolvedPlace, 0, len(places)-1)
	ordered = append(ordered, places[start])
	remaining = append(remaining, places[:start]...)
	remaining = append(remaining, places[start+1:]...)

	for len(remaining) > 0 {
		current := ordered[len(ordered)-1]
		nearest := 0
		nearestDist := distanceKm(current.Coordinates, remaining[0].Coordinates)
		for i := 1; i < len(remaining); i++ {
			d := distanceKm(current.Coordinates, remaining[i].Coordinates)
			if d < nearestDist || (d == nearestDist && remaining[i].PlaceID < remaining[nearest].PlaceID) {
				nearest = i
				nearestDist = d
			}
		}
		ordered = append(ordered, remaining[nearest])
		remaining = append(remaining[:nearest], remaining[nearest+1:]...)
	}

	return ordered
}

// distanceKm calculates the great-circle distance between two coordinates
// using the Haversine formula, in kilometers.
func distanceKm(a, b types.Coordinates) float64 {
	const earthRadiusKm = 6371

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dlat := (b.Lat - a.Lat) * math.Pi / 180
	dlon := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}
