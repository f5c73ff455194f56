package route

import (
	"fmt"

	"github.com/FACorreiaa/go-city-routes/internal/api/maps"
	"github.com/FACorreiaa/go-city-routes/internal/types"
)

// Assembler builds the final RoutePlan from ordered, verified places. Pure
// composition: one segment per consecutive pair, one aggregate link over the
// whole route, title and description from the classification.
type Assembler struct {
	maps maps.Service
}

func NewAssembler(mapsService maps.Service) *Assembler {
	return &Assembler{maps: mapsService}
}

// BuildPlan assembles the plan for orderedPlaces. Empty input yields an
// explicit empty plan rather than an error. shortfall > 0 marks the plan as
// partially fulfilled.
func (a *Assembler) BuildPlan(orderedPlaces []types.ResolvedPlace, classification *types.QueryClassification, description, estimatedDuration string, shortfall int) *types.RoutePlan {
	plan := &types.RoutePlan{
		Title:              buildTitle(len(orderedPlaces), classification),
		Description:        description,
		EstimatedDuration:  estimatedDuration,
		Points:             make([]types.ResolvedPlace, 0, len(orderedPlaces)),
		Segments:           make([]types.RouteSegment, 0),
		PartiallyFulfilled: shortfall > 0,
		Shortfall:          shortfall,
	}
	if len(orderedPlaces) == 0 {
		return plan
	}

	mode := classification.TravelMode
	for _, place := range orderedPlaces {
		place.MapLink = a.maps.GeneratePlaceLink(place)
		plan.Points = append(plan.Points, place)
	}
	for i := 0; i < len(orderedPlaces)-1; i++ {
		plan.Segments = append(plan.Segments, types.RouteSegment{
			From:           orderedPlaces[i].Name,
			To:             orderedPlaces[i+1].Name,
			DirectionsLink: a.maps.GenerateDirectionsURL(orderedPlaces[i], orderedPlaces[i+1], mode),
		})
	}
	plan.FullRouteMapURL = a.maps.GenerateEmbedURL(orderedPlaces, mode)
	plan.FullRouteLink = a.maps.GenerateFullRouteLink(orderedPlaces, mode)

	return plan
}

func buildTitle(count int, classification *types.QueryClassification) string {
	title := fmt.Sprintf("%d %s in %s", count, classification.PlaceType, classification.Location)
	if classification.Theme != "" {
		title += fmt.Sprintf(" (%s)", classification.Theme)
	}
	return title
}
