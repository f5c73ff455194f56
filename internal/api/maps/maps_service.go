package maps

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/FACorreiaa/go-city-routes/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service builds Google Maps links for places, pairwise directions, and the
// full route. Pure string construction, no external calls.
type Service interface {
	GeneratePlaceLink(place types.ResolvedPlace) string
	GenerateDirectionsURL(origin, destination types.ResolvedPlace, mode types.TravelMode) string
	GenerateEmbedURL(places []types.ResolvedPlace, mode types.TravelMode) string
	GenerateFullRouteLink(places []types.ResolvedPlace, mode types.TravelMode) string
}

type ServiceImpl struct {
	apiKey string
}

func NewService(apiKey string) *ServiceImpl {
	return &ServiceImpl{apiKey: apiKey}
}

// GeneratePlaceLink prefers the places service's own maps URI, which opens
// the full place page; the coordinate link is the fallback.
func (s *ServiceImpl) GeneratePlaceLink(place types.ResolvedPlace) string {
	if place.MapLink != "" {
		return place.MapLink
	}
	return fmt.Sprintf("https://www.google.com/maps/place/%s/@%f,%f,15z",
		url.QueryEscape(place.Name), place.Coordinates.Lat, place.Coordinates.Lng)
}

func (s *ServiceImpl) GenerateDirectionsURL(origin, destination types.ResolvedPlace, mode types.TravelMode) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&origin=%s&destination=%s&travelmode=%s",
		coords(origin), coords(destination), mode)
}

// GenerateEmbedURL builds an iframe-embeddable map: place mode for a single
// point, directions mode with waypoints otherwise. Requires an API key.
func (s *ServiceImpl) GenerateEmbedURL(places []types.ResolvedPlace, mode types.TravelMode) string {
	if s.apiKey == "" || len(places) == 0 {
		return ""
	}
	if len(places) == 1 {
		place := places[0]
		return fmt.Sprintf("https://www.google.com/maps/embed/v1/place?key=%s&q=%s&center=%s&zoom=15",
			s.apiKey, url.QueryEscape(place.Name), coords(place))
	}

	embedURL := fmt.Sprintf("https://www.google.com/maps/embed/v1/directions?key=%s&origin=%s&destination=%s&mode=%s",
		s.apiKey, coords(places[0]), coords(places[len(places)-1]), mode)
	if waypoints := waypointList(places); waypoints != "" {
		embedURL += "&waypoints=" + waypoints
	}
	return embedURL
}

func (s *ServiceImpl) GenerateFullRouteLink(places []types.ResolvedPlace, mode types.TravelMode) string {
	if len(places) == 0 {
		return ""
	}
	if len(places) == 1 {
		return s.GeneratePlaceLink(places[0])
	}

	link := fmt.Sprintf("https://www.google.com/maps/dir/?api=1&origin=%s&destination=%s&travelmode=%s",
		coords(places[0]), coords(places[len(places)-1]), mode)
	if waypoints := waypointList(places); waypoints != "" {
		link += "&waypoints=" + waypoints
	}
	return link
}

func coords(place types.ResolvedPlace) string {
	return fmt.Sprintf("%f,%f", place.Coordinates.Lat, place.Coordinates.Lng)
}

// waypointList joins the middle places (everything between origin and
// destination) with the pipe separator the maps URL format expects.
func waypointList(places []types.ResolvedPlace) string {
	if len(places) <= 2 {
		return ""
	}
	middle := make([]string, 0, len(places)-2)
	for _, place := range places[1 : len(places)-1] {
		middle = append(middle, coords(place))
	}
	return strings.Join(middle, "|")
}
