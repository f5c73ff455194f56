package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-city-routes/internal/api/city"
	"github.com/FACorreiaa/go-city-routes/internal/types"
)

const searchFieldMask = "places.id,places.displayName,places.formattedAddress,places.location," +
	"places.rating,places.userRatingCount,places.googleMapsUri,places.photos"

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service turns a named suggestion into a verified place. A (nil, nil)
// return means no acceptable match: either the places service found nothing
// or the best match failed the locality check.
type Service interface {
	EnrichPlace(ctx context.Context, suggestion types.PlaceSuggestion, targetCity string) (*types.ResolvedPlace, error)
}

type ServiceImpl struct {
	logger     *slog.Logger
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
}

func NewService(apiKey, baseURL string, timeout, cacheTTL time.Duration, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(cacheTTL, 2*cacheTTL),
	}
}

type searchResult struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string `json:"formattedAddress"`
	Location         struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Rating          *float64 `json:"rating"`
	UserRatingCount *int     `json:"userRatingCount"`
	GoogleMapsURI   string   `json:"googleMapsUri"`
	Photos          []struct {
		Name string `json:"name"`
	} `json:"photos"`
}

// EnrichPlace searches the places service for the suggestion in the target
// city and verifies the result's locality. Rejected matches are discarded,
// not retried with a different query.
func (s *ServiceImpl) EnrichPlace(ctx context.Context, suggestion types.PlaceSuggestion, targetCity string) (*types.ResolvedPlace, error) {
	result, err := s.searchPlace(ctx, suggestion.Name, targetCity)
	if err != nil {
		return nil, err
	}
	if result == nil {
		s.logger.WarnContext(ctx, "Place not found",
			slog.String("name", suggestion.Name), slog.String("city", targetCity))
		return nil, nil
	}

	name := result.DisplayName.Text
	if name == "" {
		name = suggestion.Name
	}

	if !city.InAddress(targetCity, result.FormattedAddress) {
		s.logger.WarnContext(ctx, "Place rejected, not in requested city",
			slog.String("name", name),
			slog.String("requested_city", targetCity),
			slog.String("address", result.FormattedAddress))
		return nil, nil
	}

	resolved := &types.ResolvedPlace{
		Name:        name,
		Description: suggestion.ShortDescription,
		Address:     result.FormattedAddress,
		Coordinates: types.Coordinates{
			Lat: result.Location.Latitude,
			Lng: result.Location.Longitude,
		},
		PlaceID:          result.ID,
		Rating:           result.Rating,
		UserRatingsTotal: result.UserRatingCount,
		MapLink:          result.GoogleMapsURI,
	}
	if len(result.Photos) > 0 && result.Photos[0].Name != "" {
		photoURL := fmt.Sprintf("%s/%s/media?key=%s&maxHeightPx=400", s.baseURL, result.Photos[0].Name, s.apiKey)
		resolved.PhotoURL = &photoURL
	}

	s.logger.InfoContext(ctx, "Place enriched",
		slog.String("name", name), slog.String("place_id", result.ID))

	return resolved, nil
}

// searchPlace runs a text search with a locality hint, retrying once on a
// transport failure. Zero matches is a valid (nil, nil) outcome.
func (s *ServiceImpl) searchPlace(ctx context.Context, placeName, targetCity string) (*searchResult, error) {
	query := fmt.Sprintf("%s, %s", placeName, targetCity)

	cacheKey := city.Normalize(query)
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.(*searchResult), nil
	}

	result, err := s.doSearch(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.WarnContext(ctx, "Place search failed, retrying once",
			slog.String("query", query), slog.Any("error", err))
		if result, err = s.doSearch(ctx, query); err != nil {
			return nil, fmt.Errorf("place search failed: %w", err)
		}
	}

	s.cache.Set(cacheKey, result, cache.DefaultExpiration)
	return result, nil
}

func (s *ServiceImpl) doSearch(ctx context.Context, query string) (*searchResult, error) {
	payload, err := json.Marshal(map[string]any{
		"textQuery":      query,
		"maxResultCount": 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/places:searchText", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", s.apiKey)
	req.Header.Set("X-Goog-FieldMask", searchFieldMask)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Places []searchResult `json:"places"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if len(parsed.Places) == 0 {
		return nil, nil
	}
	return &parsed.Places[0], nil
}
