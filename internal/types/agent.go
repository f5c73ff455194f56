package types

import "errors"

// Sentinel errors for the per-request failure taxonomy. Every failure is
// scoped to one request and surfaced in its response; nothing here is fatal
// to the process.
var (
	// ErrClassificationUnavailable is returned after the classification or
	// routing call failed twice (initial attempt plus one retry).
	ErrClassificationUnavailable = errors.New("classification service unavailable")
	// ErrNoSuggestions is returned when the model produced a syntactically
	// valid but empty suggestion list for a brand-new request.
	ErrNoSuggestions = errors.New("no place suggestions generated")
)

// TravelMode is the preferred way of moving between route points.
type TravelMode string

const (
	TravelModeWalking   TravelMode = "walking"
	TravelModeDriving   TravelMode = "driving"
	TravelModeTransit   TravelMode = "transit"
	TravelModeBicycling TravelMode = "bicycling"
)

// OperationType describes how the current turn relates to the previous
// turn's result set.
type OperationType string

const (
	OperationNew         OperationType = "new"
	OperationAdd         OperationType = "add"
	OperationRemove      OperationType = "remove"
	OperationReplaceLast OperationType = "replace_last"
	OperationReplaceAll  OperationType = "replace_all"
	OperationRefine      OperationType = "refine"
)

// QueryClassification is the structured intent extracted from a free-text
// message.
type QueryClassification struct {
	IsRouteRequest bool       `json:"is_route_request"`
	Location       string     `json:"location"`
	PlaceType      string     `json:"place_type"`
	Count          int        `json:"count"`
	Theme          string     `json:"theme,omitempty"`
	TravelMode     TravelMode `json:"travel_mode"`
}

// IntentAnalysis is the raw modification-intent verdict from the language
// model. The router post-processes it into a RoutingDecision; keeping the two
// apart lets the model call be swapped out in tests.
type IntentAnalysis struct {
	IsNewRequest       bool   `json:"is_new_request"`
	OperationType      string `json:"operation_type"`
	UsePreviousContext bool   `json:"use_previous_context"`
	Reasoning          string `json:"reasoning"`
	DetectedLocation   string `json:"detected_location"`
	DetectedPlaceType  string `json:"detected_place_type"`
	RejectsAllPrevious bool   `json:"rejects_all_previous"`
	CountAdjustment    int    `json:"count_adjustment"`
}

// RoutingDecision is the router's verdict for one turn. Invariant:
// IsNewRequest is true iff OperationType == OperationNew.
type RoutingDecision struct {
	IsNewRequest       bool          `json:"is_new_request"`
	OperationType      OperationType `json:"operation_type"`
	UsePreviousContext bool          `json:"use_previous_context"`
	// CountAdjustment is the relative delta, meaningful only for add/remove.
	CountAdjustment int `json:"count_adjustment"`
	// Reasoning is always populated, for observability and test assertions.
	Reasoning string `json:"reasoning"`
}

// ConversationTurn is the read-only snapshot of the previous turn, supplied
// by the caller. The pipeline never mutates it.
type ConversationTurn struct {
	RequestText    string               `json:"request_text"`
	Classification *QueryClassification `json:"classification"`
	Places         []ResolvedPlace      `json:"places"`
}

// PlaceSuggestion is a named candidate proposed by the model. Ephemeral:
// produced and consumed within one pipeline run.
type PlaceSuggestion struct {
	Name             string `json:"name"`
	ShortDescription string `json:"short_description"`
	WhyRecommended   string `json:"why_recommended"`
}

// SuggestionBatch is one generation round's output.
type SuggestionBatch struct {
	Places            []PlaceSuggestion `json:"places"`
	RouteDescription  string            `json:"route_description"`
	EstimatedDuration string            `json:"estimated_duration"`
}

// Coordinates is a WGS84 lat/lng pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ResolvedPlace is a suggestion verified against the places service. A place
// only becomes resolved once its address passed the locality check for the
// turn's target city.
type ResolvedPlace struct {
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Address          string      `json:"address"`
	Coordinates      Coordinates `json:"coordinates"`
	PlaceID          string      `json:"place_id"`
	Rating           *float64    `json:"rating,omitempty"`
	UserRatingsTotal *int        `json:"user_ratings_total,omitempty"`
	MapLink          string      `json:"map_link"`
	PhotoURL         *string     `json:"photo_url,omitempty"`
}

// RouteSegment is the navigation leg between two consecutive points.
type RouteSegment struct {
	From           string `json:"from"`
	To             string `json:"to"`
	DirectionsLink string `json:"directions_link"`
}

// RoutePlan is the final ordered output of one pipeline run.
type RoutePlan struct {
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	EstimatedDuration string          `json:"estimated_duration"`
	Points            []ResolvedPlace `json:"points"`
	Segments          []RouteSegment  `json:"segments"`
	FullRouteMapURL   string          `json:"full_route_map_url"`
	FullRouteLink     string          `json:"full_route_link"`
	// PartiallyFulfilled is set when the resolver's retry budget ran out
	// before the target count was reached; Shortfall is how many points
	// are missing. The plan is never padded with unverified places.
	PartiallyFulfilled bool `json:"partially_fulfilled,omitempty"`
	Shortfall          int  `json:"shortfall,omitempty"`
}

const (
	WorkspaceTypeMap   = "map"
	WorkspaceTypeEmpty = "empty"
)

// Workspace is the structured payload that rides next to the chat reply.
type Workspace struct {
	Type string     `json:"type"`
	Data *RoutePlan `json:"data,omitempty"`
}

// AgentResponse is the pipeline's answer to one message.
type AgentResponse struct {
	Response  string    `json:"response"`
	Workspace Workspace `json:"workspace"`
}
