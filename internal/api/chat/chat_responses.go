package chat

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-city-routes/internal/types"
)

func tryAgainResponse() *types.AgentResponse {
	return &types.AgentResponse{
		Response:  "I'm having trouble understanding your request right now. Could you try again in a moment?",
		Workspace: types.Workspace{Type: types.WorkspaceTypeEmpty},
	}
}

func helpResponse() *types.AgentResponse {
	return &types.AgentResponse{
		Response: "I can help you plan routes through a city! Try asking something like " +
			"\"show me the top 5 bars in Munich\" or \"plan a tour of museums in Paris\".",
		Workspace: types.Workspace{Type: types.WorkspaceTypeEmpty},
	}
}

func countCapResponse(classification *types.QueryClassification, maxPlaces int) *types.AgentResponse {
	return &types.AgentResponse{
		Response: fmt.Sprintf("That would be %d stops, which is more than I can fit into one route. "+
			"I can plan up to %d places at a time. Would you like a route with %d %s instead?",
			classification.Count, maxPlaces, maxPlaces, classification.PlaceType),
		Workspace: types.Workspace{Type: types.WorkspaceTypeEmpty},
	}
}

func noSuggestionsResponse() *types.AgentResponse {
	return &types.AgentResponse{
		Response:  "I couldn't come up with suggestions for that request. Could you rephrase it, or try a different place type or city?",
		Workspace: types.Workspace{Type: types.WorkspaceTypeEmpty},
	}
}

func noPlacesResponse(classification *types.QueryClassification) *types.AgentResponse {
	return &types.AgentResponse{
		Response: fmt.Sprintf("I couldn't verify any %s in %s on the map. "+
			"They may be too obscure or recently closed. Could you try a different place type or area?",
			classification.PlaceType, classification.Location),
		Workspace: types.Workspace{Type: types.WorkspaceTypeEmpty},
	}
}

// formatPlanResponse renders the chat-visible summary of the plan: a numbered
// list of stops, the estimated duration and travel mode, and a note when the
// route came up short of the requested count.
func formatPlanResponse(plan *types.RoutePlan, classification *types.QueryClassification) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Here's your route: **%s**\n\n", plan.Title))
	for i, point := range plan.Points {
		b.WriteString(fmt.Sprintf("%d. **%s** - %s\n", i+1, point.Name, TruncateString(point.Description, 80)))
	}
	b.WriteString(fmt.Sprintf("\nEstimated duration: %s\n", plan.EstimatedDuration))
	b.WriteString(fmt.Sprintf("Travel mode: %s\n", travelModeLabel(classification.TravelMode)))

	if plan.PartiallyFulfilled {
		b.WriteString(fmt.Sprintf("\nNote: I could only verify %d of the %d places you asked for. "+
			"The route covers everything I could confirm on the map.\n",
			len(plan.Points), len(plan.Points)+plan.Shortfall))
	}
	b.WriteString("\nCheck the map for the full route with directions between each stop!")

	return b.String()
}

func travelModeLabel(mode types.TravelMode) string {
	switch mode {
	case types.TravelModeDriving:
		return "by car"
	case types.TravelModeTransit:
		return "by public transport"
	case types.TravelModeBicycling:
		return "by bicycle"
	default:
		return "on foot"
	}
}
