package classifier

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-city-routes/internal/types"
)

func getClassificationPrompt(message string, previous *types.ConversationTurn) string {
	return fmt.Sprintf(`
        You are a query classifier for a city route assistant.
        Analyze the user's message and determine:
        1. Is this a request for a places/route recommendation?
        2. Extract: location (city), place_type (bars/museums/parks/etc), count, theme, travel_mode.

        IMPORTANT: Always return the city name in ENGLISH, even if the user asks in another language
        (e.g. "Мюнхен" -> "Munich", "München" -> "Munich", "Londres" -> "London").

        COUNT rules:
        - If the user specifies a number explicitly, use that EXACT number.
        - "best"/"top" without a number -> count=3.
        - "tour" without a number -> count=5.
        - For follow-ups that add or remove places, return the resulting TOTAL count
          (previous count plus or minus the requested change).
%s
        Return the response STRICTLY as a JSON object with the following keys:
        {
            "is_route_request": <bool>,
            "location": "city name in English, empty string if none",
            "place_type": "type of places requested, empty string if none",
            "count": <int, number of places requested>,
            "theme": "additional theme or preference, empty string if none",
            "travel_mode": "one of: walking, driving, transit, bicycling"
        }

        User message: %q
    `, previousTurnPromptPart(previous), message)
}

func previousTurnPromptPart(previous *types.ConversationTurn) string {
	if previous == nil || previous.Classification == nil {
		return ""
	}
	var names []string
	for _, p := range previous.Places {
		names = append(names, p.Name)
	}
	return fmt.Sprintf(`
        CONVERSATION CONTEXT (use it when the message is a follow-up or refinement):
        - Previous request: %q
        - Previous classification: %d %s in %s
        - Previous places (%d): [%s]
`, previous.RequestText, previous.Classification.Count, previous.Classification.PlaceType,
		previous.Classification.Location, len(previous.Places), strings.Join(names, ", "))
}
