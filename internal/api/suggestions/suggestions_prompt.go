package suggestions

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-city-routes/internal/types"
)

func getSuggestionPrompt(classification *types.QueryClassification, operation types.OperationType, countNeeded int, excludedNames []string) string {
	themeText := ""
	if classification.Theme != "" {
		themeText = fmt.Sprintf(" focusing on %s", classification.Theme)
	}

	excludedText := ""
	if len(excludedNames) > 0 {
		var b strings.Builder
		for _, name := range excludedNames {
			fmt.Fprintf(&b, "        - %s\n", name)
		}
		excludedText = fmt.Sprintf(`
        DO NOT suggest any of these places (already in the list, already checked, or rejected):
%s
        Suggest DIFFERENT places that actually exist in %s.
`, b.String(), classification.Location)
	}

	operationText := ""
	switch operation {
	case types.OperationReplaceLast:
		operationText = "\n        The user rejected the last place of an existing route; suggest a replacement that fits the rest of the set.\n"
	case types.OperationAdd:
		operationText = "\n        These places extend an existing route; they should sit well next to the excluded (kept) ones.\n"
	case types.OperationReplaceAll:
		operationText = "\n        The user rejected a whole previous selection; suggest a completely fresh set.\n"
	}

	return fmt.Sprintf(`
        Suggest the %d best %s in %s%s.
%s%s
        CRITICAL REQUIREMENTS:
        1. ALL places MUST be physically located WITHIN the city limits of %s.
        2. Do NOT suggest places from neighboring cities, suburbs, or regions.
        3. Use REAL, SPECIFIC place names exactly as they appear on Google Maps
           (not generic names like "The Irish Pub" - use the full proper name).
        4. Prioritize FAMOUS, WELL-ESTABLISHED venues over obscure or new places.
        5. If you are not 100%% sure a place is in %s, DO NOT suggest it.

        Return the response STRICTLY as a JSON object with:
        {
            "places": [
                {
                    "name": "Exact, full name as it appears on Google Maps",
                    "short_description": "1-2 sentences about what makes it special",
                    "why_recommended": "Brief explanation of why it's a good choice"
                }
            ],
            "route_description": "How these places connect thematically as one route",
            "estimated_duration": "Estimated time to visit all places, e.g. '2-3 hours'"
        }
    `, countNeeded, classification.PlaceType, classification.Location, themeText,
		excludedText, operationText, classification.Location, classification.Location)
}
