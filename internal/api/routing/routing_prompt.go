package routing

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-city-routes/internal/types"
)

func getIntentPrompt(message string, previous *types.ConversationTurn) string {
	var names []string
	for _, p := range previous.Places {
		names = append(names, p.Name)
	}
	prevClassification := previous.Classification

	return fmt.Sprintf(`
        You are a routing agent that analyzes how a user's message relates to the previous
        turn of a places/route conversation.

        PREVIOUS REQUEST: %q
        PREVIOUS RESULT: %d %s in %s: [%s]

        CURRENT REQUEST: %q

        Decide:
        1. Is this a completely NEW request (different topic) or a MODIFICATION of the previous one?
        2. If modification, which type:
           - "add": user wants MORE places ("add 2 more", "one more bar")
           - "remove": user wants to drop places ("delete last", "remove 2")
           - "replace_last": user criticizes ONLY the last place ("the last one is too far")
           - "replace_all": user rejects the WHOLE selection ("none of these work", "all bad")
           - "refine": user adjusts parameters without rejecting places ("make it 3", "for 2 hours")
        3. Should the previous places be used as context?

        Guidelines:
        - If location OR place type changed significantly, it is a NEW request.
        - If the message does not mention a location or place type, it is likely a modification.
        - Set rejects_all_previous=true ONLY when the message explicitly negates every previous
          place; mild phrasing like "show me different ones" is not an explicit rejection.
        - For add/remove, set count_adjustment to the number of places to add (+N) or remove (-N);
          use 1 when the message does not name a number.
        - Fill detected_location and detected_place_type with what the CURRENT message mentions,
          in English, or empty strings if it mentions none.

        Return the response STRICTLY as a JSON object with:
        {
            "is_new_request": <bool>,
            "operation_type": "one of: new, add, remove, replace_last, replace_all, refine",
            "use_previous_context": <bool>,
            "reasoning": "a short explanation of why this routing was chosen",
            "detected_location": "city mentioned in the current message, or empty",
            "detected_place_type": "place type mentioned in the current message, or empty",
            "rejects_all_previous": <bool>,
            "count_adjustment": <int, +N for add, -N for remove, 0 otherwise>
        }
    `, previous.RequestText, prevClassification.Count, prevClassification.PlaceType,
		prevClassification.Location, strings.Join(names, ", "), message)
}
