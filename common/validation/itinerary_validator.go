package validation

import (
	"encoding/json"
	"fmt"
	"sort"
)

// requiredItineraryKeys are the top-level fields every generated
// itinerary must carry before it is returned to a caller.
var requiredItineraryKeys = []string{
	"destination",
	"duration",
	"budget_level",
	"activities",
	"days",
	"travel_tips",
}

// ItineraryValidator checks generated itineraries for structural
// completeness. It does not judge content quality.
type ItineraryValidator struct{}

// NewItineraryValidator creates a new itinerary validator
func NewItineraryValidator() *ItineraryValidator {
	return &ItineraryValidator{}
}

// Validate parses the raw itinerary and verifies the required keys
func (v *ItineraryValidator) Validate(raw json.RawMessage) error {
	var itinerary map[string]json.RawMessage
	if err := json.Unmarshal(raw, &itinerary); err != nil {
		return fmt.Errorf("itinerary is not a JSON object: %w", err)
	}

	var missing []string
	for _, key := range requiredItineraryKeys {
		value, ok := itinerary[key]
		if !ok || string(value) == "null" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("itinerary is missing required fields: %v", missing)
	}

	for _, key := range []string{"activities", "days", "travel_tips"} {
		var items []json.RawMessage
		if err := json.Unmarshal(itinerary[key], &items); err != nil {
			return fmt.Errorf("itinerary field %q must be an array: %w", key, err)
		}
	}

	var days []json.RawMessage
	if err := json.Unmarshal(itinerary["days"], &days); err == nil && len(days) == 0 {
		return fmt.Errorf("itinerary must contain at least one day")
	}

	return nil
}
