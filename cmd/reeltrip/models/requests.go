package models

// FetchReelRequest is the body for POST /api/v1/reels and
// POST /api/v1/reels/refresh.
type FetchReelRequest struct {
	URL string `json:"url"`
}

// GenerateItineraryRequest is the body for POST /api/v1/itineraries.
// Preferences are optional; the planner falls back to sensible defaults
// derived from the reel itself.
type GenerateItineraryRequest struct {
	URL         string           `json:"url"`
	Preferences *TripPreferences `json:"preferences,omitempty"`
}

// TripPreferences captures what the caller already knows about the trip.
// Every field is optional and free-text; the values are forwarded to the
// language model verbatim.
type TripPreferences struct {
	Place               string   `json:"place,omitempty"`
	Duration            string   `json:"duration,omitempty"`
	Theme               string   `json:"theme,omitempty"`
	NumberOfPeople      string   `json:"number_of_people,omitempty"`
	BudgetLevel         string   `json:"budget_level,omitempty"`
	Interests           []string `json:"interests,omitempty"`
	Pace                string   `json:"pace,omitempty"`
	AccommodationArea   string   `json:"accommodation_area,omitempty"`
	TransportPreference string   `json:"transport_preference,omitempty"`
	FoodPreference      string   `json:"food_preference,omitempty"`
	Constraints         []string `json:"constraints,omitempty"`
	SeasonDates         string   `json:"season_dates,omitempty"`
}
