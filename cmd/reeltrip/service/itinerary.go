package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apimodels "github.com/voyago/reeltrip/cmd/reeltrip/models"
	"github.com/voyago/reeltrip/common/clients"
	"github.com/voyago/reeltrip/common/logger"
	"github.com/voyago/reeltrip/common/models"
	"github.com/voyago/reeltrip/common/validation"
)

const itinerarySystemPrompt = `You are a travel planner. You turn short-form travel videos into practical, day-by-day itineraries.
Respond with ONLY valid JSON, no prose and no markdown fences, using exactly these keys:
{
  "destination": "city or region",
  "duration": "e.g. 3 days",
  "budget_level": "budget, mid-range or luxury",
  "activities": ["..."],
  "days": [{"day": 1, "places": ["..."], "activities": ["..."], "food": ["..."], "stay": "..."}],
  "travel_tips": ["..."]
}
Ground the plan in the caption and the listed places. Use "unknown" for the destination only when nothing in the input hints at one.`

// ItineraryService drafts itineraries with the language model and rejects
// replies that do not carry the full schema.
type ItineraryService struct {
	llm       LLM
	validator *validation.ItineraryValidator
	logger    *logger.Logger
}

// NewItineraryService creates an itinerary service
func NewItineraryService(llm LLM, validator *validation.ItineraryValidator, logger *logger.Logger) *ItineraryService {
	return &ItineraryService{
		llm:       llm,
		validator: validator,
		logger:    logger,
	}
}

// Generate drafts an itinerary for the reel. Places and preferences are
// optional context; empty values are simply left out of the prompt.
func (s *ItineraryService) Generate(
	ctx context.Context,
	rec *models.ContentRecord,
	places []Place,
	prefs *apimodels.TripPreferences,
) (json.RawMessage, error) {
	user := buildItineraryPrompt(rec, places, prefs)

	raw, err := s.llm.ChatJSON(ctx, itinerarySystemPrompt, user)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", clients.ErrLLM, err)
	}

	s.logger.Info("itinerary generated", "identity", rec.Identity)
	return raw, nil
}

func buildItineraryPrompt(rec *models.ContentRecord, places []Place, prefs *apimodels.TripPreferences) string {
	var b strings.Builder

	b.WriteString("The following was captured from a travel reel.\n\nCaption:\n")
	b.WriteString(rec.Caption)
	b.WriteString("\n")

	if len(rec.Hashtags) > 0 {
		b.WriteString("\nHashtags: ")
		for i, tag := range rec.Hashtags {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString("#" + tag)
		}
		b.WriteString("\n")
	}
	if rec.LocationLabel != "" {
		b.WriteString("Tagged location: " + rec.LocationLabel + "\n")
	}
	if rec.AuthorHandle != "" {
		b.WriteString("Posted by: @" + rec.AuthorHandle + "\n")
	}

	if len(places) > 0 {
		b.WriteString("\nPlaces featured in the video:\n")
		for _, p := range places {
			b.WriteString("- " + p.Name)
			var details []string
			if p.Category != "" {
				details = append(details, p.Category)
			}
			if p.Area != "" {
				details = append(details, p.Area)
			}
			if len(details) > 0 {
				b.WriteString(" (" + strings.Join(details, ", ") + ")")
			}
			b.WriteString("\n")
		}
	}

	writePreferences(&b, prefs)

	b.WriteString("\nBuild a day-by-day itinerary grounded in the caption and the places above. Fill gaps with well-known options near the destination.\n")
	return b.String()
}

func writePreferences(b *strings.Builder, prefs *apimodels.TripPreferences) {
	if prefs == nil {
		return
	}

	lines := []struct {
		label string
		value string
	}{
		{"destination", prefs.Place},
		{"duration", prefs.Duration},
		{"theme", prefs.Theme},
		{"number of people", prefs.NumberOfPeople},
		{"budget level", prefs.BudgetLevel},
		{"interests", strings.Join(prefs.Interests, ", ")},
		{"pace", prefs.Pace},
		{"accommodation area", prefs.AccommodationArea},
		{"transport preference", prefs.TransportPreference},
		{"food preference", prefs.FoodPreference},
		{"constraints", strings.Join(prefs.Constraints, ", ")},
		{"travel dates", prefs.SeasonDates},
	}

	wroteHeader := false
	for _, line := range lines {
		if line.value == "" {
			continue
		}
		if !wroteHeader {
			b.WriteString("\nTraveler preferences:\n")
			wroteHeader = true
		}
		b.WriteString("- " + line.label + ": " + line.value + "\n")
	}
}
