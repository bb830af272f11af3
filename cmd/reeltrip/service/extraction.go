package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voyago/reeltrip/common/cache"
	"github.com/voyago/reeltrip/common/clients"
	"github.com/voyago/reeltrip/common/config"
	"github.com/voyago/reeltrip/common/logger"
	"github.com/voyago/reeltrip/common/models"
)

// LLM is the slice of the language model client the services need.
type LLM interface {
	ChatJSON(ctx context.Context, system, user string) (json.RawMessage, error)
}

// Place is a concrete, mappable location extracted from a reel.
type Place struct {
	Name       string  `json:"name"`
	Category   string  `json:"category,omitempty"`
	Area       string  `json:"area,omitempty"`
	Confidence float64 `json:"confidence"`
}

const placeSystemPrompt = `You extract concrete, mappable places from social media travel captions.
Respond with ONLY valid JSON, no prose and no markdown fences, shaped as:
{"places": [{"name": "...", "category": "...", "area": "...", "confidence": 0.0}]}
Categories are short nouns like "beach", "restaurant", "viewpoint", "museum".
Confidence is between 0 and 1 and reflects how sure you are the caption refers to that exact place.
Return {"places": []} when the caption names no real place.`

// PlaceExtractionService pulls mappable places out of cached reel
// metadata. Results are cached per identity since the underlying caption
// never changes between refreshes.
type PlaceExtractionService struct {
	llm    LLM
	cache  cache.Cache
	filter *PlaceFilter
	cfg    config.ExtractionConfig
	logger *logger.Logger
}

// NewPlaceExtractionService creates a place extraction service. The cache
// may be nil, in which case every call hits the language model.
func NewPlaceExtractionService(
	llm LLM,
	resultCache cache.Cache,
	filter *PlaceFilter,
	cfg config.ExtractionConfig,
	logger *logger.Logger,
) *PlaceExtractionService {
	return &PlaceExtractionService{
		llm:    llm,
		cache:  resultCache,
		filter: filter,
		cfg:    cfg,
		logger: logger,
	}
}

// ExtractPlaces returns the filtered places mentioned by the reel.
func (s *PlaceExtractionService) ExtractPlaces(ctx context.Context, rec *models.ContentRecord) ([]Place, error) {
	if rec.Caption == "" && len(rec.Hashtags) == 0 && rec.LocationLabel == "" {
		// nothing to extract from
		return []Place{}, nil
	}

	cacheKey := "places:" + rec.Identity

	if s.cache != nil {
		if data, found, err := s.cache.Get(ctx, cacheKey); err == nil && found {
			var places []Place
			if err := json.Unmarshal(data, &places); err == nil {
				s.logger.Debug("place extraction served from cache", "identity", rec.Identity)
				return places, nil
			}
			s.logger.Warn("corrupt place cache entry, re-extracting", "identity", rec.Identity)
		}
	}

	raw, err := s.llm.ChatJSON(ctx, placeSystemPrompt, buildExtractionPrompt(rec))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Places []Place `json:"places"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: unexpected extraction shape: %v", clients.ErrLLM, err)
	}

	places := make([]Place, 0, len(parsed.Places))
	for _, p := range parsed.Places {
		ok, err := s.filter.Matches(s.cfg.FilterExpr, placeToMap(p))
		if err != nil {
			return nil, fmt.Errorf("place filter: %w", err)
		}
		if ok {
			places = append(places, p)
		}
	}

	s.logger.Info("places extracted",
		"identity", rec.Identity,
		"extracted", len(parsed.Places),
		"kept", len(places))

	if s.cache != nil {
		if data, err := json.Marshal(places); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, s.cfg.CacheTTL); err != nil {
				s.logger.Warn("place cache write failed", "identity", rec.Identity, "error", err)
			}
		}
	}

	return places, nil
}

func buildExtractionPrompt(rec *models.ContentRecord) string {
	var b strings.Builder
	b.WriteString("Caption:\n")
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
		b.WriteString("\nTagged location: " + rec.LocationLabel + "\n")
	}

	return b.String()
}

func placeToMap(p Place) map[string]interface{} {
	return map[string]interface{}{
		"name":       p.Name,
		"category":   p.Category,
		"area":       p.Area,
		"confidence": p.Confidence,
	}
}
