package service

import (
	"context"
	"encoding/json"
	"fmt"

	apimodels "github.com/voyago/reeltrip/cmd/reeltrip/models"
	"github.com/voyago/reeltrip/common/logger"
	"github.com/voyago/reeltrip/common/models"
)

// TripPlan is the end-to-end result of turning a reel into an itinerary.
type TripPlan struct {
	Itinerary json.RawMessage       `json:"itinerary"`
	Places    []Place               `json:"places"`
	Record    *models.ContentRecord `json:"record"`
	CacheHit  bool                  `json:"cache_hit"`
	Warning   string                `json:"warning,omitempty"`
}

// TripService composes the reel cache, place extraction and itinerary
// generation into the single operation most callers want.
type TripService struct {
	reels      *ReelCacheService
	extraction *PlaceExtractionService
	itinerary  *ItineraryService
	logger     *logger.Logger
}

// NewTripService creates a trip service
func NewTripService(
	reels *ReelCacheService,
	extraction *PlaceExtractionService,
	itinerary *ItineraryService,
	logger *logger.Logger,
) *TripService {
	return &TripService{
		reels:      reels,
		extraction: extraction,
		itinerary:  itinerary,
		logger:     logger,
	}
}

// GenerateFromReel resolves the reel (from cache or upstream), extracts
// its places and drafts an itinerary. Extraction is enrichment only: if
// it fails, the plan is still generated from the raw caption.
func (s *TripService) GenerateFromReel(
	ctx context.Context,
	rawURL string,
	prefs *apimodels.TripPreferences,
) (*TripPlan, error) {
	fetch, err := s.reels.GetOrFetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	places, err := s.extraction.ExtractPlaces(ctx, fetch.Record)
	if err != nil {
		s.logger.Warn("place extraction failed, continuing without places",
			"identity", fetch.Record.Identity, "error", err)
		places = []Place{}
	}

	itinerary, err := s.itinerary.Generate(ctx, fetch.Record, places, prefs)
	if err != nil {
		return nil, err
	}

	plan := &TripPlan{
		Itinerary: itinerary,
		Places:    places,
		Record:    fetch.Record,
		CacheHit:  fetch.CacheHit,
	}
	if fetch.BlobPersistErr != nil {
		plan.Warning = fmt.Sprintf("video blob not persisted: %v", fetch.BlobPersistErr)
	}
	return plan, nil
}
