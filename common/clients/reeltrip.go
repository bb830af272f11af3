package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/voyago/reeltrip/common/models"
)

// ReelTripClient talks to a running reeltrip API from other binaries.
type ReelTripClient struct {
	http    *HTTPClient
	baseURL string
}

// NewReelTripClient creates a client against the given base URL,
// e.g. "http://localhost:8000".
func NewReelTripClient(httpClient *HTTPClient, baseURL string) *ReelTripClient {
	return &ReelTripClient{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FetchReelResponse mirrors the fetch endpoint payload
type FetchReelResponse struct {
	Record        models.ContentRecord `json:"record"`
	CacheHit      bool                 `json:"cache_hit"`
	BlobPersisted bool                 `json:"blob_persisted"`
	Warning       string               `json:"warning,omitempty"`
}

// RefreshReelResponse mirrors the refresh endpoint payload
type RefreshReelResponse struct {
	Record  models.ContentRecord `json:"record"`
	Changed bool                 `json:"changed"`
	Diff    json.RawMessage      `json:"diff,omitempty"`
}

// ListReelsResponse mirrors the list endpoint payload
type ListReelsResponse struct {
	Reels []models.ContentRecord `json:"reels"`
	Count int                    `json:"count"`
}

// VideoURLResponse mirrors the video location endpoint payload
type VideoURLResponse struct {
	Identity string `json:"identity"`
	VideoURL string `json:"video_url"`
	Source   string `json:"source"`
}

// ItineraryPlace mirrors the places the planner extracted from the reel
type ItineraryPlace struct {
	Name       string  `json:"name"`
	Category   string  `json:"category,omitempty"`
	Area       string  `json:"area,omitempty"`
	Confidence float64 `json:"confidence"`
}

// GenerateItineraryResponse mirrors the itinerary endpoint payload
type GenerateItineraryResponse struct {
	Itinerary json.RawMessage      `json:"itinerary"`
	Places    []ItineraryPlace     `json:"places"`
	Record    models.ContentRecord `json:"record"`
	CacheHit  bool                 `json:"cache_hit"`
	Warning   string               `json:"warning,omitempty"`
}

// FetchReel caches (or reuses) the reel behind url
func (c *ReelTripClient) FetchReel(ctx context.Context, reelURL string) (*FetchReelResponse, error) {
	out := &FetchReelResponse{}
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/reels", map[string]string{"url": reelURL}, out)
	return out, err
}

// RefreshReel re-scrapes the reel and reports what changed
func (c *ReelTripClient) RefreshReel(ctx context.Context, reelURL string) (*RefreshReelResponse, error) {
	out := &RefreshReelResponse{}
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/reels/refresh", map[string]string{"url": reelURL}, out)
	return out, err
}

// GetReel reads a cached record without triggering a fetch
func (c *ReelTripClient) GetReel(ctx context.Context, identity string) (*models.ContentRecord, error) {
	out := &struct {
		Record models.ContentRecord `json:"record"`
	}{}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/reels/"+url.PathEscape(identity), nil, out); err != nil {
		return nil, err
	}
	return &out.Record, nil
}

// ListReels returns cached records, newest first
func (c *ReelTripClient) ListReels(ctx context.Context, limit int) (*ListReelsResponse, error) {
	path := "/api/v1/reels"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	out := &ListReelsResponse{}
	err := c.doJSON(ctx, http.MethodGet, path, nil, out)
	return out, err
}

// DeleteReel removes a cached record and its blob
func (c *ReelTripClient) DeleteReel(ctx context.Context, identity string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/reels/"+url.PathEscape(identity), nil, nil)
}

// VideoURL resolves a playable location for the cached video
func (c *ReelTripClient) VideoURL(ctx context.Context, identity string) (*VideoURLResponse, error) {
	out := &VideoURLResponse{}
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/reels/"+url.PathEscape(identity)+"/video", nil, out)
	return out, err
}

// GenerateItinerary turns the reel into a trip plan. Preferences are
// forwarded verbatim; the server ignores keys it does not know.
func (c *ReelTripClient) GenerateItinerary(ctx context.Context, reelURL string, preferences map[string]interface{}) (*GenerateItineraryResponse, error) {
	in := map[string]interface{}{"url": reelURL}
	if len(preferences) > 0 {
		in["preferences"] = preferences
	}
	out := &GenerateItineraryResponse{}
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/itineraries", in, out)
	return out, err
}

func (c *ReelTripClient) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	resp, err := c.http.DoRequest(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			if apiErr.Message != "" {
				return fmt.Errorf("api error (%d) %s: %s", resp.StatusCode, apiErr.Error, apiErr.Message)
			}
			return fmt.Errorf("api error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api error (%d)", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
