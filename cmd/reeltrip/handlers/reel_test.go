package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyago/reeltrip/cmd/reeltrip/container"
	"github.com/voyago/reeltrip/cmd/reeltrip/routes"
	"github.com/voyago/reeltrip/cmd/reeltrip/service"
	"github.com/voyago/reeltrip/common/bootstrap"
	"github.com/voyago/reeltrip/common/clients"
	"github.com/voyago/reeltrip/common/config"
	"github.com/voyago/reeltrip/common/logger"
	"github.com/voyago/reeltrip/common/storage"
	"github.com/voyago/reeltrip/common/validation"
)

const testReelURL = "https://www.instagram.com/reel/DPtest123/"

const llmExtractionReply = `{"places": [{"name": "Belém Tower", "category": "landmark", "area": "Lisbon", "confidence": 0.92}]}`

const llmItineraryReply = "Here is the plan:\n```json\n" + `{
	"destination": "Lisbon",
	"duration": "3 days",
	"budget_level": "mid-range",
	"activities": ["tram 28"],
	"days": [{"day": 1, "places": ["Alfama"], "activities": ["tram 28"], "food": ["pastéis de nata"], "stay": "Baixa"}],
	"travel_tips": ["buy a transit card"]
}` + "\n```"

// testAPI wires the full HTTP surface against real sqlite and fs storage
// plus stubbed scraper and language model upstreams.
type testAPI struct {
	e           *echo.Echo
	scrapeCalls atomic.Int32

	mu         sync.Mutex
	caption    string
	likes      int64
	failScrape bool
}

func (api *testAPI) setCaption(caption string) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.caption = caption
}

func (api *testAPI) setFailScrape(fail bool) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.failScrape = fail
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	api := &testAPI{
		caption: "Three perfect days in Lisbon",
		likes:   4200,
	}
	log := logger.New("error", "text")

	videoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("mp4-bytes"))
	}))
	t.Cleanup(videoSrv.Close)

	scraperSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.scrapeCalls.Add(1)
		api.mu.Lock()
		caption, likes, fail := api.caption, api.likes, api.failScrape
		api.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": "actor exploded"}`))
			return
		}

		items := []map[string]interface{}{{
			"caption":       caption,
			"hashtags":      []string{"lisbon", "portugal"},
			"locationName":  "Lisbon, Portugal",
			"likesCount":    likes,
			"timestamp":     "2026-05-01T10:00:00.000Z",
			"ownerUsername": "wanderer",
			"videoUrl":      videoSrv.URL + "/v/DPtest123.mp4",
			"displayUrl":    videoSrv.URL + "/i/DPtest123.jpg",
		}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(items)
	}))
	t.Cleanup(scraperSrv.Close)

	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		content := llmExtractionReply
		if strings.Contains(string(body), "travel planner") {
			content = llmItineraryReply
		}
		resp := map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]interface{}{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(llmSrv.Close)

	dir := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "reeltrip.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	blobs, err := storage.NewFSBlobStore(dir, log)
	require.NoError(t, err)

	httpClient := clients.NewHTTPClient(&http.Client{}, log)
	scraper := clients.NewScraperClient(httpClient, config.ScraperConfig{
		BaseURL: scraperSrv.URL,
		Token:   "test-token",
		ActorID: "apify~instagram-scraper",
		Timeout: 5 * time.Second,
	}, log)
	llm := clients.NewLLMClient(config.LLMConfig{
		APIKey:  "test-key",
		BaseURL: llmSrv.URL + "/v1",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}, log)

	fetchCfg := config.FetchConfig{
		MarkerTTL:       time.Second,
		MarkerPoll:      10 * time.Millisecond,
		DownloadTimeout: 5 * time.Second,
		MaxVideoBytes:   1 << 20,
	}

	reelSvc := service.NewReelCacheService(store, blobs, scraper, httpClient, nil, fetchCfg, log)
	extraction := service.NewPlaceExtractionService(llm, nil, service.NewPlaceFilter(), config.ExtractionConfig{
		FilterExpr: `place.name != "" && place.confidence >= 0.5`,
		CacheTTL:   time.Hour,
	}, log)
	itinerary := service.NewItineraryService(llm, validation.NewItineraryValidator(), log)
	trip := service.NewTripService(reelSvc, extraction, itinerary, log)

	c := &container.Container{
		Components: &bootstrap.Components{
			Config: &config.Config{},
			Logger: log,
		},
		Store:      store,
		Blobs:      blobs,
		HTTP:       httpClient,
		Scraper:    scraper,
		LLM:        llm,
		ReelCache:  reelSvc,
		Extraction: extraction,
		Itinerary:  itinerary,
		Trip:       trip,
	}

	e := echo.New()
	e.HideBanner = true
	routes.RegisterReelRoutes(e, c)
	routes.RegisterItineraryRoutes(e, c)
	api.e = e

	return api
}

func (api *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("X-Client-ID", "test-suite")

	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestFetchReelEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/reels", map[string]string{"url": testReelURL})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[clients.FetchReelResponse](t, rec)
	assert.Equal(t, "DPtest123", resp.Record.Identity)
	assert.Equal(t, "Three perfect days in Lisbon", resp.Record.Caption)
	assert.False(t, resp.CacheHit)
	assert.True(t, resp.BlobPersisted)
	assert.Empty(t, resp.Warning)

	// second request is served from cache
	rec = api.do(t, http.MethodPost, "/api/v1/reels", map[string]string{"url": testReelURL})
	require.Equal(t, http.StatusOK, rec.Code)

	resp = decode[clients.FetchReelResponse](t, rec)
	assert.True(t, resp.CacheHit)
	assert.Equal(t, int32(1), api.scrapeCalls.Load())
}

func TestFetchReelValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/reels", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reels", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	raw := httptest.NewRecorder()
	api.e.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/reels", map[string]string{
		"url": "https://www.instagram.com/stories/wanderer/123/",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, int32(0), api.scrapeCalls.Load())
}

func TestFetchReelUpstreamFailure(t *testing.T) {
	api := newTestAPI(t)
	api.setFailScrape(true)

	rec := api.do(t, http.MethodPost, "/api/v1/reels", map[string]string{"url": testReelURL})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "scrape_failed", resp["error"])
	assert.Equal(t, "temporarily unavailable, try again", resp["message"])
}

func TestGetReelEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/reels/DPtest123", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	api.do(t, http.MethodPost, "/api/v1/reels", map[string]string{"url": testReelURL})

	rec = api.do(t, http.MethodGet, "/api/v1/reels/DPtest123", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Record struct {
			Identity string `json:"identity"`
		} `json:"record"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "DPtest123", resp.Record.Identity)
	assert.Equal(t, int32(1), api.scrapeCalls.Load(), "GET must never scrape")
}

func TestListReelsEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/reels", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[clients.ListReelsResponse](t, rec)
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Reels)

	api.do(t, http.MethodPost, "/api/v1/reels", map[string]string{"url": testReelURL})

	rec = api.do(t, http.MethodGet, "/api/v1/reels?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[clients.ListReelsResponse](t, rec)
	assert.Equal(t, 1, resp.Count)

	rec = api.do(t, http.MethodGet, "/api/v1/reels?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteReelEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/v1/reels", map[string]string{"url": testReelURL})

	rec := api.do(t, http.MethodDelete, "/api/v1/reels/DPtest123", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/reels/DPtest123", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/v1/reels/DPtest123", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVideoURLEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/v1/reels", map[string]string{"url": testReelURL})

	rec := api.do(t, http.MethodGet, "/api/v1/reels/DPtest123/video", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[clients.VideoURLResponse](t, rec)
	assert.Equal(t, "DPtest123", resp.Identity)
	assert.Equal(t, "blob", resp.Source)
	assert.NotEmpty(t, resp.VideoURL)
}

func TestRefreshReelEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/v1/reels", map[string]string{"url": testReelURL})

	rec := api.do(t, http.MethodPost, "/api/v1/reels/refresh", map[string]string{"url": testReelURL})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[clients.RefreshReelResponse](t, rec)
	assert.False(t, resp.Changed)

	api.setCaption("Lisbon, but make it a week")

	rec = api.do(t, http.MethodPost, "/api/v1/reels/refresh", map[string]string{"url": testReelURL})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[clients.RefreshReelResponse](t, rec)
	assert.True(t, resp.Changed)
	assert.Contains(t, string(resp.Diff), "caption")
	assert.Equal(t, "Lisbon, but make it a week", resp.Record.Caption)
}

func TestGenerateItineraryEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/itineraries", map[string]interface{}{
		"url": testReelURL,
		"preferences": map[string]interface{}{
			"duration":     "5 days",
			"budget_level": "budget",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[clients.GenerateItineraryResponse](t, rec)
	assert.Equal(t, "DPtest123", resp.Record.Identity)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "Belém Tower", resp.Places[0].Name)

	var plan map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Itinerary, &plan))
	assert.Equal(t, "Lisbon", plan["destination"])

	rec = api.do(t, http.MethodPost, "/api/v1/itineraries", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
