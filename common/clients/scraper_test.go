package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyago/reeltrip/common/config"
	"github.com/voyago/reeltrip/common/logger"
)

const testReelURL = "https://www.instagram.com/reel/DH4kP2yR7m1/"

func testScraperClient(server *httptest.Server, timeout time.Duration) *ScraperClient {
	log := logger.New("error", "text")
	return NewScraperClient(
		NewHTTPClient(server.Client(), log),
		config.ScraperConfig{
			BaseURL: server.URL,
			Token:   "test-token",
			ActorID: "apify~instagram-scraper",
			Timeout: timeout,
		},
		log,
	)
}

func TestScrapeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/acts/apify~instagram-scraper/run-sync-get-dataset-items", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var input scrapeInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, []string{testReelURL}, input.DirectURLs)
		assert.Equal(t, 1, input.ResultsLimit)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{
			"caption": "Three days in Lisbon #lisbon",
			"hashtags": ["lisbon"],
			"locationName": "Lisbon, Portugal",
			"likesCount": 4211,
			"timestamp": "2025-03-01T12:00:00.000Z",
			"ownerUsername": "wander.often",
			"videoUrl": "https://cdn.example.com/v/abc.mp4",
			"displayUrl": "https://cdn.example.com/i/abc.jpg"
		}]`))
	}))
	defer server.Close()

	result, err := testScraperClient(server, 5*time.Second).Scrape(context.Background(), testReelURL)
	require.NoError(t, err)
	assert.Equal(t, "Three days in Lisbon #lisbon", result.Caption)
	assert.Equal(t, []string{"lisbon"}, result.Hashtags)
	assert.Equal(t, "Lisbon, Portugal", result.LocationName)
	assert.Equal(t, int64(4211), result.LikesCount)
	assert.Equal(t, "wander.often", result.OwnerUsername)
	assert.Equal(t, "https://cdn.example.com/v/abc.mp4", result.VideoURL)
	assert.Equal(t, "https://cdn.example.com/i/abc.jpg", result.DisplayImageURL)
}

func TestScrapeActorItemError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"error": "not_found", "errorDescription": "Page not available"}]`))
	}))
	defer server.Close()

	_, err := testScraperClient(server, 5*time.Second).Scrape(context.Background(), testReelURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScrape)
	assert.Contains(t, err.Error(), "not_found")
}

func TestScrapeEmptyDataset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := testScraperClient(server, 5*time.Second).Scrape(context.Background(), testReelURL)
	assert.ErrorIs(t, err, ErrScrape)
}

func TestScrapeUpstreamStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"actor-is-not-rented"}}`))
	}))
	defer server.Close()

	_, err := testScraperClient(server, 5*time.Second).Scrape(context.Background(), testReelURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScrape)
	assert.Contains(t, err.Error(), "402")
}

func TestScrapeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := testScraperClient(server, 30*time.Millisecond).Scrape(context.Background(), testReelURL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}
