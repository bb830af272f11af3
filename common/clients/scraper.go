package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voyago/reeltrip/common/config"
	"github.com/voyago/reeltrip/common/models"
)

// ErrScrape marks upstream scraper failures: the actor errored, the
// dataset came back empty, or the payload could not be decoded.
var ErrScrape = errors.New("scrape failed")

// maxErrorBody caps how much of an upstream error response gets
// attached to the returned error.
const maxErrorBody = 512

// ScraperClient calls the hosted scraping actor synchronously and
// returns the dataset items produced by one run.
type ScraperClient struct {
	http    *HTTPClient
	baseURL string
	actorID string
	token   string
	timeout time.Duration
	logger  Logger
}

// NewScraperClient creates a scraper client from configuration
func NewScraperClient(httpClient *HTTPClient, cfg config.ScraperConfig, logger Logger) *ScraperClient {
	return &ScraperClient{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		actorID: cfg.ActorID,
		token:   cfg.Token,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// actor run input, one reel per run
type scrapeInput struct {
	DirectURLs   []string `json:"directUrls"`
	ResultsType  string   `json:"resultsType"`
	ResultsLimit int      `json:"resultsLimit"`
}

// dataset item shape for reel posts
type scrapeItem struct {
	Caption       string   `json:"caption"`
	Hashtags      []string `json:"hashtags"`
	LocationName  string   `json:"locationName"`
	LikesCount    int64    `json:"likesCount"`
	Timestamp     string   `json:"timestamp"`
	OwnerUsername string   `json:"ownerUsername"`
	VideoURL      string   `json:"videoUrl"`
	DisplayURL    string   `json:"displayUrl"`
	Error         string   `json:"error"`
	ErrorDesc     string   `json:"errorDescription"`
}

// Scrape runs the actor against one canonical reel URL and returns the
// normalized result. The call is bounded by the configured timeout; a
// deadline hit surfaces as context.DeadlineExceeded for callers to
// classify.
func (c *ScraperClient) Scrape(ctx context.Context, reelURL string) (*models.ScrapeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(scrapeInput{
		DirectURLs:   []string{reelURL},
		ResultsType:  "details",
		ResultsLimit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode scrape input: %w", err)
	}

	endpoint := fmt.Sprintf(
		"%s/v2/acts/%s/run-sync-get-dataset-items?token=%s&format=json",
		c.baseURL,
		url.PathEscape(c.actorID),
		url.QueryEscape(c.token),
	)

	start := time.Now()
	resp, err := c.http.DoRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("scraper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: actor returned %d: %s", ErrScrape, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	var items []scrapeItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: failed to decode dataset: %v", ErrScrape, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: dataset is empty", ErrScrape)
	}

	item := items[0]
	if item.Error != "" {
		return nil, fmt.Errorf("%w: %s: %s", ErrScrape, item.Error, item.ErrorDesc)
	}

	c.logger.Debug("scrape completed", "url", reelURL, "duration_ms", time.Since(start).Milliseconds())

	return &models.ScrapeResult{
		Caption:         item.Caption,
		Hashtags:        item.Hashtags,
		LocationName:    item.LocationName,
		LikesCount:      item.LikesCount,
		Timestamp:       item.Timestamp,
		OwnerUsername:   item.OwnerUsername,
		VideoURL:        item.VideoURL,
		DisplayImageURL: item.DisplayURL,
	}, nil
}
