package models

import "time"

// ScrapeResult is the normalized payload the scraper client extracts
// from one upstream dataset item.
type ScrapeResult struct {
	Caption         string   `json:"caption"`
	Hashtags        []string `json:"hashtags"`
	LocationName    string   `json:"location_name"`
	LikesCount      int64    `json:"likes_count"`
	Timestamp       string   `json:"timestamp"`
	OwnerUsername   string   `json:"owner_username"`
	VideoURL        string   `json:"video_url"`
	DisplayImageURL string   `json:"display_image_url"`
}

// RecordFromScrape builds a fresh ContentRecord for a scraped reel.
// BlobReference stays nil until the video bytes are durably stored.
func RecordFromScrape(identity, canonicalURL string, res *ScrapeResult, now time.Time) *ContentRecord {
	rec := &ContentRecord{
		Identity:        identity,
		SourceURL:       canonicalURL,
		Caption:         res.Caption,
		Hashtags:        res.Hashtags,
		LocationLabel:   res.LocationName,
		EngagementCount: res.LikesCount,
		PublishedAt:     res.Timestamp,
		AuthorHandle:    res.OwnerUsername,
		VideoRemoteURL:  res.VideoURL,
		DisplayImageURL: res.DisplayImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if rec.Hashtags == nil {
		rec.Hashtags = []string{}
	}
	return rec
}
