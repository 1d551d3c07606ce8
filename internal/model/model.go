package model

import (
	"time"
)

// Item is a raw feed entry before scoring.
type Item struct {
	Title       string
	Link        string
	Description string
}

// Source is a configured feed: display name plus feed URL.
type Source struct {
	Name    string
	FeedURL string
}

// Article is a scored, non-duplicate candidate produced during one cycle.
type Article struct {
	Title           string
	URL             string
	Source          string
	ScrapedAt       time.Time // wall-clock time of scraping; per-entry dates are not trusted
	ImportanceScore int
	ContentHash     string
}

// DeliveryRecord is the persisted form of an article, keyed by content hash.
// Delivered flips to true only after a confirmed successful send.
type DeliveryRecord struct {
	ContentHash     string
	URL             string
	Title           string
	Source          string
	ImportanceScore int
	ScrapedAt       time.Time
	Delivered       bool
}

// Record converts an article into its persisted form.
func (a Article) Record() DeliveryRecord {
	return DeliveryRecord{
		ContentHash:     a.ContentHash,
		URL:             a.URL,
		Title:           a.Title,
		Source:          a.Source,
		ImportanceScore: a.ImportanceScore,
		ScrapedAt:       a.ScrapedAt,
	}
}
