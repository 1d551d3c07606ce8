package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/SlyMarbo/rss"
	"github.com/samber/lo"

	"newsbot/internal/model"
)

// Some feed hosts reject unknown clients outright, so we present a
// browser-like identity.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// RSSSource downloads and parses a single configured feed.
type RSSSource struct {
	name   string
	url    string
	client *http.Client
	limit  int
}

func NewRSSSource(src model.Source, timeout time.Duration, limit int) *RSSSource {
	return &RSSSource{
		name: src.Name,
		url:  src.FeedURL,
		client: &http.Client{
			Timeout: timeout,
		},
		limit: limit,
	}
}

func (s *RSSSource) Name() string {
	return s.name
}

// Fetch downloads the feed and returns at most the first limit entries in
// document order. Transport and parse failures are returned to the caller,
// which treats them as "zero articles from this source".
func (s *RSSSource) Fetch(ctx context.Context) ([]model.Item, error) {
	data, err := s.download(ctx)
	if err != nil {
		return nil, err
	}

	return ParseItems(data, s.limit)
}

func (s *RSSSource) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", s.name, err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", s.name, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s body: %w", s.name, err)
	}

	return data, nil
}

// ParseItems tries a strict syndication parse first and falls back to a
// lenient markup pass over the same bytes. Entries missing both a title and
// a link are dropped.
func ParseItems(data []byte, limit int) ([]model.Item, error) {
	if feed, err := rss.Parse(data); err == nil {
		return strictItems(feed, limit), nil
	}

	return lenientItems(data, limit)
}

func strictItems(feed *rss.Feed, limit int) []model.Item {
	entries := feed.Items
	if len(entries) > limit {
		entries = entries[:limit]
	}

	return lo.FilterMap(entries, func(entry *rss.Item, _ int) (model.Item, bool) {
		item := model.Item{
			Title:       strings.TrimSpace(entry.Title),
			Link:        strings.TrimSpace(entry.Link),
			Description: stripTags(firstNonEmpty(entry.Summary, entry.Content)),
		}

		return item, item.Title != "" || item.Link != ""
	})
}

func lenientItems(data []byte, limit int) ([]model.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("lenient parse: %w", err)
	}

	var items []model.Item

	doc.Find("item").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		item := model.Item{
			Title:       strings.TrimSpace(sel.Find("title").First().Text()),
			Link:        strings.TrimSpace(sel.Find("link").First().Text()),
			Description: stripTags(sel.Find("description").First().Text()),
		}

		if item.Title != "" || item.Link != "" {
			items = append(items, item)
		}

		return i+1 < limit
	})

	return items, nil
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// stripTags is a plain tag-removal pass, not a sanitizer; entities are left
// as-is.
func stripTags(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
