package dedup

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Fingerprint derives the stable identity of an article from its normalized
// title and raw URL. Source and scrape time never influence it, so the same
// story seen twice always collides.
func Fingerprint(title, url string) string {
	clean := normalizeTitle(title)
	sum := md5.Sum([]byte(clean + ":" + url))
	return hex.EncodeToString(sum[:])
}

func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// DeliveredLister supplies the fingerprints of articles delivered within a
// trailing time window.
type DeliveredLister interface {
	DeliveredSince(ctx context.Context, since time.Time) ([]string, error)
}

// Cache is the in-memory working set of delivered fingerprints used by the
// long-running variant. It is built from persisted state and re-queried
// wholesale when it grows past the limit; no recency ordering is kept.
type Cache struct {
	mu     sync.Mutex
	hashes map[string]struct{}

	store  DeliveredLister
	window time.Duration
	limit  int
}

func NewCache(store DeliveredLister, window time.Duration, limit int) *Cache {
	return &Cache{
		hashes: make(map[string]struct{}),
		store:  store,
		window: window,
		limit:  limit,
	}
}

// Reload replaces the working set with the delivered fingerprints from the
// trailing window.
func (c *Cache) Reload(ctx context.Context) error {
	hashes, err := c.store.DeliveredSince(ctx, time.Now().Add(-c.window))
	if err != nil {
		return err
	}

	fresh := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		fresh[h] = struct{}{}
	}

	c.mu.Lock()
	c.hashes = fresh
	c.mu.Unlock()

	return nil
}

// IsDelivered reports whether the fingerprint is in the working set. The
// error return exists to satisfy the same contract as the storage-backed
// check used by the one-shot variant.
func (c *Cache) IsDelivered(_ context.Context, hash string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.hashes[hash]
	return ok, nil
}

// Add records a fingerprint as delivered.
func (c *Cache) Add(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hashes[hash] = struct{}{}
}

// Len returns the current working-set size.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.hashes)
}

// Resync re-queries persisted state when the working set has grown past the
// limit. Called once per cycle.
func (c *Cache) Resync(ctx context.Context) error {
	if c.Len() <= c.limit {
		return nil
	}

	return c.Reload(ctx)
}
