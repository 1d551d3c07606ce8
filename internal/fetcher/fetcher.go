package fetcher

import (
	"context"
	"log"
	"sort"
	"time"

	"newsbot/internal/dedup"
	"newsbot/internal/model"
	"newsbot/internal/scorer"
)

type RecordStore interface {
	Upsert(ctx context.Context, rec model.DeliveryRecord) error
}

// DeliveredIndex answers "has this fingerprint already been sent". The
// long-running variant backs it with the in-memory cache, the one-shot
// variant with storage directly.
type DeliveredIndex interface {
	IsDelivered(ctx context.Context, contentHash string) (bool, error)
}

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Item, error)
}

// Fetcher runs the per-cycle scan: every source in order, score, dedupe,
// persist, then rank and truncate the aggregate.
type Fetcher struct {
	sources   []Source
	store     RecordStore
	delivered DeliveredIndex

	minScore    int
	maxBatch    int
	sourceDelay time.Duration
}

func New(sources []Source, store RecordStore, delivered DeliveredIndex,
	minScore, maxBatch int, sourceDelay time.Duration) *Fetcher {

	return &Fetcher{
		sources:     sources,
		store:       store,
		delivered:   delivered,
		minScore:    minScore,
		maxBatch:    maxBatch,
		sourceDelay: sourceDelay,
	}
}

// Collect aggregates high-impact, non-duplicate articles across all sources,
// sorted by score descending (ties keep discovery order) and capped at the
// batch limit. Per-source failures are logged and skipped; the scan itself
// never fails.
func (f *Fetcher) Collect(ctx context.Context) []model.Article {
	var candidates []model.Article

	for i, src := range f.sources {
		if ctx.Err() != nil {
			break
		}

		if i > 0 {
			time.Sleep(f.sourceDelay)
		}

		items, err := src.Fetch(ctx)
		if err != nil {
			log.Printf("ERROR: fetch %s failed: %v", src.Name(), err)
			continue
		}

		collected := 0

		for _, item := range items {
			article, ok := f.evaluate(ctx, src.Name(), item)
			if !ok {
				continue
			}

			if err := f.store.Upsert(ctx, article.Record()); err != nil {
				log.Printf("ERROR: store article failed: %v", err)
			}

			candidates = append(candidates, article)
			collected++
		}

		if collected > 0 {
			log.Printf("%s: %d high-impact articles", src.Name(), collected)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ImportanceScore > candidates[j].ImportanceScore
	})

	if len(candidates) > f.maxBatch {
		candidates = candidates[:f.maxBatch]
	}

	return candidates
}

// evaluate scores one entry and filters it against the threshold and the
// delivered set. A failed dedupe lookup counts as "not delivered": the
// pipeline promises at-least-once, so a duplicate send beats a silent drop.
func (f *Fetcher) evaluate(ctx context.Context, sourceName string, item model.Item) (model.Article, bool) {
	score := scorer.Score(item.Title, item.Description)
	if score < f.minScore {
		return model.Article{}, false
	}

	hash := dedup.Fingerprint(item.Title, item.Link)

	duplicate, err := f.delivered.IsDelivered(ctx, hash)
	if err != nil {
		log.Printf("ERROR: dedupe check failed: %v", err)
		duplicate = false
	}
	if duplicate {
		return model.Article{}, false
	}

	return model.Article{
		Title:           item.Title,
		URL:             item.Link,
		Source:          sourceName,
		ScrapedAt:       time.Now(),
		ImportanceScore: score,
		ContentHash:     hash,
	}, true
}
