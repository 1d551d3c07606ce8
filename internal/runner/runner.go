package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"newsbot/internal/model"
)

type Pipeline interface {
	Collect(ctx context.Context) []model.Article
}

type Deliverer interface {
	Deliver(ctx context.Context, articles []model.Article) []model.Article
	SendStartup() error
	SendShutdown()
}

type StatsRecorder interface {
	RecordCycleStats(ctx context.Context, sent int, avgImportance float64, topStory string) error
}

// Resyncer lets the runner trigger the periodic delivered-cache rebuild.
type Resyncer interface {
	Resync(ctx context.Context) error
}

// Runner owns the fetch→score→dedupe→select→deliver cycle. The long-running
// variant loops it hourly with a backoff on cycle failure; the one-shot
// variant calls Cycle exactly once.
type Runner struct {
	pipeline Pipeline
	notifier Deliverer
	stats    StatsRecorder // nil disables stats
	cache    Resyncer      // nil for the one-shot variant

	interval time.Duration
	backoff  time.Duration
}

func New(pipeline Pipeline, notifier Deliverer, stats StatsRecorder, cache Resyncer,
	interval, backoff time.Duration) *Runner {

	return &Runner{
		pipeline: pipeline,
		notifier: notifier,
		stats:    stats,
		cache:    cache,
		interval: interval,
		backoff:  backoff,
	}
}

// Run executes cycles until ctx is canceled. A cycle error never terminates
// the loop; it is logged and retried after the backoff. On stop, a
// best-effort shutdown notice goes out before returning.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.notifier.SendStartup(); err != nil {
		log.Printf("ERROR: startup notice failed: %v", err)
	}

	for ctx.Err() == nil {
		wait := r.interval

		if err := r.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}

			log.Printf("ERROR: cycle failed: %v", err)
			log.Printf("retrying in %s", r.backoff)
			wait = r.backoff
		}

		if !sleep(ctx, wait) {
			break
		}
	}

	r.notifier.SendShutdown()

	return nil
}

// Cycle is one full pass: collect candidates, deliver them, record stats,
// resync the cache. Panics inside the cycle body surface as errors so the
// loop can recover.
func (r *Runner) Cycle(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cycle panic: %v", p)
		}
	}()

	articles := r.pipeline.Collect(ctx)
	if len(articles) == 0 {
		log.Println("no high-impact articles found")
		return ctx.Err()
	}

	log.Printf("found %d high-impact articles", len(articles))

	delivered := r.notifier.Deliver(ctx, articles)
	log.Printf("sent %d articles to channel", len(delivered))

	if len(delivered) > 0 && r.stats != nil {
		total := 0
		for _, a := range delivered {
			total += a.ImportanceScore
		}
		avg := float64(total) / float64(len(delivered))

		if statsErr := r.stats.RecordCycleStats(ctx, len(delivered), avg, delivered[0].Title); statsErr != nil {
			log.Printf("ERROR: record stats failed: %v", statsErr)
		}
	}

	if r.cache != nil {
		if err := r.cache.Resync(ctx); err != nil {
			return fmt.Errorf("resync delivered cache: %w", err)
		}
	}

	return ctx.Err()
}

// sleep waits d, returning false if the context was canceled first.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
