package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"newsbot/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	content_hash     TEXT PRIMARY KEY,
	url              TEXT,
	title            TEXT,
	source           TEXT,
	importance_score INTEGER,
	scraped_at       TIMESTAMP,
	sent_to_channel  BOOLEAN DEFAULT FALSE,
	created_at       DATETIME
);
CREATE INDEX IF NOT EXISTS idx_sent_channel ON articles(sent_to_channel);
CREATE INDEX IF NOT EXISTS idx_importance ON articles(importance_score);
CREATE INDEX IF NOT EXISTS idx_created_at ON articles(created_at);

CREATE TABLE IF NOT EXISTS channel_stats (
	date           TEXT PRIMARY KEY,
	articles_sent  INTEGER DEFAULT 0,
	avg_importance REAL DEFAULT 0,
	top_story      TEXT
);
`

// ArticleStorage persists delivery records in a local SQLite file.
type ArticleStorage struct {
	db *sqlx.DB
}

type dbArticle struct {
	ContentHash     string    `db:"content_hash"`
	URL             string    `db:"url"`
	Title           string    `db:"title"`
	Source          string    `db:"source"`
	ImportanceScore int       `db:"importance_score"`
	ScrapedAt       time.Time `db:"scraped_at"`
	SentToChannel   bool      `db:"sent_to_channel"`
	CreatedAt       time.Time `db:"created_at"`
}

func Open(path string) (*ArticleStorage, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &ArticleStorage{db: db}, nil
}

func (s *ArticleStorage) Close() error {
	return s.db.Close()
}

// Upsert stores a record, replacing metadata on conflict. The delivered flag
// and first-seen time survive re-scrapes; only MarkDelivered moves the flag.
func (s *ArticleStorage) Upsert(ctx context.Context, rec model.DeliveryRecord) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO articles (content_hash, url, title, source, importance_score, scraped_at, sent_to_channel, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(content_hash) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			source = excluded.source,
			importance_score = excluded.importance_score,
			scraped_at = excluded.scraped_at;`,
		rec.ContentHash,
		rec.URL,
		rec.Title,
		rec.Source,
		rec.ImportanceScore,
		rec.ScrapedAt.UTC(),
		rec.Delivered,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert article %s: %w", rec.ContentHash, err)
	}

	return nil
}

func (s *ArticleStorage) MarkDelivered(ctx context.Context, contentHash string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE articles SET sent_to_channel = TRUE WHERE content_hash = ?;`,
		contentHash,
	)
	if err != nil {
		return fmt.Errorf("mark delivered %s: %w", contentHash, err)
	}

	return nil
}

// DeliveredSince returns the fingerprints of articles delivered after the
// given time. Feeds the in-memory cache of the long-running variant.
func (s *ArticleStorage) DeliveredSince(ctx context.Context, since time.Time) ([]string, error) {
	var hashes []string

	err := s.db.SelectContext(
		ctx,
		&hashes,
		`SELECT content_hash FROM articles WHERE sent_to_channel = TRUE AND created_at > ?;`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("select delivered: %w", err)
	}

	return hashes, nil
}

// IsDelivered checks persisted state directly; the one-shot variant uses it
// in place of the in-memory cache.
func (s *ArticleStorage) IsDelivered(ctx context.Context, contentHash string) (bool, error) {
	var delivered bool

	err := s.db.GetContext(
		ctx,
		&delivered,
		`SELECT sent_to_channel FROM articles WHERE content_hash = ?;`,
		contentHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check delivered %s: %w", contentHash, err)
	}

	return delivered, nil
}

// GetRecord loads a single record by fingerprint, or nil if absent.
func (s *ArticleStorage) GetRecord(ctx context.Context, contentHash string) (*model.DeliveryRecord, error) {
	var row dbArticle

	err := s.db.GetContext(
		ctx,
		&row,
		`SELECT content_hash, url, title, source, importance_score, scraped_at, sent_to_channel, created_at
		 FROM articles WHERE content_hash = ?;`,
		contentHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", contentHash, err)
	}

	rec := model.DeliveryRecord{
		ContentHash:     row.ContentHash,
		URL:             row.URL,
		Title:           row.Title,
		Source:          row.Source,
		ImportanceScore: row.ImportanceScore,
		ScrapedAt:       row.ScrapedAt,
		Delivered:       row.SentToChannel,
	}

	return &rec, nil
}

// RecordCycleStats upserts the per-day delivery summary row.
func (s *ArticleStorage) RecordCycleStats(ctx context.Context, sent int, avgImportance float64, topStory string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO channel_stats (date, articles_sent, avg_importance, top_story)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
			articles_sent = channel_stats.articles_sent + excluded.articles_sent,
			avg_importance = excluded.avg_importance,
			top_story = excluded.top_story;`,
		time.Now().UTC().Format("2006-01-02"),
		sent,
		avgImportance,
		topStory,
	)
	if err != nil {
		return fmt.Errorf("record cycle stats: %w", err)
	}

	return nil
}
