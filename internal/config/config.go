package config

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfighcl"

	"newsbot/internal/model"
)

type Config struct {
	TelegramBotToken string        `hcl:"telegram_bot_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChannel  string        `hcl:"telegram_channel" env:"TELEGRAM_CHANNEL_USERNAME"`
	DatabasePath     string        `hcl:"database_path" env:"DATABASE_PATH" default:"telegram_news.db"`
	FetchInterval    time.Duration `hcl:"fetch_interval" env:"FETCH_INTERVAL" default:"1h"`
	RetryBackoff     time.Duration `hcl:"retry_backoff" env:"RETRY_BACKOFF" default:"5m"`
	FetchTimeout     time.Duration `hcl:"fetch_timeout" env:"FETCH_TIMEOUT" default:"15s"`
	SourceDelay      time.Duration `hcl:"source_delay" env:"SOURCE_DELAY" default:"500ms"`
	SendDelay        time.Duration `hcl:"send_delay" env:"SEND_DELAY" default:"2s"`
	MinScore         int           `hcl:"min_score" env:"MIN_SCORE" default:"7"`
	MaxBatchSize     int           `hcl:"max_batch_size" env:"MAX_BATCH_SIZE" default:"10"`
	PerFeedLimit     int           `hcl:"per_feed_limit" env:"PER_FEED_LIMIT" default:"10"`
	CacheWindow      time.Duration `hcl:"cache_window" env:"CACHE_WINDOW" default:"168h"`
	CacheLimit       int           `hcl:"cache_limit" env:"CACHE_LIMIT" default:"1000"`
}

var (
	cfg  Config
	once sync.Once
)

func Get() Config {
	once.Do(func() {
		loader := aconfig.LoaderFor(&cfg, aconfig.Config{
			Files: []string{"./config.hcl", "./config.local.hcl"},
			FileDecoders: map[string]aconfig.FileDecoder{
				".hcl": aconfighcl.New(),
			},
		})

		if err := loader.Load(); err != nil {
			log.Printf("ERROR: config load fail: %v", err)
		}

		cfg.TelegramChannel = NormalizeChannel(cfg.TelegramChannel)
	})

	return cfg
}

// NormalizeChannel makes sure a channel username carries the @ prefix.
func NormalizeChannel(channel string) string {
	channel = strings.TrimSpace(channel)
	if channel == "" || strings.HasPrefix(channel, "@") {
		return channel
	}
	return "@" + channel
}

// Sources is the fixed set of monitored feeds. Order matters: it is the
// tie-break order for equal importance scores.
func Sources() []model.Source {
	return []model.Source{
		{Name: "Economic Times Tech", FeedURL: "https://economictimes.indiatimes.com/tech/rss/feedsdefault.cms"},
		{Name: "LiveMint Tech", FeedURL: "https://www.livemint.com/rss/technology"},
		{Name: "Inc42", FeedURL: "https://inc42.com/feed/"},
		{Name: "YourStory", FeedURL: "https://yourstory.com/feed"},
		{Name: "MoneyControl Tech", FeedURL: "https://www.moneycontrol.com/rss/technology.xml"},
		{Name: "TechCrunch", FeedURL: "https://feeds.feedburner.com/TechCrunch/"},
		{Name: "The Verge", FeedURL: "https://www.theverge.com/rss/index.xml"},
		{Name: "Ars Technica", FeedURL: "http://feeds.arstechnica.com/arstechnica/index/"},
		{Name: "VentureBeat", FeedURL: "https://feeds.feedburner.com/venturebeat/SZYF"},
		{Name: "Reuters Tech", FeedURL: "https://feeds.reuters.com/reuters/technologyNews"},
		{Name: "Bloomberg Tech", FeedURL: "https://feeds.bloomberg.com/technology/news.rss"},
		{Name: "CNBC Tech", FeedURL: "https://www.cnbc.com/id/19854910/device/rss/rss.html"},
		{Name: "BBC Tech", FeedURL: "http://feeds.bbci.co.uk/news/technology/rss.xml"},
		{Name: "Times of India Tech", FeedURL: "https://timesofindia.indiatimes.com/rssfeeds/1081479906.cms"},
		{Name: "CoinDesk", FeedURL: "https://feeds.feedburner.com/CoinDesk"},
	}
}
