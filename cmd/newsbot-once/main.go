// newsbot-once runs a single fetch→score→dedupe→select→deliver cycle and
// exits. Intended for externally scheduled execution (cron, CI timers).
package main

import (
	"context"
	"log"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"newsbot/internal/config"
	"newsbot/internal/fetcher"
	"newsbot/internal/model"
	"newsbot/internal/notifier"
	"newsbot/internal/runner"
	"newsbot/internal/source"
	"newsbot/internal/storage"
)

func main() {
	cfg := config.Get()

	if cfg.TelegramBotToken == "" || cfg.TelegramChannel == "" {
		log.Println("ERROR: TELEGRAM_BOT_TOKEN and TELEGRAM_CHANNEL_USERNAME are required")
		os.Exit(1)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Printf("ERROR: failed to create bot API: %v", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Printf("ERROR: failed to open storage: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	sources := lo.Map(config.Sources(), func(src model.Source, _ int) fetcher.Source {
		return source.NewRSSSource(src, cfg.FetchTimeout, cfg.PerFeedLimit)
	})

	// No in-memory cache here: every dedupe check goes straight to storage.
	pipeline := fetcher.New(sources, store, store, cfg.MinScore, cfg.MaxBatchSize, cfg.SourceDelay)
	notif := notifier.New(botAPI, store, nil, cfg.TelegramChannel, cfg.SendDelay)
	run := runner.New(pipeline, notif, nil, nil, 0, 0)

	if err := run.Cycle(context.Background()); err != nil {
		log.Printf("ERROR: cycle failed: %v", err)
		os.Exit(1)
	}
}
