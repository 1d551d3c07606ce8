package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"newsbot/internal/config"
	"newsbot/internal/dedup"
	"newsbot/internal/fetcher"
	"newsbot/internal/model"
	"newsbot/internal/notifier"
	"newsbot/internal/runner"
	"newsbot/internal/source"
	"newsbot/internal/storage"
)

func main() {
	cfg := config.Get()

	token := cfg.TelegramBotToken
	channel := cfg.TelegramChannel

	if token == "" || channel == "" {
		token, channel = promptCredentials()
	}
	channel = config.NormalizeChannel(channel)

	botAPI, err := tgbotapi.NewBotAPI(token)
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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cache := dedup.NewCache(store, cfg.CacheWindow, cfg.CacheLimit)
	if err := cache.Reload(ctx); err != nil {
		log.Printf("ERROR: failed to load delivered cache: %v", err)
		os.Exit(1)
	}
	log.Printf("loaded %d delivered articles to cache", cache.Len())

	sources := lo.Map(config.Sources(), func(src model.Source, _ int) fetcher.Source {
		return source.NewRSSSource(src, cfg.FetchTimeout, cfg.PerFeedLimit)
	})

	pipeline := fetcher.New(sources, store, cache, cfg.MinScore, cfg.MaxBatchSize, cfg.SourceDelay)
	notif := notifier.New(botAPI, store, cache, channel, cfg.SendDelay)
	run := runner.New(pipeline, notif, store, cache, cfg.FetchInterval, cfg.RetryBackoff)

	log.Printf("monitoring %d sources for %s, checking every %s", len(sources), channel, cfg.FetchInterval)

	if err := run.Run(ctx); err != nil {
		log.Printf("ERROR: runner stopped: %v", err)
		os.Exit(1)
	}

	log.Println("bot stopped")
}

// promptCredentials asks for the bot token and channel username on stdin
// when the environment does not provide them.
func promptCredentials() (string, string) {
	fmt.Println("Telegram channel setup")
	fmt.Println("You can also set environment variables:")
	fmt.Println("  TELEGRAM_BOT_TOKEN=your_bot_token")
	fmt.Println("  TELEGRAM_CHANNEL_USERNAME=@your_channel")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Enter bot token: ")
	token, _ := reader.ReadString('\n')

	fmt.Print("Enter channel username (@channel): ")
	channel, _ := reader.ReadString('\n')

	token = strings.TrimSpace(token)
	channel = strings.TrimSpace(channel)

	if token == "" || channel == "" {
		log.Println("ERROR: both token and channel username are required")
		os.Exit(1)
	}

	return token, channel
}
