package notifier

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newsbot/internal/model"
)

// TelegramAPI is the slice of *tgbotapi.BotAPI the notifier needs.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type DeliveryStore interface {
	MarkDelivered(ctx context.Context, contentHash string) error
}

// DeliveredRecorder receives fingerprints of successfully sent articles.
type DeliveredRecorder interface {
	Add(contentHash string)
}

// Tier is the urgency classification derived from an importance score.
type Tier struct {
	Emoji string
	Label string
	Pin   bool
}

func TierFor(score int) Tier {
	switch {
	case score >= 12:
		return Tier{Emoji: "🚨", Label: "URGENT", Pin: true}
	case score >= 9:
		return Tier{Emoji: "📢", Label: "BREAKING"}
	default:
		return Tier{Emoji: "⚡", Label: "HIGH IMPACT"}
	}
}

// Notifier pushes selected articles to a single Telegram channel with
// pacing between sends.
type Notifier struct {
	api       TelegramAPI
	store     DeliveryStore
	cache     DeliveredRecorder // nil for the one-shot variant
	channel   string
	sendDelay time.Duration
}

func New(api TelegramAPI, store DeliveryStore, cache DeliveredRecorder,
	channel string, sendDelay time.Duration) *Notifier {

	return &Notifier{
		api:       api,
		store:     store,
		cache:     cache,
		channel:   channel,
		sendDelay: sendDelay,
	}
}

// Deliver sends each article in order and returns the successfully sent
// subset. A failed send is logged and skipped; its record stays undelivered
// so the article is eligible again next cycle.
func (n *Notifier) Deliver(ctx context.Context, articles []model.Article) []model.Article {
	var delivered []model.Article

	for i, article := range articles {
		if i > 0 {
			time.Sleep(n.sendDelay)
		}

		msg := tgbotapi.NewMessageToChannel(n.channel, FormatMessage(article))
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		msg.DisableWebPagePreview = false

		sent, err := n.api.Send(msg)
		if err != nil {
			log.Printf("ERROR: send %q failed: %v", article.Title, err)
			continue
		}

		if err := n.store.MarkDelivered(ctx, article.ContentHash); err != nil {
			log.Printf("ERROR: mark delivered failed: %v", err)
		}

		if n.cache != nil {
			n.cache.Add(article.ContentHash)
		}

		if TierFor(article.ImportanceScore).Pin {
			n.pin(sent)
		}

		delivered = append(delivered, article)
	}

	return delivered
}

// pin is fire-and-forget: pin failure is logged and otherwise ignored.
func (n *Notifier) pin(sent tgbotapi.Message) {
	cfg := tgbotapi.PinChatMessageConfig{MessageID: sent.MessageID}
	if sent.Chat != nil {
		cfg.ChatID = sent.Chat.ID
	} else {
		cfg.ChannelUsername = n.channel
	}

	if _, err := n.api.Request(cfg); err != nil {
		log.Printf("ERROR: pin message failed (ignored): %v", err)
	}
}

// SendStartup posts the one-time startup notice.
func (n *Notifier) SendStartup() error {
	text := "🚀 *" + EscapeForMarkdown("High-Impact Tech News Bot Started!") + "*\n\n" +
		EscapeForMarkdown("• ⚡ Only high-impact articles (score 7+)\n"+
			"• 🇮🇳 Indian + global tech news\n"+
			"• 💰 Major market events\n"+
			"• 📢 Breaking news alerts\n\n"+
			"🔄 Updates: every hour")

	msg := tgbotapi.NewMessageToChannel(n.channel, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send startup notice: %w", err)
	}

	return nil
}

// SendShutdown posts a best-effort offline notice; failure is swallowed.
func (n *Notifier) SendShutdown() {
	text := "⏸️ *" + EscapeForMarkdown("Bot offline for maintenance") + "*\n" +
		EscapeForMarkdown("High-impact news will resume shortly!")

	msg := tgbotapi.NewMessageToChannel(n.channel, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := n.api.Send(msg); err != nil {
		log.Printf("ERROR: shutdown notice failed (ignored): %v", err)
	}
}

// FormatMessage renders the channel message for one article.
func FormatMessage(article model.Article) string {
	tier := TierFor(article.ImportanceScore)

	return fmt.Sprintf(
		"%s *%s*\n\n*%s*\n\n📍 _%s_\n⭐ %s\n🕐 %s\n\n🔗 %s\n\n%s",
		tier.Emoji,
		EscapeForMarkdown(tier.Label),
		EscapeForMarkdown(article.Title),
		EscapeForMarkdown(article.Source),
		EscapeForMarkdown(fmt.Sprintf("Impact Score: %d/15", article.ImportanceScore)),
		EscapeForMarkdown(article.ScrapedAt.Format("2006-01-02 15:04")),
		EscapeForMarkdown(article.URL),
		EscapeForMarkdown("#TechNews #Breaking #HighImpact"),
	)
}

var replacer = strings.NewReplacer(
	"-", "\\-",
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeForMarkdown escapes MarkdownV2 special characters.
func EscapeForMarkdown(src string) string {
	return replacer.Replace(src)
}
