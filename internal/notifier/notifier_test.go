package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newsbot/internal/model"
)

type fakeAPI struct {
	sent     []tgbotapi.MessageConfig
	pins     []tgbotapi.PinChatMessageConfig
	failNext int
	pinErr   error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.failNext > 0 {
		f.failNext--
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}

	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg)

	return tgbotapi.Message{
		MessageID: len(f.sent),
		Chat:      &tgbotapi.Chat{ID: 42},
	}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if pin, ok := c.(tgbotapi.PinChatMessageConfig); ok {
		f.pins = append(f.pins, pin)
	}
	if f.pinErr != nil {
		return nil, f.pinErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakeStore struct {
	marked []string
}

func (f *fakeStore) MarkDelivered(_ context.Context, hash string) error {
	f.marked = append(f.marked, hash)
	return nil
}

type fakeCache struct {
	added []string
}

func (f *fakeCache) Add(hash string) {
	f.added = append(f.added, hash)
}

func article(title string, score int) model.Article {
	return model.Article{
		Title:           title,
		URL:             "https://example.com/a",
		Source:          "Test Source",
		ScrapedAt:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ImportanceScore: score,
		ContentHash:     "hash-" + title,
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		score int
		label string
		pin   bool
	}{
		{15, "URGENT", true},
		{12, "URGENT", true},
		{11, "BREAKING", false},
		{9, "BREAKING", false},
		{8, "HIGH IMPACT", false},
		{7, "HIGH IMPACT", false},
	}

	for _, tt := range tests {
		tier := TierFor(tt.score)
		if tier.Label != tt.label || tier.Pin != tt.pin {
			t.Errorf("TierFor(%d) = %+v, want label %q pin %v", tt.score, tier, tt.label, tt.pin)
		}
	}
}

func TestDeliverMarksAndCaches(t *testing.T) {
	api := &fakeAPI{}
	store := &fakeStore{}
	cache := &fakeCache{}
	n := New(api, store, cache, "@channel", 0)

	articles := []model.Article{article("First", 10), article("Second", 8)}

	delivered := n.Deliver(context.Background(), articles)

	if len(delivered) != 2 {
		t.Fatalf("delivered %d, want 2", len(delivered))
	}
	if len(api.sent) != 2 {
		t.Errorf("sent %d messages, want 2", len(api.sent))
	}
	if len(store.marked) != 2 || store.marked[0] != "hash-First" {
		t.Errorf("marked = %v", store.marked)
	}
	if len(cache.added) != 2 {
		t.Errorf("cached = %v", cache.added)
	}
}

func TestDeliverSendFailureLeavesUndelivered(t *testing.T) {
	api := &fakeAPI{failNext: 1}
	store := &fakeStore{}
	n := New(api, store, nil, "@channel", 0)

	articles := []model.Article{article("First", 10), article("Second", 8)}

	delivered := n.Deliver(context.Background(), articles)

	if len(delivered) != 1 || delivered[0].Title != "Second" {
		t.Fatalf("delivered = %+v, want only Second", delivered)
	}
	if len(store.marked) != 1 || store.marked[0] != "hash-Second" {
		t.Errorf("marked = %v, want only hash-Second", store.marked)
	}
}

func TestDeliverPinsUrgentOnly(t *testing.T) {
	api := &fakeAPI{}
	n := New(api, &fakeStore{}, nil, "@channel", 0)

	n.Deliver(context.Background(), []model.Article{
		article("Urgent", 13),
		article("Normal", 8),
	})

	if len(api.pins) != 1 {
		t.Fatalf("pinned %d messages, want 1", len(api.pins))
	}
	if api.pins[0].ChatID != 42 || api.pins[0].MessageID != 1 {
		t.Errorf("unexpected pin target: %+v", api.pins[0])
	}
}

func TestDeliverPinFailureIgnored(t *testing.T) {
	api := &fakeAPI{pinErr: errors.New("not enough rights")}
	store := &fakeStore{}
	n := New(api, store, nil, "@channel", 0)

	delivered := n.Deliver(context.Background(), []model.Article{article("Urgent", 14)})

	if len(delivered) != 1 {
		t.Errorf("pin failure affected delivery: %d delivered", len(delivered))
	}
	if len(store.marked) != 1 {
		t.Errorf("pin failure affected mark-delivered: %v", store.marked)
	}
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(model.Article{
		Title:           "Big acquisition announced",
		URL:             "https://example.com/story",
		Source:          "TechCrunch",
		ScrapedAt:       time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		ImportanceScore: 12,
	})

	for _, want := range []string{
		"🚨 *URGENT*",
		"*Big acquisition announced*",
		"_TechCrunch_",
		`Impact Score: 12/15`,
		`https://example\.com/story`,
		`\#TechNews`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestEscapeForMarkdown(t *testing.T) {
	got := EscapeForMarkdown("a-b.c!")
	if got != `a\-b\.c\!` {
		t.Errorf("EscapeForMarkdown = %q", got)
	}
}
