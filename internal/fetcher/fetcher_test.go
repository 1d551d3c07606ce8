package fetcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"newsbot/internal/dedup"
	"newsbot/internal/model"
	"newsbot/internal/storage"
)

type fakeSource struct {
	name  string
	items []model.Item
	err   error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(_ context.Context) ([]model.Item, error) {
	return f.items, f.err
}

type memStore struct {
	mu      sync.Mutex
	records map[string]model.DeliveryRecord
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]model.DeliveryRecord)}
}

func (m *memStore) Upsert(_ context.Context, rec model.DeliveryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ContentHash] = rec
	return nil
}

type memIndex struct {
	delivered map[string]bool
	err       error
}

func (m *memIndex) IsDelivered(_ context.Context, hash string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.delivered[hash], nil
}

func item(title, link, desc string) model.Item {
	return model.Item{Title: title, Link: link, Description: desc}
}

// Three qualifying items among twelve: scores 15, 12, and 8.
func mixedItems() []model.Item {
	items := []model.Item{
		item("Massive layoffs at Infosys", "https://example.com/q1", ""),
		item("Town council meets on tuesday", "https://example.com/j1", ""),
		item("Market moves today", "https://example.com/q2", "ipo and funding on the agenda"),
		item("New park opens downtown", "https://example.com/j2", ""),
		item("Search competition intensifies", "https://example.com/q3", "google and microsoft rivalry"),
	}
	for i := 0; i < 7; i++ {
		items = append(items, item(
			fmt.Sprintf("Library hours extended again %d", i),
			fmt.Sprintf("https://example.com/j%d", i+3),
			"",
		))
	}
	return items
}

func TestCollectFiltersRanksAndTruncates(t *testing.T) {
	src := &fakeSource{name: "test", items: mixedItems()}
	f := New([]Source{src}, newMemStore(), &memIndex{delivered: map[string]bool{}}, 7, 10, 0)

	got := f.Collect(context.Background())

	if len(got) != 3 {
		t.Fatalf("got %d articles, want 3", len(got))
	}

	wantTitles := []string{"Massive layoffs at Infosys", "Market moves today", "Search competition intensifies"}
	for i, want := range wantTitles {
		if got[i].Title != want {
			t.Errorf("position %d: got %q, want %q", i, got[i].Title, want)
		}
	}

	for i := 1; i < len(got); i++ {
		if got[i].ImportanceScore > got[i-1].ImportanceScore {
			t.Errorf("ranking not descending at %d: %d > %d", i, got[i].ImportanceScore, got[i-1].ImportanceScore)
		}
	}

	for _, a := range got {
		if a.ImportanceScore < 7 {
			t.Errorf("article below threshold selected: %+v", a)
		}
	}
}

func TestCollectBatchCap(t *testing.T) {
	var items []model.Item
	for i := 0; i < 12; i++ {
		items = append(items, item(
			fmt.Sprintf("Rivalry update %d", i),
			fmt.Sprintf("https://example.com/%d", i),
			"google and microsoft rivalry",
		))
	}

	src := &fakeSource{name: "test", items: items}
	f := New([]Source{src}, newMemStore(), &memIndex{delivered: map[string]bool{}}, 7, 10, 0)

	got := f.Collect(context.Background())

	if len(got) != 10 {
		t.Fatalf("got %d articles, want 10", len(got))
	}

	// Equal scores keep discovery order.
	for i, a := range got {
		want := fmt.Sprintf("Rivalry update %d", i)
		if a.Title != want {
			t.Errorf("position %d: got %q, want %q", i, a.Title, want)
		}
	}
}

func TestCollectSkipsDelivered(t *testing.T) {
	items := mixedItems()
	deliveredHash := dedup.Fingerprint("Massive layoffs at Infosys", "https://example.com/q1")

	src := &fakeSource{name: "test", items: items}
	f := New([]Source{src}, newMemStore(), &memIndex{delivered: map[string]bool{deliveredHash: true}}, 7, 10, 0)

	got := f.Collect(context.Background())

	if len(got) != 2 {
		t.Fatalf("got %d articles, want 2", len(got))
	}
	for _, a := range got {
		if a.ContentHash == deliveredHash {
			t.Error("delivered article selected again")
		}
	}
}

func TestCollectTieKeepsSourceOrder(t *testing.T) {
	srcA := &fakeSource{name: "A", items: []model.Item{
		item("Search competition intensifies", "https://example.com/a", "google and microsoft rivalry"),
	}}
	srcB := &fakeSource{name: "B", items: []model.Item{
		item("Cloud rivalry deepens", "https://example.com/b", "amazon and microsoft rivalry"),
	}}

	f := New([]Source{srcA, srcB}, newMemStore(), &memIndex{delivered: map[string]bool{}}, 7, 10, 0)

	got := f.Collect(context.Background())

	if len(got) != 2 {
		t.Fatalf("got %d articles, want 2", len(got))
	}
	if got[0].Source != "A" || got[1].Source != "B" {
		t.Errorf("tie order broken: %s then %s", got[0].Source, got[1].Source)
	}
}

func TestCollectSourceFailureIsolated(t *testing.T) {
	broken := &fakeSource{name: "broken", err: errors.New("connection refused")}
	working := &fakeSource{name: "working", items: []model.Item{
		item("Massive layoffs at Infosys", "https://example.com/1", ""),
	}}

	f := New([]Source{broken, working}, newMemStore(), &memIndex{delivered: map[string]bool{}}, 7, 10, 0)

	got := f.Collect(context.Background())

	if len(got) != 1 || got[0].Source != "working" {
		t.Errorf("expected one article from the working source, got %+v", got)
	}
}

func TestCollectDedupeErrorMeansNotDelivered(t *testing.T) {
	src := &fakeSource{name: "test", items: []model.Item{
		item("Massive layoffs at Infosys", "https://example.com/1", ""),
	}}

	f := New([]Source{src}, newMemStore(), &memIndex{err: errors.New("db locked")}, 7, 10, 0)

	got := f.Collect(context.Background())

	if len(got) != 1 {
		t.Errorf("dedupe failure dropped the article: got %d", len(got))
	}
}

func TestCollectUpsertsCandidates(t *testing.T) {
	store := newMemStore()
	src := &fakeSource{name: "test", items: mixedItems()}
	f := New([]Source{src}, store, &memIndex{delivered: map[string]bool{}}, 7, 10, 0)

	f.Collect(context.Background())

	if len(store.records) != 3 {
		t.Errorf("stored %d records, want 3", len(store.records))
	}
	for _, rec := range store.records {
		if rec.Delivered {
			t.Errorf("scrape-time record already marked delivered: %+v", rec)
		}
	}
}

// Full pipeline against real storage: the second run over identical entries
// delivers nothing once the first run's batch is marked delivered.
func TestPipelineIdempotentWithStore(t *testing.T) {
	ctx := context.Background()

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	src := &fakeSource{name: "test", items: mixedItems()}
	f := New([]Source{src}, store, store, 7, 10, 0)

	first := f.Collect(ctx)
	if len(first) != 3 {
		t.Fatalf("first run: got %d articles, want 3", len(first))
	}

	for _, a := range first {
		if err := store.MarkDelivered(ctx, a.ContentHash); err != nil {
			t.Fatalf("MarkDelivered: %v", err)
		}
	}

	second := f.Collect(ctx)
	if len(second) != 0 {
		t.Errorf("second run delivered %d articles, want 0", len(second))
	}
}
