package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"spool/internal/queue"
)

type stubQueueStorage struct {
	items    []*queue.Item
	stats    map[queue.Status]int
	itemErr  error
	statsErr error
}

func (s *stubQueueStorage) List(context.Context, ...queue.Status) ([]*queue.Item, error) {
	return s.items, s.itemErr
}

func (s *stubQueueStorage) Stats(context.Context) (map[queue.Status]int, error) {
	return s.stats, s.statsErr
}

func (s *stubQueueStorage) GetByID(context.Context, int64) (*queue.Item, error) {
	if len(s.items) == 0 {
		return nil, s.itemErr
	}
	return s.items[0], s.itemErr
}

func TestQueueViewList(t *testing.T) {
	now := time.Now().UTC()
	view := NewQueueView(&stubQueueStorage{
		items: []*queue.Item{{
			ID:        1,
			Title:     "Example",
			URL:       "https://example.com/watch?v=abc",
			MediaKind: queue.MediaKindMP4,
			Status:    queue.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}},
	})
	got, err := view.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unexpected item count: %d", len(got))
	}
	if got[0].Title != "Example" {
		t.Fatalf("unexpected title: %q", got[0].Title)
	}
	if got[0].Status != string(queue.StatusPending) {
		t.Fatalf("unexpected status: %q", got[0].Status)
	}
	if got[0].CreatedAt == "" || got[0].UpdatedAt == "" {
		t.Fatalf("expected timestamps to be formatted")
	}
}

func TestQueueViewListError(t *testing.T) {
	errSentinel := errors.New("boom")
	view := NewQueueView(&stubQueueStorage{itemErr: errSentinel})
	if _, err := view.List(context.Background()); !errors.Is(err, errSentinel) {
		t.Fatalf("expected error %v, got %v", errSentinel, err)
	}
}

func TestQueueViewStats(t *testing.T) {
	view := NewQueueView(&stubQueueStorage{stats: map[queue.Status]int{
		queue.StatusPending: 2,
		queue.StatusFailed:  1,
	}})
	got, err := view.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if got[string(queue.StatusPending)] != 2 {
		t.Fatalf("expected pending count 2, got %d", got[string(queue.StatusPending)])
	}
	if got[string(queue.StatusFailed)] != 1 {
		t.Fatalf("expected failed count 1, got %d", got[string(queue.StatusFailed)])
	}
}

func TestQueueViewDescribe(t *testing.T) {
	view := NewQueueView(&stubQueueStorage{items: []*queue.Item{{ID: 7, Title: "Clip"}}})
	item, err := view.Describe(context.Background(), 7)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if item == nil {
		t.Fatal("Describe returned nil item")
	}
	if item.ID != 7 {
		t.Fatalf("unexpected id: %d", item.ID)
	}
}

func TestQueueViewDescribeMissing(t *testing.T) {
	view := NewQueueView(&stubQueueStorage{})
	item, err := view.Describe(context.Background(), 99)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil for missing item, got %+v", item)
	}
}

func TestNewQueueViewNilStorage(t *testing.T) {
	view := NewQueueView(nil)
	if view != nil {
		t.Fatalf("expected nil view for nil storage, got %+v", view)
	}
	items, err := view.List(context.Background())
	if err != nil || items != nil {
		t.Fatalf("nil view should answer empty, got %v %v", items, err)
	}
}
