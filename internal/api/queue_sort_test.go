package api

import "testing"

func TestSortQueueItemsNewestFirst(t *testing.T) {
	items := []QueueItem{
		{ID: 1, CreatedAt: "2025-03-14T09:00:00.000Z"},
		{ID: 3, CreatedAt: "2025-03-14T11:00:00.000Z"},
		{ID: 2, CreatedAt: "2025-03-14T10:00:00.000Z"},
	}

	sorted := SortQueueItemsNewestFirst(items)
	if len(sorted) != 3 {
		t.Fatalf("expected 3 items, got %d", len(sorted))
	}
	if sorted[0].ID != 3 || sorted[1].ID != 2 || sorted[2].ID != 1 {
		t.Fatalf("unexpected order: %d %d %d", sorted[0].ID, sorted[1].ID, sorted[2].ID)
	}
	if items[0].ID != 1 {
		t.Fatalf("expected input slice to remain unchanged, got leading id %d", items[0].ID)
	}
}

func TestSortQueueItemsBreaksTiesByID(t *testing.T) {
	stamp := "2025-03-14T09:00:00.000Z"
	items := []QueueItem{
		{ID: 4, CreatedAt: stamp},
		{ID: 9, CreatedAt: stamp},
	}
	sorted := SortQueueItemsNewestFirst(items)
	if sorted[0].ID != 9 || sorted[1].ID != 4 {
		t.Fatalf("unexpected tie-break order: %d %d", sorted[0].ID, sorted[1].ID)
	}
}

func TestParseQueueTimeHandlesEmptyAndInvalid(t *testing.T) {
	if !ParseQueueTime("").IsZero() {
		t.Fatal("expected zero time for empty input")
	}
	if !ParseQueueTime("not-a-time").IsZero() {
		t.Fatal("expected zero time for invalid input")
	}
	if ParseQueueTime("2025-03-14T09:26:53.000Z").IsZero() {
		t.Fatal("expected parse to succeed for API timestamp format")
	}
}
