package api

import (
	"context"

	"spool/internal/queue"
)

// QueueStorage is the slice of queue.Store the view reads from.
type QueueStorage interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
}

// QueueView answers read-only queue queries with wire DTOs. It sits between
// the store and every surface that reports queue state: the HTTP API, the
// control socket, and direct CLI access.
type QueueView struct {
	store QueueStorage
}

// NewQueueView wraps store. A nil store yields a nil view, and a nil view
// answers every query with empty results.
func NewQueueView(store QueueStorage) *QueueView {
	if store == nil {
		return nil
	}
	return &QueueView{store: store}
}

// List returns queue items filtered by status.
func (v *QueueView) List(ctx context.Context, statuses ...queue.Status) ([]QueueItem, error) {
	if v == nil {
		return nil, nil
	}
	items, err := v.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromQueueItems(items), nil
}

// Stats returns queue counts keyed by status string.
func (v *QueueView) Stats(ctx context.Context) (map[string]int, error) {
	if v == nil {
		return nil, nil
	}
	stats, err := v.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return QueueStatsMap(stats), nil
}

// Describe fetches a single queue item, nil when absent.
func (v *QueueView) Describe(ctx context.Context, id int64) (*QueueItem, error) {
	if v == nil {
		return nil, nil
	}
	item, err := v.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromQueueItem(item)
	return &dto, nil
}
