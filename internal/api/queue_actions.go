package api

import (
	"context"

	"spool/internal/queue"
)

// QueueActionService captures the queue operations the per-item batch
// actions need.
type QueueActionService interface {
	Describe(ctx context.Context, id int64) (*QueueItem, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
}

// QueueRemover deletes one item, reporting whether it existed.
type QueueRemover interface {
	Remove(ctx context.Context, id int64) (bool, error)
}

// RetryItemsResult buckets a batch retry by what happened to each ID.
type RetryItemsResult struct {
	Updated []int64 `json:"updated"`
	Missing []int64 `json:"missing"`
	Skipped []int64 `json:"skipped"`
}

// RetryFailedItemsByID resets failed and review items to pending. IDs that do
// not exist land in Missing; items in any other state are left untouched and
// land in Skipped. The first queue error aborts the batch.
func RetryFailedItemsByID(ctx context.Context, service QueueActionService, ids []int64) (RetryItemsResult, error) {
	var result RetryItemsResult
	for _, id := range ids {
		item, err := service.Describe(ctx, id)
		if err != nil {
			return RetryItemsResult{}, err
		}
		if item == nil {
			result.Missing = append(result.Missing, id)
			continue
		}
		status, ok := queue.ParseStatus(item.Status)
		if !ok || (status != queue.StatusFailed && status != queue.StatusReview) {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		updated, err := service.Retry(ctx, []int64{id})
		if err != nil {
			return RetryItemsResult{}, err
		}
		if updated > 0 {
			result.Updated = append(result.Updated, id)
			continue
		}
		result.Skipped = append(result.Skipped, id)
	}
	return result, nil
}

// RemoveItemsResult buckets a batch remove into deleted and already-absent IDs.
type RemoveItemsResult struct {
	Removed []int64 `json:"removed"`
	Missing []int64 `json:"missing"`
}

// RemoveItemsByID removes queue items one at a time so absent IDs are
// reported rather than silently skipped.
func RemoveItemsByID(ctx context.Context, remover QueueRemover, ids []int64) (RemoveItemsResult, error) {
	var result RemoveItemsResult
	for _, id := range ids {
		removed, err := remover.Remove(ctx, id)
		if err != nil {
			return RemoveItemsResult{}, err
		}
		if removed {
			result.Removed = append(result.Removed, id)
			continue
		}
		result.Missing = append(result.Missing, id)
	}
	return result, nil
}
