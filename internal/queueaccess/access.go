package queueaccess

import (
	"context"
	"fmt"
	"strings"

	"spool/internal/api"
	"spool/internal/ipc"
	"spool/internal/links"
	"spool/internal/queue"
)

// Access provides queue operations regardless of IPC or direct store backing.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.QueueItem, error)
	Describe(ctx context.Context, id int64) (*api.QueueItem, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
	ResetStuck(ctx context.Context) (int64, error)
	RetryAll(ctx context.Context) (int64, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
	DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error)
	Enqueue(ctx context.Context, url, kind string) (*api.QueueItem, bool, error)
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct DB access.
func NewStoreAccess(store *queue.Store) Access {
	return &storeAccess{store: store, view: api.NewQueueView(store)}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Stats(ctx context.Context) (map[string]int, error) {
	resp, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	if resp.QueueStats == nil {
		return map[string]int{}, nil
	}
	return resp.QueueStats, nil
}

func (a *ipcAccess) List(ctx context.Context, statuses []string) ([]api.QueueItem, error) {
	resp, err := a.client.QueueList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *ipcAccess) Describe(ctx context.Context, id int64) (*api.QueueItem, error) {
	resp, err := a.client.QueueDescribe(id)
	if err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, nil
	}
	item := resp.Item
	return &item, nil
}

func (a *ipcAccess) ClearAll(ctx context.Context) (int64, error) {
	resp, err := a.client.QueueClear()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ClearCompleted(ctx context.Context) (int64, error) {
	resp, err := a.client.QueueClearCompleted()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ClearFailed(ctx context.Context) (int64, error) {
	resp, err := a.client.QueueClearFailed()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) Remove(ctx context.Context, ids []int64) (int64, error) {
	resp, err := a.client.QueueRemove(ids)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ResetStuck(ctx context.Context) (int64, error) {
	resp, err := a.client.QueueReset()
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) RetryAll(ctx context.Context) (int64, error) {
	resp, err := a.client.QueueRetry(nil)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) Retry(ctx context.Context, ids []int64) (int64, error) {
	resp, err := a.client.QueueRetry(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) Health(ctx context.Context) (queue.HealthSummary, error) {
	resp, err := a.client.QueueHealth()
	if err != nil {
		return queue.HealthSummary{}, err
	}
	return queue.HealthSummary{
		Total:      resp.Total,
		Pending:    resp.Pending,
		Processing: resp.Processing,
		Failed:     resp.Failed,
		Review:     resp.Review,
		Completed:  resp.Completed,
	}, nil
}

func (a *ipcAccess) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	resp, err := a.client.DatabaseHealth()
	if err != nil {
		return queue.DatabaseHealth{}, err
	}
	return queue.DatabaseHealth{
		DBPath:           resp.DBPath,
		DatabaseExists:   resp.DatabaseExists,
		DatabaseReadable: resp.DatabaseReadable,
		SchemaVersion:    resp.SchemaVersion,
		TableExists:      resp.TableExists,
		ColumnsPresent:   resp.ColumnsPresent,
		MissingColumns:   resp.MissingColumns,
		IntegrityCheck:   resp.IntegrityCheck,
		TotalItems:       resp.TotalItems,
		Error:            resp.Error,
	}, nil
}

func (a *ipcAccess) Enqueue(ctx context.Context, url, kind string) (*api.QueueItem, bool, error) {
	resp, err := a.client.Enqueue(url, kind)
	if err != nil {
		return nil, false, err
	}
	item := resp.Item
	return &item, resp.Created, nil
}

type storeAccess struct {
	store   *queue.Store
	view    *api.QueueView
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	return a.view.Stats(ctx)
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]api.QueueItem, error) {
	parsed := make([]queue.Status, 0, len(statuses))
	for _, raw := range statuses {
		status, ok := queue.ParseStatus(raw)
		if !ok {
			continue
		}
		parsed = append(parsed, status)
	}
	return a.view.List(ctx, parsed...)
}

func (a *storeAccess) Describe(ctx context.Context, id int64) (*api.QueueItem, error) {
	return a.view.Describe(ctx, id)
}

func (a *storeAccess) ClearAll(ctx context.Context) (int64, error) {
	return a.store.Clear(ctx)
}

func (a *storeAccess) ClearCompleted(ctx context.Context) (int64, error) {
	return a.store.ClearCompleted(ctx)
}

func (a *storeAccess) ClearFailed(ctx context.Context) (int64, error) {
	return a.store.ClearFailed(ctx)
}

func (a *storeAccess) Remove(ctx context.Context, ids []int64) (int64, error) {
	var removed int64
	for _, id := range ids {
		ok, err := a.store.Remove(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

func (a *storeAccess) ResetStuck(ctx context.Context) (int64, error) {
	return a.store.ResetStuckProcessing(ctx)
}

func (a *storeAccess) RetryAll(ctx context.Context) (int64, error) {
	return a.store.RetryFailed(ctx)
}

func (a *storeAccess) Retry(ctx context.Context, ids []int64) (int64, error) {
	return a.store.RetryFailed(ctx, ids...)
}

func (a *storeAccess) Health(ctx context.Context) (queue.HealthSummary, error) {
	return a.store.Health(ctx)
}

func (a *storeAccess) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return a.store.CheckHealth(ctx)
}

// Enqueue inserts a local request directly into the store. Callers validate
// and canonicalize the URL first; dedupe against active items still applies
// so an offline add cannot double-queue a URL the daemon already holds.
func (a *storeAccess) Enqueue(ctx context.Context, url, kind string) (*api.QueueItem, bool, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, false, fmt.Errorf("url is empty")
	}
	mediaKind, ok := queue.ParseMediaKind(kind)
	if !ok {
		return nil, false, fmt.Errorf("unknown media kind %q", kind)
	}

	existing, err := a.store.FindActiveByURL(ctx, trimmed, 0)
	if err != nil {
		return nil, false, err
	}
	if existing != nil && existing.MediaKind == mediaKind {
		dto := api.FromQueueItem(existing)
		return &dto, false, nil
	}

	item, err := a.store.NewLocalRequest(ctx, trimmed, links.SourceHost(trimmed), mediaKind, "operator")
	if err != nil {
		return nil, false, err
	}
	dto := api.FromQueueItem(item)
	return &dto, true, nil
}
