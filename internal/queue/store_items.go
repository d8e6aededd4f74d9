package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NewRequest inserts a new item for a submitted media URL awaiting resolution.
func (s *Store) NewRequest(ctx context.Context, url, source string, kind MediaKind, chatID, messageID int64, requestedBy string) (*Item, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("url must not be empty")
	}
	if _, ok := ParseMediaKind(string(kind)); !ok {
		return nil, fmt.Errorf("unknown media kind %q", kind)
	}
	if chatID == 0 {
		return nil, errors.New("chat id must not be zero")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.exec(
		ctx,
		`INSERT INTO queue_items (
            url, source, media_kind, chat_id, message_id, requested_by,
            status, created_at, updated_at, progress_stage, progress_percent, progress_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		url,
		nullableString(source),
		string(kind),
		chatID,
		nullableInt64(messageID),
		nullableString(requestedBy),
		StatusPending,
		timestamp,
		timestamp,
		nil,
		0.0,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// NewLocalRequest inserts an item submitted by the operator through the CLI or
// API rather than a chat. The item has no destination chat; its output stays
// in the staging directory after delivery.
func (s *Store) NewLocalRequest(ctx context.Context, url, source string, kind MediaKind, requestedBy string) (*Item, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("url must not be empty")
	}
	if _, ok := ParseMediaKind(string(kind)); !ok {
		return nil, fmt.Errorf("unknown media kind %q", kind)
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.exec(
		ctx,
		`INSERT INTO queue_items (
            url, source, media_kind, chat_id, requested_by,
            status, created_at, updated_at, progress_stage, progress_percent, progress_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		url,
		nullableString(source),
		string(kind),
		0,
		nullableString(requestedBy),
		StatusPending,
		timestamp,
		timestamp,
		nil,
		0.0,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("insert local request: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// FindActiveByURL returns the first non-terminal item for the same URL and
// chat, used to deduplicate repeat submissions.
func (s *Store) FindActiveByURL(ctx context.Context, url string, chatID int64) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items
         WHERE url = ? AND chat_id = ? AND status NOT IN (?, ?, ?)
         ORDER BY id LIMIT 1`,
		url,
		chatID,
		StatusCompleted,
		StatusFailed,
		StatusReview,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active by url: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if _, err := s.exec(
		ctx,
		`UPDATE queue_items
         SET url = ?, source = ?, media_kind = ?, chat_id = ?, message_id = ?,
             requested_by = ?, title = ?, duration_seconds = ?, status = ?,
             progress_stage = ?, progress_percent = ?, progress_message = ?,
             error_message = ?, work_dir = ?, source_file = ?, output_file = ?,
             delivered_file_id = ?, retry_count = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ?`,
		item.URL,
		nullableString(item.Source),
		string(item.MediaKind),
		item.ChatID,
		nullableInt64(item.MessageID),
		nullableString(item.RequestedBy),
		nullableString(item.Title),
		item.DurationSeconds,
		item.Status,
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		nullableString(item.ErrorMessage),
		nullableString(item.WorkDir),
		nullableString(item.SourceFile),
		nullableString(item.OutputFile),
		nullableString(item.DeliveredFileID),
		item.RetryCount,
		nullableTime(item.LastHeartbeat),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// UpdateProgress persists only the progress fields, leaving the heartbeat and
// lifecycle columns untouched so frequent progress writes cannot race stage
// transitions.
func (s *Store) UpdateProgress(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if _, err := s.exec(
		ctx,
		`UPDATE queue_items
         SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// ItemsByStatus returns items matching a status ordered by creation time.
func (s *Store) ItemsByStatus(ctx context.Context, status Status) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// List returns queue items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextForStatuses returns the oldest item matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + itemColumns + ` FROM queue_items WHERE status IN (` + placeholders + `) ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed items from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM queue_items WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all items from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes failed and review items from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM queue_items WHERE status IN (?, ?)`, StatusFailed, StatusReview)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}
