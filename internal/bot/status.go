package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"spool/internal/logging"
	"spool/internal/services/telegram"
)

// StatusEditor updates the per-item status message in the originating chat.
// Stage handlers report progress through it without knowing Telegram details.
type StatusEditor interface {
	// Edit applies a rate-limited edit. Repeats of the current text and edits
	// inside the throttle window are silently dropped.
	Edit(ctx context.Context, chatID, messageID int64, text string) error
	// EditNow bypasses the throttle for milestone edits (resolved title,
	// completion, failure) while still deduping identical text.
	EditNow(ctx context.Context, chatID, messageID int64, text string) error
}

// MessageEditor is the slice of the Telegram client the editor needs.
type MessageEditor interface {
	EditMessageText(ctx context.Context, req telegram.EditMessageRequest) error
}

const (
	defaultEditInterval = 3 * time.Second
	statusStateLimit    = 256
	statusStateMaxAge   = 10 * time.Minute
)

type messageState struct {
	lastText string
	lastEdit time.Time
}

// ThrottledStatus implements StatusEditor over the Bot API. Telegram rejects
// edits that do not change the text and rate-limits frequent ones, so the
// editor dedupes and spaces edits per message.
type ThrottledStatus struct {
	client   MessageEditor
	logger   *slog.Logger
	interval time.Duration

	mu    sync.Mutex
	state map[string]messageState
}

// StatusOption configures the editor.
type StatusOption func(*ThrottledStatus)

// WithEditInterval overrides the minimum spacing between throttled edits.
func WithEditInterval(interval time.Duration) StatusOption {
	return func(t *ThrottledStatus) {
		if interval > 0 {
			t.interval = interval
		}
	}
}

// NewStatusEditor builds the production status editor.
func NewStatusEditor(client MessageEditor, logger *slog.Logger, opts ...StatusOption) *ThrottledStatus {
	if logger == nil {
		logger = logging.NewNop()
	}
	editor := &ThrottledStatus{
		client:   client,
		logger:   logging.NewComponentLogger(logger, "status"),
		interval: defaultEditInterval,
		state:    make(map[string]messageState),
	}
	for _, opt := range opts {
		opt(editor)
	}
	return editor
}

func (t *ThrottledStatus) Edit(ctx context.Context, chatID, messageID int64, text string) error {
	return t.edit(ctx, chatID, messageID, text, true)
}

func (t *ThrottledStatus) EditNow(ctx context.Context, chatID, messageID int64, text string) error {
	return t.edit(ctx, chatID, messageID, text, false)
}

func (t *ThrottledStatus) edit(ctx context.Context, chatID, messageID int64, text string, throttled bool) error {
	if t == nil || t.client == nil {
		return nil
	}
	// Items enqueued outside a chat (CLI, API) have no status message.
	if chatID == 0 || messageID == 0 {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	key := fmt.Sprintf("%d:%d", chatID, messageID)
	now := time.Now()

	t.mu.Lock()
	entry := t.state[key]
	if entry.lastText == text {
		t.mu.Unlock()
		return nil
	}
	if throttled && now.Sub(entry.lastEdit) < t.interval {
		t.mu.Unlock()
		return nil
	}
	t.state[key] = messageState{lastText: text, lastEdit: now}
	t.pruneLocked(now)
	t.mu.Unlock()

	err := t.client.EditMessageText(ctx, telegram.EditMessageRequest{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	})
	if err != nil && !isNotModified(err) {
		t.logger.Debug("status edit failed",
			logging.Int64("chat_id", chatID),
			logging.Int64("message_id", messageID),
			logging.Error(err))
		return err
	}
	return nil
}

func (t *ThrottledStatus) pruneLocked(now time.Time) {
	if len(t.state) <= statusStateLimit {
		return
	}
	for key, entry := range t.state {
		if now.Sub(entry.lastEdit) > statusStateMaxAge {
			delete(t.state, key)
		}
	}
}

// isNotModified detects the Bot API complaint about editing a message to its
// current text, which can happen when two updates race past the dedupe.
func isNotModified(err error) bool {
	var apiErr *telegram.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Description), "message is not modified")
}
