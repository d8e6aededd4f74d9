// Package bot routes incoming Telegram updates: greetings, link intake with
// the format keyboard, and format callbacks that enqueue download requests.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"spool/internal/config"
	"spool/internal/links"
	"spool/internal/logging"
	"spool/internal/notifications"
	"spool/internal/queue"
	"spool/internal/services/telegram"
)

const defaultPendingTTL = 15 * time.Minute

// ChatAPI is the slice of the Telegram client the router talks through.
type ChatAPI interface {
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (*telegram.Message, error)
	EditMessageText(ctx context.Context, req telegram.EditMessageRequest) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// pendingLink is a submitted URL waiting for the chat to pick MP3 or MP4.
type pendingLink struct {
	url      string
	storedAt time.Time
}

// Router handles updates from the poller or the webhook receiver. It keeps a
// chat-scoped map of the last submitted link; the map is in-memory only, so a
// restart just means the user resends the link.
type Router struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	client   ChatAPI
	notifier notifications.Service

	pendingTTL time.Duration

	mu      sync.Mutex
	pending map[int64]pendingLink
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithPendingTTL overrides how long a submitted link waits for a format choice.
func WithPendingTTL(ttl time.Duration) RouterOption {
	return func(r *Router) {
		if ttl > 0 {
			r.pendingTTL = ttl
		}
	}
}

// NewRouter constructs the update router.
func NewRouter(cfg *config.Config, store *queue.Store, logger *slog.Logger, client ChatAPI, notifier notifications.Service, opts ...RouterOption) *Router {
	router := &Router{
		cfg:        cfg,
		store:      store,
		logger:     logging.NewComponentLogger(logger, "bot"),
		client:     client,
		notifier:   notifier,
		pendingTTL: defaultPendingTTL,
		pending:    make(map[int64]pendingLink),
	}
	for _, opt := range opts {
		opt(router)
	}
	return router
}

// HandleUpdate dispatches one update. Errors are logged, not returned: the
// update sources fire and forget, and a failed reply must not stop the loop.
func (r *Router) HandleUpdate(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		r.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		r.handleMessage(ctx, update.Message)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *telegram.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	chatID := msg.Chat.ID

	switch command(text) {
	case "/start", "/help":
		r.reply(ctx, chatID, GreetingText)
		return
	}

	url, found := links.Extract(text)
	if !found || !links.Allowed(url, r.cfg.Download.AllowedDomains) {
		r.reply(ctx, chatID, UnsupportedURLText)
		return
	}

	canonical, err := links.Canonicalize(url)
	if err != nil {
		canonical = url
	}
	r.rememberLink(chatID, canonical)

	_, err = r.client.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:         chatID,
		Text:           ChooseFormatText,
		ReplyMarkup:    FormatKeyboard(),
		DisablePreview: true,
	})
	if err != nil {
		r.logger.Warn("failed to send format prompt", logging.Int64("chat_id", chatID), logging.Error(err))
		return
	}
	r.logger.Info("link accepted", logging.Int64("chat_id", chatID), logging.String("source", links.SourceHost(canonical)))
}

func (r *Router) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if err := r.client.AnswerCallbackQuery(ctx, cb.ID, ""); err != nil {
		r.logger.Warn("failed to answer callback", logging.Error(err))
	}
	if cb.Message == nil {
		r.logger.Warn("callback without source message", logging.String("data", cb.Data))
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	kind, known := queue.ParseMediaKind(cb.Data)
	if !known {
		r.logger.Warn("unknown callback data", logging.String("data", cb.Data), logging.Int64("chat_id", chatID))
		return
	}

	url, waiting := r.lookupLink(chatID)
	if !waiting {
		r.editPrompt(ctx, chatID, messageID, MissingURLText)
		return
	}

	existing, err := r.store.FindActiveByURL(ctx, url, chatID)
	if err != nil {
		r.logger.Warn("dedupe lookup failed", logging.Error(err))
	}
	if existing != nil && existing.MediaKind == kind {
		r.editPrompt(ctx, chatID, messageID, AlreadyQueuedText)
		return
	}

	item, err := r.store.NewRequest(ctx, url, links.SourceHost(url), kind, chatID, messageID, cb.From.DisplayName())
	if err != nil {
		r.logger.Error("failed to enqueue request", logging.Int64("chat_id", chatID), logging.Error(err))
		r.editPrompt(ctx, chatID, messageID, ErrorText("could not queue this link, try again"))
		return
	}

	r.editPrompt(ctx, chatID, messageID, DownloadingText(kind))
	r.logger.Info(
		"request queued",
		logging.Int64("item_id", item.ID),
		logging.Int64("chat_id", chatID),
		logging.String("media_kind", string(kind)),
	)
	if r.notifier != nil {
		if err := r.notifier.NotifyItemQueued(ctx, item.DisplayTitle(), string(kind)); err != nil {
			r.logger.Warn("failed to send queued notification", logging.Error(err))
		}
	}
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	_, err := r.client.SendMessage(ctx, telegram.SendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		r.logger.Warn("failed to send reply", logging.Int64("chat_id", chatID), logging.Error(err))
	}
}

func (r *Router) editPrompt(ctx context.Context, chatID, messageID int64, text string) {
	err := r.client.EditMessageText(ctx, telegram.EditMessageRequest{ChatID: chatID, MessageID: messageID, Text: text})
	if err != nil {
		r.logger.Warn("failed to edit prompt", logging.Int64("chat_id", chatID), logging.Error(err))
	}
}

// rememberLink stores the chat's latest link; a newer link replaces an older
// one the way the original per-user state did.
func (r *Router) rememberLink(chatID int64, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for chat, entry := range r.pending {
		if now.Sub(entry.storedAt) > r.pendingTTL {
			delete(r.pending, chat)
		}
	}
	r.pending[chatID] = pendingLink{url: url, storedAt: now}
}

// lookupLink returns the chat's pending link. The entry stays in place so the
// user can request the other format from the same prompt; dedupe catches
// repeat presses of the same button.
func (r *Router) lookupLink(chatID int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.pending[chatID]
	if !ok {
		return "", false
	}
	if time.Since(entry.storedAt) > r.pendingTTL {
		delete(r.pending, chatID)
		return "", false
	}
	return entry.url, true
}

// FormatKeyboard is the MP3/MP4 chooser attached to the format prompt.
func FormatKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: ButtonMP3, CallbackData: CallbackMP3},
			{Text: ButtonMP4, CallbackData: CallbackMP4},
		}},
	}
}

func command(text string) string {
	first := strings.Fields(text)[0]
	if i := strings.IndexByte(first, '@'); i > 0 {
		first = first[:i]
	}
	return first
}
