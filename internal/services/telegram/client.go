package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// ErrTransport marks failures where the request never produced a Bot API
// response, so callers can tell network trouble from API rejections.
var ErrTransport = errors.New("telegram transport error")

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces every HTTP backend (primarily for tests).
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
			c.upload = doer
			c.poll = doer
		}
	}
}

// Client wraps Bot API interactions for one bot token.
type Client struct {
	baseURL string
	token   string
	http    HTTPDoer
	upload  HTTPDoer
	poll    HTTPDoer
}

// New constructs a Bot API client. Uploads get their own timeout because media
// near the size cap can take minutes on slow links; long polling gets no
// client-level timeout at all since the per-call context governs it.
func New(token, baseURL string, requestTimeoutSeconds, uploadTimeoutSeconds int, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram bot token required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: time.Duration(requestTimeoutSeconds) * time.Second},
		upload:  &http.Client{Timeout: time.Duration(uploadTimeoutSeconds) * time.Second},
		poll:    &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// endpoint builds the method URL. The token is part of the path, so every
// error that could carry the URL passes through redact first.
func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) redact(err error) error {
	if err == nil {
		return nil
	}
	text := err.Error()
	if !strings.Contains(text, c.token) {
		return err
	}
	return errors.New(strings.ReplaceAll(text, c.token, "***"))
}

// transportError shapes a failed Do call. Redaction flattens the original
// chain whenever the URL (and so the token) appears in its text, so the
// markers callers classify on are re-attached here.
func (c *Client) transportError(method string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("telegram %s: %w", method, context.Canceled)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("telegram %s: %w: %v", method, context.DeadlineExceeded, c.redact(err))
	default:
		return fmt.Errorf("telegram %s: %w: %v", method, ErrTransport, c.redact(err))
	}
}

// callMethod POSTs a JSON payload to a Bot API method and decodes the result
// envelope into out when provided.
func (c *Client) callMethod(ctx context.Context, doer HTTPDoer, method string, payload, out any) error {
	body := io.Reader(nil)
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("telegram %s: encode request: %w", method, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), body)
	if err != nil {
		return fmt.Errorf("telegram %s: build request: %w", method, c.redact(err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := doer.Do(req)
	if err != nil {
		return c.transportError(method, err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(method, resp.Body, out)
}

func (c *Client) decodeResponse(method string, r io.Reader, out any) error {
	var envelope apiResponse
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if err := envelope.err(); err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

// GetMe validates the token and returns the bot account.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.callMethod(ctx, c.http, "getMe", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SendMessageRequest carries sendMessage parameters.
type SendMessageRequest struct {
	ChatID           int64                 `json:"chat_id"`
	Text             string                `json:"text"`
	ReplyToMessageID int64                 `json:"reply_to_message_id,omitempty"`
	ReplyMarkup      *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	DisablePreview   bool                  `json:"disable_web_page_preview,omitempty"`
}

// SendMessage posts a text message to a chat.
func (c *Client) SendMessage(ctx context.Context, reqBody SendMessageRequest) (*Message, error) {
	var msg Message
	if err := c.callMethod(ctx, c.http, "sendMessage", reqBody, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageRequest carries editMessageText parameters.
type EditMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
}

// EditMessageText rewrites a previously sent message, typically the per-item
// status message. Editing a message to its current text is a Bot API error;
// callers throttle and dedupe, this method just reports it.
func (c *Client) EditMessageText(ctx context.Context, reqBody EditMessageRequest) error {
	// editMessageText returns the Message for normal chats but literal true
	// for inline messages, so the result payload is ignored.
	return c.callMethod(ctx, c.http, "editMessageText", reqBody, nil)
}

// AnswerCallbackQuery acknowledges an inline keyboard press so the client
// stops showing its progress spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return c.callMethod(ctx, c.http, "answerCallbackQuery", payload, nil)
}

// SendChatAction shows a typing/uploading indicator in the chat. Actions are
// the Bot API names, e.g. "upload_voice" or "upload_video".
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	payload := map[string]any{"chat_id": chatID, "action": action}
	return c.callMethod(ctx, c.http, "sendChatAction", payload, nil)
}

// SetWebhookRequest carries setWebhook parameters.
type SetWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// SetWebhook registers the public webhook URL with Telegram.
func (c *Client) SetWebhook(ctx context.Context, reqBody SetWebhookRequest) error {
	if strings.TrimSpace(reqBody.URL) == "" {
		return errors.New("webhook url required")
	}
	return c.callMethod(ctx, c.http, "setWebhook", reqBody, nil)
}

// DeleteWebhook removes a registered webhook, switching the bot back to
// polling mode.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	payload := map[string]any{"drop_pending_updates": dropPending}
	return c.callMethod(ctx, c.http, "deleteWebhook", payload, nil)
}

// GetUpdatesRequest carries getUpdates long-poll parameters.
type GetUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// GetUpdates long-polls for new updates. The HTTP deadline is the poll
// timeout plus grace so the server side can answer first.
func (c *Client) GetUpdates(ctx context.Context, reqBody GetUpdatesRequest) ([]Update, error) {
	callCtx := ctx
	if reqBody.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(reqBody.Timeout+10)*time.Second)
		defer cancel()
	}
	var updates []Update
	if err := c.callMethod(callCtx, c.poll, "getUpdates", reqBody, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}
