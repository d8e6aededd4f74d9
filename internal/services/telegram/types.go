package telegram

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// WebhookSecretHeader is the header Telegram echoes back on webhook deliveries
// when a secret token was registered with setWebhook.
const WebhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Update is one event delivered by getUpdates or a webhook POST.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

// Message is a chat message, possibly carrying delivered media.
type Message struct {
	MessageID int64     `json:"message_id"`
	From      *User     `json:"from"`
	Chat      Chat      `json:"chat"`
	Date      int64     `json:"date"`
	Text      string    `json:"text"`
	Audio     *Audio    `json:"audio"`
	Video     *Video    `json:"video"`
	Document  *Document `json:"document"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

// User identifies a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// DisplayName returns the best human-readable identifier for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// CallbackQuery is a press on an inline keyboard button.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

// Audio describes an uploaded audio file.
type Audio struct {
	FileID   string `json:"file_id"`
	Duration int64  `json:"duration"`
	Title    string `json:"title"`
}

// Video describes an uploaded video file.
type Video struct {
	FileID   string `json:"file_id"`
	Duration int64  `json:"duration"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Document describes a generic uploaded file.
type Document struct {
	FileID string `json:"file_id"`
}

// DeliveredFileID returns the reusable file identifier of whatever media the
// message carries, or empty when it carries none.
func (m *Message) DeliveredFileID() string {
	switch {
	case m == nil:
		return ""
	case m.Audio != nil:
		return m.Audio.FileID
	case m.Video != nil:
		return m.Video.FileID
	case m.Document != nil:
		return m.Document.FileID
	default:
		return ""
	}
}

// InlineKeyboardButton is one button of an inline keyboard.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

// InlineKeyboardMarkup is the reply markup for messages with inline buttons.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// ResponseParameters carries Bot API backoff hints on failures.
type ResponseParameters struct {
	RetryAfter      int   `json:"retry_after"`
	MigrateToChatID int64 `json:"migrate_to_chat_id"`
}

// APIError is a Bot API failure envelope turned into an error.
type APIError struct {
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("telegram api error %d: %s (retry after %s)", e.Code, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// apiResponse is the envelope every Bot API method responds with.
type apiResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result"`
	Description string              `json:"description"`
	ErrorCode   int                 `json:"error_code"`
	Parameters  *ResponseParameters `json:"parameters"`
}

func (r apiResponse) err() error {
	if r.OK {
		return nil
	}
	apiErr := &APIError{Code: r.ErrorCode, Description: r.Description}
	if r.Parameters != nil && r.Parameters.RetryAfter > 0 {
		apiErr.RetryAfter = time.Duration(r.Parameters.RetryAfter) * time.Second
	}
	return apiErr
}

// ParseUpdate decodes a single webhook-delivered update.
func ParseUpdate(r io.Reader) (Update, error) {
	var update Update
	if err := json.NewDecoder(r).Decode(&update); err != nil {
		return Update{}, fmt.Errorf("decode telegram update: %w", err)
	}
	return update, nil
}
