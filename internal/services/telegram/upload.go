package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"spool/internal/textutil"
)

// audioTitleLimit bounds the title shown in the Telegram audio player.
const audioTitleLimit = 64

// SendAudioRequest carries sendAudio parameters for a local file upload.
type SendAudioRequest struct {
	ChatID    int64
	FilePath  string
	Title     string
	Performer string
	Duration  int64
}

// SendVideoRequest carries sendVideo parameters for a local file upload.
type SendVideoRequest struct {
	ChatID            int64
	FilePath          string
	Duration          int64
	Width             int
	Height            int
	SupportsStreaming bool
}

// SendAudio uploads an MP3 to the chat. The visible title falls back to the
// file name and is truncated to the length the player displays.
func (c *Client) SendAudio(ctx context.Context, reqBody SendAudioRequest) (*Message, error) {
	title := strings.TrimSpace(reqBody.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(reqBody.FilePath), filepath.Ext(reqBody.FilePath))
	}
	title = textutil.TruncateRunes(title, audioTitleLimit)

	fields := map[string]string{
		"chat_id": strconv.FormatInt(reqBody.ChatID, 10),
		"title":   title,
	}
	if reqBody.Performer != "" {
		fields["performer"] = reqBody.Performer
	}
	if reqBody.Duration > 0 {
		fields["duration"] = strconv.FormatInt(reqBody.Duration, 10)
	}
	return c.uploadFile(ctx, "sendAudio", "audio", reqBody.FilePath, fields)
}

// SendVideo uploads an MP4 to the chat with streaming enabled so playback can
// start before the download finishes.
func (c *Client) SendVideo(ctx context.Context, reqBody SendVideoRequest) (*Message, error) {
	fields := map[string]string{
		"chat_id": strconv.FormatInt(reqBody.ChatID, 10),
	}
	if reqBody.SupportsStreaming {
		fields["supports_streaming"] = "true"
	}
	if reqBody.Duration > 0 {
		fields["duration"] = strconv.FormatInt(reqBody.Duration, 10)
	}
	if reqBody.Width > 0 {
		fields["width"] = strconv.Itoa(reqBody.Width)
	}
	if reqBody.Height > 0 {
		fields["height"] = strconv.Itoa(reqBody.Height)
	}
	return c.uploadFile(ctx, "sendVideo", "video", reqBody.FilePath, fields)
}

// uploadFile streams a multipart request so delivery never buffers the whole
// media file in memory.
func (c *Client) uploadFile(ctx context.Context, method, fileField, path string, fields map[string]string) (*Message, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("telegram %s: file path required", method)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("telegram %s: open upload: %w", method, err)
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		defer file.Close()
		for key, value := range fields {
			if err := writer.WriteField(key, value); err != nil {
				pw.CloseWithError(fmt.Errorf("write field %s: %w", key, err))
				return
			}
		}
		part, err := writer.CreateFormFile(fileField, filepath.Base(path))
		if err != nil {
			pw.CloseWithError(fmt.Errorf("create file part: %w", err))
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(fmt.Errorf("stream upload: %w", err))
			return
		}
		if err := writer.Close(); err != nil {
			pw.CloseWithError(fmt.Errorf("finish multipart: %w", err))
			return
		}
		pw.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), pr)
	if err != nil {
		return nil, fmt.Errorf("telegram %s: build request: %w", method, c.redact(err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.upload.Do(req)
	if err != nil {
		return nil, c.transportError(method, err)
	}
	defer resp.Body.Close()

	var msg Message
	if err := c.decodeResponse(method, resp.Body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// IsRetryAfter reports whether err is a rate-limit response and the wait
// Telegram asked for.
func IsRetryAfter(err error) (bool, int) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return true, int(apiErr.RetryAfter.Seconds())
	}
	return false, 0
}
