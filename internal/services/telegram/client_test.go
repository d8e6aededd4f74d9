package telegram_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spool/internal/services/telegram"
)

const testToken = "12345:test-secret-token"

func newTestClient(t *testing.T, handler http.HandlerFunc) (*telegram.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := telegram.New(testToken, server.URL, 5, 10)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client, server
}

func TestSendMessageDecodesResult(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot"+testToken+"/sendMessage" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var body struct {
			ChatID int64  `json:"chat_id"`
			Text   string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.ChatID != 42 || body.Text != "hello" {
			t.Fatalf("unexpected request body: %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"ok":true,"result":{"message_id":7,"chat":{"id":42},"text":"hello"}}`)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	})

	msg, err := client.SendMessage(context.Background(), telegram.SendMessageRequest{ChatID: 42, Text: "hello"})
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if msg.MessageID != 7 || msg.Chat.ID != 42 {
		t.Fatalf("unexpected message: %#v", msg)
	}
}

func TestAPIErrorCarriesRetryAfter(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		if _, err := w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests: retry later","parameters":{"retry_after":7}}`)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	})

	_, err := client.SendMessage(context.Background(), telegram.SendMessageRequest{ChatID: 42, Text: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *telegram.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != 429 || apiErr.RetryAfter != 7*time.Second {
		t.Fatalf("unexpected APIError: %#v", apiErr)
	}
	retry, wait := telegram.IsRetryAfter(err)
	if !retry || wait != 7 {
		t.Fatalf("IsRetryAfter = %v, %d", retry, wait)
	}
}

func TestSendAudioMultipartLayout(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "song.mp3")
	if err := os.WriteFile(audioPath, []byte("mp3-payload"), 0o644); err != nil {
		t.Fatalf("write audio file: %v", err)
	}
	longTitle := strings.Repeat("x", 80)

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot"+testToken+"/sendAudio" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("chat_id"); got != "42" {
			t.Fatalf("unexpected chat_id field: %q", got)
		}
		if got := r.FormValue("title"); len([]rune(got)) != 64 {
			t.Fatalf("expected title truncated to 64 runes, got %d", len([]rune(got)))
		}
		if got := r.FormValue("duration"); got != "93" {
			t.Fatalf("unexpected duration field: %q", got)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("missing audio part: %v", err)
		}
		defer file.Close()
		if header.Filename != "song.mp3" {
			t.Fatalf("unexpected upload filename: %q", header.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"ok":true,"result":{"message_id":9,"chat":{"id":42},"audio":{"file_id":"file-abc","duration":93}}}`)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	})

	msg, err := client.SendAudio(context.Background(), telegram.SendAudioRequest{
		ChatID:   42,
		FilePath: audioPath,
		Title:    longTitle,
		Duration: 93,
	})
	if err != nil {
		t.Fatalf("SendAudio returned error: %v", err)
	}
	if msg.DeliveredFileID() != "file-abc" {
		t.Fatalf("unexpected delivered file id: %q", msg.DeliveredFileID())
	}
}

func TestSendVideoFields(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(videoPath, []byte("mp4-payload"), 0o644); err != nil {
		t.Fatalf("write video file: %v", err)
	}

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("supports_streaming"); got != "true" {
			t.Fatalf("expected streaming enabled, got %q", got)
		}
		if got := r.FormValue("width"); got != "1280" {
			t.Fatalf("unexpected width: %q", got)
		}
		if _, _, err := r.FormFile("video"); err != nil {
			t.Fatalf("missing video part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"ok":true,"result":{"message_id":11,"chat":{"id":42},"video":{"file_id":"vid-1"}}}`)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	})

	msg, err := client.SendVideo(context.Background(), telegram.SendVideoRequest{
		ChatID:            42,
		FilePath:          videoPath,
		Width:             1280,
		Height:            720,
		SupportsStreaming: true,
	})
	if err != nil {
		t.Fatalf("SendVideo returned error: %v", err)
	}
	if msg.DeliveredFileID() != "vid-1" {
		t.Fatalf("unexpected delivered file id: %q", msg.DeliveredFileID())
	}
}

func TestSendChatAction(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot"+testToken+"/sendChatAction" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var body struct {
			ChatID int64  `json:"chat_id"`
			Action string `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.ChatID != 42 || body.Action != "upload_video" {
			t.Fatalf("unexpected request body: %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"ok":true,"result":true}`)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	})

	if err := client.SendChatAction(context.Background(), 42, "upload_video"); err != nil {
		t.Fatalf("SendChatAction returned error: %v", err)
	}
}

func TestSetWebhookSendsSecret(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URL         string `json:"url"`
			SecretToken string `json:"secret_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.URL != "https://example.test/webhook" || body.SecretToken != "hook-secret" {
			t.Fatalf("unexpected webhook request: %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"ok":true,"result":true}`)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	})

	err := client.SetWebhook(context.Background(), telegram.SetWebhookRequest{
		URL:         "https://example.test/webhook",
		SecretToken: "hook-secret",
	})
	if err != nil {
		t.Fatalf("SetWebhook returned error: %v", err)
	}
}

func TestGetUpdatesPassesOffset(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Offset  int64 `json:"offset"`
			Timeout int   `json:"timeout"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Offset != 101 || body.Timeout != 30 {
			t.Fatalf("unexpected poll request: %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"ok":true,"result":[{"update_id":101,"message":{"message_id":1,"chat":{"id":5},"text":"hi"}},{"update_id":102,"message":{"message_id":2,"chat":{"id":5},"text":"yo"}}]}`)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	})

	updates, err := client.GetUpdates(context.Background(), telegram.GetUpdatesRequest{Offset: 101, Timeout: 30})
	if err != nil {
		t.Fatalf("GetUpdates returned error: %v", err)
	}
	if len(updates) != 2 || updates[1].UpdateID != 102 {
		t.Fatalf("unexpected updates: %#v", updates)
	}
}

func TestTransportErrorsRedactToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, err := telegram.New(testToken, server.URL, 5, 10)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	server.Close()

	_, err = client.GetMe(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), testToken) {
		t.Fatalf("token leaked into error: %v", err)
	}
	if !errors.Is(err, telegram.ErrTransport) {
		t.Fatalf("expected transport marker, got %v", err)
	}
}

func TestParseUpdate(t *testing.T) {
	payload := `{"update_id":7,"callback_query":{"id":"cb-1","data":"mp3","message":{"message_id":3,"chat":{"id":9}}}}`
	update, err := telegram.ParseUpdate(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("ParseUpdate returned error: %v", err)
	}
	if update.UpdateID != 7 || update.CallbackQuery == nil || update.CallbackQuery.Data != "mp3" {
		t.Fatalf("unexpected update: %#v", update)
	}

	if _, err := telegram.ParseUpdate(strings.NewReader("{not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
