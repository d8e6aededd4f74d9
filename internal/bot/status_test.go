package bot_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"spool/internal/bot"
	"spool/internal/services/telegram"
)

type recordingEditor struct {
	calls []telegram.EditMessageRequest
	err   error
}

func (r *recordingEditor) EditMessageText(_ context.Context, req telegram.EditMessageRequest) error {
	r.calls = append(r.calls, req)
	return r.err
}

func TestStatusEditorDedupesIdenticalText(t *testing.T) {
	rec := &recordingEditor{}
	editor := bot.NewStatusEditor(rec, nil, bot.WithEditInterval(time.Nanosecond))

	ctx := context.Background()
	if err := editor.EditNow(ctx, 42, 7, "⬇️ Downloading MP3..."); err != nil {
		t.Fatalf("first edit: %v", err)
	}
	if err := editor.EditNow(ctx, 42, 7, "⬇️ Downloading MP3..."); err != nil {
		t.Fatalf("duplicate edit: %v", err)
	}

	if len(rec.calls) != 1 {
		t.Fatalf("expected 1 API call, got %d", len(rec.calls))
	}
	if rec.calls[0].ChatID != 42 || rec.calls[0].MessageID != 7 {
		t.Fatalf("unexpected target: %+v", rec.calls[0])
	}
}

func TestStatusEditorThrottlesRapidEdits(t *testing.T) {
	rec := &recordingEditor{}
	editor := bot.NewStatusEditor(rec, nil, bot.WithEditInterval(time.Hour))

	ctx := context.Background()
	if err := editor.Edit(ctx, 42, 7, "progress 10%"); err != nil {
		t.Fatalf("first edit: %v", err)
	}
	if err := editor.Edit(ctx, 42, 7, "progress 20%"); err != nil {
		t.Fatalf("throttled edit: %v", err)
	}

	if len(rec.calls) != 1 {
		t.Fatalf("expected throttle to swallow second edit, got %d calls", len(rec.calls))
	}
	if rec.calls[0].Text != "progress 10%" {
		t.Fatalf("unexpected text %q", rec.calls[0].Text)
	}
}

func TestStatusEditorEditNowBypassesThrottle(t *testing.T) {
	rec := &recordingEditor{}
	editor := bot.NewStatusEditor(rec, nil, bot.WithEditInterval(time.Hour))

	ctx := context.Background()
	if err := editor.Edit(ctx, 42, 7, "progress 10%"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := editor.EditNow(ctx, 42, 7, "✅ MP3 download complete!"); err != nil {
		t.Fatalf("edit now: %v", err)
	}

	if len(rec.calls) != 2 {
		t.Fatalf("expected 2 API calls, got %d", len(rec.calls))
	}
	if rec.calls[1].Text != "✅ MP3 download complete!" {
		t.Fatalf("unexpected final text %q", rec.calls[1].Text)
	}
}

func TestStatusEditorTracksMessagesIndependently(t *testing.T) {
	rec := &recordingEditor{}
	editor := bot.NewStatusEditor(rec, nil, bot.WithEditInterval(time.Hour))

	ctx := context.Background()
	if err := editor.Edit(ctx, 42, 7, "progress"); err != nil {
		t.Fatalf("chat 42: %v", err)
	}
	if err := editor.Edit(ctx, 99, 3, "progress"); err != nil {
		t.Fatalf("chat 99: %v", err)
	}

	if len(rec.calls) != 2 {
		t.Fatalf("edits to distinct messages should not throttle each other, got %d calls", len(rec.calls))
	}
}

func TestStatusEditorSkipsItemsWithoutMessage(t *testing.T) {
	rec := &recordingEditor{}
	editor := bot.NewStatusEditor(rec, nil)

	if err := editor.EditNow(context.Background(), 0, 0, "text"); err != nil {
		t.Fatalf("expected nil for chatless item, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("expected no API calls, got %d", len(rec.calls))
	}
}

func TestStatusEditorIgnoresNotModified(t *testing.T) {
	rec := &recordingEditor{err: &telegram.APIError{
		Code:        400,
		Description: "Bad Request: message is not modified",
	}}
	editor := bot.NewStatusEditor(rec, nil)

	if err := editor.EditNow(context.Background(), 42, 7, "same text"); err != nil {
		t.Fatalf("not-modified should be swallowed, got %v", err)
	}
}

func TestStatusEditorSurfacesOtherErrors(t *testing.T) {
	wantErr := errors.New("connection refused")
	rec := &recordingEditor{err: wantErr}
	editor := bot.NewStatusEditor(rec, nil)

	err := editor.EditNow(context.Background(), 42, 7, "text")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected underlying error, got %v", err)
	}
}
