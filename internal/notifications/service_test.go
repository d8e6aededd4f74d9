package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spool/internal/config"
	"spool/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyDeliveryCompleted(context.Background(), "Example", "mp3"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(context.Context, notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "item queued",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.NotifyItemQueued(ctx, "Test Clip", "mp3")
			},
			expectTitle:   "Spool - Queued",
			expectMessage: "📥 Queued: Test Clip (mp3)",
			expectTags:    "spool,queue,added",
		},
		{
			name: "download completed",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.NotifyDownloadCompleted(ctx, "Test Clip")
			},
			expectTitle:   "Spool - Download Complete",
			expectMessage: "⬇️ Download complete: Test Clip",
			expectTags:    "spool,download,completed",
		},
		{
			name: "delivery completed",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.NotifyDeliveryCompleted(ctx, "Test Clip", "mp4")
			},
			expectTitle:    "Spool - Delivered",
			expectMessage:  "✅ Delivered: Test Clip (mp4)",
			expectTags:     "spool,delivery,completed",
			expectPriority: "high",
		},
		{
			name: "review required",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.NotifyReviewRequired(ctx, "Long Mix", "estimated size exceeds the 50 MB limit")
			},
			expectTitle:   "Spool - Review Required",
			expectMessage: "Needs review: Long Mix\nestimated size exceeds the 50 MB limit",
			expectTags:    "spool,review",
		},
		{
			name: "queue completed with failures",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.NotifyQueueCompleted(ctx, 3, 1, 90*time.Second)
			},
			expectTitle:   "Spool - Queue Complete (with errors)",
			expectMessage: "Queue processing complete: 3 succeeded, 1 failed in 1m30s",
			expectTags:    "spool,queue,completed",
		},
		{
			name: "error",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.NotifyError(ctx, errors.New("failed to fetch"), "download")
			},
			expectTitle:    "Spool - Error",
			expectMessage:  "❌ Error with download: failed to fetch",
			expectTags:     "spool,error,alert",
			expectPriority: "high",
		},
		{
			name: "test notification",
			send: func(ctx context.Context, svc notifications.Service) error {
				return svc.TestNotification(ctx)
			},
			expectTitle:    "Spool - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "spool,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.send(context.Background(), svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Queue = false
	cfg.Notifications.Delivery = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	calls := []func() error{
		func() error { return svc.NotifyItemQueued(ctx, "Clip", "mp3") },
		func() error { return svc.NotifyQueueStarted(ctx, 2) },
		func() error { return svc.NotifyQueueCompleted(ctx, 2, 0, time.Minute) },
		func() error { return svc.NotifyDownloadStarted(ctx, "Clip") },
		func() error { return svc.NotifyDownloadCompleted(ctx, "Clip") },
		func() error { return svc.NotifyDeliveryCompleted(ctx, "Clip", "mp3") },
		func() error { return svc.NotifyError(ctx, errors.New("boom"), "download") },
		func() error { return svc.NotifyReviewRequired(ctx, "Clip", "too large") },
	}
	for i, call := range calls {
		if err := call(); err != nil {
			t.Fatalf("disabled event %d returned error: %v", i, err)
		}
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error from failing server")
	}
	if want := "429"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to mention %q, got %v", want, err)
	}
}
