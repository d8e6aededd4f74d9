package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spool/internal/api"
	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/services/telegram"
	"spool/internal/stage"
	"spool/internal/testsupport"
	"spool/internal/workflow"
)

type stubStage struct{}

func (stubStage) Prepare(context.Context, *queue.Item) error { return nil }
func (stubStage) Execute(context.Context, *queue.Item) error { return nil }
func (stubStage) HealthCheck(context.Context) stage.Health   { return stage.Healthy("stub") }

type updateRecorder struct {
	got chan telegram.Update
}

func (u *updateRecorder) HandleUpdate(_ context.Context, update telegram.Update) {
	u.got <- update
}

func newTestServer(t *testing.T, mutate func(cfg *config.Config), handler UpdateHandler) (*httpServer, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{Resolver: stubStage{}})
	d, err := New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	srv, err := NewHTTPServer(cfg, d, handler, logger)
	if err != nil {
		t.Fatalf("NewHTTPServer: %v", err)
	}
	if srv == nil {
		t.Fatal("expected http server to be configured")
	}
	return srv, store
}

func TestHTTPServerQueueEndpoints(t *testing.T) {
	srv, store := newTestServer(t, func(cfg *config.Config) {
		cfg.API.Enabled = true
	}, nil)

	item := testsupport.NewRequest(t, store, "https://youtube.com/watch?v=abc", queue.MediaKindMP3, 55)

	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/queue", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var list api.QueueListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != item.ID {
		t.Fatalf("unexpected list response: %+v", list.Items)
	}

	itemPath := fmt.Sprintf("/api/queue/%d", item.ID)
	w = httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, itemPath, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK for describe, got %d", w.Code)
	}
	var describe api.QueueItemResponse
	if err := json.Unmarshal(w.Body.Bytes(), &describe); err != nil {
		t.Fatalf("decode describe: %v", err)
	}
	if describe.Item.URL != item.URL {
		t.Fatalf("unexpected item url %q", describe.Item.URL)
	}

	w = httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, itemPath, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK for delete, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, itemPath, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestHTTPServerStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.API.Enabled = true
	}, nil)

	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Running {
		t.Fatal("daemon was never started")
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency report")
	}
}

func TestHTTPServerBearerAuth(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.API.Enabled = true
		cfg.API.Token = "sekrit"
	}, nil)

	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/queue", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", w.Code)
	}

	// The health endpoint stays open for platform probes.
	w = httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected open healthz, got %d", w.Code)
	}
}

func TestHTTPServerWebhook(t *testing.T) {
	recorder := &updateRecorder{got: make(chan telegram.Update, 1)}
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Telegram.WebhookURL = "https://bot.example.com/webhook"
		cfg.Telegram.WebhookSecret = "hook-secret"
	}, recorder)

	payload := `{"update_id":7,"message":{"message_id":3,"chat":{"id":42},"text":"hello"}}`

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret header, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set(webhookSecretHeader, "hook-secret")
	w = httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 fast-ack, got %d", w.Code)
	}

	select {
	case update := <-recorder.got:
		if update.UpdateID != 7 {
			t.Fatalf("expected update 7, got %d", update.UpdateID)
		}
		if update.Message == nil || update.Message.Chat.ID != 42 {
			t.Fatalf("unexpected message payload: %+v", update.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("update was not dispatched")
	}

	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set(webhookSecretHeader, "hook-secret")
	w = httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", w.Code)
	}
}
