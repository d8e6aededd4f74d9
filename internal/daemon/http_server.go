package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"spool/internal/api"
	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/services/telegram"
)

const webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler consumes Telegram updates delivered over the webhook.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update telegram.Update)
}

// httpServer serves the Telegram webhook and the optional REST API on a
// single listener. Webhook requests are acknowledged immediately and
// dispatched to the bot router on a separate goroutine so Telegram never
// waits on pipeline work.
type httpServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	queueView *api.QueueView
	updates  UpdateHandler

	webhookSecret string

	listener net.Listener
	server   *http.Server

	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewHTTPServer builds the daemon HTTP server. Returns nil when neither the
// webhook nor the REST API is enabled; the handler may be nil when running in
// polling mode.
func NewHTTPServer(cfg *config.Config, d *Daemon, handler UpdateHandler, logger *slog.Logger) (*httpServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	if !cfg.ServeHTTP() {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, errors.New("http server requires a bind address")
	}
	if cfg.WebhookEnabled() && handler == nil {
		return nil, errors.New("webhook mode requires an update handler")
	}

	srv := &httpServer{
		bind:          bind,
		logger:        logger,
		daemon:        d,
		queueView:     api.NewQueueView(d.store),
		updates:       handler,
		webhookSecret: strings.TrimSpace(cfg.Telegram.WebhookSecret),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealthz)
	if cfg.WebhookEnabled() {
		mux.HandleFunc("/webhook", srv.handleWebhook)
	}
	if cfg.API.Enabled {
		token := strings.TrimSpace(cfg.API.Token)
		mux.HandleFunc("/api/status", srv.requireBearer(token, srv.handleStatus))
		mux.HandleFunc("/api/queue", srv.requireBearer(token, srv.handleQueue))
		mux.HandleFunc("/api/queue/", srv.requireBearer(token, srv.handleQueueItem))
	}

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *httpServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.baseCtx = ctx
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("http server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("http server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *httpServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.wg.Wait()
}

// requireBearer wraps an API handler with bearer-token validation. An empty
// token leaves the endpoint open, matching a LAN-only deployment.
func (s *httpServer) requireBearer(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		value, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || value != token {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *httpServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.webhookSecret != "" && r.Header.Get(webhookSecretHeader) != s.webhookSecret {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid update payload")
		return
	}

	// Acknowledge before dispatching; Telegram retries updates whose webhook
	// call does not return 200 quickly.
	w.WriteHeader(http.StatusOK)

	ctx := s.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.updates.HandleUpdate(ctx, update)
	}()
}

func (s *httpServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"running": s.daemon.running.Load(),
	})
}

func (s *httpServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Dependencies: api.FromDependencyStatuses(status.Dependencies),
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *httpServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		parsed, ok := queue.ParseStatus(value)
		if !ok {
			continue
		}
		statuses = append(statuses, parsed)
	}

	items, err := s.queueView.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueueListResponse{Items: items})
}

func (s *httpServer) handleQueueItem(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/queue/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "queue item not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid queue item id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		item, err := s.queueView.Describe(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if item == nil {
			s.writeError(w, http.StatusNotFound, "queue item not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.QueueItemResponse{Item: *item})
	case http.MethodDelete:
		removed, err := s.daemon.RemoveQueueItem(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !removed {
			s.writeError(w, http.StatusNotFound, "queue item not found")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"removed": true, "id": id})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *httpServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *httpServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *httpServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "http-server"))
	}
	return logging.NewNop()
}
