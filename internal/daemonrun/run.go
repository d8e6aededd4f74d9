package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"spool/internal/bot"
	"spool/internal/config"
	"spool/internal/daemon"
	"spool/internal/deliver"
	"spool/internal/deps"
	"spool/internal/download"
	"spool/internal/ipc"
	"spool/internal/logging"
	"spool/internal/metacache"
	"spool/internal/notifications"
	"spool/internal/preflight"
	"spool/internal/queue"
	"spool/internal/resolver"
	"spool/internal/services/telegram"
	"spool/internal/transcode"
	"spool/internal/updates"
	"spool/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the spool daemon runtime loop and blocks until a signal or an
// IPC stop request arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("spool-%s.log", runID))
	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(signalCtx, logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update spool.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "spool-*.log", Exclude: []string{logPath}},
	)
	pidPath := filepath.Join(cfg.Paths.LogDir, "spool.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	logStartupChecks(signalCtx, logger, cfg)

	cache, err := metacache.Open(cfg.ResolutionCachePath(), time.Duration(cfg.Download.CacheTTLHours)*time.Hour, logger)
	if err != nil {
		logger.Warn("resolution cache unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "resolutions will be probed fresh on every request"))
		cache = nil
	}
	defer cache.Close()

	client, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.APIBaseURL,
		cfg.Telegram.RequestTimeout, cfg.Telegram.UploadTimeout)
	if err != nil {
		return fmt.Errorf("init telegram client: %w", err)
	}

	notifier := notifications.NewService(cfg)
	statusEditor := bot.NewStatusEditor(client, logger)
	router := bot.NewRouter(cfg, store, logger, client, notifier)

	workflowManager := workflow.NewManagerWithOptions(cfg, store, logger, notifier, statusEditor)
	registerStages(workflowManager, cfg, store, logger, cache, statusEditor)

	d, err := daemon.New(cfg, store, logger, workflowManager)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()
	d.SetShutdown(cancel)

	if cfg.ServeHTTP() {
		srv, err := daemon.NewHTTPServer(cfg, d, router, logger)
		if err != nil {
			return fmt.Errorf("configure http server: %w", err)
		}
		d.AttachHTTP(srv)
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	startErr := d.Start(signalCtx)
	if startErr != nil {
		logger.Warn("daemon start failed",
			logging.Error(startErr),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
		)
	}

	// Updates are consumed only when this process owns the daemon lock, so a
	// second instance never competes for getUpdates against the first.
	if startErr == nil {
		if cfg.WebhookEnabled() {
			registerWebhook(signalCtx, logger, client, cfg)
		} else {
			poller := updates.NewPoller(cfg, client, router, logger)
			if err := poller.Start(signalCtx); err != nil {
				logger.Warn("failed to start update poller", logging.Error(err))
			} else {
				defer poller.Stop()
			}
		}
	}

	<-signalCtx.Done()
	logger.Info("spool daemon shutting down")
	return nil
}

func registerStages(mgr *workflow.Manager, cfg *config.Config, store *queue.Store, logger *slog.Logger, cache *metacache.Cache, status bot.StatusEditor) {
	if mgr == nil || cfg == nil {
		return
	}

	mgr.ConfigureStages(workflow.StageSet{
		Resolver:   resolver.New(cfg, store, logger, cache, status),
		Downloader: download.New(cfg, store, logger, status),
		Transcoder: transcode.New(cfg, store, logger),
		Deliverer:  deliver.New(cfg, store, logger, status),
	})
}

func registerWebhook(ctx context.Context, logger *slog.Logger, client *telegram.Client, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	err := client.SetWebhook(ctx, telegram.SetWebhookRequest{
		URL:            cfg.Telegram.WebhookURL,
		SecretToken:    cfg.Telegram.WebhookSecret,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		logger.Warn("webhook registration failed",
			logging.Error(err),
			logging.String(logging.FieldURL, cfg.Telegram.WebhookURL),
			logging.String(logging.FieldErrorHint, "updates stall until setWebhook succeeds; check the public URL and bot token"),
		)
		return
	}
	logger.Info("webhook registered", logging.String(logging.FieldURL, cfg.Telegram.WebhookURL))
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "spool.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	args := []any{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("telegram_token_present", strings.TrimSpace(cfg.Telegram.Token) != ""),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	}
	for _, snap := range deps.CollectVersions(ctx, cfg) {
		key := strings.ReplaceAll(strings.ToLower(snap.Name), "-", "_")
		args = append(args,
			logging.Bool(key+"_available", snap.Available),
			logging.String(key+"_binary", snap.Command),
		)
		if snap.Version != "" {
			args = append(args, logging.String(key+"_version", snap.Version))
		}
	}
	logger.Info("dependency snapshot", args...)
}

// logStartupChecks surfaces environment problems once at boot. Failures do
// not abort the daemon; the workflow lanes hold until the checks pass.
func logStartupChecks(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			continue
		}
		logger.Warn("startup check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
		)
	}
}
