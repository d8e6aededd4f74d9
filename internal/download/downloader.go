package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"log/slog"

	"spool/internal/bot"
	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/notifications"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/services/ytdlp"
	"spool/internal/stage"
)

const stageName = "download"

// Downloader is the first background stage. It fetches the resolved media into
// the item's staging directory with yt-dlp, streaming progress into the queue
// and the chat status message.
type Downloader struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	client   ytdlp.Downloader
	status   bot.StatusEditor
	notifier notifications.Service
}

// New constructs the download handler using default dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, status bot.StatusEditor) *Downloader {
	var client ytdlp.Downloader
	ytClient, err := ytdlp.New(cfg.YtdlpBinary(), cfg.Download.ResolveTimeout, cfg.Download.Timeout, cfg.MaxFileBytes())
	if err != nil {
		logger.Warn("yt-dlp client unavailable", logging.Error(err))
	} else {
		client = ytClient
	}
	return NewWithDependencies(cfg, store, logger, client, status, notifications.NewService(cfg))
}

// NewWithDependencies allows injecting all collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, client ytdlp.Downloader, status bot.StatusEditor, notifier notifications.Service) *Downloader {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", stageName))
	}
	return &Downloader{store: store, cfg: cfg, logger: stageLogger, client: client, status: status, notifier: notifier}
}

func (d *Downloader) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, d.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Downloading"
	}
	item.ProgressMessage = "Starting download"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	logger.Info(
		"starting download preparation",
		logging.String("title", item.DisplayTitle()),
		logging.String("media_kind", string(item.MediaKind)),
	)
	if d.notifier != nil {
		if err := d.notifier.NotifyDownloadStarted(ctx, item.DisplayTitle()); err != nil {
			logger.Warn("failed to send download start notification", logging.Error(err))
		}
	}
	return nil
}

func (d *Downloader) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, d.logger)
	if d.client == nil {
		return services.Wrap(
			services.ErrConfiguration,
			stageName,
			"fetch media",
			"yt-dlp client unavailable; check ytdlp_binary in config",
			nil,
		)
	}

	workDir := item.WorkRoot(d.cfg.Paths.StagingDir)
	if err := stage.EnsureWorkDir(workDir); err != nil {
		return err
	}
	item.WorkDir = workDir

	sampler := logging.NewProgressSampler(5)
	progressCB := func(update ytdlp.ProgressUpdate) {
		if !sampler.ShouldLog(update.Stage, update.Percent) {
			return
		}
		d.applyProgress(ctx, item, update)
		logger.Debug(
			"download progress",
			logging.String("stage", update.Stage),
			logging.Float64("percent", update.Percent),
		)
		if d.status != nil {
			text := bot.ProgressText(item.MediaKind, item.Title, update.Percent)
			_ = d.status.Edit(ctx, item.ChatID, item.MessageID, text)
		}
	}

	logger.Info(
		"starting download execution",
		logging.String("url", item.URL),
		logging.String("work_dir", workDir),
	)
	path, err := d.client.Download(ctx, item.URL, workDir, string(item.MediaKind), progressCB)
	if err != nil {
		return d.classifyDownloadError(err)
	}

	if err := stage.RequireFile(stageName, "downloaded media", path); err != nil {
		return err
	}
	if err := d.enforceSizeCap(path); err != nil {
		return err
	}

	item.SourceFile = path
	item.ProgressStage = "Downloaded"
	item.ProgressPercent = 100
	item.ProgressMessage = "Media downloaded"
	logger.Info("download completed", logging.String("source_file", path))

	if d.notifier != nil {
		if err := d.notifier.NotifyDownloadCompleted(ctx, item.DisplayTitle()); err != nil {
			logger.Warn("download completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck verifies download dependencies.
func (d *Downloader) HealthCheck(ctx context.Context) stage.Health {
	if d.cfg == nil {
		return stage.Unhealthy(stageName, "configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Paths.StagingDir) == "" {
		return stage.Unhealthy(stageName, "staging directory not configured")
	}
	if d.client == nil {
		return stage.Unhealthy(stageName, "yt-dlp client unavailable")
	}
	binary := strings.TrimSpace(d.cfg.YtdlpBinary())
	if binary == "" {
		return stage.Unhealthy(stageName, "yt-dlp binary not configured")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(stageName, fmt.Sprintf("yt-dlp binary %q not found", binary))
	}
	return stage.Healthy(stageName)
}

func (d *Downloader) applyProgress(ctx context.Context, item *queue.Item, update ytdlp.ProgressUpdate) {
	logger := logging.WithContext(ctx, d.logger)
	copy := *item
	if update.Stage != "" {
		copy.ProgressStage = update.Stage
	}
	if update.Percent >= 0 {
		copy.ProgressPercent = update.Percent
	}
	if update.Message != "" {
		copy.ProgressMessage = update.Message
	}
	if err := d.store.UpdateProgress(ctx, &copy); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
		return
	}
	*item = copy
}

// enforceSizeCap rejects downloads that slipped past yt-dlp's own limit, for
// example merged streams whose combined size was unknown up front.
func (d *Downloader) enforceSizeCap(path string) error {
	capBytes := d.cfg.MaxFileBytes()
	if capBytes <= 0 {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "inspect download", "cannot stat downloaded file", err)
	}
	if info.Size() <= capBytes {
		return nil
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)
	if removeErr := os.Remove(path); removeErr != nil {
		d.logger.Warn("failed to remove oversized download", logging.Error(removeErr))
	}
	wrapped := services.Wrap(
		services.ErrValidation,
		stageName,
		"size check",
		fmt.Sprintf("downloaded file is %.1fMB, over the %dMB delivery cap", sizeMB, d.cfg.Download.MaxFileMB),
		nil,
	)
	return services.WithUserMessage(wrapped, bot.TooBigText(sizeMB, d.cfg.Download.MaxFileMB))
}

func (d *Downloader) classifyDownloadError(err error) error {
	switch {
	case errors.Is(err, ytdlp.ErrTooLarge):
		wrapped := services.Wrap(
			services.ErrValidation,
			stageName,
			"fetch media",
			fmt.Sprintf("source is over the %dMB delivery cap", d.cfg.Download.MaxFileMB),
			err,
		)
		return services.WithUserMessage(wrapped, bot.TooBigCapText(d.cfg.Download.MaxFileMB))
	case errors.Is(err, ytdlp.ErrUnavailable):
		return services.Wrap(services.ErrExternalTool, stageName, "fetch media", "media unavailable at source", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, stageName, "fetch media", "download timed out", err)
	default:
		return services.Wrap(services.ErrExternalTool, stageName, "fetch media", "yt-dlp download failed; check network and URL", err)
	}
}
