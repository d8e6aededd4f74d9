package deliver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"log/slog"

	"spool/internal/bot"
	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/media/ffprobe"
	"spool/internal/notifications"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/services/telegram"
	"spool/internal/stage"
)

const stageName = "deliver"

// Uploader is the slice of the Telegram client delivery needs.
type Uploader interface {
	SendChatAction(ctx context.Context, chatID int64, action string) error
	SendAudio(ctx context.Context, req telegram.SendAudioRequest) (*telegram.Message, error)
	SendVideo(ctx context.Context, req telegram.SendVideoRequest) (*telegram.Message, error)
}

// InspectFunc matches ffprobe.Inspect so tests can substitute probe results.
type InspectFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Deliverer is the final background stage. It uploads the converted file to
// the originating chat, records the reusable file_id, flips the status message
// to the completion text, and clears the item's staging directory.
type Deliverer struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	client   Uploader
	status   bot.StatusEditor
	notifier notifications.Service
	inspect  InspectFunc
}

// New constructs the delivery handler using default dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, status bot.StatusEditor) *Deliverer {
	var client Uploader
	tgClient, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.APIBaseURL, cfg.Telegram.RequestTimeout, cfg.Telegram.UploadTimeout)
	if err != nil {
		logger.Warn("telegram client unavailable", logging.Error(err))
	} else {
		client = tgClient
	}
	return NewWithDependencies(cfg, store, logger, client, status, notifications.NewService(cfg), ffprobe.Inspect)
}

// NewWithDependencies allows injecting all collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, client Uploader, status bot.StatusEditor, notifier notifications.Service, inspect InspectFunc) *Deliverer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", stageName))
	}
	if inspect == nil {
		inspect = ffprobe.Inspect
	}
	return &Deliverer{store: store, cfg: cfg, logger: stageLogger, client: client, status: status, notifier: notifier, inspect: inspect}
}

func (d *Deliverer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, d.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Delivering"
	}
	item.ProgressMessage = "Preparing upload"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	logger.Info(
		"starting delivery preparation",
		logging.String("title", item.DisplayTitle()),
		logging.String("media_kind", string(item.MediaKind)),
	)
	return nil
}

func (d *Deliverer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, d.logger)
	if err := stage.RequireFile(stageName, "converted media", item.OutputFile); err != nil {
		return err
	}

	// Items enqueued from the CLI or API have no chat. Their output stays in
	// staging for the operator to collect.
	if item.ChatID == 0 {
		item.ProgressStage = "Delivered"
		item.ProgressPercent = 100
		item.ProgressMessage = "Saved to staging"
		logger.Info("no destination chat, leaving output in staging", logging.String("output_file", item.OutputFile))
		return nil
	}

	if d.client == nil {
		return services.Wrap(
			services.ErrConfiguration,
			stageName,
			"upload media",
			"telegram client unavailable; check telegram token in config",
			nil,
		)
	}

	action := "upload_voice"
	if item.MediaKind == queue.MediaKindMP4 {
		action = "upload_video"
	}
	if err := d.client.SendChatAction(ctx, item.ChatID, action); err != nil {
		logger.Warn("failed to send chat action", logging.Error(err))
	}

	d.applyProgress(ctx, item, "Uploading to Telegram", 10)
	msg, err := d.upload(ctx, item)
	if err != nil {
		classified := d.classifyUploadError(err)
		if !errors.Is(classified, services.ErrTransient) {
			return classified
		}
		// One retry covers the common case of a momentary rate limit without
		// bouncing the item back through the queue.
		wait := retryWait(err)
		logger.Warn("transient upload failure, retrying once",
			logging.Duration("wait", wait),
			logging.Error(err))
		select {
		case <-ctx.Done():
			return classified
		case <-time.After(wait):
		}
		if msg, err = d.upload(ctx, item); err != nil {
			return d.classifyUploadError(err)
		}
	}

	item.DeliveredFileID = msg.DeliveredFileID()
	item.ProgressStage = "Delivered"
	item.ProgressPercent = 100
	item.ProgressMessage = "Delivered to chat"
	logger.Info(
		"delivery completed",
		logging.String("title", item.DisplayTitle()),
		logging.String("file_id", item.DeliveredFileID),
	)

	if d.status != nil {
		if err := d.status.EditNow(ctx, item.ChatID, item.MessageID, bot.CompletedText(item.MediaKind)); err != nil {
			logger.Warn("failed to update status message", logging.Error(err))
		}
	}
	d.cleanupStaging(item)
	if d.notifier != nil {
		if err := d.notifier.NotifyDeliveryCompleted(ctx, item.DisplayTitle(), string(item.MediaKind)); err != nil {
			logger.Warn("delivery completion notification failed", logging.Error(err))
		}
	}
	return nil
}

func (d *Deliverer) upload(ctx context.Context, item *queue.Item) (*telegram.Message, error) {
	if item.MediaKind == queue.MediaKindMP3 {
		return d.client.SendAudio(ctx, telegram.SendAudioRequest{
			ChatID:   item.ChatID,
			FilePath: item.OutputFile,
			Title:    item.Title,
			Duration: item.DurationSeconds,
		})
	}

	req := telegram.SendVideoRequest{
		ChatID:            item.ChatID,
		FilePath:          item.OutputFile,
		Duration:          item.DurationSeconds,
		SupportsStreaming: true,
	}
	// Dimensions are only a player hint, so probe failures do not block the
	// upload.
	if result, err := d.inspect(ctx, d.cfg.FFprobeBinary(), item.OutputFile); err != nil {
		logging.WithContext(ctx, d.logger).Warn("ffprobe inspection failed before upload", logging.Error(err))
	} else {
		req.Width, req.Height = result.VideoDimensions()
		if req.Duration == 0 {
			req.Duration = result.RoundedDuration()
		}
	}
	return d.client.SendVideo(ctx, req)
}

// HealthCheck verifies delivery dependencies.
func (d *Deliverer) HealthCheck(ctx context.Context) stage.Health {
	if d.cfg == nil {
		return stage.Unhealthy(stageName, "configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Telegram.Token) == "" {
		return stage.Unhealthy(stageName, "telegram token not configured")
	}
	if d.client == nil {
		return stage.Unhealthy(stageName, "telegram client unavailable")
	}
	return stage.Healthy(stageName)
}

func (d *Deliverer) applyProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, d.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := d.store.UpdateProgress(ctx, &copy); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
		return
	}
	*item = copy
}

// cleanupStaging removes the item's scratch directory once the media is safely
// on Telegram's side.
func (d *Deliverer) cleanupStaging(item *queue.Item) {
	workDir := strings.TrimSpace(item.WorkDir)
	if workDir == "" {
		return
	}
	if err := os.RemoveAll(workDir); err != nil {
		d.logger.Warn("failed to clean staging directory",
			logging.String("work_dir", workDir),
			logging.Error(err))
	}
}

// retryWait picks the pause before the single upload retry. Telegram's
// retry_after hint wins when present, bounded so the lane cannot stall on a
// hostile value.
func retryWait(err error) time.Duration {
	wait := 2 * time.Second
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		wait = apiErr.RetryAfter
	}
	if wait > 30*time.Second {
		wait = 30 * time.Second
	}
	return wait
}

func (d *Deliverer) classifyUploadError(err error) error {
	if ok, wait := telegram.IsRetryAfter(err); ok {
		return services.Wrap(
			services.ErrTransient,
			stageName,
			"upload media",
			fmt.Sprintf("rate limited by Telegram, retry in %ds", wait),
			err,
		)
	}
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 413 {
		wrapped := services.Wrap(
			services.ErrValidation,
			stageName,
			"upload media",
			"Telegram rejected the upload as too large",
			err,
		)
		return services.WithUserMessage(wrapped, bot.TooBigCapText(d.cfg.Download.MaxFileMB))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stageName, "upload media", "upload timed out", err)
	}
	if errors.Is(err, telegram.ErrTransport) {
		return services.Wrap(services.ErrTransient, stageName, "upload media", "network failure reaching Telegram", err)
	}
	return services.Wrap(services.ErrExternalTool, stageName, "upload media", "Telegram upload failed", err)
}
