package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"

	"log/slog"

	"spool/internal/bot"
	"spool/internal/config"
	"spool/internal/links"
	"spool/internal/logging"
	"spool/internal/metacache"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/services/ytdlp"
	"spool/internal/stage"
)

const stageName = "resolver"

// Resolver is the foreground stage. It turns a raw submitted link into a
// titled queue item, consulting the resolution cache before spending a yt-dlp
// probe, and rejects media whose estimated size already exceeds the delivery
// cap.
type Resolver struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	prober ytdlp.Prober
	cache  *metacache.Cache
	status bot.StatusEditor
}

// New constructs the resolver using default dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, cache *metacache.Cache, status bot.StatusEditor) *Resolver {
	var prober ytdlp.Prober
	client, err := ytdlp.New(cfg.YtdlpBinary(), cfg.Download.ResolveTimeout, cfg.Download.Timeout, cfg.MaxFileBytes())
	if err != nil {
		logger.Warn("yt-dlp client unavailable", logging.Error(err))
	} else {
		prober = client
	}
	return NewWithDependencies(cfg, store, logger, prober, cache, status)
}

// NewWithDependencies allows injecting all collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, prober ytdlp.Prober, cache *metacache.Cache, status bot.StatusEditor) *Resolver {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", stageName))
	}
	return &Resolver{store: store, cfg: cfg, logger: stageLogger, prober: prober, cache: cache, status: status}
}

func (r *Resolver) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Resolving"
	}
	item.ProgressMessage = "Looking up link"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	logger.Info(
		"starting resolution",
		logging.String("url", strings.TrimSpace(item.URL)),
		logging.String("media_kind", string(item.MediaKind)),
	)
	return nil
}

func (r *Resolver) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)
	url := strings.TrimSpace(item.URL)
	if url == "" {
		return services.Wrap(services.ErrValidation, stageName, "inspect item", "queue item has no URL", nil)
	}

	var (
		title     string
		duration  float64
		estimated int64
		cacheHit  bool
	)
	if entry, ok := r.cache.Lookup(url); ok {
		cacheHit = true
		title = entry.Title
		duration = entry.DurationSeconds
		logger.Info("resolution cache hit", logging.String("title", entry.Title))
		r.applyProgress(ctx, item, "Resolved from cache", 60)
	} else {
		if r.prober == nil {
			return services.Wrap(
				services.ErrConfiguration,
				stageName,
				"probe metadata",
				"yt-dlp client unavailable; check ytdlp_binary in config",
				nil,
			)
		}
		r.applyProgress(ctx, item, "Probing metadata", 20)
		meta, err := r.prober.Probe(ctx, url)
		if err != nil {
			return classifyProbeError(err)
		}
		title = meta.Title
		duration = meta.Duration
		estimated = meta.EstimatedBytes()
		if err := r.cache.Store(metacache.Entry{
			URL:             url,
			Title:           meta.Title,
			DurationSeconds: meta.Duration,
			Uploader:        meta.Uploader,
		}); err != nil {
			logger.Warn("failed to cache resolution", logging.Error(err))
		}
	}

	item.Title = strings.TrimSpace(title)
	item.DurationSeconds = int64(math.Round(duration))
	if strings.TrimSpace(item.Source) == "" {
		item.Source = links.SourceHost(url)
	}

	// Cache hits skip the gate because entries carry no size; the download
	// stage enforces the cap on actual bytes either way.
	if capBytes := r.cfg.MaxFileBytes(); capBytes > 0 && estimated > capBytes {
		sizeMB := float64(estimated) / (1024 * 1024)
		err := services.Wrap(
			services.ErrValidation,
			stageName,
			"size gate",
			fmt.Sprintf("estimated size %.1fMB exceeds the %dMB delivery cap", sizeMB, r.cfg.Download.MaxFileMB),
			nil,
		)
		return services.WithUserMessage(err, bot.EstimatedTooBigText(sizeMB, r.cfg.Download.MaxFileMB))
	}

	item.ProgressStage = "Resolved"
	item.ProgressPercent = 100
	item.ProgressMessage = "Link resolved"
	logger.Info(
		"resolution completed",
		logging.String("title", item.DisplayTitle()),
		logging.Int64("duration_seconds", item.DurationSeconds),
		logging.Bool("cache_hit", cacheHit),
	)

	if r.status != nil {
		text := bot.ProgressText(item.MediaKind, item.Title, 0)
		if err := r.status.EditNow(ctx, item.ChatID, item.MessageID, text); err != nil {
			logger.Warn("failed to update status message", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck verifies resolution dependencies.
func (r *Resolver) HealthCheck(ctx context.Context) stage.Health {
	if r.cfg == nil {
		return stage.Unhealthy(stageName, "configuration unavailable")
	}
	if r.prober == nil {
		return stage.Unhealthy(stageName, "yt-dlp client unavailable")
	}
	binary := strings.TrimSpace(r.cfg.YtdlpBinary())
	if binary == "" {
		return stage.Unhealthy(stageName, "yt-dlp binary not configured")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(stageName, fmt.Sprintf("yt-dlp binary %q not found", binary))
	}
	return stage.Healthy(stageName)
}

func (r *Resolver) applyProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, r.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := r.store.UpdateProgress(ctx, &copy); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
		return
	}
	*item = copy
}

// classifyProbeError maps yt-dlp probe failures onto the error taxonomy.
// Dead or private media is not retryable, so it fails outright rather than
// parking for review.
func classifyProbeError(err error) error {
	switch {
	case errors.Is(err, ytdlp.ErrUnsupported):
		wrapped := services.Wrap(services.ErrValidation, stageName, "probe metadata", "no extractor supports this URL", err)
		return services.WithUserMessage(wrapped, bot.UnsupportedURLText)
	case errors.Is(err, ytdlp.ErrUnavailable):
		return services.Wrap(services.ErrExternalTool, stageName, "probe metadata", "media unavailable at source", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, stageName, "probe metadata", "metadata probe timed out", err)
	default:
		return services.Wrap(services.ErrExternalTool, stageName, "probe metadata", "yt-dlp metadata probe failed", err)
	}
}
