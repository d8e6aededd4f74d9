package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"log/slog"

	"spool/internal/bot"
	"spool/internal/config"
	"spool/internal/fileutil"
	"spool/internal/logging"
	"spool/internal/media/ffprobe"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/services/ffmpeg"
	"spool/internal/stage"
)

const stageName = "transcode"

// InspectFunc matches ffprobe.Inspect so tests can substitute probe results.
type InspectFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Transcoder is the conversion stage. MP3 requests get their audio extracted
// at the configured bitrate; MP4 requests are remuxed into a faststart MP4
// unless the downloaded container already is one, in which case the file is
// copied under its delivery name.
type Transcoder struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	converter ffmpeg.Converter
	inspect   InspectFunc
}

// New constructs the transcode handler using default dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Transcoder {
	var converter ffmpeg.Converter
	client, err := ffmpeg.New(cfg.FFmpegBinary(), cfg.Transcode.Timeout, cfg.Transcode.AudioBitrate)
	if err != nil {
		logger.Warn("ffmpeg client unavailable", logging.Error(err))
	} else {
		converter = client
	}
	return NewWithDependencies(cfg, store, logger, converter, ffprobe.Inspect)
}

// NewWithDependencies allows injecting all collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, converter ffmpeg.Converter, inspect InspectFunc) *Transcoder {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", stageName))
	}
	if inspect == nil {
		inspect = ffprobe.Inspect
	}
	return &Transcoder{store: store, cfg: cfg, logger: stageLogger, converter: converter, inspect: inspect}
}

func (t *Transcoder) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Transcoding"
	}
	item.ProgressMessage = "Preparing conversion"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	logger.Info(
		"starting transcode preparation",
		logging.String("title", item.DisplayTitle()),
		logging.String("media_kind", string(item.MediaKind)),
	)
	return nil
}

func (t *Transcoder) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)
	if t.converter == nil {
		return services.Wrap(
			services.ErrConfiguration,
			stageName,
			"convert media",
			"ffmpeg client unavailable; check ffmpeg_binary in config",
			nil,
		)
	}
	if err := stage.RequireFile(stageName, "downloaded media", item.SourceFile); err != nil {
		return err
	}

	workDir := strings.TrimSpace(item.WorkDir)
	if workDir == "" {
		workDir = item.WorkRoot(t.cfg.Paths.StagingDir)
		item.WorkDir = workDir
	}
	if err := stage.EnsureWorkDir(workDir); err != nil {
		return err
	}
	output := filepath.Join(workDir, item.OutputFileName())

	sampler := logging.NewProgressSampler(5)
	progressCB := func(update ffmpeg.ProgressUpdate) {
		percent := ffmpeg.PercentOf(update.OutTime, float64(item.DurationSeconds))
		if update.Done {
			percent = 100
		}
		if !sampler.ShouldLog("Converting", percent) {
			return
		}
		t.applyProgress(ctx, item, "Converting", percent)
	}

	switch item.MediaKind {
	case queue.MediaKindMP3:
		logger.Info("extracting audio", logging.String("output", output))
		if err := t.converter.ExtractAudio(ctx, item.SourceFile, output, item.Title, progressCB); err != nil {
			return services.Wrap(
				services.ErrExternalTool,
				stageName,
				"extract audio",
				"ffmpeg audio extraction failed; the source container may be damaged",
				err,
			)
		}
	case queue.MediaKindMP4:
		if err := t.produceMP4(ctx, item, output, progressCB); err != nil {
			return err
		}
	default:
		return services.Wrap(
			services.ErrValidation,
			stageName,
			"convert media",
			fmt.Sprintf("unknown media kind %q", item.MediaKind),
			nil,
		)
	}

	if err := stage.RequireFile(stageName, "converted media", output); err != nil {
		return err
	}
	if err := t.enforceSizeCap(output); err != nil {
		return err
	}

	item.OutputFile = output
	item.ProgressStage = "Transcoded"
	item.ProgressPercent = 100
	item.ProgressMessage = "Conversion complete"
	logger.Info("transcode completed", logging.String("output_file", output))
	return nil
}

// produceMP4 decides between a container remux and a plain copy. The source is
// left in place so a rolled-back item can rerun the stage.
func (t *Transcoder) produceMP4(ctx context.Context, item *queue.Item, output string, progress func(ffmpeg.ProgressUpdate)) error {
	logger := logging.WithContext(ctx, t.logger)
	result, err := t.inspect(ctx, t.cfg.FFprobeBinary(), item.SourceFile)
	if err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			stageName,
			"inspect container",
			"ffprobe could not read the downloaded file",
			err,
		)
	}

	if isMP4Container(result.Format.FormatName) {
		logger.Info("container already mp4, copying for delivery", logging.String("output", output))
		if err := fileutil.CopyVerified(item.SourceFile, output); err != nil {
			return services.Wrap(services.ErrTransient, stageName, "copy media", "cannot copy file into delivery name", err)
		}
		return nil
	}

	logger.Info("remuxing into mp4", logging.String("format", result.Format.FormatName), logging.String("output", output))
	if err := t.converter.RemuxMP4(ctx, item.SourceFile, output, progress); err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			stageName,
			"remux mp4",
			"ffmpeg remux failed; the source container may be damaged",
			err,
		)
	}
	return nil
}

// HealthCheck verifies conversion dependencies.
func (t *Transcoder) HealthCheck(ctx context.Context) stage.Health {
	if t.cfg == nil {
		return stage.Unhealthy(stageName, "configuration unavailable")
	}
	if t.converter == nil {
		return stage.Unhealthy(stageName, "ffmpeg client unavailable")
	}
	ffmpegBinary := strings.TrimSpace(t.cfg.FFmpegBinary())
	if ffmpegBinary == "" {
		return stage.Unhealthy(stageName, "ffmpeg binary not configured")
	}
	if _, err := exec.LookPath(ffmpegBinary); err != nil {
		return stage.Unhealthy(stageName, fmt.Sprintf("ffmpeg binary %q not found", ffmpegBinary))
	}
	ffprobeBinary := strings.TrimSpace(t.cfg.FFprobeBinary())
	if ffprobeBinary == "" {
		return stage.Unhealthy(stageName, "ffprobe binary not configured")
	}
	if _, err := exec.LookPath(ffprobeBinary); err != nil {
		return stage.Unhealthy(stageName, fmt.Sprintf("ffprobe binary %q not found", ffprobeBinary))
	}
	return stage.Healthy(stageName)
}

func (t *Transcoder) applyProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, t.logger)
	copy := *item
	copy.ProgressMessage = message
	if percent >= 0 {
		copy.ProgressPercent = percent
	}
	if err := t.store.UpdateProgress(ctx, &copy); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
		return
	}
	*item = copy
}

func (t *Transcoder) enforceSizeCap(path string) error {
	capBytes := t.cfg.MaxFileBytes()
	if capBytes <= 0 {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "inspect output", "cannot stat converted file", err)
	}
	if info.Size() <= capBytes {
		return nil
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)
	if removeErr := os.Remove(path); removeErr != nil {
		t.logger.Warn("failed to remove oversized output", logging.Error(removeErr))
	}
	wrapped := services.Wrap(
		services.ErrValidation,
		stageName,
		"size check",
		fmt.Sprintf("converted file is %.1fMB, over the %dMB delivery cap", sizeMB, t.cfg.Download.MaxFileMB),
		nil,
	)
	return services.WithUserMessage(wrapped, bot.TooBigText(sizeMB, t.cfg.Download.MaxFileMB))
}

// isMP4Container reports whether ffprobe's comma-separated format list names
// the mp4 family.
func isMP4Container(formatName string) bool {
	for _, name := range strings.Split(formatName, ",") {
		if strings.TrimSpace(strings.ToLower(name)) == "mp4" {
			return true
		}
	}
	return false
}
