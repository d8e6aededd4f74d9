package config

// SupportedDomains is the default allowlist of media source hosts.
var SupportedDomains = []string{
	"youtube.com",
	"youtu.be",
	"tiktok.com",
	"instagram.com",
	"facebook.com",
	"fb.watch",
}

const (
	defaultDataDir                   = "~/.local/share/spool"
	defaultStagingDir                = "~/.local/share/spool/staging"
	defaultLogDir                    = "~/.local/share/spool/logs"
	defaultLogRetentionDays          = 30
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultAPIBind                   = "0.0.0.0:8000"
	defaultTelegramAPIBaseURL        = "https://api.telegram.org"
	defaultTelegramPollTimeout       = 50
	defaultTelegramRequestTimeout    = 30
	defaultTelegramUploadTimeout     = 300
	defaultYtdlpBinary               = "yt-dlp"
	defaultFFmpegBinary              = "ffmpeg"
	defaultFFprobeBinary             = "ffprobe"
	defaultMaxFileMB                 = 50
	defaultDownloadTimeout           = 900
	defaultResolveTimeout            = 60
	defaultCacheTTLHours             = 24
	defaultAudioBitrate              = "192k"
	defaultTranscodeTimeout          = 600
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultNotifyRequestTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Telegram: Telegram{
			APIBaseURL:     defaultTelegramAPIBaseURL,
			PollTimeout:    defaultTelegramPollTimeout,
			RequestTimeout: defaultTelegramRequestTimeout,
			UploadTimeout:  defaultTelegramUploadTimeout,
		},
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Download: Download{
			YtdlpBinary:    defaultYtdlpBinary,
			MaxFileMB:      defaultMaxFileMB,
			Timeout:        defaultDownloadTimeout,
			ResolveTimeout: defaultResolveTimeout,
			CacheTTLHours:  defaultCacheTTLHours,
			AllowedDomains: append([]string(nil), SupportedDomains...),
		},
		Transcode: Transcode{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			AudioBitrate:  defaultAudioBitrate,
			Timeout:       defaultTranscodeTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Queue:          true,
			Delivery:       true,
			Errors:         true,
		},
	}
}
