package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTelegram()
	c.normalizeAPI()
	c.normalizeDownload()
	c.normalizeTranscode()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

// firstEnv returns the first non-empty value among the named environment
// variables. Empty values count as unset so platform fallbacks still apply.
func firstEnv(names ...string) string {
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func (c *Config) normalizeTelegram() {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	if c.Telegram.Token == "" {
		c.Telegram.Token = firstEnv("TELEGRAM_TOKEN")
	}

	c.Telegram.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Telegram.APIBaseURL), "/")
	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = defaultTelegramAPIBaseURL
	}

	// Hosting platforms advertise the public URL through their own variables.
	c.Telegram.WebhookURL = strings.TrimSpace(c.Telegram.WebhookURL)
	if c.Telegram.WebhookURL == "" {
		if value := firstEnv("WEBHOOK_URL"); value != "" {
			c.Telegram.WebhookURL = value
		} else if value := firstEnv("RAILWAY_STATIC_URL", "RENDER_EXTERNAL_URL"); value != "" {
			c.Telegram.WebhookURL = platformWebhookURL(value)
		}
	}

	c.Telegram.WebhookSecret = strings.TrimSpace(c.Telegram.WebhookSecret)
	if c.Telegram.WebhookSecret == "" {
		c.Telegram.WebhookSecret = firstEnv("SPOOL_SECRET_TOKEN", "SECRET_TOKEN")
	}

	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = defaultTelegramPollTimeout
	}
	if c.Telegram.RequestTimeout <= 0 {
		c.Telegram.RequestTimeout = defaultTelegramRequestTimeout
	}
	if c.Telegram.UploadTimeout <= 0 {
		c.Telegram.UploadTimeout = defaultTelegramUploadTimeout
	}
}

func platformWebhookURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return base + "/webhook"
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	// The hosting platform assigns the listen port at runtime.
	if value, ok := os.LookupEnv("PORT"); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && port > 0 && port < 65536 {
			host, _, splitErr := net.SplitHostPort(c.API.Bind)
			if splitErr != nil {
				host = "0.0.0.0"
			}
			c.API.Bind = net.JoinHostPort(host, strconv.Itoa(port))
		}
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		c.API.Token = firstEnv("SPOOL_API_TOKEN")
	}
}

func (c *Config) normalizeDownload() {
	c.Download.YtdlpBinary = strings.TrimSpace(c.Download.YtdlpBinary)
	if c.Download.YtdlpBinary == "" {
		c.Download.YtdlpBinary = defaultYtdlpBinary
	}
	if c.Download.MaxFileMB <= 0 {
		c.Download.MaxFileMB = defaultMaxFileMB
	}
	if c.Download.Timeout <= 0 {
		c.Download.Timeout = defaultDownloadTimeout
	}
	if c.Download.ResolveTimeout <= 0 {
		c.Download.ResolveTimeout = defaultResolveTimeout
	}
	if c.Download.CacheTTLHours < 0 {
		c.Download.CacheTTLHours = 0
	}

	if len(c.Download.AllowedDomains) == 0 {
		c.Download.AllowedDomains = append([]string(nil), SupportedDomains...)
		return
	}
	domains := make([]string, 0, len(c.Download.AllowedDomains))
	seen := make(map[string]struct{}, len(c.Download.AllowedDomains))
	for _, domain := range c.Download.AllowedDomains {
		normalized := strings.ToLower(strings.TrimSpace(domain))
		normalized = strings.TrimPrefix(normalized, "www.")
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		domains = append(domains, normalized)
	}
	if len(domains) == 0 {
		domains = append([]string(nil), SupportedDomains...)
	}
	c.Download.AllowedDomains = domains
}

func (c *Config) normalizeTranscode() {
	c.Transcode.FFmpegBinary = strings.TrimSpace(c.Transcode.FFmpegBinary)
	if c.Transcode.FFmpegBinary == "" {
		c.Transcode.FFmpegBinary = defaultFFmpegBinary
	}
	c.Transcode.FFprobeBinary = strings.TrimSpace(c.Transcode.FFprobeBinary)
	if c.Transcode.FFprobeBinary == "" {
		c.Transcode.FFprobeBinary = defaultFFprobeBinary
	}
	c.Transcode.AudioBitrate = strings.ToLower(strings.TrimSpace(c.Transcode.AudioBitrate))
	if c.Transcode.AudioBitrate == "" {
		c.Transcode.AudioBitrate = defaultAudioBitrate
	}
	if c.Transcode.Timeout <= 0 {
		c.Transcode.Timeout = defaultTranscodeTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = firstEnv("NTFY_TOPIC")
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
