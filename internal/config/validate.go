package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if c.Telegram.Token == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/spool/config.toml"
		}
		return fmt.Errorf("telegram.token is required. Set TELEGRAM_TOKEN env var or edit %s (create with 'spool config init')", defaultPath)
	}
	if webhook := c.Telegram.WebhookURL; webhook != "" {
		parsed, err := url.Parse(webhook)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("telegram.webhook_url %q is not a valid URL", webhook)
		}
		if parsed.Scheme != "https" && parsed.Scheme != "http" {
			return fmt.Errorf("telegram.webhook_url must use http or https, got %q", parsed.Scheme)
		}
	}
	if c.Telegram.PollTimeout > 90 {
		return errors.New("telegram.poll_timeout must be 90 seconds or less")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if !c.ServeHTTP() {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind %q is not a valid host:port", c.API.Bind)
	}
	return nil
}

func (c *Config) validateDownload() error {
	if len(c.Download.AllowedDomains) == 0 {
		return errors.New("download.allowed_domains must include at least one domain")
	}
	return ensurePositiveMap(map[string]int{
		"download.max_file_mb":     c.Download.MaxFileMB,
		"download.timeout":         c.Download.Timeout,
		"download.resolve_timeout": c.Download.ResolveTimeout,
	})
}

func (c *Config) validateTranscode() error {
	bitrate := c.Transcode.AudioBitrate
	if !strings.HasSuffix(bitrate, "k") {
		return fmt.Errorf("transcode.audio_bitrate %q must end in 'k' (e.g. 192k)", bitrate)
	}
	return ensurePositiveMap(map[string]int{
		"transcode.timeout": c.Transcode.Timeout,
	})
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
