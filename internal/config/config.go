package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Telegram contains Bot API connection settings.
type Telegram struct {
	Token          string `toml:"token"`
	APIBaseURL     string `toml:"api_base_url"`
	WebhookURL     string `toml:"webhook_url"`
	WebhookSecret  string `toml:"webhook_secret"`
	PollTimeout    int    `toml:"poll_timeout"`
	RequestTimeout int    `toml:"request_timeout"`
	UploadTimeout  int    `toml:"upload_timeout"`
}

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// API contains configuration for the HTTP status/webhook server.
type API struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
	Token   string `toml:"token"`
}

// Download contains yt-dlp and URL acceptance settings.
type Download struct {
	YtdlpBinary    string   `toml:"ytdlp_binary"`
	MaxFileMB      int      `toml:"max_file_mb"`
	Timeout        int      `toml:"timeout"`
	ResolveTimeout int      `toml:"resolve_timeout"`
	CacheTTLHours  int      `toml:"cache_ttl_hours"`
	AllowedDomains []string `toml:"allowed_domains"`
}

// Transcode contains ffmpeg conversion settings.
type Transcode struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	AudioBitrate  string `toml:"audio_bitrate"`
	Timeout       int    `toml:"timeout"`
}

// Workflow contains daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Queue          bool   `toml:"queue"`
	Delivery       bool   `toml:"delivery"`
	Errors         bool   `toml:"errors"`
}

// Config encapsulates all configuration values for spool.
//
// Configuration sections by subsystem:
//   - Telegram: bot token, webhook/polling mode, API timeouts
//   - Paths: data, staging, and log directories
//   - API: HTTP bind for the webhook receiver and status endpoints
//   - Download: yt-dlp binary, size cap, allowed source domains
//   - Transcode: ffmpeg/ffprobe binaries and audio bitrate
//   - Workflow: daemon polling intervals and heartbeats
//   - Logging: log format, level, and retention
//   - Notifications: ntfy push notification settings
type Config struct {
	Telegram      Telegram      `toml:"telegram"`
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Download      Download      `toml:"download"`
	Transcode     Transcode     `toml:"transcode"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/spool/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/spool/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("spool.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDatabasePath returns the SQLite queue file location.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// ResolutionCachePath returns the bbolt resolution cache file location.
func (c *Config) ResolutionCachePath() string {
	return filepath.Join(c.Paths.DataDir, "resolutions.db")
}

// SocketPath returns the daemon control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "spool.sock")
}

// YtdlpBinary returns the yt-dlp executable name or path.
func (c *Config) YtdlpBinary() string {
	return c.Download.YtdlpBinary
}

// FFmpegBinary returns the ffmpeg executable name or path.
func (c *Config) FFmpegBinary() string {
	return c.Transcode.FFmpegBinary
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return c.Transcode.FFprobeBinary
}

// MaxFileBytes returns the delivery size cap in bytes.
func (c *Config) MaxFileBytes() int64 {
	return int64(c.Download.MaxFileMB) * 1024 * 1024
}

// WebhookEnabled reports whether a public webhook URL is configured.
func (c *Config) WebhookEnabled() bool {
	return strings.TrimSpace(c.Telegram.WebhookURL) != ""
}

// ServeHTTP reports whether the daemon should run its HTTP listener.
// The listener carries the Telegram webhook in webhook mode and the
// status API whenever the API is enabled.
func (c *Config) ServeHTTP() bool {
	return c.WebhookEnabled() || c.API.Enabled
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
