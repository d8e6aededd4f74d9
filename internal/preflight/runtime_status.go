package preflight

import (
	"context"
	"strings"

	"spool/internal/config"
)

// CheckTelegramFromConfig evaluates Telegram status from config and connectivity.
func CheckTelegramFromConfig(cfg *config.Config) Result {
	const name = "Telegram"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return Result{Name: name, Detail: "Missing token"}
	}
	check := CheckTelegram(context.Background(), cfg.Telegram.Token, cfg.Telegram.APIBaseURL)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}

// CheckNotificationsFromConfig reports whether ntfy push notifications are configured.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: topic}
}
