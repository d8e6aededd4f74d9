package bot

import (
	"fmt"
	"strings"

	"spool/internal/queue"
)

// Chat texts live here so the router and the stage handlers stay consistent.
const (
	GreetingText = "🖐 Yooo bro! Send me a link from:\n" +
		"YouTube | TikTok | Instagram | Facebook\n" +
		"I'll download it as MP3 or MP4 for you!"

	ChooseFormatText = "Choose format:"

	UnsupportedURLText = "❌ Unsupported URL. Send valid link from:\nYouTube/TikTok/Instagram/Facebook"

	MissingURLText = "❌ URL missing. Send link again"

	AlreadyQueuedText = "⏳ Already queued. Hang tight!"

	// Inline keyboard labels and the callback payloads behind them.
	ButtonMP3   = "MP3 🎵"
	ButtonMP4   = "MP4 🎬"
	CallbackMP3 = "mp3"
	CallbackMP4 = "mp4"
)

func kindLabel(kind queue.MediaKind) string {
	return strings.ToUpper(string(kind))
}

// DownloadingText is the initial status text once a format is chosen.
func DownloadingText(kind queue.MediaKind) string {
	return fmt.Sprintf("⬇️ Downloading %s...", kindLabel(kind))
}

// ProgressText renders the status message during an active download. The
// resolved title rides on a second line once the resolver has produced one.
func ProgressText(kind queue.MediaKind, title string, percent float64) string {
	line := DownloadingText(kind)
	if percent > 0 {
		line = fmt.Sprintf("⬇️ Downloading %s... %.0f%%", kindLabel(kind), percent)
	}
	if title = strings.TrimSpace(title); title != "" {
		return line + "\n" + title
	}
	return line
}

// CompletedText is the final status text after delivery.
func CompletedText(kind queue.MediaKind) string {
	return fmt.Sprintf("✅ %s download complete!", kindLabel(kind))
}

// TooBigText reports a downloaded file over the delivery cap.
func TooBigText(sizeMB float64, capMB int) string {
	return fmt.Sprintf("❌ File too big (%.1fMB > %dMB)", sizeMB, capMB)
}

// EstimatedTooBigText reports a pre-download size-gate rejection.
func EstimatedTooBigText(sizeMB float64, capMB int) string {
	return fmt.Sprintf("❌ File too big (estimated %.1fMB > %dMB)", sizeMB, capMB)
}

// TooBigCapText reports a download yt-dlp aborted at the size cap, where the
// final size is unknown.
func TooBigCapText(capMB int) string {
	return fmt.Sprintf("❌ File too big (> %dMB)", capMB)
}

// ErrorText reports a terminal failure to the requester.
func ErrorText(reason string) string {
	return fmt.Sprintf("❌ Error: %s", reason)
}

// ReviewText reports that the item was parked for operator review.
func ReviewText(reason string) string {
	return fmt.Sprintf("⚠️ Needs review: %s", reason)
}
