package logging

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func formatBytes(value int64) string {
	const (
		kiB = 1024
		miB = kiB * 1024
		giB = miB * 1024
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.2f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.2f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.2f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}

func formatDurationHuman(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Second:
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	case d < time.Minute:
		return trimZeroDecimal(fmt.Sprintf("%.1f", d.Seconds())) + "s"
	case d < time.Hour:
		minutes := int(d / time.Minute)
		seconds := int(d/time.Second) % 60
		return fmt.Sprintf("%dm%02ds", minutes, seconds)
	default:
		hours := int(d / time.Hour)
		minutes := int(d/time.Minute) % 60
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	}
}

func formatPercent(value float64) string {
	return trimZeroDecimal(fmt.Sprintf("%.1f", value)) + "%"
}

func trimZeroDecimal(value string) string {
	return strings.TrimSuffix(value, ".0")
}
