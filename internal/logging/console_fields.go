package logging

import (
	"log/slog"
	"strings"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

// infoHighlightKeys orders the fields operators care about most; anything not
// listed renders after these in record order.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"title",
	FieldMediaKind,
	FieldSource,
	FieldURL,
	"status",
	FieldProgressStage,
	FieldProgressPercent,
	FieldProgressMessage,
	"error_message",
	FieldErrorHint,
	"reason",
	"stage_duration",
	"duration_seconds",
	"output_file",
	"file_id",
	"cache_hit",
	"retry_count",
	"requested_by",
	"pending_items",
	"reclaimed",
	"removed",
}

// selectInfoFields returns formatted info-level fields and a count of hidden
// entries. limit=0 means no limit. includeDebug controls whether debug-only
// keys are allowed.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	if limit < 0 {
		limit = 0
	}
	fields := make([]infoField, 0, infoAttrLimit)
	hidden := 0
	used := make([]bool, len(attrs))

	take := func(idx int) {
		used[idx] = true
		key := attrs[idx].key
		if skipInfoKey(key) {
			return
		}
		if !includeDebug && isDebugOnlyKey(key) {
			hidden++
			return
		}
		value := formatValueForKey(key, attrs[idx].value)
		if !includeDebug && shouldHideInfoValue(key, value) {
			hidden++
			return
		}
		if limit > 0 && len(fields) >= limit {
			hidden++
			return
		}
		fields = append(fields, infoField{label: displayLabel(key), value: value})
	}

	for _, key := range infoHighlightKeys {
		for idx := range attrs {
			if !used[idx] && attrs[idx].key == key {
				take(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			take(idx)
		}
	}
	return fields, hidden
}

// formatValueForKey picks a human-friendly rendering based on the key name
// and value kind.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindInt64:
		if isByteSizeKey(key) {
			return formatBytes(v.Int64())
		}
	case slog.KindUint64:
		if isByteSizeKey(key) {
			return formatBytes(int64(v.Uint64()))
		}
	case slog.KindDuration:
		if isDurationKey(key) {
			return formatDurationHuman(v.Duration())
		}
	case slog.KindFloat64:
		if isPercentKey(key) {
			return formatPercent(v.Float64())
		}
	case slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" || key == "error_message" {
		value = truncateErrorValue(value)
	}
	return value
}

func isByteSizeKey(key string) bool {
	return key == "size" || strings.HasSuffix(key, "_bytes") || strings.HasSuffix(key, "_size")
}

func isDurationKey(key string) bool {
	switch key {
	case "elapsed", "duration", "backoff":
		return true
	}
	return strings.HasSuffix(key, "_duration") ||
		strings.HasSuffix(key, "_elapsed") ||
		strings.HasSuffix(key, "_latency")
}

func isPercentKey(key string) bool {
	return key == FieldProgressPercent || strings.HasSuffix(key, "_percent")
}

func truncateErrorValue(value string) string {
	value = strings.TrimSpace(value)
	const maxLen = 200
	if len(value) > maxLen {
		return value[:maxLen] + "…"
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldItemID, FieldStage, FieldLane, FieldComponent:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	if key == "" {
		return true
	}
	switch key {
	case FieldCorrelationID,
		"data",
		"offset",
		"poll_timeout_seconds",
		"webhook_url",
		"socket_path",
		"format",
		"bind_addr":
		return true
	}
	if strings.Contains(key, "correlation") {
		return true
	}
	if strings.HasSuffix(key, "_id") && key != FieldItemID {
		return true
	}
	if strings.HasPrefix(key, "ffprobe.") {
		return true
	}
	if strings.Contains(key, "_path") || strings.Contains(key, "_dir") {
		return true
	}
	return false
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error_message", "error", FieldURL:
		return false
	}
	return len(value) > 120
}

var displayLabels = map[string]string{
	FieldAlert:           "Alert",
	FieldEventType:       "Event",
	FieldErrorHint:       "Hint",
	FieldItemID:          "Item",
	FieldStage:           "Stage",
	"title":              "Title",
	FieldMediaKind:       "Format",
	FieldSource:          "Source",
	FieldURL:             "URL",
	"status":             "Status",
	FieldProgressStage:   "Progress Stage",
	FieldProgressMessage: "Progress",
	FieldProgressPercent: "Percent",
	"error_message":      "Error",
	"reason":             "Reason",
	"stage_duration":     "Duration",
	"duration_seconds":   "Runtime",
	"output_file":        "Output",
	"file_id":            "File ID",
	"cache_hit":          "Cache Hit",
	"retry_count":        "Retries",
	"requested_by":       "Requested By",
	"pending_items":      "Pending",
	"reclaimed":          "Reclaimed",
	"removed":            "Removed",
}

func displayLabel(key string) string {
	if label, ok := displayLabels[key]; ok {
		return label
	}
	return titleizeKey(key)
}

func titleizeKey(key string) string {
	if key == "" {
		return ""
	}
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' })
	if len(parts) == 0 {
		parts = []string{key}
	}
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func capitalizeASCII(value string) string {
	if value == "" {
		return ""
	}
	lower := strings.ToLower(value)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// infoSummaryKey identifies which queue item or component a record belongs to
// so consecutive lines about the same work can be grouped.
func infoSummaryKey(component, itemID string, attrs []kv) string {
	itemID = strings.TrimSpace(itemID)
	if itemID != "" {
		return itemID
	}
	if title := attrValue(attrs, "title"); title != "" {
		return "title:" + title
	}
	if url := attrValue(attrs, FieldURL); url != "" {
		return "url:" + url
	}
	return component
}

func attrValue(attrs []kv, key string) string {
	for _, entry := range attrs {
		if entry.key == key {
			return attrString(entry.value)
		}
	}
	return ""
}
