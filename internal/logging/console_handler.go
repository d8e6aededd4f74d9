package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders records as indented human-readable blocks. Fields
// repeated from the previous record about the same item are suppressed so
// progress-heavy stages stay scannable.
type consoleHandler struct {
	mu        sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
	lastSeen  map[string]map[string]string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{writer: w, level: lvl, addSource: addSource, lastSeen: make(map[string]map[string]string)}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// recordMeta carries the identity fields pulled out of a record before
// rendering.
type recordMeta struct {
	ts        time.Time
	level     slog.Level
	component string
	lane      string
	itemID    string
	stage     string
	message   string
	src       *slog.Source
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		flattenAttr(&kvs, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})

	meta, filtered := extractMeta(record, kvs)
	filtered = dedupeAttrs(filtered)
	all := dedupeAttrs(kvs)

	var buf bytes.Buffer
	buf.Grow(256 + len(filtered)*32)

	h.mu.Lock()
	defer h.mu.Unlock()
	if record.Level < slog.LevelInfo {
		h.writeDebug(&buf, meta, all)
	} else {
		h.writeInfo(&buf, meta, filtered)
	}
	_, err := h.writer.Write(buf.Bytes())
	return err
}

// recordSource resolves the record's PC to a slog.Source, matching the
// behavior of slog.Record.Source from newer Go releases. It returns nil when
// the record carries no location information.
func recordSource(record slog.Record) *slog.Source {
	if record.PC == 0 {
		return nil
	}
	frames := runtime.CallersFrames([]uintptr{record.PC})
	frame, _ := frames.Next()
	return &slog.Source{
		Function: frame.Function,
		File:     frame.File,
		Line:     frame.Line,
	}
}

// extractMeta pulls the identity fields out of kvs. The component attr is
// consumed; item, stage, and lane stay in the returned list so they render
// with the other fields at debug level.
func extractMeta(record slog.Record, kvs []kv) (recordMeta, []kv) {
	meta := recordMeta{
		ts:      record.Time,
		level:   record.Level,
		message: strings.TrimSpace(record.Message),
		src:     recordSource(record),
	}
	if meta.ts.IsZero() {
		meta.ts = time.Now()
	}
	if meta.message == "" {
		meta.message = "(no message)"
	}

	rest := make([]kv, 0, len(kvs))
	for _, entry := range kvs {
		switch entry.key {
		case FieldComponent:
			if meta.component == "" {
				meta.component = attrString(entry.value)
			}
			continue
		case FieldItemID:
			if meta.itemID == "" {
				meta.itemID = attrString(entry.value)
			}
		case FieldStage:
			if meta.stage == "" {
				meta.stage = attrString(entry.value)
			}
		case FieldLane:
			if meta.lane == "" {
				meta.lane = attrString(entry.value)
			}
		}
		rest = append(rest, entry)
	}
	return meta, rest
}

func (h *consoleHandler) writeInfo(buf *bytes.Buffer, meta recordMeta, attrs []kv) {
	h.writeHeader(buf, meta)
	fields, hidden := selectInfoFields(attrs, 0, true)
	fields, hidden = h.suppressRepeats(infoSummaryKey(meta.component, meta.itemID, attrs), fields, hidden, meta.level)
	buf.WriteByte('\n')
	for _, field := range fields {
		buf.WriteString("    - ")
		buf.WriteString(field.label)
		buf.WriteString(": ")
		buf.WriteString(field.value)
		buf.WriteByte('\n')
	}
	if hidden > 0 {
		buf.WriteString("    + ")
		buf.WriteString(strconv.Itoa(hidden))
		buf.WriteString(" more field")
		if hidden != 1 {
			buf.WriteByte('s')
		}
		buf.WriteString(" hidden\n")
	}
}

func (h *consoleHandler) writeDebug(buf *bytes.Buffer, meta recordMeta, attrs []kv) {
	h.writeHeader(buf, meta)
	buf.WriteByte('\n')
	for _, entry := range attrs {
		if entry.key == "" {
			continue
		}
		buf.WriteString("    ")
		buf.WriteString(entry.key)
		buf.WriteString(": ")
		buf.WriteString(formatValue(entry.value))
		buf.WriteByte('\n')
	}
}

func (h *consoleHandler) writeHeader(buf *bytes.Buffer, meta recordMeta) {
	buf.WriteString(formatTimestamp(meta.ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(meta.level))
	if meta.component != "" {
		buf.WriteString(" [")
		buf.WriteString(meta.component)
		buf.WriteByte(']')
	}
	if subject := FormatSubject(meta.lane, meta.itemID, meta.stage); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	if meta.message != "" {
		buf.WriteString(" – ")
		buf.WriteString(meta.message)
	}
	if h.addSource && meta.src != nil {
		buf.WriteString(" [")
		buf.WriteString(filepath.Base(meta.src.File))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(meta.src.Line))
		buf.WriteByte(']')
	}
}

// suppressRepeats drops fields whose value matches the last record rendered
// for the same summary key. Warnings and errors always render in full, but
// still refresh the cache.
func (h *consoleHandler) suppressRepeats(key string, fields []infoField, hidden int, level slog.Level) ([]infoField, int) {
	if key == "" || len(fields) == 0 {
		return fields, hidden
	}
	cache, ok := h.lastSeen[key]
	if !ok {
		cache = make(map[string]string)
		h.lastSeen[key] = cache
	}
	if level > slog.LevelInfo {
		for _, field := range fields {
			cache[field.label] = field.value
		}
		return fields, hidden
	}
	kept := make([]infoField, 0, len(fields))
	for _, field := range fields {
		if prev, seen := cache[field.label]; seen && prev == field.value {
			continue
		}
		cache[field.label] = field.value
		kept = append(kept, field)
	}
	return kept, hidden
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	clone := &consoleHandler{
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
		lastSeen:  h.lastSeen,
	}
	if len(h.attrs) > 0 {
		clone.attrs = append([]slog.Attr(nil), h.attrs...)
	}
	if len(h.groups) > 0 {
		clone.groups = append([]string(nil), h.groups...)
	}
	return clone
}

type kv struct {
	key   string
	value slog.Value
}

// dedupeAttrs keeps the first occurrence of each key and lets later values
// win, matching how slog resolves duplicate attrs.
func dedupeAttrs(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	positions := make(map[string]int, len(attrs))
	deduped := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if pos, ok := positions[attr.key]; ok {
			deduped[pos].value = attr.value
			continue
		}
		positions[attr.key] = len(deduped)
		deduped = append(deduped, attr)
	}
	return deduped
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = appendPrefix(prefix, attr.Key)
		}
		for _, member := range attr.Value.Group() {
			flattenAttr(dst, next, member)
		}
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		joined := strings.Join(prefix, ".")
		if key == "" {
			key = joined
		} else {
			key = joined + "." + key
		}
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}

func appendPrefix(prefix []string, value string) []string {
	out := make([]string, len(prefix)+1)
	copy(out, prefix)
	out[len(prefix)] = value
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
