package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewMultiHandlerAllNil(t *testing.T) {
	h := newMultiHandler(nil, nil)
	if _, ok := h.(NoopHandler); !ok {
		t.Errorf("expected NoopHandler when every sink is nil, got %T", h)
	}
}

func TestNewMultiHandlerSingleSinkUnwrapped(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)

	if h := newMultiHandler(nil, inner); h != inner {
		t.Error("expected single surviving sink to be returned unwrapped")
	}
}

func TestMultiHandlerEnabledAnySink(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	info := slog.NewJSONHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newMultiHandler(info, debug)

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be enabled while one sink accepts it")
	}
	if h.Enabled(context.Background(), slog.LevelDebug-4) {
		t.Error("expected levels below every sink to stay disabled")
	}
}

func TestMultiHandlerHandleWritesAllSinks(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newMultiHandler(
		slog.NewJSONHandler(&buf1, nil),
		slog.NewJSONHandler(&buf2, nil),
	)

	slog.New(h).Info("fan out", slog.String("key", "value"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"key"`)) {
			t.Errorf("expected record with attrs in sink %d, got %q", i, buf.String())
		}
	}
}

func TestMultiHandlerHandleRespectsSinkLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	h := newMultiHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	slog.New(h).Debug("debug only")

	if infoBuf.Len() != 0 {
		t.Errorf("info sink should not receive debug records, got %q", infoBuf.String())
	}
	if debugBuf.Len() == 0 {
		t.Error("debug sink should receive debug records")
	}
}

func TestMultiHandlerWithAttrs(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newMultiHandler(
		slog.NewJSONHandler(&buf1, nil),
		slog.NewJSONHandler(&buf2, nil),
	)

	slog.New(h.WithAttrs([]slog.Attr{slog.String("item", "42")})).Info("tagged")

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"item"`)) {
			t.Errorf("expected bound attr in sink %d, got %q", i, buf.String())
		}
	}
}

func TestMultiHandlerWithGroup(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newMultiHandler(
		slog.NewJSONHandler(&buf1, nil),
		slog.NewJSONHandler(&buf2, nil),
	)

	slog.New(h.WithGroup("queue")).Info("grouped", slog.String("field", "value"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"queue"`)) {
			t.Errorf("expected group in sink %d, got %q", i, buf.String())
		}
	}
}
