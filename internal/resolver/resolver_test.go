package resolver_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spool/internal/logging"
	"spool/internal/metacache"
	"spool/internal/queue"
	"spool/internal/resolver"
	"spool/internal/services"
	"spool/internal/services/ytdlp"
	"spool/internal/testsupport"
)

type stubProber struct {
	meta  ytdlp.Metadata
	err   error
	calls int
}

func (s *stubProber) Probe(ctx context.Context, url string) (ytdlp.Metadata, error) {
	s.calls++
	if s.err != nil {
		return ytdlp.Metadata{}, s.err
	}
	return s.meta, nil
}

type recordingStatus struct {
	edits []string
}

func (r *recordingStatus) Edit(_ context.Context, _, _ int64, text string) error {
	r.edits = append(r.edits, text)
	return nil
}

func (r *recordingStatus) EditNow(_ context.Context, _, _ int64, text string) error {
	r.edits = append(r.edits, text)
	return nil
}

func newTestCache(t *testing.T) *metacache.Cache {
	t.Helper()
	cache, err := metacache.Open(filepath.Join(t.TempDir(), "resolutions.db"), 24*time.Hour, nil)
	if err != nil {
		t.Fatalf("metacache.Open: %v", err)
	}
	t.Cleanup(func() {
		cache.Close()
	})
	return cache
}

func TestResolverResolvesViaProbe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cache := newTestCache(t)

	item := testsupport.NewRequest(t, store, "https://youtu.be/abc123", queue.MediaKindMP3, 1001)
	item.Status = queue.StatusResolving
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	prober := &stubProber{meta: ytdlp.Metadata{
		Title:    "Morning Jam Session",
		Uploader: "Example Channel",
		Duration: 212.4,
		Filesize: 3 * 1024 * 1024,
	}}
	status := &recordingStatus{}
	handler := resolver.NewWithDependencies(cfg, store, logging.NewNop(), prober, cache, status)

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.Title != "Morning Jam Session" {
		t.Fatalf("unexpected title %q", item.Title)
	}
	if item.DurationSeconds != 212 {
		t.Fatalf("expected rounded duration 212, got %d", item.DurationSeconds)
	}
	if item.ProgressPercent != 100 || item.ProgressStage != "Resolved" {
		t.Fatalf("unexpected progress state %q %.0f", item.ProgressStage, item.ProgressPercent)
	}

	entry, ok := cache.Lookup("https://youtu.be/abc123")
	if !ok {
		t.Fatal("expected resolution to be cached")
	}
	if entry.Title != "Morning Jam Session" || entry.Uploader != "Example Channel" {
		t.Fatalf("unexpected cache entry %+v", entry)
	}

	if len(status.edits) == 0 {
		t.Fatal("expected a status edit with the resolved title")
	}
	last := status.edits[len(status.edits)-1]
	if !strings.Contains(last, "Morning Jam Session") {
		t.Fatalf("expected resolved title in status text, got %q", last)
	}
}

func TestResolverUsesCacheWithoutProbe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cache := newTestCache(t)

	if err := cache.Store(metacache.Entry{
		URL:             "https://youtu.be/cached",
		Title:           "Cached Clip",
		DurationSeconds: 93.6,
	}); err != nil {
		t.Fatalf("cache.Store: %v", err)
	}

	item := testsupport.NewRequest(t, store, "https://youtu.be/cached", queue.MediaKindMP4, 1001)
	prober := &stubProber{meta: ytdlp.Metadata{Title: "fresh probe"}}
	handler := resolver.NewWithDependencies(cfg, store, logging.NewNop(), prober, cache, &recordingStatus{})

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if prober.calls != 0 {
		t.Fatalf("expected cache hit to skip the probe, got %d probe calls", prober.calls)
	}
	if item.Title != "Cached Clip" {
		t.Fatalf("unexpected title %q", item.Title)
	}
	if item.DurationSeconds != 94 {
		t.Fatalf("expected rounded duration 94, got %d", item.DurationSeconds)
	}
}

func TestResolverParksOversizedEstimate(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxFileMB(50))
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewRequest(t, store, "https://youtu.be/huge", queue.MediaKindMP4, 1001)
	prober := &stubProber{meta: ytdlp.Metadata{
		Title:          "Feature Length",
		Duration:       5400,
		FilesizeApprox: 80 * 1024 * 1024,
	}}
	handler := resolver.NewWithDependencies(cfg, store, logging.NewNop(), prober, newTestCache(t), &recordingStatus{})

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := handler.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected size gate error")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if services.FailureStatus(err) != queue.StatusReview {
		t.Fatal("expected over-cap estimate to classify as review")
	}
	msg, ok := services.UserMessage(err)
	if !ok {
		t.Fatal("expected a user-facing message")
	}
	if !strings.Contains(msg, "File too big (estimated 80.0MB > 50MB)") {
		t.Fatalf("unexpected user message %q", msg)
	}
}

func TestResolverFailsWithoutProber(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewRequest(t, store, "https://youtu.be/abc", queue.MediaKindMP3, 1001)
	handler := resolver.NewWithDependencies(cfg, store, logging.NewNop(), nil, nil, nil)

	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestResolverClassifiesProbeFailures(t *testing.T) {
	tests := []struct {
		name       string
		probeErr   error
		wantMarker error
	}{
		{name: "unsupported url", probeErr: ytdlp.ErrUnsupported, wantMarker: services.ErrValidation},
		{name: "unavailable media", probeErr: ytdlp.ErrUnavailable, wantMarker: services.ErrExternalTool},
		{name: "generic failure", probeErr: errors.New("exit status 1"), wantMarker: services.ErrExternalTool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			store := testsupport.MustOpenStore(t, cfg)

			item := testsupport.NewRequest(t, store, "https://youtu.be/bad", queue.MediaKindMP3, 1001)
			prober := &stubProber{err: tt.probeErr}
			handler := resolver.NewWithDependencies(cfg, store, logging.NewNop(), prober, nil, nil)

			err := handler.Execute(context.Background(), item)
			if !errors.Is(err, tt.wantMarker) {
				t.Fatalf("expected marker %v, got %v", tt.wantMarker, err)
			}
		})
	}
}

func TestResolverHealthReady(t *testing.T) {
	testsupport.StubBinaries(t, "yt-dlp")
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	handler := resolver.NewWithDependencies(cfg, store, logging.NewNop(), &stubProber{}, nil, nil)
	health := handler.HealthCheck(context.Background())
	if !health.Ready {
		t.Fatalf("expected ready health, got %+v", health)
	}
}

func TestResolverHealthMissingProber(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	handler := resolver.NewWithDependencies(cfg, store, logging.NewNop(), nil, nil, nil)
	health := handler.HealthCheck(context.Background())
	if health.Ready {
		t.Fatalf("expected not ready health, got %+v", health)
	}
	if !strings.Contains(strings.ToLower(health.Detail), "client") {
		t.Fatalf("expected detail to mention client, got %q", health.Detail)
	}
}
