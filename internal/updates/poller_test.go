package updates_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spool/internal/logging"
	"spool/internal/services/telegram"
	"spool/internal/testsupport"
	"spool/internal/updates"
)

type scriptedSource struct {
	mu          sync.Mutex
	batches     [][]telegram.Update
	errs        []error
	calls       []telegram.GetUpdatesRequest
	deleteCalls int
}

func (s *scriptedSource) DeleteWebhook(_ context.Context, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	return nil
}

func (s *scriptedSource) GetUpdates(ctx context.Context, req telegram.GetUpdatesRequest) ([]telegram.Update, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		s.mu.Unlock()
		return nil, err
	}
	if len(s.batches) > 0 {
		batch := s.batches[0]
		s.batches = s.batches[1:]
		s.mu.Unlock()
		return batch, nil
	}
	s.mu.Unlock()
	// Script exhausted: behave like an idle long poll.
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *scriptedSource) requests() []telegram.GetUpdatesRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]telegram.GetUpdatesRequest(nil), s.calls...)
}

type recordingHandler struct {
	mu      sync.Mutex
	updates []telegram.Update
}

func (r *recordingHandler) HandleUpdate(_ context.Context, update telegram.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
}

func (r *recordingHandler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPollerDispatchesAndAdvancesOffset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &scriptedSource{
		batches: [][]telegram.Update{
			{{UpdateID: 5}, {UpdateID: 6}},
			{{UpdateID: 7}},
		},
	}
	handler := &recordingHandler{}
	poller := updates.NewPoller(cfg, source, handler, logging.NewNop())

	if err := poller.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer poller.Stop()

	waitFor(t, 2*time.Second, func() bool { return handler.count() == 3 })
	waitFor(t, 2*time.Second, func() bool { return len(source.requests()) >= 3 })
	poller.Stop()

	calls := source.requests()
	if source.deleteCalls != 1 {
		t.Fatalf("expected webhook deleted once, got %d", source.deleteCalls)
	}
	if calls[0].Offset != 0 {
		t.Fatalf("expected first poll from offset 0, got %d", calls[0].Offset)
	}
	if calls[1].Offset != 7 {
		t.Fatalf("expected offset to advance past batch, got %d", calls[1].Offset)
	}
	if calls[2].Offset != 8 {
		t.Fatalf("expected offset 8 after second batch, got %d", calls[2].Offset)
	}
	if len(calls[0].AllowedUpdates) != 2 {
		t.Fatalf("expected message and callback_query allowed, got %v", calls[0].AllowedUpdates)
	}
}

func TestPollerBacksOffOnErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &scriptedSource{
		errs:    []error{errors.New("boom"), errors.New("boom again")},
		batches: [][]telegram.Update{{{UpdateID: 1}}},
	}
	handler := &recordingHandler{}
	poller := updates.NewPoller(cfg, source, handler, logging.NewNop(), updates.WithBackoff(time.Millisecond, 4*time.Millisecond))

	if err := poller.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer poller.Stop()

	waitFor(t, 2*time.Second, func() bool { return handler.count() == 1 })
	poller.Stop()

	if got := len(source.requests()); got < 3 {
		t.Fatalf("expected retries after errors, got %d calls", got)
	}
}

func TestPollerStartGuards(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	if err := updates.NewPoller(cfg, nil, &recordingHandler{}, logging.NewNop()).Start(context.Background()); err == nil {
		t.Fatal("expected error without client")
	}

	poller := updates.NewPoller(cfg, &scriptedSource{}, &recordingHandler{}, logging.NewNop())
	if err := poller.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer poller.Stop()
	if err := poller.Start(context.Background()); err == nil {
		t.Fatal("expected error when already running")
	}
}
