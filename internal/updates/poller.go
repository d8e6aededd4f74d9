// Package updates drives the Telegram getUpdates long poll when no webhook
// URL is configured, feeding received updates to the bot router.
package updates

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/services/telegram"
)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// allowedUpdates limits polling to the update types the router handles.
var allowedUpdates = []string{"message", "callback_query"}

// Source is the slice of the Telegram client the poller drives.
type Source interface {
	DeleteWebhook(ctx context.Context, dropPending bool) error
	GetUpdates(ctx context.Context, req telegram.GetUpdatesRequest) ([]telegram.Update, error)
}

// Handler consumes polled updates.
type Handler interface {
	HandleUpdate(ctx context.Context, update telegram.Update)
}

// Poller long-polls getUpdates on a single goroutine with error backoff.
type Poller struct {
	client  Source
	handler Handler
	logger  *slog.Logger

	pollTimeout    int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// PollerOption configures the poller.
type PollerOption func(*Poller)

// WithBackoff overrides the error backoff bounds.
func WithBackoff(initial, max time.Duration) PollerOption {
	return func(p *Poller) {
		if initial > 0 {
			p.initialBackoff = initial
		}
		if max > 0 {
			p.maxBackoff = max
		}
	}
}

// NewPoller constructs the long-poll driver.
func NewPoller(cfg *config.Config, client Source, handler Handler, logger *slog.Logger, opts ...PollerOption) *Poller {
	poller := &Poller{
		client:         client,
		handler:        handler,
		logger:         logging.NewComponentLogger(logger, "poller"),
		pollTimeout:    cfg.Telegram.PollTimeout,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(poller)
	}
	return poller
}

// Start launches the poll loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("poller already running")
	}
	if p.client == nil {
		return errors.New("telegram client not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)
	go p.run(runCtx)
	return nil
}

// Stop terminates the poll loop and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	// Polling and a registered webhook are mutually exclusive on the Bot API
	// side. A failure here is retried implicitly: getUpdates keeps returning
	// 409 until the webhook is gone, which lands in the backoff path below.
	if err := p.client.DeleteWebhook(ctx, false); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("failed to delete webhook before polling", logging.Error(err))
	}
	p.logger.Info("polling for updates", logging.Int("poll_timeout_seconds", p.pollTimeout))

	var offset int64
	backoff := p.initialBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch, err := p.client.GetUpdates(ctx, telegram.GetUpdatesRequest{
			Offset:         offset,
			Timeout:        p.pollTimeout,
			AllowedUpdates: allowedUpdates,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("getUpdates failed", logging.Error(err), logging.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > p.maxBackoff {
				backoff = p.maxBackoff
			}
			continue
		}
		backoff = p.initialBackoff

		for _, update := range batch {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			p.handler.HandleUpdate(ctx, update)
		}
	}
}
