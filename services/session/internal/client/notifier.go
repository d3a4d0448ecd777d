package client

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// NotifierConfig holds the bounded-task settings for coach notifications.
type NotifierConfig struct {
	// QueueSize bounds the number of pending notifications. A full queue
	// drops the notification (logged); the next review for the same coach
	// recomputes the aggregate from scratch anyway.
	QueueSize int
	// Attempts is the fixed number of delivery attempts per notification.
	Attempts int
	// Backoff is the wait between attempts, multiplied by the attempt number.
	Backoff time.Duration
	// DrainTimeout caps how long each pending notification gets during
	// Close once the run context is gone.
	DrainTimeout time.Duration
}

// DefaultNotifierConfig returns the default bounded-task settings.
func DefaultNotifierConfig() NotifierConfig {
	return NotifierConfig{
		QueueSize:    256,
		Attempts:     3,
		Backoff:      500 * time.Millisecond,
		DrainTimeout: 5 * time.Second,
	}
}

// Notifier delivers coach reputation notifications on a dedicated worker.
// Enqueue never blocks and never fails the caller: delivery failures are
// logged, not propagated, so the consumer's acknowledgment decision stays
// independent of the coach service's availability.
type Notifier struct {
	client *CoachClient
	cfg    NotifierConfig
	logger *slog.Logger
	queue  chan RatingNotification
	wg     sync.WaitGroup

	// mu serializes sends on queue with its close, so Enqueue can never
	// send on a closed channel.
	mu     sync.Mutex
	closed bool
}

// NewNotifier creates a notifier; call Start to launch the worker.
func NewNotifier(client *CoachClient, cfg NotifierConfig, logger *slog.Logger) *Notifier {
	defaults := DefaultNotifierConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaults.Attempts
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaults.DrainTimeout
	}
	return &Notifier{
		client: client,
		cfg:    cfg,
		logger: logger,
		queue:  make(chan RatingNotification, cfg.QueueSize),
	}
}

// Start launches the delivery worker. It returns immediately; the worker
// drains the queue until Close is called. Notifications still queued when
// ctx ends are delivered under a fresh drain context so a shutdown does not
// fail them instantly.
func (n *Notifier) Start(ctx context.Context) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for notification := range n.queue {
			if ctx.Err() == nil {
				n.deliver(ctx, notification)
				continue
			}
			drainCtx, cancel := context.WithTimeout(context.Background(), n.cfg.DrainTimeout)
			n.deliver(drainCtx, notification)
			cancel()
		}
	}()
}

// Enqueue hands a notification to the worker. It returns false if the queue
// is full or the notifier is closed; the caller only logs that outcome.
func (n *Notifier) Enqueue(notification RatingNotification) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return false
	}

	select {
	case n.queue <- notification:
		return true
	default:
		n.logger.Warn("coach notification queue full, dropping",
			slog.Int64("coach_id", notification.CoachID),
			slog.Int("total_sessions", notification.TotalSessions),
		)
		return false
	}
}

// deliver makes a fixed number of attempts with linear backoff. Exhausting
// the attempts is terminal for this notification: the next review recomputes
// and resends the full aggregate.
func (n *Notifier) deliver(ctx context.Context, notification RatingNotification) {
	var lastErr error
	for attempt := 1; attempt <= n.cfg.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(n.cfg.Backoff * time.Duration(attempt-1)):
			}
		}

		if err := n.client.Notify(ctx, notification); err != nil {
			lastErr = err
			n.logger.Warn("coach notification attempt failed",
				slog.Int64("coach_id", notification.CoachID),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", n.cfg.Attempts),
				slog.String("error", err.Error()),
			)
			continue
		}
		return
	}

	n.logger.Error("coach notification dropped after all attempts",
		slog.Int64("coach_id", notification.CoachID),
		slog.Float64("rating", notification.Rating),
		slog.Int("total_sessions", notification.TotalSessions),
		slog.String("error", lastErr.Error()),
	)
}

// Close stops accepting notifications and waits for the worker to drain the
// queue.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	n.wg.Wait()
}
