package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// defaultMaxHandlerRetries bounds in-process retries for transient handler
// failures before the fetch session is aborted and the message left
// uncommitted for channel-level redelivery.
const defaultMaxHandlerRetries = 3

// Handler is a function that processes a Kafka event.
type Handler func(ctx context.Context, event *Event) error

// permanentError wraps an error that retrying cannot fix (missing aggregate,
// malformed payload). Messages failing permanently are routed to the
// dead-letter queue and committed instead of being redelivered forever.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable. Handlers return Permanent(err) for
// terminal conditions; the consumer dead-letters the message instead of
// leaving it for redelivery.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err (or anything it wraps) was marked with
// Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// ErrHandlerExhausted is returned by Start when a message failed all
// in-process retry attempts with transient errors. The message is left
// uncommitted; restarting the consumer resumes from the last committed
// offset, which redelivers it.
var ErrHandlerExhausted = errors.New("kafka: handler retries exhausted, message left for redelivery")

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers    []string
	GroupID    string
	Topic      string
	MinBytes   int
	MaxBytes   int
	MaxRetries int
}

// Consumer wraps the kafka-go reader for consuming events. Each message runs
// through the lifecycle fetch -> decode -> handle -> commit; a failed decode
// or a permanent handler error diverts to the dead-letter queue, a transient
// handler failure leaves the message uncommitted.
type Consumer struct {
	reader     *kafka.Reader
	logger     *slog.Logger
	handler    Handler
	dlq        *DLQProducer
	maxRetries int
	closeOnce  sync.Once
}

// NewConsumer creates a new Kafka consumer for a specific topic and group.
// dlq may be nil; permanently failed messages are then logged and dropped.
func NewConsumer(cfg ConsumerConfig, handler Handler, dlq *DLQProducer, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxHandlerRetries
	}

	return &Consumer{
		reader:     r,
		logger:     logger,
		handler:    handler,
		dlq:        dlq,
		maxRetries: maxRetries,
	}
}

// Start begins consuming messages. It blocks until the context is canceled
// or a message exhausts its transient retries (ErrHandlerExhausted); in the
// latter case the caller is expected to restart the consumer after a delay,
// which redelivers everything after the last committed offset.
func (c *Consumer) Start(ctx context.Context) error {
	topic := c.reader.Config().Topic
	group := c.reader.Config().GroupID

	c.logger.Info("consumer started",
		slog.String("topic", topic),
		slog.String("group", group),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", slog.String("topic", topic))
			return c.Close()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			continue
		}

		ConsumerMessagesReceived.WithLabelValues(topic, group).Inc()

		event, err := UnmarshalEvent(msg.Value)
		if err != nil {
			c.logger.Error("failed to decode event, dead-lettering",
				slog.String("error", err.Error()),
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
			)
			c.deadLetter(ctx, msg, fmt.Errorf("decode event: %w", err), group)
			c.commit(ctx, msg)
			continue
		}

		handleErr := c.processWithRetry(ctx, event, msg)

		switch {
		case handleErr == nil:
			c.commit(ctx, msg)
			ConsumerMessagesProcessed.WithLabelValues(topic, group).Inc()

		case IsPermanent(handleErr):
			c.logger.Error("permanent handler failure, dead-lettering",
				slog.String("event_type", event.EventType),
				slog.String("event_id", event.EventID),
				slog.String("aggregate_id", event.AggregateID),
				slog.String("error", handleErr.Error()),
			)
			ConsumerMessagesFailed.WithLabelValues(topic, group).Inc()
			c.deadLetter(ctx, msg, handleErr, group)
			c.commit(ctx, msg)

		default:
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("handler failed after all retries, leaving message uncommitted",
				slog.String("event_type", event.EventType),
				slog.String("event_id", event.EventID),
				slog.String("error", handleErr.Error()),
				slog.String("topic", msg.Topic),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			ConsumerMessagesFailed.WithLabelValues(topic, group).Inc()
			if closeErr := c.Close(); closeErr != nil {
				c.logger.Error("consumer close error", slog.String("error", closeErr.Error()))
			}
			return fmt.Errorf("%w: %s", ErrHandlerExhausted, handleErr)
		}
	}
}

// processWithRetry invokes the handler with bounded retries and exponential
// backoff. Permanent errors short-circuit the retry loop.
func (c *Consumer) processWithRetry(ctx context.Context, event *Event, msg kafka.Message) error {
	topic := c.reader.Config().Topic
	group := c.reader.Config().GroupID

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		start := time.Now()
		err := c.handler(ctx, event)
		ConsumerProcessingDuration.WithLabelValues(topic, group).Observe(time.Since(start).Seconds())

		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}

		lastErr = err
		c.logger.Warn("handler failed, will retry",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
			slog.Int64("offset", msg.Offset),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", c.maxRetries),
		)

		if attempt < c.maxRetries {
			backoff := time.Duration(attempt) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error, group string) {
	if c.dlq == nil {
		c.logger.Warn("no DLQ configured, dropping failed message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
		)
		return
	}
	if err := c.dlq.Publish(ctx, msg, cause, group); err != nil {
		c.logger.Error("failed to dead-letter message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return
	}
	ConsumerDLQPublished.WithLabelValues(c.reader.Config().Topic, group).Inc()
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("failed to commit message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
	}
}

// Close closes the consumer. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}

// Starter matches Consumer's Start method for restart supervision.
type Starter interface {
	Start(ctx context.Context) error
}

// RunWithRestart keeps a consumer running until ctx ends. A consumer that
// stops with ErrHandlerExhausted has already closed its reader and left the
// failed message uncommitted, so after delay the factory builds a fresh one
// that resumes from the last committed offset and redelivers it. Any other
// error ends the loop and is returned.
func RunWithRestart(ctx context.Context, delay time.Duration, logger *slog.Logger, factory func() Starter) error {
	for {
		err := factory().Start(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		if !errors.Is(err, ErrHandlerExhausted) {
			return err
		}

		logger.Warn("consumer halted with uncommitted message, restarting",
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}
