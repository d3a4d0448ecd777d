package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/errors"
	pkgkafka "github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/kafka"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/domain"
)

// TopicReviewSubmitted is consumed from the review service.
const TopicReviewSubmitted = "coaching.review.submitted"

// ConsumerGroup identifies this service's consumer group.
const ConsumerGroup = "session-service"

// ReviewSubmittedData mirrors the review service's event payload.
type ReviewSubmittedData struct {
	SessionID   int64     `json:"session_id"`
	CoachID     int64     `json:"coach_id"`
	Rating      float64   `json:"rating"`
	Comment     *string   `json:"comment"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// RatingApplier is the inbound port the consumer drives.
type RatingApplier interface {
	Apply(ctx context.Context, sessionID int64, rating float64, comment *string) (*domain.Session, error)
}

// ConsumerHandler processes review.submitted events.
type ConsumerHandler struct {
	ratings RatingApplier
	logger  *slog.Logger
}

// NewConsumerHandler creates the event handler for the session service.
func NewConsumerHandler(ratings RatingApplier, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		ratings: ratings,
		logger:  logger,
	}
}

// HandleReviewSubmitted applies one review event. A missing session is marked
// permanent so the channel dead-letters it instead of redelivering forever;
// any other failure is left transient for retry/redelivery.
func (h *ConsumerHandler) HandleReviewSubmitted(ctx context.Context, event *pkgkafka.Event) error {
	var data ReviewSubmittedData
	if err := event.UnmarshalData(&data); err != nil {
		return pkgkafka.Permanent(fmt.Errorf("decode review.submitted payload: %w", err))
	}

	if data.Rating < 0 || data.Rating > 10 {
		return pkgkafka.Permanent(fmt.Errorf("review for session %d carries out-of-range rating %v", data.SessionID, data.Rating))
	}

	h.logger.InfoContext(ctx, "processing review event",
		slog.String("event_id", event.EventID),
		slog.Int64("session_id", data.SessionID),
		slog.Int64("coach_id", data.CoachID),
	)

	session, err := h.ratings.Apply(ctx, data.SessionID, data.Rating, data.Comment)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Terminal: the session will never appear, so redelivery
			// cannot succeed.
			return pkgkafka.Permanent(err)
		}
		return err
	}

	h.logger.InfoContext(ctx, "review event applied",
		slog.String("event_id", event.EventID),
		slog.Int64("session_id", session.ID),
		slog.String("status", session.Status),
	)

	return nil
}

// NewReviewConsumer builds the Kafka consumer for review.submitted, wrapping
// the handler in the deduplication ledger so a redelivered event never
// re-runs the reputation transition.
func NewReviewConsumer(
	brokers []string,
	maxRetries int,
	handler *ConsumerHandler,
	store pkgkafka.IdempotencyStore,
	dlq *pkgkafka.DLQProducer,
	logger *slog.Logger,
) *pkgkafka.Consumer {
	wrapped := pkgkafka.IdempotentHandler(store, handler.HandleReviewSubmitted, TopicReviewSubmitted, ConsumerGroup, logger)

	return pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:    brokers,
		GroupID:    ConsumerGroup,
		Topic:      TopicReviewSubmitted,
		MaxRetries: maxRetries,
	}, wrapped, dlq, logger)
}
