package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	pkgkafka "github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/kafka"
)

// TopicReviewSubmitted carries review submissions from the review service to
// the session service.
const TopicReviewSubmitted = "coaching.review.submitted"

// Aggregate type constant.
const AggregateTypeReview = "review"

// Source identifier for events originating from the review service.
const SourceReviewService = "review-service"

// ReviewSubmittedData is the payload for a review.submitted event.
type ReviewSubmittedData struct {
	SessionID   int64     `json:"session_id"`
	CoachID     int64     `json:"coach_id"`
	Rating      float64   `json:"rating"`
	Comment     *string   `json:"comment"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewSubmitted publishes a review.submitted event. There is exactly
// one publish attempt; a broker failure is returned to the caller so the
// originating HTTP request fails and the client can resubmit.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, data ReviewSubmittedData) (*pkgkafka.Event, error) {
	event, err := pkgkafka.NewEvent(
		TopicReviewSubmitted,
		strconv.FormatInt(data.SessionID, 10),
		AggregateTypeReview,
		SourceReviewService,
		data,
	)
	if err != nil {
		return nil, fmt.Errorf("create review.submitted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewSubmitted, event); err != nil {
		return nil, fmt.Errorf("publish review.submitted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.submitted event",
		slog.String("event_id", event.EventID),
		slog.Int64("session_id", data.SessionID),
		slog.Int64("coach_id", data.CoachID),
		slog.Float64("rating", data.Rating),
	)

	return event, nil
}
