package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/errors"
	pkgkafka "github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/kafka"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/review/internal/event"
)

// Publisher is the outbound port for review events.
type Publisher interface {
	PublishReviewSubmitted(ctx context.Context, data event.ReviewSubmittedData) (*pkgkafka.Event, error)
}

// ReviewService implements business logic for review submissions.
type ReviewService struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(publisher Publisher, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		publisher: publisher,
		logger:    logger,
	}
}

// SubmitReviewInput holds the parameters for a review submission.
type SubmitReviewInput struct {
	SessionID int64
	CoachID   int64
	Rating    float64
	Comment   *string
}

// SubmitReview validates the submission and publishes it to the durable
// channel. The review is accepted (not applied): the session service consumes
// the event and performs the actual updates.
func (s *ReviewService) SubmitReview(ctx context.Context, input SubmitReviewInput) (*pkgkafka.Event, error) {
	if input.SessionID <= 0 {
		return nil, apperrors.InvalidInput("session_id is required")
	}
	if input.CoachID <= 0 {
		return nil, apperrors.InvalidInput("coach_id is required")
	}
	if input.Rating < 0 || input.Rating > 10 {
		return nil, apperrors.InvalidInput("rating must be between 0 and 10")
	}

	data := event.ReviewSubmittedData{
		SessionID:   input.SessionID,
		CoachID:     input.CoachID,
		Rating:      input.Rating,
		Comment:     input.Comment,
		SubmittedAt: time.Now().UTC(),
	}

	published, err := s.publisher.PublishReviewSubmitted(ctx, data)
	if err != nil {
		// One attempt only. The caller is told the review was not accepted
		// and must resubmit; retrying here would hide a lost review behind
		// a 202.
		return nil, fmt.Errorf("submit review for session %d: %w", input.SessionID, err)
	}

	s.logger.InfoContext(ctx, "review accepted",
		slog.String("event_id", published.EventID),
		slog.Int64("session_id", input.SessionID),
		slog.Int64("coach_id", input.CoachID),
	)

	return published, nil
}
