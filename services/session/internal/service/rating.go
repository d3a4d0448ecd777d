package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/client"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/domain"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/repository"
)

// CoachNotifier is the fire-and-forget outbound port for reputation updates.
type CoachNotifier interface {
	Enqueue(n client.RatingNotification) bool
}

// RatingService applies a review to a session and drives the downstream
// effects: aggregate recomputation, coach notification, user counter.
type RatingService struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	notifier CoachNotifier
	logger   *slog.Logger
}

// NewRatingService creates the review application service.
func NewRatingService(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	notifier CoachNotifier,
	logger *slog.Logger,
) *RatingService {
	return &RatingService{
		sessions: sessions,
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

// Apply processes one review event: rate the session, recompute the coach
// aggregate, notify the coach service, increment the user counter.
//
// Only a failure of the session write itself (or a missing session) is
// returned to the caller; everything after the session is persisted is
// best-effort. There is no rollback linking the three aggregates; the
// system converges because the aggregate is always recomputed from the full
// session history.
func (s *RatingService) Apply(ctx context.Context, sessionID int64, rating float64, comment *string) (*domain.Session, error) {
	session, err := s.sessions.ApplyRating(ctx, sessionID, rating, comment)
	if err != nil {
		return nil, fmt.Errorf("apply review to session %d: %w", sessionID, err)
	}

	s.logger.InfoContext(ctx, "session rated",
		slog.Int64("session_id", session.ID),
		slog.Int64("coach_id", session.CoachID),
		slog.Float64("rating", rating),
	)

	agg, err := s.sessions.Aggregate(ctx, session.CoachID)
	switch {
	case err != nil:
		s.logger.ErrorContext(ctx, "aggregate recomputation failed, skipping coach notification",
			slog.Int64("coach_id", session.CoachID),
			slog.String("error", err.Error()),
		)
	case agg.AverageRating == nil:
		// A coach with zero rated sessions is never pushed into the
		// reputation state machine.
		s.logger.DebugContext(ctx, "no rated sessions for coach, skipping notification",
			slog.Int64("coach_id", session.CoachID),
		)
	default:
		s.notifier.Enqueue(client.RatingNotification{
			CoachID:       session.CoachID,
			Rating:        *agg.AverageRating,
			TotalSessions: agg.TotalSessions,
		})
	}

	if err := s.users.IncrementSessionsTaken(ctx, session.UserID); err != nil {
		s.logger.ErrorContext(ctx, "failed to increment user session counter",
			slog.Int64("user_id", session.UserID),
			slog.String("error", err.Error()),
		)
	}

	return session, nil
}
