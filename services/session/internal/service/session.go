package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/errors"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/domain"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/repository"
)

// SessionService implements the business logic for session CRUD operations.
type SessionService struct {
	repo   repository.SessionRepository
	logger *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(repo repository.SessionRepository, logger *slog.Logger) *SessionService {
	return &SessionService{
		repo:   repo,
		logger: logger,
	}
}

// CreateSessionInput holds the parameters for booking a session.
type CreateSessionInput struct {
	CoachID     int64
	UserID      int64
	ScheduledAt time.Time
}

// CreateSession books a new session in SCHEDULED status.
func (s *SessionService) CreateSession(ctx context.Context, input CreateSessionInput) (*domain.Session, error) {
	if input.CoachID <= 0 {
		return nil, apperrors.InvalidInput("coach_id is required")
	}
	if input.UserID <= 0 {
		return nil, apperrors.InvalidInput("user_id is required")
	}
	if input.ScheduledAt.IsZero() {
		return nil, apperrors.InvalidInput("scheduled_at is required")
	}

	session := &domain.Session{
		CoachID:     input.CoachID,
		UserID:      input.UserID,
		ScheduledAt: input.ScheduledAt.UTC(),
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.InfoContext(ctx, "session created",
		slog.Int64("session_id", session.ID),
		slog.Int64("coach_id", session.CoachID),
		slog.Int64("user_id", session.UserID),
	)

	return session, nil
}

// GetSession retrieves a session by ID.
func (s *SessionService) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return session, nil
}

// ListSessions returns sessions matching the filter with the total count.
func (s *SessionService) ListSessions(ctx context.Context, filter repository.SessionFilter) ([]domain.Session, int, error) {
	if filter.Status != nil && !domain.ValidStatus(*filter.Status) {
		return nil, 0, apperrors.InvalidInput("status must be SCHEDULED or COMPLETED")
	}

	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, total, nil
}

// Reschedule changes the scheduled time of a session.
func (s *SessionService) Reschedule(ctx context.Context, id int64, scheduledAt time.Time) (*domain.Session, error) {
	if scheduledAt.IsZero() {
		return nil, apperrors.InvalidInput("scheduled_at is required")
	}

	if err := s.repo.UpdateSchedule(ctx, id, scheduledAt.UTC()); err != nil {
		return nil, fmt.Errorf("reschedule session %d: %w", id, err)
	}

	return s.repo.GetByID(ctx, id)
}

// DeleteSession removes a session.
func (s *SessionService) DeleteSession(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "session deleted", slog.Int64("session_id", id))
	return nil
}
