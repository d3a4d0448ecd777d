package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/errors"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/coach/internal/domain"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/coach/internal/repository"
)

// CoachService implements the business logic for coach operations, including
// the reputation transition applied on rating notifications.
type CoachService struct {
	repo   repository.CoachRepository
	logger *slog.Logger
}

// NewCoachService creates a new coach service.
func NewCoachService(repo repository.CoachRepository, logger *slog.Logger) *CoachService {
	return &CoachService{
		repo:   repo,
		logger: logger,
	}
}

// CreateCoachInput holds the parameters for registering a coach.
type CreateCoachInput struct {
	FirstName string
	LastName  string
	Specialty string
}

// CreateCoach registers a new coach in ACTIVE status with zero reputation.
func (s *CoachService) CreateCoach(ctx context.Context, input CreateCoachInput) (*domain.Coach, error) {
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, apperrors.InvalidInput("first_name and last_name are required")
	}

	coach := &domain.Coach{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Specialty: strings.TrimSpace(input.Specialty),
	}

	if err := s.repo.Create(ctx, coach); err != nil {
		return nil, fmt.Errorf("create coach: %w", err)
	}

	s.logger.InfoContext(ctx, "coach created", slog.Int64("coach_id", coach.ID))
	return coach, nil
}

// GetCoach retrieves a coach by ID.
func (s *CoachService) GetCoach(ctx context.Context, id int64) (*domain.Coach, error) {
	coach, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coach %d: %w", id, err)
	}
	return coach, nil
}

// ListCoaches returns coaches matching the filter with the total count.
func (s *CoachService) ListCoaches(ctx context.Context, filter repository.CoachFilter) ([]domain.Coach, int, error) {
	if filter.Status != nil && !domain.ValidStatus(*filter.Status) {
		return nil, 0, apperrors.InvalidInput("status must be ACTIVE or DEACTIVATED")
	}

	coaches, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list coaches: %w", err)
	}
	return coaches, total, nil
}

// UpdateCoachInput holds the mutable coach profile fields.
type UpdateCoachInput struct {
	FirstName string
	LastName  string
	Specialty string
}

// UpdateCoach changes the coach's profile. Reputation fields are not
// touchable through this operation.
func (s *CoachService) UpdateCoach(ctx context.Context, id int64, input UpdateCoachInput) (*domain.Coach, error) {
	coach, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coach %d: %w", id, err)
	}

	coach.FirstName = strings.TrimSpace(input.FirstName)
	coach.LastName = strings.TrimSpace(input.LastName)
	coach.Specialty = strings.TrimSpace(input.Specialty)

	if err := s.repo.Update(ctx, coach); err != nil {
		return nil, fmt.Errorf("update coach %d: %w", id, err)
	}

	return coach, nil
}

// UpdateStatus is the administrative surface for deactivating a coach or
// reactivating one deactivated by the reputation pipeline. Reactivation
// resets the strike counter.
func (s *CoachService) UpdateStatus(ctx context.Context, id int64, status string) (*domain.Coach, error) {
	if !domain.ValidStatus(status) {
		return nil, apperrors.InvalidInput("status must be ACTIVE or DEACTIVATED")
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update coach %d status: %w", id, err)
	}

	s.logger.InfoContext(ctx, "coach status updated",
		slog.Int64("coach_id", id),
		slog.String("status", status),
	)

	return s.repo.GetByID(ctx, id)
}

// ApplyRating applies one reputation notification: load the coach, run the
// state machine on the recomputed average, persist.
//
// A notification whose observed session count is lower than the stored one
// is stale (counts only grow) and is ignored as a logged no-op, so repeated
// or out-of-order notifications cannot double-apply a strike.
func (s *CoachService) ApplyRating(ctx context.Context, coachID int64, rating float64, totalSessions int) (*domain.Coach, error) {
	if rating < 0 || rating > 10 {
		return nil, apperrors.InvalidInput("rating must be between 0 and 10")
	}
	if totalSessions < 0 {
		return nil, apperrors.InvalidInput("total_sessions must not be negative")
	}

	coach, err := s.repo.GetByID(ctx, coachID)
	if err != nil {
		return nil, fmt.Errorf("get coach %d: %w", coachID, err)
	}

	if totalSessions < coach.TotalSessions {
		s.logger.WarnContext(ctx, "ignoring stale rating notification",
			slog.Int64("coach_id", coachID),
			slog.Int("observed_sessions", totalSessions),
			slog.Int("stored_sessions", coach.TotalSessions),
		)
		return coach, nil
	}

	next := coach.ApplyAverageRating(rating)
	next.TotalSessions = totalSessions

	if err := s.repo.UpdateReputation(ctx, &next); err != nil {
		// A concurrent notification with a higher count won the race; the
		// state it wrote is at least as fresh as ours.
		if errors.Is(err, apperrors.ErrStaleUpdate) {
			s.logger.WarnContext(ctx, "rating notification lost update race, skipping",
				slog.Int64("coach_id", coachID),
			)
			return s.repo.GetByID(ctx, coachID)
		}
		return nil, fmt.Errorf("persist coach %d reputation: %w", coachID, err)
	}

	if next.Status != coach.Status {
		s.logger.WarnContext(ctx, "coach deactivated by reputation pipeline",
			slog.Int64("coach_id", coachID),
			slog.Int("strike_count", next.StrikeCount),
			slog.Float64("average_rating", next.AverageRating),
		)
	}

	return &next, nil
}

// DeleteCoach removes a coach.
func (s *CoachService) DeleteCoach(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete coach %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "coach deleted", slog.Int64("coach_id", id))
	return nil
}
