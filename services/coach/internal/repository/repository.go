package repository

import (
	"context"

	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/coach/internal/domain"
)

// CoachFilter defines filter criteria for listing coaches.
type CoachFilter struct {
	Status  *string
	Page    int
	PerPage int
}

// CoachRepository defines the interface for coach persistence operations.
type CoachRepository interface {
	// Create inserts a new coach and assigns its ID.
	Create(ctx context.Context, coach *domain.Coach) error

	// GetByID retrieves a coach by its unique identifier.
	GetByID(ctx context.Context, id int64) (*domain.Coach, error)

	// List returns coaches matching the filter along with the total count.
	List(ctx context.Context, filter CoachFilter) ([]domain.Coach, int, error)

	// Update changes the coach's names and specialty.
	Update(ctx context.Context, coach *domain.Coach) error

	// UpdateStatus sets the coach status and, on reactivation, resets the
	// strike counter. This is the administrative surface, not the pipeline.
	UpdateStatus(ctx context.Context, id int64, status string) error

	// UpdateReputation persists the reputation fields guarded by the
	// observed session count: the write is skipped when the stored
	// total_sessions is already higher than the incoming one. Returns
	// ErrStaleUpdate in that case.
	UpdateReputation(ctx context.Context, coach *domain.Coach) error

	// Delete removes a coach.
	Delete(ctx context.Context, id int64) error
}
