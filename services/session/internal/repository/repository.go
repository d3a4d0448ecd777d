package repository

import (
	"context"
	"time"

	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/domain"
)

// SessionFilter defines filter criteria for listing sessions.
type SessionFilter struct {
	CoachID *int64
	UserID  *int64
	Status  *string
	Page    int
	PerPage int
}

// CoachAggregate is the recomputed reputation input for one coach: the
// average over rated sessions (nil when none are rated) and the count of all
// sessions held with the coach.
type CoachAggregate struct {
	AverageRating *float64
	TotalSessions int
}

// SessionRepository defines the interface for session persistence operations.
type SessionRepository interface {
	// Create inserts a new session and assigns its ID.
	Create(ctx context.Context, session *domain.Session) error

	// GetByID retrieves a session by its unique identifier.
	GetByID(ctx context.Context, id int64) (*domain.Session, error)

	// List returns sessions matching the given filter along with the total count.
	List(ctx context.Context, filter SessionFilter) ([]domain.Session, int, error)

	// UpdateSchedule changes the scheduled time of a session.
	UpdateSchedule(ctx context.Context, id int64, scheduledAt time.Time) error

	// ApplyRating sets rating and review comment and marks the session
	// COMPLETED. Returns the updated session.
	ApplyRating(ctx context.Context, id int64, rating float64, comment *string) (*domain.Session, error)

	// Aggregate recomputes the coach's average rating and session count from
	// persisted sessions.
	Aggregate(ctx context.Context, coachID int64) (*CoachAggregate, error)

	// Delete removes a session.
	Delete(ctx context.Context, id int64) error
}

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user and assigns its ID.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by its unique identifier.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// List returns users along with the total count.
	List(ctx context.Context, page, perPage int) ([]domain.User, int, error)

	// Update changes the user's names and email.
	Update(ctx context.Context, user *domain.User) error

	// IncrementSessionsTaken adds exactly 1 to the user's session counter.
	IncrementSessionsTaken(ctx context.Context, id int64) error

	// Delete removes a user.
	Delete(ctx context.Context, id int64) error
}
