package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/database"
	apperrors "github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/errors"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/domain"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/repository"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool database.DBTX
}

// NewSessionRepository creates a new PostgreSQL-backed session repository.
func NewSessionRepository(pool database.DBTX) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = "id, coach_id, user_id, scheduled_at, status, rating, review_comment, created_at, updated_at"

// Create inserts a new session and assigns its generated ID.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	now := time.Now().UTC()
	s.Status = domain.StatusScheduled
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `
		INSERT INTO sessions (coach_id, user_id, scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		s.CoachID,
		s.UserID,
		s.ScheduledAt,
		s.Status,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	ctx, end := database.TraceQuery(ctx, "GetSession", "SELECT FROM sessions WHERE id")
	var err error
	defer func() { end(err) }()

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	var s domain.Session
	err = r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.CoachID,
		&s.UserID,
		&s.ScheduledAt,
		&s.Status,
		&s.Rating,
		&s.ReviewComment,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("session", id)
		}
		return nil, fmt.Errorf("select session %d: %w", id, err)
	}

	return &s, nil
}

// List returns sessions matching the filter and the total count.
func (r *SessionRepository) List(ctx context.Context, filter repository.SessionFilter) ([]domain.Session, int, error) {
	var conditions []string
	var args []any
	argN := 1

	if filter.CoachID != nil {
		conditions = append(conditions, fmt.Sprintf("coach_id = $%d", argN))
		args = append(args, *filter.CoachID)
		argN++
	}
	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argN))
		args = append(args, *filter.UserID)
		argN++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argN))
		args = append(args, *filter.Status)
		argN++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM sessions" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	listQuery := fmt.Sprintf(
		"SELECT %s FROM sessions%s ORDER BY scheduled_at DESC LIMIT $%d OFFSET $%d",
		sessionColumns, where, argN, argN+1,
	)
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(
			&s.ID,
			&s.CoachID,
			&s.UserID,
			&s.ScheduledAt,
			&s.Status,
			&s.Rating,
			&s.ReviewComment,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, total, nil
}

// UpdateSchedule changes the scheduled time of a session.
func (r *SessionRepository) UpdateSchedule(ctx context.Context, id int64, scheduledAt time.Time) error {
	query := `UPDATE sessions SET scheduled_at = $1, updated_at = $2 WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, scheduledAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update session schedule: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("session", id)
	}

	return nil
}

// ApplyRating sets rating and review comment and marks the session COMPLETED.
func (r *SessionRepository) ApplyRating(ctx context.Context, id int64, rating float64, comment *string) (*domain.Session, error) {
	ctx, end := database.TraceQuery(ctx, "ApplySessionRating", "UPDATE sessions SET rating, review_comment, status WHERE id")
	var err error
	defer func() { end(err) }()

	query := `
		UPDATE sessions
		SET rating = $1, review_comment = $2, status = $3, updated_at = $4
		WHERE id = $5
		RETURNING ` + sessionColumns

	var s domain.Session
	err = r.pool.QueryRow(ctx, query, rating, comment, domain.StatusCompleted, time.Now().UTC(), id).Scan(
		&s.ID,
		&s.CoachID,
		&s.UserID,
		&s.ScheduledAt,
		&s.Status,
		&s.Rating,
		&s.ReviewComment,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("session", id)
		}
		return nil, fmt.Errorf("apply rating to session %d: %w", id, err)
	}

	return &s, nil
}

// Aggregate recomputes the coach's reputation input from persisted sessions:
// AVG over rated sessions and COUNT over all sessions held with the coach.
// Recomputing from the full history keeps replays of this step idempotent.
func (r *SessionRepository) Aggregate(ctx context.Context, coachID int64) (*repository.CoachAggregate, error) {
	ctx, end := database.TraceQuery(ctx, "AggregateCoachRating", "SELECT AVG(rating), COUNT(*) FROM sessions WHERE coach_id")
	var err error
	defer func() { end(err) }()

	query := `SELECT AVG(rating), COUNT(*) FROM sessions WHERE coach_id = $1`

	var agg repository.CoachAggregate
	err = r.pool.QueryRow(ctx, query, coachID).Scan(&agg.AverageRating, &agg.TotalSessions)
	if err != nil {
		return nil, fmt.Errorf("aggregate sessions for coach %d: %w", coachID, err)
	}

	return &agg, nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("session", id)
	}

	return nil
}
