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
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/coach/internal/domain"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/coach/internal/repository"
)

// CoachRepository implements repository.CoachRepository using PostgreSQL.
type CoachRepository struct {
	pool database.DBTX
}

// NewCoachRepository creates a new PostgreSQL-backed coach repository.
func NewCoachRepository(pool database.DBTX) *CoachRepository {
	return &CoachRepository{pool: pool}
}

const coachColumns = "id, first_name, last_name, specialty, average_rating, strike_count, total_sessions, status, created_at, updated_at"

// Create inserts a new coach and assigns its generated ID.
func (r *CoachRepository) Create(ctx context.Context, c *domain.Coach) error {
	now := time.Now().UTC()
	c.Status = domain.StatusActive
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO coaches (first_name, last_name, specialty, average_rating, strike_count, total_sessions, status, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, 0, $4, $5, $6)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		c.FirstName,
		c.LastName,
		c.Specialty,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert coach: %w", err)
	}

	c.AverageRating = 0
	c.StrikeCount = 0
	c.TotalSessions = 0
	return nil
}

// GetByID retrieves a coach by its ID.
func (r *CoachRepository) GetByID(ctx context.Context, id int64) (*domain.Coach, error) {
	ctx, end := database.TraceQuery(ctx, "GetCoach", "SELECT FROM coaches WHERE id")
	var err error
	defer func() { end(err) }()

	query := `SELECT ` + coachColumns + ` FROM coaches WHERE id = $1`

	var c domain.Coach
	err = r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Specialty,
		&c.AverageRating,
		&c.StrikeCount,
		&c.TotalSessions,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("coach", id)
		}
		return nil, fmt.Errorf("select coach %d: %w", id, err)
	}

	return &c, nil
}

// List returns coaches matching the filter and the total count.
func (r *CoachRepository) List(ctx context.Context, filter repository.CoachFilter) ([]domain.Coach, int, error) {
	var conditions []string
	var args []any
	argN := 1

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
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM coaches"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count coaches: %w", err)
	}

	listQuery := fmt.Sprintf(
		"SELECT %s FROM coaches%s ORDER BY id LIMIT $%d OFFSET $%d",
		coachColumns, where, argN, argN+1,
	)
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select coaches: %w", err)
	}
	defer rows.Close()

	var coaches []domain.Coach
	for rows.Next() {
		var c domain.Coach
		if err := rows.Scan(
			&c.ID,
			&c.FirstName,
			&c.LastName,
			&c.Specialty,
			&c.AverageRating,
			&c.StrikeCount,
			&c.TotalSessions,
			&c.Status,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan coach: %w", err)
		}
		coaches = append(coaches, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate coaches: %w", err)
	}

	return coaches, total, nil
}

// Update changes the coach's names and specialty.
func (r *CoachRepository) Update(ctx context.Context, c *domain.Coach) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE coaches
		SET first_name = $1, last_name = $2, specialty = $3, updated_at = $4
		WHERE id = $5`

	ct, err := r.pool.Exec(ctx, query, c.FirstName, c.LastName, c.Specialty, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update coach %d: %w", c.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("coach", c.ID)
	}

	return nil
}

// UpdateStatus sets the coach status; reactivation resets the strike counter.
func (r *CoachRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `
		UPDATE coaches
		SET status = $1,
		    strike_count = CASE WHEN $1 = 'ACTIVE' THEN 0 ELSE strike_count END,
		    updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update coach %d status: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("coach", id)
	}

	return nil
}

// UpdateReputation persists the reputation fields. The total_sessions guard
// makes out-of-order and replayed notifications a no-op: a notification
// carrying a session count lower than the stored one is stale by definition
// (the count only grows) and must not reapply a strike.
func (r *CoachRepository) UpdateReputation(ctx context.Context, c *domain.Coach) error {
	ctx, end := database.TraceQuery(ctx, "UpdateCoachReputation", "UPDATE coaches SET average_rating, strike_count, total_sessions, status WHERE id")
	var err error
	defer func() { end(err) }()

	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE coaches
		SET average_rating = $1, strike_count = $2, total_sessions = $3, status = $4, updated_at = $5
		WHERE id = $6 AND total_sessions <= $3`

	ct, err := r.pool.Exec(ctx, query,
		c.AverageRating,
		c.StrikeCount,
		c.TotalSessions,
		c.Status,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update coach %d reputation: %w", c.ID, err)
	}
	if ct.RowsAffected() == 0 {
		// Either the coach vanished or a newer notification already landed.
		if _, getErr := r.GetByID(ctx, c.ID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("coach %d reputation: %w", c.ID, apperrors.ErrStaleUpdate)
	}

	return nil
}

// Delete removes a coach.
func (r *CoachRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM coaches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coach %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("coach", id)
	}

	return nil
}
