package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/database"
	apperrors "github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/errors"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/domain"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/repository"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupSessionRepo(t *testing.T) (*SessionRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewSessionRepository(mock)
	return repo, mock
}

func sampleSession() *domain.Session {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rating := 4.5
	comment := "solid serve practice"
	return &domain.Session{
		ID:            42,
		CoachID:       7,
		UserID:        3,
		ScheduledAt:   now,
		Status:        domain.StatusCompleted,
		Rating:        &rating,
		ReviewComment: &comment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func sessionTestColumns() []string {
	return []string{
		"id", "coach_id", "user_id", "scheduled_at", "status", "rating",
		"review_comment", "created_at", "updated_at",
	}
}

func sessionRow(s *domain.Session) *pgxmock.Rows {
	return pgxmock.NewRows(sessionTestColumns()).
		AddRow(
			s.ID, s.CoachID, s.UserID, s.ScheduledAt, s.Status, s.Rating,
			s.ReviewComment, s.CreatedAt, s.UpdatedAt,
		)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestSessionRepository_Create_Success(t *testing.T) {
	repo, mock := setupSessionRepo(t)
	defer mock.Close()

	s := &domain.Session{
		CoachID:     7,
		UserID:      3,
		ScheduledAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	mock.ExpectQuery("INSERT INTO sessions").
		WithArgs(s.CoachID, s.UserID, s.ScheduledAt, domain.StatusScheduled, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	err := repo.Create(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, int64(42), s.ID)
	assert.Equal(t, domain.StatusScheduled, s.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestSessionRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupSessionRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE id").
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), 404)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestSessionRepository_List_ByCoach(t *testing.T) {
	repo, mock := setupSessionRepo(t)
	defer mock.Close()

	s := sampleSession()
	coachID := int64(7)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM sessions WHERE coach_id").
		WithArgs(coachID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE coach_id (.+) ORDER BY scheduled_at DESC LIMIT").
		WithArgs(coachID, 20, 0).
		WillReturnRows(sessionRow(s))

	sessions, total, err := repo.List(context.Background(), repository.SessionFilter{
		CoachID: &coachID,
		Page:    1,
		PerPage: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, sessions, 1)
	assert.Equal(t, s.ID, sessions[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// ApplyRating
// ---------------------------------------------------------------------------

func TestSessionRepository_ApplyRating_Success(t *testing.T) {
	repo, mock := setupSessionRepo(t)
	defer mock.Close()

	s := sampleSession()
	comment := "solid serve practice"

	mock.ExpectQuery("UPDATE sessions").
		WithArgs(4.5, &comment, domain.StatusCompleted, pgxmock.AnyArg(), s.ID).
		WillReturnRows(sessionRow(s))

	got, err := repo.ApplyRating(context.Background(), s.ID, 4.5, &comment)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4.5, *got.Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_ApplyRating_NotFound(t *testing.T) {
	repo, mock := setupSessionRepo(t)
	defer mock.Close()

	mock.ExpectQuery("UPDATE sessions").
		WithArgs(4.5, (*string)(nil), domain.StatusCompleted, pgxmock.AnyArg(), int64(404)).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.ApplyRating(context.Background(), 404, 4.5, nil)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Aggregate
// ---------------------------------------------------------------------------

func TestSessionRepository_Aggregate_WithRatedSessions(t *testing.T) {
	repo, mock := setupSessionRepo(t)
	defer mock.Close()

	average := 4.2
	mock.ExpectQuery("SELECT AVG\\(rating\\), COUNT\\(\\*\\) FROM sessions WHERE coach_id").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"avg", "count"}).AddRow(&average, 12))

	agg, err := repo.Aggregate(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, agg.AverageRating)
	assert.Equal(t, 4.2, *agg.AverageRating)
	assert.Equal(t, 12, agg.TotalSessions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Aggregate_NoRatedSessions(t *testing.T) {
	// AVG over zero rated rows is NULL while COUNT still reports the
	// sessions held.
	repo, mock := setupSessionRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT AVG\\(rating\\), COUNT\\(\\*\\) FROM sessions WHERE coach_id").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"avg", "count"}).AddRow((*float64)(nil), 3))

	agg, err := repo.Aggregate(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, agg.AverageRating)
	assert.Equal(t, 3, agg.TotalSessions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Aggregate_QueryError(t *testing.T) {
	repo, mock := setupSessionRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT AVG\\(rating\\), COUNT\\(\\*\\) FROM sessions WHERE coach_id").
		WithArgs(int64(7)).
		WillReturnError(errors.New("connection refused"))

	agg, err := repo.Aggregate(context.Background(), 7)
	assert.Nil(t, agg)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// UpdateSchedule / Delete
// ---------------------------------------------------------------------------

func TestSessionRepository_UpdateSchedule_NotFound(t *testing.T) {
	repo, mock := setupSessionRepo(t)
	defer mock.Close()

	newTime := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE sessions SET scheduled_at").
		WithArgs(newTime, pgxmock.AnyArg(), int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateSchedule(context.Background(), 404, newTime)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Delete_Success(t *testing.T) {
	repo, mock := setupSessionRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM sessions").
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), 42)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
