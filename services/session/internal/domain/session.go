package domain

import "time"

// Session statuses.
const (
	StatusScheduled = "SCHEDULED"
	StatusCompleted = "COMPLETED"
)

// Session is a coaching session booked by a user with a coach. Rating and
// ReviewComment stay nil until a review event for the session is processed;
// setting them moves the session to COMPLETED.
type Session struct {
	ID            int64     `json:"id"`
	CoachID       int64     `json:"coach_id"`
	UserID        int64     `json:"user_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Status        string    `json:"status"`
	Rating        *float64  `json:"rating,omitempty"`
	ReviewComment *string   `json:"review_comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Rated reports whether the session has received a review.
func (s *Session) Rated() bool {
	return s.Rating != nil
}

// ValidStatus reports whether the given status is a known session status.
func ValidStatus(status string) bool {
	return status == StatusScheduled || status == StatusCompleted
}
