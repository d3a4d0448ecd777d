package domain

import "time"

// User is a platform member who books sessions. SessionsTaken is mutated only
// through the increment operation after a review event is applied.
type User struct {
	ID            int64     `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	SessionsTaken int       `json:"sessions_taken"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
