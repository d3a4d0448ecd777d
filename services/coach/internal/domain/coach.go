package domain

import "time"

// Coach statuses.
const (
	StatusActive      = "ACTIVE"
	StatusDeactivated = "DEACTIVATED"
)

// Reputation thresholds.
const (
	// StrikeThreshold is the average rating below which a strike is added.
	// Exactly the threshold is not a strike.
	StrikeThreshold = 2.0
	// MaxStrikes deactivates the coach once reached.
	MaxStrikes = 5
)

// Coach is a platform coach with its accumulated reputation. AverageRating,
// StrikeCount and Status are mutated only through ApplyAverageRating;
// UpdateStatus is the administrative escape hatch.
type Coach struct {
	ID            int64     `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Specialty     string    `json:"specialty"`
	AverageRating float64   `json:"average_rating"`
	StrikeCount   int       `json:"strike_count"`
	TotalSessions int       `json:"total_sessions"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ApplyAverageRating returns the coach after one reputation transition driven
// by a freshly recomputed average:
//
//   - the stored average always becomes the new average;
//   - an average strictly below StrikeThreshold adds one strike;
//   - reaching MaxStrikes deactivates the coach.
//
// Strikes never decrease here and DEACTIVATED is terminal for this
// transition; only an administrative status update reverses either.
func (c Coach) ApplyAverageRating(newAverage float64) Coach {
	next := c
	next.AverageRating = newAverage

	if newAverage < StrikeThreshold {
		next.StrikeCount++
		if next.StrikeCount >= MaxStrikes {
			next.Status = StatusDeactivated
		}
	}

	return next
}

// ValidStatus reports whether the given status is a known coach status.
func ValidStatus(status string) bool {
	return status == StatusActive || status == StatusDeactivated
}
