package models

import "time"

// Rating value bounds for a single vote.
const (
	MinRatingValue = 1
	MaxRatingValue = 10
)

// Rating is one rater's vote on one photo.
type Rating struct {
	ID        string    `json:"id"`
	PhotoID   string    `json:"photo_id"`
	RaterID   string    `json:"rater_id"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidRatingValue reports whether v is a submittable rating.
func ValidRatingValue(v int) bool {
	return v >= MinRatingValue && v <= MaxRatingValue
}
