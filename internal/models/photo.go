package models

import "time"

// PhotoStatus is the lifecycle flag for a photo record.
type PhotoStatus string

const (
	PhotoStatusActive  PhotoStatus = "active"
	PhotoStatusRemoved PhotoStatus = "removed"
)

// Photo is a single uploaded photo with its rating aggregates.
// JSON field names match what the Mini App client already consumes.
type Photo struct {
	ID            string      `json:"id"`
	OwnerID       string      `json:"user_id"`
	ObjectKey     string      `json:"-"`
	URL           string      `json:"photo_url"`
	ThumbnailURL  string      `json:"thumbnail_url,omitempty"`
	ContentType   string      `json:"content_type,omitempty"`
	RatingCount   int         `json:"total_ratings"`
	RatingSum     int         `json:"-"`
	AverageRating float64     `json:"average_rating"`
	Status        PhotoStatus `json:"status,omitempty"`
	CreatedAt     time.Time   `json:"created_at,omitempty"`
	UpdatedAt     time.Time   `json:"-"`
}

// IsActive reports whether the photo is eligible for selection.
func (p *Photo) IsActive() bool {
	return p.Status == PhotoStatusActive
}

// Average recomputes the average from the raw aggregates.
// Undefined (zero) while the photo has no ratings.
func (p *Photo) Average() float64 {
	if p.RatingCount <= 0 {
		return 0
	}
	return float64(p.RatingSum) / float64(p.RatingCount)
}
