package session

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/dmkolesov/snaprate/internal/models"
)

// demoPhotos is the built-in pool shown when the backend is unreachable.
var demoPhotos = []models.Photo{
	{
		ID:            "demo-1",
		OwnerID:       "demo-user-1",
		URL:           "https://via.placeholder.com/500x500/FF6B6B/FFFFFF?text=Awesome+Sunset",
		RatingCount:   42,
		AverageRating: 8.7,
		Status:        models.PhotoStatusActive,
	},
	{
		ID:            "demo-2",
		OwnerID:       "demo-user-2",
		URL:           "https://via.placeholder.com/500x500/4ECDC4/FFFFFF?text=Nature+Beauty",
		RatingCount:   28,
		AverageRating: 9.2,
		Status:        models.PhotoStatusActive,
	},
	{
		ID:            "demo-3",
		OwnerID:       "demo-user-3",
		URL:           "https://via.placeholder.com/500x500/45B7D1/FFFFFF?text=City+Lights",
		RatingCount:   35,
		AverageRating: 7.8,
		Status:        models.PhotoStatusActive,
	},
	{
		ID:            "demo-4",
		OwnerID:       "demo-user-4",
		URL:           "https://via.placeholder.com/500x500/96CEB4/FFFFFF?text=Ocean+View",
		RatingCount:   51,
		AverageRating: 8.9,
		Status:        models.PhotoStatusActive,
	},
	{
		ID:            "demo-5",
		OwnerID:       "demo-user-5",
		URL:           "https://via.placeholder.com/500x500/FECA57/FFFFFF?text=Mountains",
		RatingCount:   19,
		AverageRating: 6.5,
		Status:        models.PhotoStatusActive,
	},
}

// pickFallbackPhoto returns a demo photo the session has not rated yet. Once
// the demo pool is spent it synthesizes a fresh placeholder so rating can
// always continue offline.
func pickFallbackPhoto(ratedIDs map[string]struct{}) *models.Photo {
	candidates := make([]models.Photo, 0, len(demoPhotos))
	for _, photo := range demoPhotos {
		if _, ok := ratedIDs[photo.ID]; !ok {
			candidates = append(candidates, photo)
		}
	}

	if len(candidates) > 0 {
		photo := candidates[rand.Intn(len(candidates))]
		return &photo
	}

	return &models.Photo{
		ID:      "fallback-" + uuid.New().String(),
		OwnerID: "demo-user-0",
		URL:     "https://via.placeholder.com/500x500/5C6BC0/FFFFFF?text=Rate+Me",
		Status:  models.PhotoStatusActive,
	}
}
