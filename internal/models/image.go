package models

import (
	"encoding/json"
	"time"
)

// ImageVariant identifies which rendition of a photo an asset holds.
type ImageVariant string

const (
	ImageVariantOriginal  ImageVariant = "original"
	ImageVariantThumbnail ImageVariant = "thumbnail"
)

// ImageModerationStatus is the moderation outcome returned to clients.
type ImageModerationStatus string

const (
	ImageModerationApproved      ImageModerationStatus = "APPROVED"
	ImageModerationRejected      ImageModerationStatus = "REJECTED"
	ImageModerationPendingReview ImageModerationStatus = "PENDING_REVIEW"
)

// ModerationLabel captures a single Rekognition moderation label.
type ModerationLabel struct {
	Name       string  `json:"name"`
	ParentName string  `json:"parentName,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ModerationDecision is the server-side decision used by upload flows.
type ModerationDecision struct {
	Status        ImageModerationStatus `json:"status"`
	Reason        string                `json:"reason,omitempty"`
	Labels        []ModerationLabel     `json:"labels,omitempty"`
	MaxConfidence float64               `json:"maxConfidence,omitempty"`
}

// ImageAsset stores photo bytes + moderation metadata when the database
// backend is used instead of object storage.
type ImageAsset struct {
	ID                      string
	PhotoID                 string
	Variant                 ImageVariant
	ContentType             string
	ImageBytes              []byte
	ModerationLabels        json.RawMessage
	ModerationMaxConfidence float64
	CreatedAt               time.Time
	UpdatedAt               time.Time
}
