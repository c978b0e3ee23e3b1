package models

import "time"

// UserStatus controls whether an account can interact with the service.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is a Telegram-identified account. Identity comes from the Mini App
// bridge (initData); there are no passwords.
type User struct {
	ID          string     `json:"id"`
	TelegramID  int64      `json:"telegramId"`
	Username    string     `json:"username,omitempty"`
	DisplayName string     `json:"displayName"`
	Status      UserStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastSeenAt  *time.Time `json:"lastSeenAt,omitempty"`
}

// UserStats are the cumulative counters shown on the exhausted screen.
// JSON names match the Mini App stats payload.
type UserStats struct {
	PhotosUploaded int `json:"photos_uploaded"`
	RatingsGiven   int `json:"ratings_given"`
}
