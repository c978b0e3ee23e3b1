package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmkolesov/snaprate/internal/models"
)

// UserStore persists Telegram-identified users in PostgreSQL.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// UpsertParams holds the identity fields received from the Telegram bridge.
type UpsertParams struct {
	ID          string
	TelegramID  int64
	Username    string
	DisplayName string
}

const userColumns = `id, telegram_id, username, display_name, status, created_at, last_seen_at`

// Upsert creates the user on first contact and refreshes identity fields
// and last-seen on every subsequent one.
func (s *UserStore) Upsert(ctx context.Context, params UpsertParams) (*models.User, error) {
	if params.ID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	query := `
		INSERT INTO users (id, telegram_id, username, display_name, status, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    display_name = CASE WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name ELSE users.display_name END,
		    last_seen_at = NOW()
		RETURNING ` + userColumns

	var telegramID sql.NullInt64
	if params.TelegramID != 0 {
		telegramID = sql.NullInt64{Int64: params.TelegramID, Valid: true}
	}

	user, err := scanUser(s.db.QueryRowContext(
		ctx,
		query,
		params.ID,
		telegramID,
		nullString(params.Username),
		params.DisplayName,
		string(models.UserStatusActive),
	))
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID. Returns nil when not found.
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// Stats returns the cumulative upload/rating counters for a user.
// Unknown users get zeroed stats rather than an error.
func (s *UserStore) Stats(ctx context.Context, id string) (*models.UserStats, error) {
	var stats models.UserStats
	err := s.db.QueryRowContext(ctx, `
		SELECT photos_uploaded, ratings_given FROM users WHERE id = $1
	`, id).Scan(&stats.PhotosUploaded, &stats.RatingsGiven)
	if err == sql.ErrNoRows {
		return &models.UserStats{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user stats: %w", err)
	}

	return &stats, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var status string
	var telegramID sql.NullInt64
	var username sql.NullString
	var lastSeenAt sql.NullTime

	err := row.Scan(
		&user.ID,
		&telegramID,
		&username,
		&user.DisplayName,
		&status,
		&user.CreatedAt,
		&lastSeenAt,
	)
	if err != nil {
		return nil, err
	}

	user.Status = models.UserStatus(status)
	if telegramID.Valid {
		user.TelegramID = telegramID.Int64
	}
	if username.Valid {
		user.Username = username.String
	}
	if lastSeenAt.Valid {
		t := lastSeenAt.Time
		user.LastSeenAt = &t
	}

	return &user, nil
}
