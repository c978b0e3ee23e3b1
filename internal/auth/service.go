package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmkolesov/snaprate/internal/config"
	"github.com/dmkolesov/snaprate/internal/database"
	"github.com/dmkolesov/snaprate/internal/logging"
	"github.com/dmkolesov/snaprate/internal/models"
)

// initDataMaxAge bounds how old Mini App init data may be before it is
// rejected as replayed.
const initDataMaxAge = 24 * time.Hour

// Service handles Telegram identity verification and session tokens
type Service struct {
	config    config.AuthConfig
	userStore *database.UserStore
	logger    *logging.Logger
}

// NewService creates a new auth service
func NewService(userStore *database.UserStore, cfg config.AuthConfig, logger *logging.Logger) *Service {
	return &Service{
		config:    cfg,
		userStore: userStore,
		logger:    logger,
	}
}

// SessionToken is a signed bearer token for one verified user
type SessionToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AuthResponse is returned after successful init data verification
type AuthResponse struct {
	User  *models.User `json:"user"`
	Token SessionToken `json:"token"`
}

// LoginWithInitData verifies Telegram Mini App init data, upserts the user
// and mints a session token
func (s *Service) LoginWithInitData(ctx context.Context, initData string) (*AuthResponse, error) {
	if s.config.TelegramBotToken == "" {
		return nil, &AuthError{Code: "auth_disabled", Message: "telegram authentication is not configured"}
	}

	tgUser, err := VerifyInitData(initData, s.config.TelegramBotToken, initDataMaxAge)
	if err != nil {
		s.logger.Warn("Init data verification failed", logging.WithField("error", err.Error()))
		return nil, &AuthError{Code: "invalid_init_data", Message: "init data verification failed"}
	}

	user, err := s.userStore.Upsert(ctx, database.UpsertParams{
		ID:          tgUser.UserIDString(),
		TelegramID:  tgUser.ID,
		Username:    tgUser.Username,
		DisplayName: tgUser.DisplayName(),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User authenticated",
		logging.WithField("user_id", user.ID),
		logging.WithField("username", user.Username))

	return &AuthResponse{User: user, Token: *token}, nil
}

// ValidateAccessToken validates a JWT access token and returns the user ID
func (s *Service) ValidateAccessToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})

	if err != nil {
		return "", &AuthError{Code: "invalid_token", Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", &AuthError{Code: "invalid_token", Message: "invalid token claims"}
	}

	// Validate issuer and audience
	if iss, _ := claims["iss"].(string); iss != s.config.JWTIssuer {
		return "", &AuthError{Code: "invalid_token", Message: "invalid token issuer"}
	}
	if aud, _ := claims["aud"].(string); aud != s.config.JWTAudience {
		return "", &AuthError{Code: "invalid_token", Message: "invalid token audience"}
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", &AuthError{Code: "invalid_token", Message: "invalid token subject"}
	}

	return userID, nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.userStore.GetByID(ctx, userID)
}

func (s *Service) generateToken(user *models.User) (*SessionToken, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"name": user.DisplayName,
		"iss":  s.config.JWTIssuer,
		"aud":  s.config.JWTAudience,
		"iat":  now.Unix(),
		"exp":  now.Add(s.config.SessionTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &SessionToken{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.config.SessionTokenTTL.Seconds()),
	}, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *AuthError) Error() string {
	return e.Message
}
