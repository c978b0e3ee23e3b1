package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/dmkolesov/snaprate/internal/config"
	"github.com/dmkolesov/snaprate/internal/database"
	"github.com/dmkolesov/snaprate/internal/testutil"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		TelegramBotToken: testBotToken,
		JWTSecret:        "test-secret",
		JWTIssuer:        "snaprate",
		JWTAudience:      "snaprate-users",
		SessionTokenTTL:  time.Hour,
	}
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	store := database.NewUserStore(&database.DB{DB: sqlDB})
	return NewService(store, testAuthConfig(), testutil.NullLogger()), mock
}

func userRow(id string, telegramID int64, username, displayName string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "telegram_id", "username", "display_name", "status", "created_at", "last_seen_at",
	}).AddRow(id, telegramID, username, displayName, "active", now, now)
}

func TestLoginWithInitData(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(userRow("42", 42, "annlee", "Ann Lee"))

	initData := signInitData(t, testBotToken, validInitDataFields())
	resp, err := svc.LoginWithInitData(context.Background(), initData)
	if err != nil {
		t.Fatalf("LoginWithInitData() error: %v", err)
	}

	if resp.User.ID != "42" {
		t.Errorf("user id = %q, want 42", resp.User.ID)
	}
	if resp.Token.AccessToken == "" {
		t.Fatal("no access token issued")
	}
	if resp.Token.TokenType != "Bearer" {
		t.Errorf("token type = %q", resp.Token.TokenType)
	}

	userID, err := svc.ValidateAccessToken(resp.Token.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error: %v", err)
	}
	if userID != "42" {
		t.Errorf("validated user id = %q, want 42", userID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLoginWithInitData_BadSignature(t *testing.T) {
	svc, _ := newTestService(t)

	initData := signInitData(t, "999:OTHER-TOKEN", validInitDataFields())
	_, err := svc.LoginWithInitData(context.Background(), initData)

	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Code != "invalid_init_data" {
		t.Fatalf("error = %v, want invalid_init_data", err)
	}
}

func TestLoginWithInitData_AuthDisabled(t *testing.T) {
	svc, _ := newTestService(t)
	svc.config.TelegramBotToken = ""

	_, err := svc.LoginWithInitData(context.Background(), "anything")
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Code != "auth_disabled" {
		t.Fatalf("error = %v, want auth_disabled", err)
	}
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.ValidateAccessToken("not-a-token"); err == nil {
		t.Fatal("garbage token should fail validation")
	}
}

func TestValidateAccessToken_WrongIssuer(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(userRow("42", 42, "annlee", "Ann Lee"))

	initData := signInitData(t, testBotToken, validInitDataFields())
	resp, err := svc.LoginWithInitData(context.Background(), initData)
	if err != nil {
		t.Fatalf("LoginWithInitData() error: %v", err)
	}

	other, _ := newTestService(t)
	other.config.JWTIssuer = "someone-else"
	if _, err := other.ValidateAccessToken(resp.Token.AccessToken); err == nil {
		t.Fatal("token with wrong issuer should fail validation")
	}
}
