package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// TelegramUser is the user payload embedded in Mini App init data.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// DisplayName builds a normalized display name from the Telegram profile.
// Names arrive in whatever Unicode form the client typed them in, so they
// are NFC-normalized before storage.
func (u *TelegramUser) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return norm.NFC.String(name)
}

// UserIDString is the opaque user id stored in the database, the decimal
// Telegram user id.
func (u *TelegramUser) UserIDString() string {
	return strconv.FormatInt(u.ID, 10)
}

// VerifyInitData checks the HMAC signature Telegram attaches to Mini App
// init data and returns the embedded user. maxAge of zero disables the
// auth_date freshness check.
func VerifyInitData(initData, botToken string, maxAge time.Duration) (*TelegramUser, error) {
	if strings.TrimSpace(initData) == "" {
		return nil, fmt.Errorf("init data is empty")
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("parse init data: %w", err)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, fmt.Errorf("init data has no hash")
	}

	// The data-check-string is every field except hash, sorted, joined
	// with newlines.
	keys := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	dataCheckString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(gotHash), []byte(wantHash)) {
		return nil, fmt.Errorf("init data signature mismatch")
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("init data has no auth_date")
		}
		if time.Since(time.Unix(authDate, 0)) > maxAge {
			return nil, fmt.Errorf("init data expired")
		}
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		return nil, fmt.Errorf("init data has no user")
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, fmt.Errorf("parse init data user: %w", err)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("init data user has no id")
	}

	return &user, nil
}
