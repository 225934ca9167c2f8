package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the browser session cookie.
const SessionCookieName = "openboot_session"

var ErrInvalidSession = errors.New("invalid session")

// SessionClaims is the signed payload of the session cookie. It carries just
// enough to identify the user; everything else is loaded from the store.
type SessionClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionManager signs and verifies the HMAC session cookie.
type SessionManager struct {
	secret []byte
	maxAge time.Duration
}

func NewSessionManager(secret string, maxAge time.Duration) *SessionManager {
	return &SessionManager{secret: []byte(secret), maxAge: maxAge}
}

// MaxAge is the cookie lifetime in seconds, as http.Cookie wants it.
func (m *SessionManager) MaxAge() int {
	return int(m.maxAge.Seconds())
}

// Sign creates a session token for a logged-in user.
func (m *SessionManager) Sign(userID, username string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token. Expired, malformed or
// foreign-signed tokens all come back as ErrInvalidSession.
func (m *SessionManager) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		},
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || claims.UserID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
