package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kailas-cloud/seshat/internal/domain"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "seshat_session"

// Default token lifetimes.
const (
	DefaultSessionTTL = 30 * 24 * time.Hour
	DefaultResetTTL   = 10 * time.Minute
)

const (
	purposeSession = "session"
	purposeReset   = "reset_password"
)

// Claims are the JWT claims of every seshat token. The purpose separates
// session tokens from password reset tokens signed with the same key.
type Claims struct {
	Purpose string `json:"purpose"`
	// ResetPassword holds the user id of a password reset token.
	ResetPassword int64 `json:"reset_password,omitempty"`
	jwt.RegisteredClaims
}

// Tokens issues and validates HS256 tokens.
type Tokens struct {
	key        []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

// NewTokens creates a Tokens signer. Zero TTLs use the defaults.
func NewTokens(secret string, sessionTTL, resetTTL time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("auth: secret key is required")
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if resetTTL <= 0 {
		resetTTL = DefaultResetTTL
	}
	return &Tokens{key: []byte(secret), sessionTTL: sessionTTL, resetTTL: resetTTL, now: time.Now}, nil
}

// SessionTTL returns the lifetime of session tokens.
func (t *Tokens) SessionTTL() time.Duration { return t.sessionTTL }

// IssueSession signs a session token for userID.
func (t *Tokens) IssueSession(userID int64) (string, error) {
	now := t.now()
	return t.sign(Claims{
		Purpose: purposeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.sessionTTL)),
		},
	})
}

// ParseSession returns the user id of a valid session token.
func (t *Tokens) ParseSession(token string) (int64, error) {
	claims, err := t.parse(token, purposeSession)
	if err != nil {
		return 0, domain.ErrUnauthorized
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrUnauthorized
	}
	return id, nil
}

// IssueReset signs a password reset token for userID.
func (t *Tokens) IssueReset(userID int64) (string, error) {
	now := t.now()
	return t.sign(Claims{
		Purpose:       purposeReset,
		ResetPassword: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.resetTTL)),
		},
	})
}

// ParseReset returns the user id of a valid password reset token.
func (t *Tokens) ParseReset(token string) (int64, error) {
	claims, err := t.parse(token, purposeReset)
	if err != nil || claims.ResetPassword <= 0 {
		return 0, domain.ErrInvalidToken
	}
	return claims.ResetPassword, nil
}

func (t *Tokens) sign(claims Claims) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

func (t *Tokens) parse(token, purpose string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Purpose != purpose {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
