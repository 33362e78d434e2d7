package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer  = "product-catalog"
	subject = "admin"
)

var (
	// ErrInvalidPassword is returned by Login when the password does not match.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidSession is returned for missing, malformed, forged or expired tokens.
	ErrInvalidSession = errors.New("invalid or expired session")
)

// Sessions implements the single-password admin gate with expiring signed tokens.
type Sessions struct {
	password []byte
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewSessions creates a new Sessions instance.
func NewSessions(password, secret string, ttl time.Duration) *Sessions {
	return &Sessions{
		password: []byte(password),
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Login checks password and issues a session token.
func (s *Sessions) Login(password string) (string, time.Time, error) {
	if len(s.password) == 0 || subtle.ConstantTimeCompare([]byte(password), s.password) != 1 {
		return "", time.Time{}, ErrInvalidPassword
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Validate verifies the signature and expiry of token.
func (s *Sessions) Validate(token string) error {
	if token == "" {
		return ErrInvalidSession
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(subject),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return nil
}
