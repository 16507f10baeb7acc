// Package auth provides the session token, password hashing, GitHub sign-in
// and the HTTP middleware that ties them together.
//
// SESSION FLOW:
//  1. A member signs in with email + password (or through GitHub).
//  2. The server issues a signed JWT whose subject is the internal user ID
//     and stores it in the HttpOnly "token" cookie.
//  3. On each request RequireAuth / OptionalAuth read the cookie, verify
//     the signature and put the user ID in the request context.
//  4. RequireAdmin additionally asks an AdminChecker whether that user has
//     the admin role. The role is looked up on every request and never
//     stored in the token, so revoking it takes effect immediately.
//
// JWT STRUCTURE:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:    {"alg":"HS256","typ":"JWT"}
//	- Payload:   {"sub":"<userID>","iss":"owners-club","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the "iss" claim on every token this package signs.
const Issuer = "owners-club"

// DefaultTokenTTL is how long a session lasts. There is no refresh token:
// members sign in again once a week.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenService signs and verifies session JWTs with an HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. ttl <= 0 means DefaultTokenTTL.
// The secret must be at least 16 characters; production should use 32+
// random bytes (e.g. `openssl rand -hex 32`).
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of tokens from Generate. The session cookie uses the
// same value as its Max-Age.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Generate signs a session token for userID with the service's TTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to produce an already-expired token.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    Issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies a token and returns the user ID in its subject.
//
// The library checks the signature, expiry and issuer. WithValidMethods
// pins HS256 so a token claiming "alg":"none" is rejected.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}
	return c.Subject, nil
}
