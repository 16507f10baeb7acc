package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt is deliberately slow and embeds a random salt in its output, so the
// stored hash is a single self-describing string:
//
//	$2a$12$<22-char salt><31-char hash>

// DefaultCost is the bcrypt work factor used in production (~250ms/hash).
const DefaultCost = 12

// Password length limits. bcrypt silently ignores everything after 72 bytes,
// so longer inputs are rejected instead.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

// ErrInvalidPassword is returned by Verify when the password does not match.
var ErrInvalidPassword = errors.New("auth: invalid password")

// PasswordService hashes and verifies passwords.
//
// The cost is a field so tests can use bcrypt.MinCost (4) and run in
// milliseconds.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService. cost <= 0 means DefaultCost.
func NewPasswordService(cost int) *PasswordService {
	if cost <= 0 {
		cost = DefaultCost
	}
	return &PasswordService{cost: cost}
}

// CheckStrength validates a new password's length.
func (p *PasswordService) CheckStrength(plaintext string) error {
	if utf8.RuneCountInString(plaintext) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(plaintext) > MaxPasswordBytes {
		return fmt.Errorf("password must be %d bytes or fewer", MaxPasswordBytes)
	}
	return nil
}

// Hash hashes plaintext with bcrypt.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash, ErrInvalidPassword when it
// does not. The comparison is constant-time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
