// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Members sign up with an email address and a password. GitHub sign-in is
// optional: when it is configured, GitHubID links the account to a GitHub
// identity and Login/AvatarURL mirror the GitHub profile.
//
// WHY GitHubID *int64?
// Most accounts never touch GitHub. A nil pointer maps to SQL NULL, which
// keeps the UNIQUE constraint on github_id from colliding on "0".
//
// PasswordHash is tagged json:"-" so it can never leak into an API response.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"githubId,omitempty"`
	Login        string    `json:"login"`
	AvatarURL    string    `json:"avatarUrl"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
