// Package model defines the data structures used throughout the application.
package model

import "time"

// Snippet is an admin-managed fragment of raw HTML or JavaScript injected
// into every public page (analytics tags, chat widgets, verification meta
// tags and so on).
//
// The `json:"..."` tags tell Go's encoding/json package how to serialize/deserialize
// this struct to/from JSON.
type Snippet struct {
	ID        string    `json:"id"`
	Location  string    `json:"location"` // SnippetHead or SnippetBody
	Content   string    `json:"content"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snippet injection points.
const (
	SnippetHead = "head"
	SnippetBody = "body"
)
