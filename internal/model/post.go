package model

import "time"

// Post is a blog article written in the admin console.
//
// Body holds HTML produced by the rich-text editor. It is sanitized before
// it is stored, so templates can render it without escaping.
type Post struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"` // unique, used as /blog/{slug}
	CoverImageURL   string    `json:"coverImageUrl"`
	Body            string    `json:"body"`
	Published       bool      `json:"published"`
	MetaTitle       string    `json:"metaTitle"`
	MetaDescription string    `json:"metaDescription"`
	MetaTags        []string  `json:"metaTags"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
