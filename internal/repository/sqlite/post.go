package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/repository"
)

// compile-time check that *PostDB implements repository.PostRepository
var _ repository.PostRepository = (*PostDB)(nil)

// PostDB stores blog posts.
type PostDB struct {
	conn *sql.DB
}

const postColumns = `id, title, slug, cover_image_url, body, published,
	meta_title, meta_description, meta_tags, created_at, updated_at`

// Create inserts a new post and sets its ID and timestamps.
func (db *PostDB) Create(ctx context.Context, p *model.Post) error {
	p.ID = xid.New().String()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Slug, p.CoverImageURL, p.Body, p.Published,
		p.MetaTitle, p.MetaDescription, encodeList(p.MetaTags),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("post", p.Slug)
		}
		return fmt.Errorf("sqlite: creating post: %w", err)
	}
	return nil
}

// GetByID retrieves a post by ID.
func (db *PostDB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	p, err := scanPost(db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("post", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return p, nil
}

// GetBySlug retrieves a post by slug.
func (db *PostDB) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	p, err := scanPost(db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("post", slug)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting post %s: %w", slug, err)
	}
	return p, nil
}

// List returns posts newest first.
func (db *PostDB) List(ctx context.Context, q repository.PostQuery) ([]model.Post, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + postColumns + ` FROM posts`
	if q.PublishedOnly {
		query += ` WHERE published = 1`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	return posts, nil
}

// SlugExists reports whether a post other than excludeID uses slug.
func (db *PostDB) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE slug = ? AND id != ?`, slug, excludeID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking slug %s: %w", slug, err)
	}
	return n > 0, nil
}

// Update writes every editable field of p.
func (db *PostDB) Update(ctx context.Context, p *model.Post) error {
	p.UpdatedAt = now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE posts
		 SET title = ?, slug = ?, cover_image_url = ?, body = ?, published = ?,
		     meta_title = ?, meta_description = ?, meta_tags = ?, updated_at = ?
		 WHERE id = ?`,
		p.Title, p.Slug, p.CoverImageURL, p.Body, p.Published,
		p.MetaTitle, p.MetaDescription, encodeList(p.MetaTags), p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("post", p.Slug)
		}
		return fmt.Errorf("sqlite: updating post %s: %w", p.ID, err)
	}
	return checkAffected(result, "post", p.ID)
}

// Delete removes a post.
func (db *PostDB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}
	return checkAffected(result, "post", id)
}

// Counts returns how many posts exist and how many are published.
func (db *PostDB) Counts(ctx context.Context) (total, published int, err error) {
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(published), 0) FROM posts`,
	).Scan(&total, &published)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}
	return total, published, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(r rowScanner) (*model.Post, error) {
	var (
		p    model.Post
		tags string
	)
	err := r.Scan(
		&p.ID, &p.Title, &p.Slug, &p.CoverImageURL, &p.Body, &p.Published,
		&p.MetaTitle, &p.MetaDescription, &tags, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.MetaTags = decodeList(tags)
	return &p, nil
}
