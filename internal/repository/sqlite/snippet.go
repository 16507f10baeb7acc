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

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` fails to compile if *Y stops implementing X, so a
// missing method shows up here instead of wherever the type is first used.
var _ repository.SnippetRepository = (*SnippetDB)(nil)

// SnippetDB stores code injection snippets.
type SnippetDB struct {
	conn *sql.DB
}

const snippetColumns = `id, location, content, enabled, created_at, updated_at`

// Create inserts a new snippet.
//
// xid generates a 20-char, URL-safe, time-sortable ID
// (e.g. "cv37rs3pp9olc6atsptg"). The caller's struct is updated in place
// with the ID and timestamps.
func (db *SnippetDB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()
	snippet.CreatedAt = now()
	snippet.UpdatedAt = snippet.CreatedAt

	// Parameterized query: never build SQL from user input with Sprintf.
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (`+snippetColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.Location,
		snippet.Content,
		snippet.Enabled,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}
	return nil
}

// GetByID retrieves a single snippet by its ID.
// sql.ErrNoRows is translated to apperror.NotFound so the handler returns 404.
func (db *SnippetDB) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	var s model.Snippet
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE id = ?`, id,
	).Scan(&s.ID, &s.Location, &s.Content, &s.Enabled, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("snippet", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}
	return &s, nil
}

// List retrieves snippets with pagination, newest first.
func (db *SnippetDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	return db.query(ctx,
		`SELECT `+snippetColumns+` FROM snippets
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

// ListEnabled returns every enabled snippet, oldest first so injection
// order matches creation order.
func (db *SnippetDB) ListEnabled(ctx context.Context) ([]model.Snippet, error) {
	return db.query(ctx,
		`SELECT `+snippetColumns+` FROM snippets
		 WHERE enabled = 1
		 ORDER BY created_at ASC, id ASC`,
	)
}

// Counts returns how many snippets exist and how many are enabled.
func (db *SnippetDB) Counts(ctx context.Context) (total, enabled int, err error) {
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(enabled), 0) FROM snippets`,
	).Scan(&total, &enabled)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: counting snippets: %w", err)
	}
	return total, enabled, nil
}

func (db *SnippetDB) query(ctx context.Context, query string, args ...any) ([]model.Snippet, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	// rows holds a pooled connection until closed.
	defer rows.Close()

	snippets := []model.Snippet{}
	for rows.Next() {
		var s model.Snippet
		if err := rows.Scan(&s.ID, &s.Location, &s.Content, &s.Enabled, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}
	return snippets, nil
}

// Update modifies an existing snippet. Zero rows affected means NotFound.
func (db *SnippetDB) Update(ctx context.Context, snippet *model.Snippet) error {
	snippet.UpdatedAt = now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET location = ?, content = ?, enabled = ?, updated_at = ?
		 WHERE id = ?`,
		snippet.Location,
		snippet.Content,
		snippet.Enabled,
		snippet.UpdatedAt,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}
	return checkAffected(result, "snippet", snippet.ID)
}

// Delete removes a snippet by its ID.
func (db *SnippetDB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}
	return checkAffected(result, "snippet", id)
}
