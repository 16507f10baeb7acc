// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// A club registry is a single-server app with a few hundred members. SQLite
// lives inside the Go binary as one file, so there is no database server to
// run. Tests use ":memory:" for a throwaway database.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// SQLite, so `go build` is all a deploy needs.
//
// LAYOUT:
// DB owns the connection pool and the migrations. Each table gets a small
// repository type that shares the pool:
//
//	db.Owners()   → *OwnerDB    (repository.OwnerRepository)
//	db.Users()    → *UserDB     (repository.UserRepository)
//	db.Posts()    → *PostDB     (repository.PostRepository)
//	db.Snippets() → *SnippetDB  (repository.SnippetRepository)
//	db.Settings() → *SettingsDB (repository.SettingsRepository)
//
// Splitting by table keeps method names short (Create, GetByID, ...) without
// them colliding across tables.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	// The blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/owners-club/internal/registry"
)

// DB wraps a sql.DB connection pool.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/club.db" → file-based database (persistent)
//   - ":memory:"     → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database exists per connection. Pin the pool to a single
	// connection so every query sees the same tables.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Owners, admins and users
	// reference each other, and deleting a user must cascade.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Owners returns the owner profile repository.
func (db *DB) Owners() *OwnerDB { return &OwnerDB{conn: db.conn} }

// Users returns the account repository.
func (db *DB) Users() *UserDB { return &UserDB{conn: db.conn} }

// Posts returns the blog post repository.
func (db *DB) Posts() *PostDB { return &PostDB{conn: db.conn} }

// Snippets returns the code injection snippet repository.
func (db *DB) Snippets() *SnippetDB { return &SnippetDB{conn: db.conn} }

// Settings returns the site settings repository.
func (db *DB) Settings() *SettingsDB { return &SettingsDB{conn: db.conn} }

// migrate creates or updates every table.
//
// Each step is idempotent: CREATE TABLE IF NOT EXISTS for tables and
// addColumnIfNotExists for columns added after a table first shipped, so it
// is safe to run on every start.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				email         TEXT UNIQUE,
				password_hash TEXT NOT NULL DEFAULT '',
				github_id     INTEGER UNIQUE,
				login         TEXT NOT NULL DEFAULT '',
				avatar_url    TEXT NOT NULL DEFAULT '',
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`},
		{"admins", `
			CREATE TABLE IF NOT EXISTS admins (
				user_id    TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`},
		// List columns hold JSON arrays. user_id is UNIQUE: one profile per account.
		{"owners", `
			CREATE TABLE IF NOT EXISTS owners (
				id                  TEXT PRIMARY KEY,
				user_id             TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
				display_name        TEXT NOT NULL,
				username            TEXT NOT NULL UNIQUE,
				country             TEXT NOT NULL,
				region              TEXT,
				year                INTEGER NOT NULL,
				transmission        TEXT NOT NULL,
				colour              TEXT NOT NULL,
				mod_list            TEXT,
				instagram_handle    TEXT,
				instagram_post_urls TEXT NOT NULL DEFAULT '[]',
				public_profile      INTEGER NOT NULL DEFAULT 0,
				featured            INTEGER NOT NULL DEFAULT 0,
				photo_urls          TEXT NOT NULL DEFAULT '[]',
				badges              TEXT NOT NULL DEFAULT '[]',
				created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_owners_created_at ON owners(created_at);`},
		{"posts", `
			CREATE TABLE IF NOT EXISTS posts (
				id               TEXT PRIMARY KEY,
				title            TEXT NOT NULL,
				slug             TEXT NOT NULL UNIQUE,
				cover_image_url  TEXT NOT NULL DEFAULT '',
				body             TEXT NOT NULL DEFAULT '',
				published        INTEGER NOT NULL DEFAULT 0,
				meta_title       TEXT NOT NULL DEFAULT '',
				meta_description TEXT NOT NULL DEFAULT '',
				meta_tags        TEXT NOT NULL DEFAULT '[]',
				created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);`},
		{"snippets", `
			CREATE TABLE IF NOT EXISTS snippets (
				id         TEXT PRIMARY KEY,
				location   TEXT NOT NULL CHECK (location IN ('head', 'body')),
				content    TEXT NOT NULL,
				enabled    INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`},
		{"settings", `
			CREATE TABLE IF NOT EXISTS settings (
				key        TEXT PRIMARY KEY,
				value      TEXT NOT NULL DEFAULT '',
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", step.name, err)
		}
	}

	// show_on_map arrived with the map view.
	if err := db.addColumnIfNotExists("owners", "show_on_map",
		"INTEGER NOT NULL DEFAULT 0"); err != nil {
		return fmt.Errorf("adding show_on_map to owners: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// =========================================================================
// SHARED HELPERS
// =========================================================================

// scanRawRows reads every row into a column-name → value map.
//
// The owners table is read this way instead of scanning into model.Owner:
// the raw driver values go straight to registry.Normalize, which is the one
// place that decides how NULLs, JSON lists and integer booleans become an
// Owner.
func scanRawRows(rows *sql.Rows) ([]registry.RawRow, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	out := []registry.RawRow{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(registry.RawRow, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// encodeList stores a string slice as a JSON array. nil becomes "[]".
func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// decodeList is the inverse of encodeList. Bad JSON reads as empty.
func decodeList(s string) []string {
	out := []string{}
	if strings.TrimSpace(s) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return []string{}
	}
	return out
}

// nullString maps "" to NULL for nullable UNIQUE columns.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// now is UTC so that the text timestamps SQLite stores sort correctly.
func now() time.Time {
	return time.Now().UTC()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite reports these as "constraint failed: UNIQUE constraint
// failed: table.column".
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
