package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores accounts in the users table and the admin role in admins.
type UserDB struct {
	conn *sql.DB
}

const userSelect = `SELECT u.id, u.email, u.password_hash, u.github_id, u.login, u.avatar_url,
	u.created_at, u.updated_at, a.user_id IS NOT NULL
	FROM users u LEFT JOIN admins a ON a.user_id = u.id`

// Create inserts a new account. Emails are stored lower-cased; a duplicate
// email is a conflict.
func (db *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, github_id, login, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		nullString(user.Email),
		user.PasswordHash,
		githubIDValue(user.GitHubID),
		user.Login,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx, userSelect+` WHERE u.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email, case-insensitively.
func (db *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(db.conn.QueryRowContext(ctx, userSelect+` WHERE u.email = ?`, email))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UpsertGitHub inserts or updates a user based on their GitHub ID.
//
// An existing account keeps its internal ID and gets its login and avatar
// refreshed. A new GitHub identity whose email matches an existing
// email/password account is linked to that account instead of creating a
// second one.
func (db *UserDB) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("sqlite: upserting github user: missing github id")
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, *user.GitHubID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", *user.GitHubID, err)
	}

	if existingID == "" && user.Email != "" {
		err = db.conn.QueryRowContext(ctx,
			`SELECT id FROM users WHERE email = ? AND github_id IS NULL`, user.Email,
		).Scan(&existingID)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("sqlite: looking up user by email: %w", err)
		}
	}

	if existingID == "" {
		return db.Create(ctx, user)
	}

	user.ID = existingID
	user.UpdatedAt = now()
	_, err = db.conn.ExecContext(ctx,
		`UPDATE users SET github_id = ?, login = ?, avatar_url = ?, updated_at = ?
		 WHERE id = ?`,
		*user.GitHubID,
		user.Login,
		user.AvatarURL,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	stored, err := db.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

// IsAdmin reports whether userID has a row in admins.
func (db *UserDB) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admins WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking admin %s: %w", userID, err)
	}
	return n > 0, nil
}

// SetAdmin grants or revokes the admin role. Granting twice is a no-op.
func (db *UserDB) SetAdmin(ctx context.Context, userID string, admin bool) error {
	if admin {
		if _, err := db.GetByID(ctx, userID); err != nil {
			return err
		}
		_, err := db.conn.ExecContext(ctx,
			`INSERT OR IGNORE INTO admins (user_id, created_at) VALUES (?, ?)`,
			userID, now(),
		)
		if err != nil {
			return fmt.Errorf("sqlite: granting admin to %s: %w", userID, err)
		}
		return nil
	}

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM admins WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: revoking admin from %s: %w", userID, err)
	}
	return nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u        model.User
		email    sql.NullString
		githubID sql.NullInt64
	)
	err := row.Scan(
		&u.ID,
		&email,
		&u.PasswordHash,
		&githubID,
		&u.Login,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.IsAdmin,
	)
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &u, nil
}

func githubIDValue(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
