package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/registry"
	"github.com/sakif/owners-club/internal/repository"
)

// compile-time check that *OwnerDB implements repository.OwnerRepository
var _ repository.OwnerRepository = (*OwnerDB)(nil)

// OwnerDB stores owner profiles in the owners table.
type OwnerDB struct {
	conn *sql.DB
}

const ownerColumns = `id, user_id, display_name, username, country, region, year,
	transmission, colour, mod_list, instagram_handle, instagram_post_urls,
	public_profile, featured, show_on_map, photo_urls, badges, created_at, updated_at`

// ListRows returns raw owner rows, newest first.
func (db *OwnerDB) ListRows(ctx context.Context, q repository.OwnerQuery) ([]registry.RawRow, error) {
	var where []string
	if q.PublicOnly {
		where = append(where, "public_profile = 1")
	}
	if q.FeaturedOnly {
		where = append(where, "featured = 1")
	}

	query := `SELECT ` + ownerColumns + ` FROM owners`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	// id breaks ties: xids sort by creation time.
	query += ` ORDER BY created_at DESC, id DESC`

	var args []any
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing owners: %w", err)
	}
	defer rows.Close()

	out, err := scanRawRows(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing owners: %w", err)
	}
	return out, nil
}

// GetRowByID returns the raw row for one owner.
func (db *OwnerDB) GetRowByID(ctx context.Context, id string) (registry.RawRow, error) {
	return db.getRow(ctx, "id", id, "owner")
}

// GetRowByUsername returns the raw row for the owner with username.
func (db *OwnerDB) GetRowByUsername(ctx context.Context, username string) (registry.RawRow, error) {
	return db.getRow(ctx, "username", username, "member")
}

// GetRowByUserID returns the raw row for the profile owned by userID.
func (db *OwnerDB) GetRowByUserID(ctx context.Context, userID string) (registry.RawRow, error) {
	return db.getRow(ctx, "user_id", userID, "profile")
}

// getRow looks up a single row by a column name. column is always a
// constant from this file, never user input.
func (db *OwnerDB) getRow(ctx context.Context, column, value, resource string) (registry.RawRow, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+ownerColumns+` FROM owners WHERE `+column+` = ? LIMIT 1`,
		value,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting owner by %s: %w", column, err)
	}
	defer rows.Close()

	out, err := scanRawRows(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting owner by %s: %w", column, err)
	}
	if len(out) == 0 {
		return nil, apperror.NotFound(resource, value)
	}
	return out[0], nil
}

// UsernameExists reports whether any owner already uses username.
func (db *OwnerDB) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM owners WHERE username = ?`, username,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username %s: %w", username, err)
	}
	return n > 0, nil
}

// Create inserts a new owner. It sets o.ID and the timestamps.
// A second profile for the same user, or a taken username, is a conflict.
func (db *OwnerDB) Create(ctx context.Context, o *model.Owner) error {
	o.ID = xid.New().String()
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO owners (`+ownerColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID,
		o.UserID,
		o.DisplayName,
		o.Username,
		o.Country,
		nullString(o.Region),
		o.Year,
		o.Transmission,
		o.Colour,
		nullString(o.ModList),
		nullString(o.InstagramHandle),
		encodeList(o.InstagramPostURLs),
		o.PublicProfile,
		o.Featured,
		o.ShowOnMap,
		encodeList(o.PhotoURLs),
		encodeList(o.Badges),
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("owner", o.Username)
		}
		return fmt.Errorf("sqlite: creating owner: %w", err)
	}
	return nil
}

// Update writes the member-editable fields of o. Visibility toggles other
// than public_profile, badges and the username are managed separately.
func (db *OwnerDB) Update(ctx context.Context, o *model.Owner) error {
	o.UpdatedAt = now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE owners
		 SET display_name = ?, country = ?, region = ?, year = ?, transmission = ?,
		     colour = ?, mod_list = ?, instagram_handle = ?, instagram_post_urls = ?,
		     public_profile = ?, show_on_map = ?, photo_urls = ?, updated_at = ?
		 WHERE id = ?`,
		o.DisplayName,
		o.Country,
		nullString(o.Region),
		o.Year,
		o.Transmission,
		o.Colour,
		nullString(o.ModList),
		nullString(o.InstagramHandle),
		encodeList(o.InstagramPostURLs),
		o.PublicProfile,
		o.ShowOnMap,
		encodeList(o.PhotoURLs),
		o.UpdatedAt,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating owner %s: %w", o.ID, err)
	}
	return checkAffected(result, "owner", o.ID)
}

// SetPublic sets the public_profile flag.
func (db *OwnerDB) SetPublic(ctx context.Context, id string, public bool) error {
	return db.setColumn(ctx, id, "public_profile", public)
}

// SetFeatured sets the featured flag.
func (db *OwnerDB) SetFeatured(ctx context.Context, id string, featured bool) error {
	return db.setColumn(ctx, id, "featured", featured)
}

// SetBadges replaces the badge list.
func (db *OwnerDB) SetBadges(ctx context.Context, id string, badges []string) error {
	return db.setColumn(ctx, id, "badges", encodeList(badges))
}

func (db *OwnerDB) setColumn(ctx context.Context, id, column string, value any) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE owners SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		value, now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting %s on owner %s: %w", column, id, err)
	}
	return checkAffected(result, "owner", id)
}

// Delete removes an owner profile.
func (db *OwnerDB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM owners WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting owner %s: %w", id, err)
	}
	return checkAffected(result, "owner", id)
}

// checkAffected turns a zero-row UPDATE or DELETE into NotFound.
func checkAffected(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
