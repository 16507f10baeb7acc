package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/repository"
)

// compile-time check that *SettingsDB implements repository.SettingsRepository
var _ repository.SettingsRepository = (*SettingsDB)(nil)

// SettingsDB stores site settings as key/value rows.
type SettingsDB struct {
	conn *sql.DB
}

// GetAll returns every stored setting.
func (db *SettingsDB) GetAll(ctx context.Context) (model.SiteSettings, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing settings: %w", err)
	}
	defer rows.Close()

	out := model.SiteSettings{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("sqlite: scanning setting row: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating settings: %w", err)
	}
	return out, nil
}

const upsertSetting = `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// Set inserts or replaces one setting.
func (db *SettingsDB) Set(ctx context.Context, key, value string) error {
	if _, err := db.conn.ExecContext(ctx, upsertSetting, key, value, now()); err != nil {
		return fmt.Errorf("sqlite: setting %s: %w", key, err)
	}
	return nil
}

// SetMany inserts or replaces every pair in one transaction.
func (db *SettingsDB) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning settings transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSetting)
	if err != nil {
		return fmt.Errorf("sqlite: preparing setting upsert: %w", err)
	}
	defer stmt.Close()

	ts := now()
	for key, value := range values {
		if _, err := stmt.ExecContext(ctx, key, value, ts); err != nil {
			return fmt.Errorf("sqlite: setting %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing settings: %w", err)
	}
	return nil
}
