package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"freightline/internal/types"
)

// Compile-time assertion that SettingsRepository implements SettingReader.
var _ types.SettingReader = (*SettingsRepository)(nil)

// SettingsRepository reads per-organization configuration flags from the
// organization_settings table. Settings are stored as text values keyed by
// organization and setting name; callers parse the value for their key.
type SettingsRepository struct {
	db DBTX
}

// NewSettingsRepository creates a SettingsRepository backed by the given
// database connection (pool or transaction).
func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Value returns a single setting. The boolean reports whether the setting
// exists: an absent setting is not an error, callers fall back to their
// default.
func (r *SettingsRepository) Value(ctx context.Context, organizationID, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(ctx,
		`SELECT value FROM organization_settings
		 WHERE organization_id = $1 AND key = $2`,
		organizationID,
		key,
	).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, types.NewAppError(types.ErrCodeInternalDB, "failed to read organization setting", err)
	}
	return value, true, nil
}

// Values returns the requested settings in one query. Keys without a stored
// value are simply absent from the result map.
func (r *SettingsRepository) Values(ctx context.Context, organizationID string, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT key, value FROM organization_settings
		 WHERE organization_id = $1 AND key = ANY($2)`,
		organizationID,
		keys,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read organization settings", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan setting row", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating setting rows", err)
	}

	return result, nil
}
