package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mkarlsen/keepsake/internal/models"
)

// Keys in the settings area. The legacy key is consumed and cleared by the
// one-time migration.
const (
	settingProfile = "caregiver_profile"
	settingRemote  = "remote_settings"
	settingLegacy  = "legacy_memories"
)

// GetSetting returns the stored value for key, or empty string if absent.
func (db *DB) GetSetting(key string) (string, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get setting %s: %w", key, err)
	}
	return v, nil
}

// PutSetting inserts or replaces a settings value.
func (db *DB) PutSetting(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("store: put setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a settings value. Missing keys are not an error.
func (db *DB) DeleteSetting(key string) error {
	if _, err := db.conn.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: delete setting %s: %w", key, err)
	}
	return nil
}

// Profile returns the caregiver profile, or nil when none has been saved.
func (db *DB) Profile() (*models.CaregiverProfile, error) {
	raw, err := db.GetSetting(settingProfile)
	if err != nil || raw == "" {
		return nil, err
	}
	var p models.CaregiverProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("store: decode profile: %w", err)
	}
	return &p, nil
}

// SaveProfile persists the caregiver profile.
func (db *DB) SaveProfile(p models.CaregiverProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: encode profile: %w", err)
	}
	return db.PutSetting(settingProfile, string(raw))
}

// RemoteSettings returns the persisted remote settings, or nil when none have
// been saved (environment defaults apply in that case).
func (db *DB) RemoteSettings() (*models.RemoteSettings, error) {
	raw, err := db.GetSetting(settingRemote)
	if err != nil || raw == "" {
		return nil, err
	}
	var s models.RemoteSettings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("store: decode remote settings: %w", err)
	}
	return &s, nil
}

// SaveRemoteSettings persists the remote settings wholesale.
func (db *DB) SaveRemoteSettings(s models.RemoteSettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("store: encode remote settings: %w", err)
	}
	return db.PutSetting(settingRemote, string(raw))
}
