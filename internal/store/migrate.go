package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkarlsen/keepsake/internal/models"
)

// legacyMemory is the flat-list representation older installations persisted
// under a single settings key, with image payloads base64-encoded.
type legacyMemory struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Note   string `json:"note"`
	Mood   string `json:"mood"`
	Age    string `json:"age"`
	Photos []struct {
		ID   string `json:"id"`
		Data string `json:"data"` // base64
		MIME string `json:"mime"`
	} `json:"photos"`
}

// MigrateLegacy upserts every entry of the legacy flat list into the record
// store and clears the legacy key, all in one transaction: if anything fails
// the legacy data stays intact for a retry on next startup. Running it again
// once the key is gone is a no-op. Returns the number of migrated records.
func MigrateLegacy(db *DB, logger *slog.Logger) (int, error) {
	raw, err := db.GetSetting(settingLegacy)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}

	var entries []legacyMemory
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return 0, fmt.Errorf("store: decode legacy list: %w", err)
	}

	records := make([]models.Record, 0, len(entries))
	for _, e := range entries {
		rec, err := legacyToRecord(e)
		if err != nil {
			return 0, err
		}
		records = append(records, rec)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin migration tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, rec := range records {
		if err := putRecordTx(tx, rec); err != nil {
			return 0, err
		}
	}
	if _, err := tx.Exec(`DELETE FROM settings WHERE key = ?`, settingLegacy); err != nil {
		return 0, fmt.Errorf("store: clear legacy key: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit migration: %w", err)
	}

	logger.Info("migrated legacy memories", slog.Int("count", len(records)))
	return len(records), nil
}

func legacyToRecord(e legacyMemory) (models.Record, error) {
	rec := models.Record{
		ID:          e.ID,
		CaptureDate: e.Date,
		Note:        e.Note,
		Mood:        models.Mood(e.Mood),
		AgeLabel:    e.Age,
		CreatedAt:   time.Now().UTC(),
	}
	for _, p := range e.Photos {
		payload, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return models.Record{}, fmt.Errorf("store: decode legacy image %s: %w", p.ID, err)
		}
		rec.Images = append(rec.Images, models.Image{
			ID:       p.ID,
			Payload:  payload,
			MIMEType: p.MIME,
		})
	}
	return rec, nil
}
