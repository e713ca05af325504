package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkarlsen/keepsake/internal/apperr"
	"github.com/mkarlsen/keepsake/internal/models"
)

// PutRecord inserts or replaces a record and its images within a transaction.
// Images are replaced wholesale; the record identifier is preserved.
func (db *DB) PutRecord(r models.Record) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := putRecordTx(tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

// putRecordTx performs the upsert inside an existing transaction so that the
// legacy migration can batch several records into one commit.
func putRecordTx(tx *sql.Tx, r models.Record) error {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := tx.Exec(`
		INSERT INTO records (id, capture_date, note, mood, age_label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			capture_date = excluded.capture_date,
			note         = excluded.note,
			mood         = excluded.mood,
			age_label    = excluded.age_label,
			created_at   = excluded.created_at
	`, r.ID, r.CaptureDate, r.Note, string(r.Mood), r.AgeLabel, createdAt)
	if err != nil {
		return fmt.Errorf("store: upsert record: %w", err)
	}

	// Replace images: delete old then bulk insert in position order.
	if _, err := tx.Exec(`DELETE FROM images WHERE record_id = ?`, r.ID); err != nil {
		return fmt.Errorf("store: clear images: %w", err)
	}
	if len(r.Images) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO images (id, record_id, position, payload, mime_type, remote_url)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("store: prepare image insert: %w", err)
		}
		defer stmt.Close()
		for i, img := range r.Images {
			if _, err := stmt.Exec(img.ID, r.ID, i, img.Payload, img.MIMEType, img.RemoteURL); err != nil {
				return fmt.Errorf("store: insert image: %w", err)
			}
		}
	}
	return nil
}

// DeleteRecord removes a record and its images. Deleting a missing id is not
// an error.
func (db *DB) DeleteRecord(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete record: %w", err)
	}
	return nil
}

// GetRecord returns a single record with its images in position order.
func (db *DB) GetRecord(id string) (*models.Record, error) {
	var r models.Record
	var mood string
	err := db.conn.QueryRow(`
		SELECT id, capture_date, note, mood, age_label, created_at
		FROM records WHERE id = ?
	`, id).Scan(&r.ID, &r.CaptureDate, &r.Note, &mood, &r.AgeLabel, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get record: %w", err)
	}
	r.Mood = models.Mood(mood)

	images, err := db.recordImages(r.ID)
	if err != nil {
		return nil, err
	}
	r.Images = images
	return &r, nil
}

// ListRecords returns every record sorted by capture date descending, ties
// broken by identifier descending so ordering is deterministic.
func (db *DB) ListRecords() ([]models.Record, error) {
	rows, err := db.conn.Query(`
		SELECT id, capture_date, note, mood, age_label, created_at
		FROM records
		ORDER BY capture_date DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list records: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var r models.Record
		var mood string
		if err := rows.Scan(&r.ID, &r.CaptureDate, &r.Note, &mood, &r.AgeLabel, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Mood = models.Mood(mood)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		images, err := db.recordImages(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Images = images
	}
	return out, nil
}

// SetImageURL records the remote display URL for one image after a sync.
// The payload stays untouched.
func (db *DB) SetImageURL(recordID, imageID, url string) error {
	res, err := db.conn.Exec(`
		UPDATE images SET remote_url = ? WHERE record_id = ? AND id = ?
	`, url, recordID, imageID)
	if err != nil {
		return fmt.Errorf("store: set image url: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (db *DB) recordImages(recordID string) ([]models.Image, error) {
	rows, err := db.conn.Query(`
		SELECT id, payload, mime_type, remote_url
		FROM images WHERE record_id = ?
		ORDER BY position
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("store: record images: %w", err)
	}
	defer rows.Close()

	var out []models.Image
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ID, &img.Payload, &img.MIMEType, &img.RemoteURL); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}
