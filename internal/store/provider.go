package store

import "github.com/mkarlsen/keepsake/internal/models"

// RecordStore defines the interface for record persistence.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type RecordStore interface {
	PutRecord(r models.Record) error
	DeleteRecord(id string) error
	GetRecord(id string) (*models.Record, error)
	ListRecords() ([]models.Record, error)
	SetImageURL(recordID, imageID, url string) error

	GetSetting(key string) (string, error)
	PutSetting(key, value string) error
	DeleteSetting(key string) error

	Profile() (*models.CaregiverProfile, error)
	SaveProfile(p models.CaregiverProfile) error
	RemoteSettings() (*models.RemoteSettings, error)
	SaveRemoteSettings(s models.RemoteSettings) error

	Close() error
}

// Verify *DB satisfies RecordStore at compile time.
var _ RecordStore = (*DB)(nil)
