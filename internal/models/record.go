// Package models defines the domain types for Keepsake.
package models

import "time"

// Mood classifies a memory. The set is closed; anything else is rejected
// before a record reaches the store.
type Mood string

const (
	MoodHappy     Mood = "happy"
	MoodSleepy    Mood = "sleepy"
	MoodPlayful   Mood = "playful"
	MoodFussy     Mood = "fussy"
	MoodCurious   Mood = "curious"
	MoodMilestone Mood = "milestone"
)

// Moods returns every valid mood value.
func Moods() []Mood {
	return []Mood{MoodHappy, MoodSleepy, MoodPlayful, MoodFussy, MoodCurious, MoodMilestone}
}

// Valid reports whether m is one of the known moods.
func (m Mood) Valid() bool {
	for _, known := range Moods() {
		if m == known {
			return true
		}
	}
	return false
}

// Image is a single photo owned by its parent Record. Payload holds the
// normalized JPEG bytes; RemoteURL is set after a successful cloud sync and
// supersedes the payload for display.
type Image struct {
	ID        string `json:"id"`
	Payload   []byte `json:"-"`
	MIMEType  string `json:"mime_type"`
	RemoteURL string `json:"remote_url,omitempty"`
}

// Record is one dated journal entry ("memory").
type Record struct {
	ID          string    `json:"id"`
	CaptureDate string    `json:"capture_date"` // YYYY-MM-DD
	Images      []Image   `json:"images"`
	Note        string    `json:"note"`
	Mood        Mood      `json:"mood"`
	AgeLabel    string    `json:"age_label"` // derived once at save time
	CreatedAt   time.Time `json:"created_at"`
}

// CaregiverProfile is the per-installation child profile used to derive the
// age label. Singleton, persisted in the settings area.
type CaregiverProfile struct {
	ChildName string `json:"child_name"`
	BirthDate string `json:"birth_date"` // YYYY-MM-DD
}

// RemoteSettings holds the credentials for the cloud mirror. Replaced
// wholesale, never partially mutated; any change resets the access gate.
type RemoteSettings struct {
	ClientID      string `json:"client_id" yaml:"client_id"`
	ClientSecret  string `json:"client_secret" yaml:"client_secret"`
	APIKey        string `json:"api_key" yaml:"api_key"`
	SpreadsheetID string `json:"spreadsheet_id" yaml:"spreadsheet_id"`
	FolderID      string `json:"folder_id,omitempty" yaml:"folder_id"`
}

// Complete reports whether the settings are populated enough to attempt a
// sign-in. FolderID and APIKey are optional.
func (s RemoteSettings) Complete() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.SpreadsheetID != ""
}
