package api

import (
	"time"

	"github.com/mkarlsen/keepsake/internal/models"
)

// ImageDTO is one image in a memory response. URL always points at the local
// payload; RemoteURL is present once the mirror has uploaded the image.
type ImageDTO struct {
	ID        string `json:"id"`
	MIMEType  string `json:"mime_type"`
	URL       string `json:"url"`
	RemoteURL string `json:"remote_url,omitempty"`
}

// MemoryDTO is the response shape for a single memory.
type MemoryDTO struct {
	ID          string     `json:"id"`
	CaptureDate string     `json:"capture_date"`
	Note        string     `json:"note"`
	Mood        string     `json:"mood"`
	AgeLabel    string     `json:"age_label"`
	CreatedAt   time.Time  `json:"created_at"`
	Images      []ImageDTO `json:"images"`
}

// MemoryListResponse wraps a memory listing.
type MemoryListResponse struct {
	Memories []MemoryDTO `json:"memories"`
	Total    int         `json:"total"`
}

// SaveResponse is returned after creating or updating a memory. SyncWarning
// is set when the local save committed but the remote mirror push failed.
type SaveResponse struct {
	Memory      MemoryDTO `json:"memory"`
	SyncWarning string    `json:"sync_warning,omitempty"`
}

// SuggestionResponse is the caption pre-fill for the compose form.
type SuggestionResponse struct {
	Mood string `json:"mood,omitempty"`
	Note string `json:"note,omitempty"`
}

// LoginResponse carries the provider URL the user must visit.
type LoginResponse struct {
	AuthURL string `json:"auth_url"`
}

func memoryDTO(rec models.Record) MemoryDTO {
	dto := MemoryDTO{
		ID:          rec.ID,
		CaptureDate: rec.CaptureDate,
		Note:        rec.Note,
		Mood:        string(rec.Mood),
		AgeLabel:    rec.AgeLabel,
		CreatedAt:   rec.CreatedAt,
		Images:      []ImageDTO{},
	}
	for _, img := range rec.Images {
		dto.Images = append(dto.Images, ImageDTO{
			ID:        img.ID,
			MIMEType:  img.MIMEType,
			URL:       "/api/memories/" + rec.ID + "/images/" + img.ID,
			RemoteURL: img.RemoteURL,
		})
	}
	return dto
}
