package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mkarlsen/keepsake/internal/apperr"
	"github.com/mkarlsen/keepsake/internal/models"
)

// RemoteSettingsDTO is the wire shape for remote mirror settings. Secrets are
// write-only: responses report whether they are set, never their values.
type RemoteSettingsDTO struct {
	ClientID        string `json:"client_id"`
	ClientSecret    string `json:"client_secret,omitempty"`
	APIKey          string `json:"api_key,omitempty"`
	SpreadsheetID   string `json:"spreadsheet_id"`
	FolderID        string `json:"folder_id"`
	ClientSecretSet bool   `json:"client_secret_set"`
	APIKeySet       bool   `json:"api_key_set"`
	Complete        bool   `json:"complete"`
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.store.Profile()
	if err != nil {
		h.respondError(w, err)
		return
	}
	if profile == nil {
		profile = &models.CaregiverProfile{}
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) putProfile(w http.ResponseWriter, r *http.Request) {
	var profile models.CaregiverProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if profile.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", profile.BirthDate); err != nil {
			h.respondError(w, fmt.Errorf("%w: birth date must be YYYY-MM-DD", apperr.ErrInvalid))
			return
		}
	}
	if err := h.store.SaveProfile(profile); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) getRemoteSettings(w http.ResponseWriter, r *http.Request) {
	s := h.gate.Settings()
	writeJSON(w, http.StatusOK, RemoteSettingsDTO{
		ClientID:        s.ClientID,
		SpreadsheetID:   s.SpreadsheetID,
		FolderID:        s.FolderID,
		ClientSecretSet: s.ClientSecret != "",
		APIKeySet:       s.APIKey != "",
		Complete:        s.Complete(),
	})
}

// putRemoteSettings persists new mirror settings and resets the access gate.
// Any settings change invalidates the current session.
func (h *Handler) putRemoteSettings(w http.ResponseWriter, r *http.Request) {
	var dto RemoteSettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	prev := h.gate.Settings()
	next := models.RemoteSettings{
		ClientID:      dto.ClientID,
		ClientSecret:  dto.ClientSecret,
		APIKey:        dto.APIKey,
		SpreadsheetID: dto.SpreadsheetID,
		FolderID:      dto.FolderID,
	}
	// Omitted secrets keep their stored values so the UI never has to echo
	// them back.
	if next.ClientSecret == "" {
		next.ClientSecret = prev.ClientSecret
	}
	if next.APIKey == "" {
		next.APIKey = prev.APIKey
	}

	if err := h.store.SaveRemoteSettings(next); err != nil {
		h.respondError(w, err)
		return
	}
	h.gate.Reset(next)

	writeJSON(w, http.StatusOK, RemoteSettingsDTO{
		ClientID:        next.ClientID,
		SpreadsheetID:   next.SpreadsheetID,
		FolderID:        next.FolderID,
		ClientSecretSet: next.ClientSecret != "",
		APIKeySet:       next.APIKey != "",
		Complete:        next.Complete(),
	})
}
