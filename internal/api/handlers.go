package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkarlsen/keepsake/internal/apperr"
	"github.com/mkarlsen/keepsake/internal/gate"
	"github.com/mkarlsen/keepsake/internal/journal"
	"github.com/mkarlsen/keepsake/internal/models"
	"github.com/mkarlsen/keepsake/internal/store"
)

// maxUploadBytes caps a single multipart submission (photos included).
const maxUploadBytes = 50 << 20

// Handler bundles the dependencies shared by all route handlers.
type Handler struct {
	svc    *journal.Service
	gate   *gate.Gate
	store  store.RecordStore
	logger *slog.Logger
}

// NewHandler creates the API handler set.
func NewHandler(svc *journal.Service, g *gate.Gate, st store.RecordStore, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, gate: g, store: st, logger: logger}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalid), errors.Is(err, apperr.ErrDecode):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrConfigMissing):
		writeJSON(w, http.StatusPreconditionFailed, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrLogin):
		writeJSON(w, http.StatusUnauthorized, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAccessCheck):
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	default:
		h.logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// parseMemoryForm reads the multipart compose form: text fields date, mood,
// note, and any number of files under "photos".
func parseMemoryForm(r *http.Request) (journal.MemoryInput, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return journal.MemoryInput{}, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}

	in := journal.MemoryInput{
		CaptureDate: r.FormValue("date"),
		Note:        r.FormValue("note"),
		Mood:        models.Mood(r.FormValue("mood")),
	}
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["photos"] {
			f, err := fh.Open()
			if err != nil {
				return journal.MemoryInput{}, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return journal.MemoryInput{}, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
			}
			in.Files = append(in.Files, journal.FileInput{Name: fh.Filename, Data: data})
		}
	}
	return in, nil
}

func saveResponse(res *journal.SaveResult) SaveResponse {
	out := SaveResponse{Memory: memoryDTO(*res.Record)}
	if res.SyncErr != nil {
		out.SyncWarning = res.SyncErr.Error()
	}
	return out
}

func (h *Handler) listMemories(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.ListMemories(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := MemoryListResponse{Memories: []MemoryDTO{}, Total: len(recs)}
	for _, rec := range recs {
		out.Memories = append(out.Memories, memoryDTO(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createMemory(w http.ResponseWriter, r *http.Request) {
	in, err := parseMemoryForm(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	res, err := h.svc.CreateMemory(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saveResponse(res))
}

func (h *Handler) getMemory(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetMemory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memoryDTO(*rec))
}

func (h *Handler) updateMemory(w http.ResponseWriter, r *http.Request) {
	in, err := parseMemoryForm(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	res, err := h.svc.UpdateMemory(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse(res))
}

func (h *Handler) deleteMemory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteMemory(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// serveImage streams the stored payload bytes for one image of a memory.
func (h *Handler) serveImage(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetMemory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	imageID := chi.URLParam(r, "imageID")
	for _, img := range rec.Images {
		if img.ID != imageID {
			continue
		}
		w.Header().Set("Content-Type", img.MIMEType)
		w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(img.Payload); err != nil {
			h.logger.Warn("image write aborted", slog.String("error", err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusNotFound, errorBody("image not found"))
}

// suggestCaption accepts one photo and returns an AI mood/note pre-fill.
// Responds 204 when the captioner is not configured.
func (h *Handler) suggestCaption(w http.ResponseWriter, r *http.Request) {
	in, err := parseMemoryForm(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if len(in.Files) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("a photo is required"))
		return
	}
	s, err := h.svc.SuggestCaption(r.Context(), in.Files[0].Data)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if s == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, SuggestionResponse{Mood: string(s.Mood), Note: s.Note})
}
