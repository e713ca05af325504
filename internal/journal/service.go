// Package journal implements the record composer: it normalizes photos,
// derives the age label, persists records, and mirrors them best-effort.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkarlsen/keepsake/internal/agecalc"
	"github.com/mkarlsen/keepsake/internal/apperr"
	"github.com/mkarlsen/keepsake/internal/captioner"
	"github.com/mkarlsen/keepsake/internal/mirror"
	"github.com/mkarlsen/keepsake/internal/models"
	"github.com/mkarlsen/keepsake/internal/normalizer"
	"github.com/mkarlsen/keepsake/internal/sse"
	"github.com/mkarlsen/keepsake/internal/store"
)

const dateLayout = "2006-01-02"

// MirrorSource yields a mirror client bound to the authorized session, or
// false when no session is authorized. The access gate implements this.
type MirrorSource interface {
	Mirror(ctx context.Context) (mirror.Client, bool)
}

// Captioner proposes a mood and note for a photo.
type Captioner interface {
	Suggest(ctx context.Context, payload []byte, mimeType string) (*captioner.Suggestion, error)
}

// FileInput is one raw uploaded photo.
type FileInput struct {
	Name string
	Data []byte
}

// MemoryInput is the composed form for creating or updating a memory.
type MemoryInput struct {
	CaptureDate string
	Note        string
	Mood        models.Mood
	Files       []FileInput
}

// SaveResult reports a committed local save plus the outcome of the
// best-effort sync. SyncErr is a warning, never a save failure.
type SaveResult struct {
	Record  *models.Record
	SyncErr error
}

// Service coordinates normalization, persistence, and mirroring.
type Service struct {
	store    store.RecordStore
	mirrors  MirrorSource
	captions Captioner
	broker   *sse.Broker
	logger   *slog.Logger
}

// NewService creates a journal service. mirrors, captions, and broker may be
// nil; the corresponding features degrade to no-ops.
func NewService(st store.RecordStore, mirrors MirrorSource, captions Captioner, broker *sse.Broker, logger *slog.Logger) *Service {
	return &Service{store: st, mirrors: mirrors, captions: captions, broker: broker, logger: logger}
}

// CreateMemory validates and saves a new record. The local save is
// authoritative: it either fully commits or the whole operation fails. The
// remote mirror push afterwards is best-effort and reported via
// SaveResult.SyncErr.
func (s *Service) CreateMemory(ctx context.Context, in MemoryInput) (*SaveResult, error) {
	if err := validateInput(in, true); err != nil {
		return nil, err
	}

	images := s.normalizeFiles(in.Files)
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: no usable photo in selection", apperr.ErrDecode)
	}

	ageLabel, err := s.ageLabel(in.CaptureDate)
	if err != nil {
		return nil, err
	}

	rec := models.Record{
		ID:          uuid.NewString(),
		CaptureDate: in.CaptureDate,
		Images:      images,
		Note:        in.Note,
		Mood:        in.Mood,
		AgeLabel:    ageLabel,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.PutRecord(rec); err != nil {
		return nil, err
	}
	s.publishMemory("saved", rec.ID)

	return s.finishSave(ctx, rec), nil
}

// UpdateMemory mutates a record in place: the identifier is preserved, all
// other fields are replaceable. Passing new files replaces the images
// wholesale; passing none keeps the existing ones.
func (s *Service) UpdateMemory(ctx context.Context, id string, in MemoryInput) (*SaveResult, error) {
	existing, err := s.store.GetRecord(id)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in, false); err != nil {
		return nil, err
	}

	images := existing.Images
	if len(in.Files) > 0 {
		images = s.normalizeFiles(in.Files)
		if len(images) == 0 {
			return nil, fmt.Errorf("%w: no usable photo in selection", apperr.ErrDecode)
		}
	}

	ageLabel, err := s.ageLabel(in.CaptureDate)
	if err != nil {
		return nil, err
	}

	rec := models.Record{
		ID:          existing.ID,
		CaptureDate: in.CaptureDate,
		Images:      images,
		Note:        in.Note,
		Mood:        in.Mood,
		AgeLabel:    ageLabel,
		CreatedAt:   existing.CreatedAt,
	}
	if err := s.store.PutRecord(rec); err != nil {
		return nil, err
	}
	s.publishMemory("saved", rec.ID)

	return s.finishSave(ctx, rec), nil
}

// CreateTextMemory saves a record with no photos. This backs the MCP tool
// surface, where binary uploads are impractical; photos are attached later
// through the web UI.
func (s *Service) CreateTextMemory(ctx context.Context, date, note string, mood models.Mood) (*SaveResult, error) {
	in := MemoryInput{CaptureDate: date, Note: note, Mood: mood}
	if err := validateInput(in, false); err != nil {
		return nil, err
	}

	ageLabel, err := s.ageLabel(date)
	if err != nil {
		return nil, err
	}

	rec := models.Record{
		ID:          uuid.NewString(),
		CaptureDate: date,
		Note:        note,
		Mood:        mood,
		AgeLabel:    ageLabel,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.PutRecord(rec); err != nil {
		return nil, err
	}
	s.publishMemory("saved", rec.ID)

	return s.finishSave(ctx, rec), nil
}

// UpdateNote replaces just the note text of an existing record.
func (s *Service) UpdateNote(ctx context.Context, id, note string) (*models.Record, error) {
	rec, err := s.store.GetRecord(id)
	if err != nil {
		return nil, err
	}
	rec.Note = note
	if err := s.store.PutRecord(*rec); err != nil {
		return nil, err
	}
	s.publishMemory("saved", rec.ID)
	return rec, nil
}

// DeleteMemory removes a record. Deleting a missing id is not an error.
func (s *Service) DeleteMemory(_ context.Context, id string) error {
	if err := s.store.DeleteRecord(id); err != nil {
		return err
	}
	s.publishMemory("deleted", id)
	return nil
}

// GetMemory returns one record.
func (s *Service) GetMemory(_ context.Context, id string) (*models.Record, error) {
	return s.store.GetRecord(id)
}

// ListMemories returns every record, capture date descending.
func (s *Service) ListMemories(_ context.Context) ([]models.Record, error) {
	return s.store.ListRecords()
}

// SuggestCaption normalizes one photo and asks the captioner for a mood and
// note pre-fill. Returns (nil, nil) when the captioner is disabled.
func (s *Service) SuggestCaption(ctx context.Context, data []byte) (*captioner.Suggestion, error) {
	if s.captions == nil {
		return nil, nil
	}
	payload, mime, err := normalizer.Normalize(data)
	if err != nil {
		return nil, err
	}
	return s.captions.Suggest(ctx, payload, mime)
}

// normalizeFiles processes the selection one file at a time; a failing file
// is skipped and logged, never aborting its siblings.
func (s *Service) normalizeFiles(files []FileInput) []models.Image {
	var images []models.Image
	for _, f := range files {
		payload, mime, err := normalizer.Normalize(f.Data)
		if err != nil {
			s.logger.Warn("skipping photo",
				slog.String("file", f.Name),
				slog.String("error", err.Error()))
			continue
		}
		images = append(images, models.Image{
			ID:       uuid.NewString(),
			Payload:  payload,
			MIMEType: mime,
		})
	}
	return images
}

// finishSave runs the best-effort mirror push for an already-committed
// record. A failure is reported, never rolled back.
func (s *Service) finishSave(ctx context.Context, rec models.Record) *SaveResult {
	res := &SaveResult{Record: &rec}

	client, ok := s.mirrorClient(ctx)
	if !ok {
		return res
	}

	urls, syncErr := mirror.SyncRecord(ctx, client, rec, s.logger)
	// Persist whatever URLs came back, even on partial failure: uploaded
	// images stay in the cloud store regardless.
	for _, u := range urls {
		if err := s.store.SetImageURL(rec.ID, u.ImageID, u.URL); err != nil {
			s.logger.Error("persist remote url failed",
				slog.String("record_id", rec.ID),
				slog.String("error", err.Error()))
		}
	}

	if syncErr != nil {
		s.logger.Warn("remote sync failed, record kept locally",
			slog.String("record_id", rec.ID),
			slog.String("error", syncErr.Error()))
		s.publishSync("failed", rec.ID, syncErr.Error())
		res.SyncErr = syncErr
		return res
	}

	s.publishSync("synced", rec.ID, "")
	if updated, err := s.store.GetRecord(rec.ID); err == nil {
		res.Record = updated
	}
	return res
}

func (s *Service) mirrorClient(ctx context.Context) (mirror.Client, bool) {
	if s.mirrors == nil {
		return nil, false
	}
	return s.mirrors.Mirror(ctx)
}

func (s *Service) ageLabel(captureDate string) (string, error) {
	profile, err := s.store.Profile()
	if err != nil {
		return "", err
	}
	if profile == nil || profile.BirthDate == "" {
		return "", nil
	}
	return agecalc.Label(profile.BirthDate, captureDate)
}

func (s *Service) publishMemory(kind, id string) {
	if s.broker != nil {
		s.broker.PublishMemoryEvent(kind, id)
	}
}

func (s *Service) publishSync(kind, id, message string) {
	if s.broker != nil {
		s.broker.PublishSyncEvent(kind, id, message)
	}
}

func validateInput(in MemoryInput, requireFiles bool) error {
	if _, err := time.Parse(dateLayout, in.CaptureDate); err != nil {
		return fmt.Errorf("%w: capture date must be YYYY-MM-DD: %q", apperr.ErrInvalid, in.CaptureDate)
	}
	if !in.Mood.Valid() {
		return fmt.Errorf("%w: unknown mood: %q", apperr.ErrInvalid, in.Mood)
	}
	if requireFiles && len(in.Files) == 0 {
		return fmt.Errorf("%w: a memory needs at least one photo", apperr.ErrInvalid)
	}
	return nil
}
