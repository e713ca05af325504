package journal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mkarlsen/keepsake/internal/apperr"
	"github.com/mkarlsen/keepsake/internal/mirror"
	"github.com/mkarlsen/keepsake/internal/models"
	"github.com/mkarlsen/keepsake/internal/testutil"
)

type fakeMirror struct {
	calls       []string
	failAtIndex int // 1-based upload call to fail; 0 = never
}

func (f *fakeMirror) UploadImage(_ context.Context, _ []byte, _ string, name string) (string, error) {
	f.calls = append(f.calls, "upload")
	if f.failAtIndex > 0 && len(f.calls) == f.failAtIndex {
		return "", fmt.Errorf("%w: 500: backend", apperr.ErrUpload)
	}
	return "https://cdn.example.com/" + name, nil
}

func (f *fakeMirror) AppendRow(_ context.Context, _ models.Record, _ []string) error {
	f.calls = append(f.calls, "append")
	return nil
}

func (f *fakeMirror) ListAuthorizedEmails(context.Context) (map[string]struct{}, error) {
	return nil, nil
}

// authorizedSource hands out the fake mirror, mimicking an authorized gate.
type authorizedSource struct{ client mirror.Client }

func (a *authorizedSource) Mirror(context.Context) (mirror.Client, bool) {
	return a.client, true
}

// anonymousSource mimics a signed-out gate.
type anonymousSource struct{}

func (anonymousSource) Mirror(context.Context) (mirror.Client, bool) { return nil, false }

func newTestService(t *testing.T, mirrors MirrorSource) *Service {
	t.Helper()
	db := testutil.TestDB(t)
	if err := db.SaveProfile(models.CaregiverProfile{ChildName: "June", BirthDate: "2024-01-15"}); err != nil {
		t.Fatal(err)
	}
	return NewService(db, mirrors, nil, nil, testutil.DiscardLogger())
}

func twoPhotoInput(t *testing.T) MemoryInput {
	t.Helper()
	png := testutil.PNG(t)
	return MemoryInput{
		CaptureDate: "2024-06-15",
		Note:        "beach day",
		Mood:        models.MoodHappy,
		Files: []FileInput{
			{Name: "a.png", Data: png},
			{Name: "b.png", Data: png},
		},
	}
}

func TestCreateMemorySavesAndSyncs(t *testing.T) {
	fm := &fakeMirror{}
	svc := newTestService(t, &authorizedSource{client: fm})

	res, err := svc.CreateMemory(context.Background(), twoPhotoInput(t))
	if err != nil {
		t.Fatalf("CreateMemory: %v", err)
	}
	if res.SyncErr != nil {
		t.Fatalf("SyncErr = %v", res.SyncErr)
	}

	// Exactly 2 sequential uploads then 1 append.
	want := []string{"upload", "upload", "append"}
	if len(fm.calls) != len(want) {
		t.Fatalf("calls = %v", fm.calls)
	}
	for i := range want {
		if fm.calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, fm.calls[i], want[i])
		}
	}

	rec := res.Record
	if rec.AgeLabel != "5 months" {
		t.Errorf("age label = %q, want 5 months", rec.AgeLabel)
	}
	if len(rec.Images) != 2 {
		t.Fatalf("images = %d", len(rec.Images))
	}
	for _, img := range rec.Images {
		if img.RemoteURL == "" {
			t.Errorf("image %s missing remote url", img.ID)
		}
		if img.MIMEType != "image/jpeg" {
			t.Errorf("image mime = %q", img.MIMEType)
		}
	}
}

func TestCreateMemoryUploadFailureKeepsLocalSave(t *testing.T) {
	fm := &fakeMirror{failAtIndex: 2}
	svc := newTestService(t, &authorizedSource{client: fm})

	res, err := svc.CreateMemory(context.Background(), twoPhotoInput(t))
	if err != nil {
		t.Fatalf("CreateMemory: %v", err)
	}
	if !errors.Is(res.SyncErr, apperr.ErrUpload) {
		t.Fatalf("SyncErr = %v, want ErrUpload", res.SyncErr)
	}

	// Append never called after the failed upload.
	for _, c := range fm.calls {
		if c == "append" {
			t.Fatal("append called despite upload failure")
		}
	}

	// Record is nonetheless present locally.
	all, err := svc.ListMemories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("records = %d, want 1", len(all))
	}
}

func TestCreateMemoryUnauthorizedSkipsSync(t *testing.T) {
	svc := newTestService(t, anonymousSource{})

	res, err := svc.CreateMemory(context.Background(), twoPhotoInput(t))
	if err != nil {
		t.Fatalf("CreateMemory: %v", err)
	}
	if res.SyncErr != nil {
		t.Errorf("SyncErr = %v for anonymous save", res.SyncErr)
	}
	for _, img := range res.Record.Images {
		if img.RemoteURL != "" {
			t.Errorf("unexpected remote url %q", img.RemoteURL)
		}
	}
}

func TestCreateMemorySkipsCorruptPhoto(t *testing.T) {
	svc := newTestService(t, anonymousSource{})

	in := twoPhotoInput(t)
	in.Files = append([]FileInput{{Name: "broken.bin", Data: []byte("not an image")}}, in.Files...)

	res, err := svc.CreateMemory(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateMemory: %v", err)
	}
	if len(res.Record.Images) != 2 {
		t.Errorf("images = %d, want 2 (corrupt one skipped)", len(res.Record.Images))
	}
}

func TestCreateMemoryAllPhotosCorrupt(t *testing.T) {
	svc := newTestService(t, anonymousSource{})

	in := MemoryInput{
		CaptureDate: "2024-06-15",
		Mood:        models.MoodHappy,
		Files:       []FileInput{{Name: "x", Data: []byte("junk")}},
	}
	_, err := svc.CreateMemory(context.Background(), in)
	if !errors.Is(err, apperr.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}

	all, _ := svc.ListMemories(context.Background())
	if len(all) != 0 {
		t.Errorf("records = %d after failed save", len(all))
	}
}

func TestCreateMemoryValidation(t *testing.T) {
	svc := newTestService(t, anonymousSource{})
	ctx := context.Background()

	bad := twoPhotoInput(t)
	bad.CaptureDate = "15/06/2024"
	if _, err := svc.CreateMemory(ctx, bad); err == nil {
		t.Error("bad date accepted")
	}

	bad = twoPhotoInput(t)
	bad.Mood = "ecstatic"
	if _, err := svc.CreateMemory(ctx, bad); err == nil {
		t.Error("unknown mood accepted")
	}

	bad = twoPhotoInput(t)
	bad.Files = nil
	if _, err := svc.CreateMemory(ctx, bad); err == nil {
		t.Error("memory without photos accepted")
	}
}

func TestUpdateMemoryPreservesIdentifierAndImages(t *testing.T) {
	svc := newTestService(t, anonymousSource{})
	ctx := context.Background()

	res, err := svc.CreateMemory(ctx, twoPhotoInput(t))
	if err != nil {
		t.Fatal(err)
	}
	id := res.Record.ID

	updated, err := svc.UpdateMemory(ctx, id, MemoryInput{
		CaptureDate: "2024-07-15",
		Note:        "edited",
		Mood:        models.MoodCurious,
	})
	if err != nil {
		t.Fatalf("UpdateMemory: %v", err)
	}
	if updated.Record.ID != id {
		t.Errorf("identifier changed: %s", updated.Record.ID)
	}
	if updated.Record.Note != "edited" || updated.Record.Mood != models.MoodCurious {
		t.Errorf("fields not replaced: %+v", updated.Record)
	}
	if len(updated.Record.Images) != 2 {
		t.Errorf("images dropped on no-file update: %d", len(updated.Record.Images))
	}
	if updated.Record.AgeLabel != "6 months" {
		t.Errorf("age label = %q (recomputed for new date), want 6 months", updated.Record.AgeLabel)
	}
}

func TestUpdateMemoryMissing(t *testing.T) {
	svc := newTestService(t, anonymousSource{})
	_, err := svc.UpdateMemory(context.Background(), "nope", twoPhotoInput(t))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteMemoryIdempotent(t *testing.T) {
	svc := newTestService(t, anonymousSource{})
	if err := svc.DeleteMemory(context.Background(), "missing"); err != nil {
		t.Errorf("delete missing: %v", err)
	}
}

func TestSuggestCaptionDisabled(t *testing.T) {
	svc := newTestService(t, anonymousSource{})
	s, err := svc.SuggestCaption(context.Background(), testutil.PNG(t))
	if err != nil || s != nil {
		t.Errorf("disabled captioner: %v, %v", s, err)
	}
}

func TestNoProfileMeansNoAgeLabel(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewService(db, anonymousSource{}, nil, nil, testutil.DiscardLogger())

	res, err := svc.CreateMemory(context.Background(), twoPhotoInput(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Record.AgeLabel != "" {
		t.Errorf("age label = %q without profile", res.Record.AgeLabel)
	}
}
