// Package mirror implements best-effort synchronization of records to a
// user-controlled cloud account: image uploads to a file store and summary
// rows appended to a spreadsheet.
package mirror

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkarlsen/keepsake/internal/models"
)

// Client is the remote mirror surface. Consumers depend on this interface so
// tests can substitute fakes for the Google implementation.
type Client interface {
	// UploadImage uploads one image and returns a durable display URL for
	// the highest-resolution variant the service offers.
	UploadImage(ctx context.Context, payload []byte, mimeType, name string) (string, error)
	// AppendRow appends [date, ageLabel, mood, note, url...] to the target
	// sheet.
	AppendRow(ctx context.Context, rec models.Record, urls []string) error
	// ListAuthorizedEmails reads the allow-list column and returns its values
	// lower-cased and trimmed. An empty sheet means nobody is authorized.
	ListAuthorizedEmails(ctx context.Context) (map[string]struct{}, error)
}

// ImageURL pairs an uploaded image with its remote display URL.
type ImageURL struct {
	ImageID string
	URL     string
}

// SyncRecord pushes one record through the mirror: images are uploaded one at
// a time in order, then a single row is appended. The first failure aborts
// the rest; already-uploaded images stay orphaned in the cloud store. Local
// state is never touched here.
func SyncRecord(ctx context.Context, c Client, rec models.Record, logger *slog.Logger) ([]ImageURL, error) {
	urls := make([]ImageURL, 0, len(rec.Images))
	for i, img := range rec.Images {
		name := fmt.Sprintf("memory-%s-%d.jpg", rec.CaptureDate, i+1)
		url, err := c.UploadImage(ctx, img.Payload, img.MIMEType, name)
		if err != nil {
			return urls, fmt.Errorf("image %d of %d: %w", i+1, len(rec.Images), err)
		}
		logger.Debug("image uploaded",
			slog.String("record_id", rec.ID),
			slog.String("image_id", img.ID),
			slog.String("url", url))
		urls = append(urls, ImageURL{ImageID: img.ID, URL: url})
	}

	flat := make([]string, len(urls))
	for i, u := range urls {
		flat[i] = u.URL
	}
	if err := c.AppendRow(ctx, rec, flat); err != nil {
		return urls, err
	}
	return urls, nil
}
