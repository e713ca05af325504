package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/mkarlsen/keepsake/internal/apperr"
	"github.com/mkarlsen/keepsake/internal/models"
)

// Sheet layout contract: column A of the Login tab lists authorized emails;
// rows are appended to Sheet1.
const (
	allowListRange = "Login!A:A"
	appendRange    = "Sheet1!A1"
)

// GoogleClient mirrors records to Google Drive and Google Sheets.
type GoogleClient struct {
	drive         *drive.Service
	sheets        *sheets.Service
	spreadsheetID string
	folderID      string
}

// NewGoogleClient builds a mirror client from an OAuth token source. The
// token source is captured at construction; a later sign-out does not cancel
// calls already in flight.
func NewGoogleClient(ctx context.Context, ts oauth2.TokenSource, settings models.RemoteSettings) (*GoogleClient, error) {
	if ts == nil {
		return nil, fmt.Errorf("%w: no access token", apperr.ErrUpload)
	}
	httpClient := oauth2.NewClient(ctx, ts)

	drv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("mirror: drive client: %w", err)
	}
	sh, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("mirror: sheets client: %w", err)
	}
	return &GoogleClient{
		drive:         drv,
		sheets:        sh,
		spreadsheetID: settings.SpreadsheetID,
		folderID:      settings.FolderID,
	}, nil
}

// UploadImage uploads one image to Drive and returns a display URL. Drive's
// default thumbnailLink is a constrained preview (=s220); the size suffix is
// rewritten to =s0 to get the original resolution.
func (c *GoogleClient) UploadImage(ctx context.Context, payload []byte, mimeType, name string) (string, error) {
	meta := &drive.File{Name: name, MimeType: mimeType}
	if c.folderID != "" {
		meta.Parents = []string{c.folderID}
	}

	created, err := c.drive.Files.Create(meta).
		Media(bytes.NewReader(payload), googleapi.ContentType(mimeType)).
		Fields("id", "thumbnailLink", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrUpload, apiErrMessage(err))
	}

	if url := fullResolutionLink(created.ThumbnailLink); url != "" {
		return url, nil
	}
	if created.WebViewLink != "" {
		return created.WebViewLink, nil
	}
	return "", fmt.Errorf("%w: response carried no display link", apperr.ErrUpload)
}

// AppendRow appends one summary row for the record to Sheet1.
func (c *GoogleClient) AppendRow(ctx context.Context, rec models.Record, urls []string) error {
	row := []interface{}{rec.CaptureDate, rec.AgeLabel, string(rec.Mood), rec.Note}
	for _, u := range urls {
		row = append(row, u)
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := c.sheets.Spreadsheets.Values.Append(c.spreadsheetID, appendRange, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrAppend, apiErrMessage(err))
	}
	return nil
}

// ListAuthorizedEmails reads the Login tab's column A. An empty read fails
// closed (nobody authorized); an unreadable sheet or missing tab is operator
// misconfiguration and surfaces as ErrAccessCheck.
func (c *GoogleClient) ListAuthorizedEmails(ctx context.Context) (map[string]struct{}, error) {
	resp, err := c.sheets.Spreadsheets.Values.Get(c.spreadsheetID, allowListRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrAccessCheck, apiErrMessage(err))
	}

	out := make(map[string]struct{})
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(fmt.Sprint(row[0])))
		if email != "" {
			out[email] = struct{}{}
		}
	}
	return out, nil
}

// fullResolutionLink rewrites a Drive thumbnail link's trailing size suffix
// (e.g. "=s220") to "=s0", which serves the original resolution.
func fullResolutionLink(link string) string {
	if link == "" {
		return ""
	}
	i := strings.LastIndex(link, "=s")
	if i < 0 {
		return link
	}
	suffix := link[i+2:]
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return link
		}
	}
	return link[:i] + "=s0"
}

func apiErrMessage(err error) string {
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return fmt.Sprintf("%d: %s", ge.Code, ge.Message)
	}
	return err.Error()
}
