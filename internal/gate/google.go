package gate

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/mkarlsen/keepsake/internal/models"
)

// googleAuthenticator runs the Google OAuth web flow. Scopes cover exactly
// what the mirror needs: app-created Drive files, spreadsheet rows, and the
// account email for the allow-list check.
type googleAuthenticator struct {
	cfg *oauth2.Config
}

func newGoogleAuthenticator(s models.RemoteSettings, redirectURL string) *googleAuthenticator {
	return &googleAuthenticator{
		cfg: &oauth2.Config{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				drive.DriveFileScope,
				sheets.SpreadsheetsScope,
				goauth2.UserinfoEmailScope,
			},
		},
	}
}

func (a *googleAuthenticator) AuthCodeURL(state string) string {
	return a.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (a *googleAuthenticator) Exchange(ctx context.Context, code string) (string, oauth2.TokenSource, error) {
	tok, err := a.cfg.Exchange(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("token exchange: %w", err)
	}
	ts := a.cfg.TokenSource(ctx, tok)

	svc, err := goauth2.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return "", nil, fmt.Errorf("userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.Email == "" {
		return "", nil, fmt.Errorf("provider returned no email")
	}
	return info.Email, ts, nil
}
