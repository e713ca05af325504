package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/oauth2"

	"github.com/mkarlsen/keepsake/internal/apperr"
	"github.com/mkarlsen/keepsake/internal/mirror"
	"github.com/mkarlsen/keepsake/internal/models"
)

type fakeAuth struct {
	email       string
	exchangeErr error
}

func (f *fakeAuth) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (f *fakeAuth) Exchange(context.Context, string) (string, oauth2.TokenSource, error) {
	if f.exchangeErr != nil {
		return "", nil, f.exchangeErr
	}
	tok := &oauth2.Token{AccessToken: "tok"}
	return f.email, oauth2.StaticTokenSource(tok), nil
}

type fakeAllowList struct {
	emails  map[string]struct{}
	listErr error
	onList  func() // runs at the start of ListAuthorizedEmails
}

func (f *fakeAllowList) UploadImage(context.Context, []byte, string, string) (string, error) {
	return "", nil
}

func (f *fakeAllowList) AppendRow(context.Context, models.Record, []string) error {
	return nil
}

func (f *fakeAllowList) ListAuthorizedEmails(context.Context) (map[string]struct{}, error) {
	if f.onList != nil {
		f.onList()
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.emails, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completeSettings() models.RemoteSettings {
	return models.RemoteSettings{ClientID: "cid", ClientSecret: "sec", SpreadsheetID: "sheet"}
}

func testGate(auth *fakeAuth, allow *fakeAllowList, settings models.RemoteSettings) *Gate {
	return New(settings, "http://localhost:8080/api/auth/callback", discard(),
		WithAuthenticatorFactory(func(models.RemoteSettings) Authenticator { return auth }),
		WithClientFactory(func(context.Context, oauth2.TokenSource, models.RemoteSettings) (mirror.Client, error) {
			return allow, nil
		}),
	)
}

// beginAndComplete runs the two-step login and returns the resulting session.
func beginAndComplete(t *testing.T, g *Gate) (Session, error) {
	t.Helper()
	url, err := g.BeginLogin()
	if err != nil {
		t.Fatalf("BeginLogin: %v", err)
	}
	if g.Session().State != StateAuthenticating {
		t.Fatalf("state after begin = %s", g.Session().State)
	}
	// The nonce rides in the URL's state parameter.
	nonce := url[len("https://accounts.example.com/auth?state="):]
	return g.CompleteLogin(context.Background(), nonce, "code")
}

func TestBeginLoginRequiresConfig(t *testing.T) {
	g := testGate(&fakeAuth{}, &fakeAllowList{}, models.RemoteSettings{ClientID: "only"})

	_, err := g.BeginLogin()
	if !errors.Is(err, apperr.ErrConfigMissing) {
		t.Fatalf("err = %v, want ErrConfigMissing", err)
	}
	if g.Session().State != StateUnauthenticated {
		t.Errorf("state transitioned on config failure: %s", g.Session().State)
	}
}

func TestLoginAuthorized(t *testing.T) {
	allow := &fakeAllowList{emails: map[string]struct{}{"parent@example.com": {}}}
	g := testGate(&fakeAuth{email: "  Parent@Example.COM "}, allow, completeSettings())

	sess, err := beginAndComplete(t, g)
	if err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}
	if sess.State != StateAuthorized || sess.Email != "parent@example.com" {
		t.Errorf("session = %+v", sess)
	}

	if _, ok := g.Mirror(context.Background()); !ok {
		t.Error("Mirror unavailable after authorization")
	}
}

func TestLoginDeniedNotOnList(t *testing.T) {
	allow := &fakeAllowList{emails: map[string]struct{}{"someoneelse@example.com": {}}}
	g := testGate(&fakeAuth{email: "parent@example.com"}, allow, completeSettings())

	sess, err := beginAndComplete(t, g)
	if err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}
	if sess.State != StateDenied {
		t.Errorf("state = %s, want denied", sess.State)
	}
	// Token discarded.
	if _, ok := g.Mirror(context.Background()); ok {
		t.Error("Mirror available in denied state")
	}
}

func TestLoginEmptyAllowListFailsClosed(t *testing.T) {
	g := testGate(&fakeAuth{email: "parent@example.com"}, &fakeAllowList{emails: map[string]struct{}{}}, completeSettings())

	sess, err := beginAndComplete(t, g)
	if err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}
	if sess.State != StateDenied {
		t.Errorf("empty allow-list gave state %s, want denied", sess.State)
	}
}

func TestLoginAllowListUnreadable(t *testing.T) {
	allow := &fakeAllowList{listErr: fmt.Errorf("%w: 400: unable to parse range Login!A:A", apperr.ErrAccessCheck)}
	g := testGate(&fakeAuth{email: "parent@example.com"}, allow, completeSettings())

	_, err := beginAndComplete(t, g)
	if !errors.Is(err, apperr.ErrAccessCheck) {
		t.Fatalf("err = %v, want ErrAccessCheck", err)
	}
	if g.Session().State != StateUnauthenticated {
		t.Errorf("state = %s", g.Session().State)
	}
}

func TestLoginHandshakeFailure(t *testing.T) {
	g := testGate(&fakeAuth{exchangeErr: errors.New("user cancelled")}, &fakeAllowList{}, completeSettings())

	_, err := beginAndComplete(t, g)
	if !errors.Is(err, apperr.ErrLogin) {
		t.Fatalf("err = %v, want ErrLogin", err)
	}
	if g.Session().State != StateUnauthenticated {
		t.Errorf("state = %s", g.Session().State)
	}
}

func TestCompleteLoginStateMismatch(t *testing.T) {
	g := testGate(&fakeAuth{email: "parent@example.com"}, &fakeAllowList{}, completeSettings())
	if _, err := g.BeginLogin(); err != nil {
		t.Fatal(err)
	}

	_, err := g.CompleteLogin(context.Background(), "forged-nonce", "code")
	if !errors.Is(err, apperr.ErrLogin) {
		t.Fatalf("err = %v, want ErrLogin", err)
	}
}

func TestCompleteLoginWithoutBegin(t *testing.T) {
	g := testGate(&fakeAuth{}, &fakeAllowList{}, completeSettings())
	_, err := g.CompleteLogin(context.Background(), "x", "code")
	if !errors.Is(err, apperr.ErrLogin) {
		t.Fatalf("err = %v, want ErrLogin", err)
	}
}

func TestSignOut(t *testing.T) {
	allow := &fakeAllowList{emails: map[string]struct{}{"parent@example.com": {}}}
	g := testGate(&fakeAuth{email: "parent@example.com"}, allow, completeSettings())
	if _, err := beginAndComplete(t, g); err != nil {
		t.Fatal(err)
	}

	g.SignOut()
	sess := g.Session()
	if sess.State != StateUnauthenticated || sess.Email != "" {
		t.Errorf("session after sign-out = %+v", sess)
	}
	if _, ok := g.Mirror(context.Background()); ok {
		t.Error("Mirror available after sign-out")
	}
}

func TestResetDuringCompleteLoginWins(t *testing.T) {
	allow := &fakeAllowList{emails: map[string]struct{}{"parent@example.com": {}}}
	g := testGate(&fakeAuth{email: "parent@example.com"}, allow, completeSettings())

	// Settings change lands while the allow-list read is in flight.
	next := completeSettings()
	next.SpreadsheetID = "other-sheet"
	allow.onList = func() { g.Reset(next) }

	_, err := beginAndComplete(t, g)
	if !errors.Is(err, apperr.ErrLogin) {
		t.Fatalf("err = %v, want ErrLogin", err)
	}
	if g.Session().State != StateUnauthenticated {
		t.Errorf("stale attempt overwrote reset: state = %s", g.Session().State)
	}
	if _, ok := g.Mirror(context.Background()); ok {
		t.Error("Mirror available from a token minted under old settings")
	}
	if g.Settings().SpreadsheetID != "other-sheet" {
		t.Errorf("settings rolled back: %+v", g.Settings())
	}
}

func TestSignOutDuringCompleteLoginWins(t *testing.T) {
	allow := &fakeAllowList{emails: map[string]struct{}{"parent@example.com": {}}}
	g := testGate(&fakeAuth{email: "parent@example.com"}, allow, completeSettings())
	allow.onList = func() { g.SignOut() }

	_, err := beginAndComplete(t, g)
	if !errors.Is(err, apperr.ErrLogin) {
		t.Fatalf("err = %v, want ErrLogin", err)
	}
	if g.Session().State != StateUnauthenticated {
		t.Errorf("stale attempt re-authorized after sign-out: state = %s", g.Session().State)
	}
}

func TestAllowListFailureDoesNotClobberNewerSession(t *testing.T) {
	allow := &fakeAllowList{listErr: fmt.Errorf("%w: 503", apperr.ErrAccessCheck)}
	g := testGate(&fakeAuth{email: "parent@example.com"}, allow, completeSettings())

	next := completeSettings()
	next.SpreadsheetID = "other-sheet"
	allow.onList = func() { g.Reset(next) }

	_, err := beginAndComplete(t, g)
	if !errors.Is(err, apperr.ErrAccessCheck) {
		t.Fatalf("err = %v, want ErrAccessCheck", err)
	}
	if g.Settings().SpreadsheetID != "other-sheet" {
		t.Errorf("error path rolled back newer settings: %+v", g.Settings())
	}
}

func TestResetReplacesSettingsAndDropsSession(t *testing.T) {
	allow := &fakeAllowList{emails: map[string]struct{}{"parent@example.com": {}}}
	g := testGate(&fakeAuth{email: "parent@example.com"}, allow, completeSettings())
	if _, err := beginAndComplete(t, g); err != nil {
		t.Fatal(err)
	}

	next := completeSettings()
	next.SpreadsheetID = "other-sheet"
	g.Reset(next)

	if g.Session().State != StateUnauthenticated {
		t.Errorf("state after reset = %s", g.Session().State)
	}
	if g.Settings().SpreadsheetID != "other-sheet" {
		t.Errorf("settings not replaced: %+v", g.Settings())
	}
}
