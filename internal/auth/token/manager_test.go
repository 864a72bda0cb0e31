package token

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/tulenlabs/tulen-connect/internal/auth/creds"
	"github.com/tulenlabs/tulen-connect/internal/auth/oauth"
	"github.com/tulenlabs/tulen-connect/internal/config"
	"github.com/tulenlabs/tulen-connect/internal/db/models"
	"github.com/tulenlabs/tulen-connect/internal/platform"
	"github.com/tulenlabs/tulen-connect/internal/store"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type fixture struct {
	mgr    *Manager
	stores *store.Manager
}

func newFixture(t *testing.T, rt roundTripperFunc) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Integration{}, &models.CredentialConfig{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := &config.Config{
		GoHighLevelClientID:     "cid",
		GoHighLevelClientSecret: "secret",
		GoogleAIClientID:        "cid",
		GoogleAIClientSecret:    "secret",
	}
	stores := store.NewManager(db)
	resolver := creds.NewResolver(cfg, stores.Credentials)

	httpClient := &http.Client{Timeout: time.Second}
	if rt != nil {
		httpClient.Transport = rt
	}
	mgr := NewManager(stores.Integrations, resolver, oauth.NewClientWithHTTP(httpClient))
	return &fixture{mgr: mgr, stores: stores}
}

func (f *fixture) seedOAuth(t *testing.T, expiresAt time.Time, refreshToken string) {
	t.Helper()
	rec := &models.Integration{Platform: platform.GoHighLevel, Connected: true}
	err := rec.SetCredential(&models.Credential{
		Kind: models.CredentialOAuth,
		OAuth: &models.OAuthToken{
			AccessToken:  "tok1",
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresAt:    expiresAt,
		},
	})
	if err != nil {
		t.Fatalf("set credential: %v", err)
	}
	if _, err := f.stores.Integrations.Save(rec); err != nil {
		t.Fatalf("seed integration: %v", err)
	}
}

func TestEnsureAccessToken_ValidTokenNoNetwork(t *testing.T) {
	called := false
	f := newFixture(t, func(r *http.Request) (*http.Response, error) {
		called = true
		return jsonResponse(http.StatusOK, `{}`), nil
	})
	f.seedOAuth(t, time.Now().Add(time.Hour), "ref1")

	tok, err := f.mgr.EnsureAccessToken(context.Background(), platform.GoHighLevel)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if tok != "tok1" {
		t.Fatalf("expected stored token, got %q", tok)
	}
	if called {
		t.Fatal("valid token must not trigger a vendor call")
	}
}

func TestEnsureAccessToken_RefreshesExpiredToken(t *testing.T) {
	f := newFixture(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"access_token":"tok2","expires_in":3600}`), nil
	})
	f.seedOAuth(t, time.Now().Add(-time.Minute), "ref1")

	tok, err := f.mgr.EnsureAccessToken(context.Background(), platform.GoHighLevel)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if tok != "tok2" {
		t.Fatalf("expected refreshed token, got %q", tok)
	}
}

func TestRefresh_RetainsRefreshTokenWhenNotRotated(t *testing.T) {
	f := newFixture(t, func(r *http.Request) (*http.Response, error) {
		// Vendor omits refresh_token: the stored one must survive.
		return jsonResponse(http.StatusOK, `{"access_token":"tok2","expires_in":3600}`), nil
	})
	f.seedOAuth(t, time.Now().Add(-time.Minute), "ref1")

	if _, err := f.mgr.Refresh(context.Background(), platform.GoHighLevel); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	rec, err := f.stores.Integrations.Get(platform.GoHighLevel)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	cred, err := rec.DecodeCredential()
	if err != nil {
		t.Fatalf("decode credential: %v", err)
	}
	if cred.OAuth.AccessToken != "tok2" {
		t.Fatalf("expected new access token persisted, got %q", cred.OAuth.AccessToken)
	}
	if cred.OAuth.RefreshToken != "ref1" {
		t.Fatalf("expected refresh token retained, got %q", cred.OAuth.RefreshToken)
	}
	if rec.LastSync == nil || rec.SyncStatus != models.SyncStatusOK || rec.LastError != "" {
		t.Fatalf("expected sync bookkeeping updated, got %+v", rec)
	}
}

func TestRefresh_AdoptsRotatedRefreshToken(t *testing.T) {
	f := newFixture(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"access_token":"tok2","refresh_token":"ref2","expires_in":3600}`), nil
	})
	f.seedOAuth(t, time.Now().Add(-time.Minute), "ref1")

	if _, err := f.mgr.Refresh(context.Background(), platform.GoHighLevel); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	rec, _ := f.stores.Integrations.Get(platform.GoHighLevel)
	cred, _ := rec.DecodeCredential()
	if cred.OAuth.RefreshToken != "ref2" {
		t.Fatalf("expected rotated refresh token, got %q", cred.OAuth.RefreshToken)
	}
}

func TestRefresh_VendorRejectionLeavesRecordAlone(t *testing.T) {
	f := newFixture(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"error":"invalid_grant"}`), nil
	})
	f.seedOAuth(t, time.Now().Add(-time.Minute), "ref1")

	_, err := f.mgr.Refresh(context.Background(), platform.GoHighLevel)
	var refrErr *oauth.TokenRefreshError
	if !errors.As(err, &refrErr) {
		t.Fatalf("expected TokenRefreshError, got %v", err)
	}

	// The stored tokens are untouched; the integration surfaces as expired,
	// not errored.
	rec, _ := f.stores.Integrations.Get(platform.GoHighLevel)
	cred, _ := rec.DecodeCredential()
	if cred.OAuth.AccessToken != "tok1" || cred.OAuth.RefreshToken != "ref1" {
		t.Fatalf("expected record unchanged after failed refresh, got %+v", cred.OAuth)
	}
	if rec.LastError != "" {
		t.Fatalf("refresh failure must not set lastError, got %q", rec.LastError)
	}
}

func TestEnsureAccessToken_ExpiredWithoutRefreshToken(t *testing.T) {
	f := newFixture(t, nil)
	f.seedOAuth(t, time.Now().Add(-time.Minute), "")

	_, err := f.mgr.EnsureAccessToken(context.Background(), platform.GoHighLevel)
	if !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}
}

func TestEnsureAccessToken_NotConnected(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.mgr.EnsureAccessToken(context.Background(), platform.GoHighLevel)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestEnsureAccessToken_APIKey(t *testing.T) {
	f := newFixture(t, nil)
	rec := &models.Integration{Platform: platform.GoogleAI, Connected: true}
	err := rec.SetCredential(&models.Credential{
		Kind:   models.CredentialAPIKey,
		APIKey: &models.APIKey{Key: "AIza-test", KeyType: "gemini"},
	})
	if err != nil {
		t.Fatalf("set credential: %v", err)
	}
	if _, err := f.stores.Integrations.Save(rec); err != nil {
		t.Fatalf("seed integration: %v", err)
	}

	tok, err := f.mgr.EnsureAccessToken(context.Background(), platform.GoogleAI)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if tok != "AIza-test" {
		t.Fatalf("expected api key, got %q", tok)
	}
}
