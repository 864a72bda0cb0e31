// Package token manages the access-token lifecycle for connected
// integrations: the pre-flight gate callers run before a vendor API call,
// the refresh path, and the optional background refresh sweep.
package token

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tulenlabs/tulen-connect/internal/auth/creds"
	"github.com/tulenlabs/tulen-connect/internal/auth/oauth"
	"github.com/tulenlabs/tulen-connect/internal/db/models"
	"github.com/tulenlabs/tulen-connect/internal/store"
)

// ErrNotConnected means no usable credential is stored for the platform;
// the fix is connecting (or reconnecting) the integration.
var ErrNotConnected = errors.New("integration is not connected")

// ErrReauthRequired means the access token is expired and no refresh token
// exists, so only a new authorization flow can recover.
var ErrReauthRequired = errors.New("integration expired and holds no refresh token; reconnect required")

// sweepAhead is how far before expiry the background sweep refreshes tokens.
const sweepAhead = 20 * time.Minute

// Manager is the token lifecycle coordinator.
type Manager struct {
	integrations store.IntegrationStoreInterface
	resolver     *creds.Resolver
	client       *oauth.Client
	now          func() time.Time
}

func NewManager(integrations store.IntegrationStoreInterface, resolver *creds.Resolver, client *oauth.Client) *Manager {
	return &Manager{
		integrations: integrations,
		resolver:     resolver,
		client:       client,
		now:          time.Now,
	}
}

// EnsureAccessToken returns a credential usable for a vendor API call right
// now, refreshing first when the stored access token has expired. This is
// the pre-flight gate: callers never hand an expired token to a vendor.
func (m *Manager) EnsureAccessToken(ctx context.Context, platformName string) (string, error) {
	rec, err := m.integrations.Get(platformName)
	if err != nil {
		return "", err
	}
	if rec == nil || !rec.Connected {
		return "", ErrNotConnected
	}

	cred, err := rec.DecodeCredential()
	if err != nil || cred == nil {
		return "", ErrNotConnected
	}

	switch cred.Kind {
	case models.CredentialAPIKey:
		if cred.APIKey == nil || cred.APIKey.Key == "" {
			return "", ErrNotConnected
		}
		return cred.APIKey.Key, nil

	case models.CredentialOAuth:
		if cred.OAuth == nil || cred.OAuth.AccessToken == "" {
			return "", ErrNotConnected
		}
		exp := cred.OAuth.ExpiresAt
		if exp.IsZero() || m.now().Before(exp) {
			return cred.OAuth.AccessToken, nil
		}
		if cred.OAuth.RefreshToken == "" {
			return "", ErrReauthRequired
		}
		refreshed, err := m.Refresh(ctx, platformName)
		if err != nil {
			return "", err
		}
		return refreshed.AccessToken, nil
	}

	return "", ErrNotConnected
}

// Refresh runs the refresh flow for a platform and persists the outcome,
// returning the new token payload. The stored refresh token is retained when
// the vendor does not rotate it. A concurrent refresh losing the version race
// defers to the winner's (still valid) tokens instead of overwriting them.
func (m *Manager) Refresh(ctx context.Context, platformName string) (*models.OAuthToken, error) {
	rec, err := m.integrations.Get(platformName)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.Connected {
		return nil, ErrNotConnected
	}
	cred, err := rec.DecodeCredential()
	if err != nil || cred == nil || cred.Kind != models.CredentialOAuth || cred.OAuth == nil {
		return nil, ErrNotConnected
	}
	if cred.OAuth.RefreshToken == "" {
		return nil, ErrReauthRequired
	}

	profile, cc, err := m.resolver.Resolve(platformName, "")
	if err != nil {
		return nil, err
	}

	result, err := m.client.Refresh(ctx, profile, cc, cred.OAuth.RefreshToken)
	if err != nil {
		// Refresh failures surface as "expired" via the status resolver;
		// they are not recorded as operational errors, and they are not
		// retried here. Next use (or the user) decides.
		log.Printf("❌ Refresh failed for %s: %v", platformName, err)
		return nil, err
	}

	next := &models.OAuthToken{
		AccessToken:  result.AccessToken,
		RefreshToken: cred.OAuth.RefreshToken,
		TokenType:    result.TokenType,
		Scope:        result.Scope,
		ExpiresAt:    result.ExpiresAt(m.now()),
	}
	if next.TokenType == "" {
		next.TokenType = cred.OAuth.TokenType
	}
	if next.Scope == "" {
		next.Scope = cred.OAuth.Scope
	}
	if result.RefreshToken != "" && result.RefreshToken != next.RefreshToken {
		log.Printf("🔄 Vendor rotated refresh token for %s", platformName)
		next.RefreshToken = result.RefreshToken
	}

	cred.OAuth = next
	if err := rec.SetCredential(cred); err != nil {
		return nil, &oauth.PersistenceError{Platform: platformName, Err: err}
	}
	now := m.now()
	rec.LastSync = &now
	rec.SyncStatus = models.SyncStatusOK
	rec.LastError = ""

	if _, err := m.integrations.Save(rec); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			// Another refresh won the race; use whatever it stored.
			log.Printf("⚠️ Concurrent refresh for %s, keeping the winner's tokens", platformName)
			return m.storedToken(platformName)
		}
		return nil, &oauth.PersistenceError{Platform: platformName, Err: err}
	}

	log.Printf("✅ Refreshed token for %s (expires: %s)", platformName, formatExpiry(next.ExpiresAt))
	return next, nil
}

func (m *Manager) storedToken(platformName string) (*models.OAuthToken, error) {
	rec, err := m.integrations.Get(platformName)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotConnected
	}
	cred, err := rec.DecodeCredential()
	if err != nil || cred == nil || cred.OAuth == nil {
		return nil, ErrNotConnected
	}
	return cred.OAuth, nil
}

// StartRefreshSweep refreshes soon-to-expire OAuth tokens in the background.
// interval <= 0 disables the sweep; every expiry still gets handled lazily by
// the EnsureAccessToken gate.
func (m *Manager) StartRefreshSweep(interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			m.sweepOnce()
		}
	}()
	log.Printf("🔄 Token refresh sweep started (interval: %s)", interval)
}

func (m *Manager) sweepOnce() {
	recs, err := m.integrations.List()
	if err != nil {
		log.Printf("⚠️ Refresh sweep could not list integrations: %v", err)
		return
	}
	threshold := m.now().Add(sweepAhead)
	for i := range recs {
		rec := &recs[i]
		if !rec.Connected {
			continue
		}
		cred, err := rec.DecodeCredential()
		if err != nil || cred == nil || cred.Kind != models.CredentialOAuth || cred.OAuth == nil {
			continue
		}
		if cred.OAuth.RefreshToken == "" || cred.OAuth.ExpiresAt.IsZero() {
			continue
		}
		if cred.OAuth.ExpiresAt.After(threshold) {
			continue
		}
		if _, err := m.Refresh(context.Background(), rec.Platform); err != nil {
			log.Printf("⚠️ Sweep refresh failed for %s: %v", rec.Platform, err)
		}
	}
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}
