package status

import (
	"testing"
	"time"

	"github.com/tulenlabs/tulen-connect/internal/db/models"
)

func oauthRecord(t *testing.T, expiresAt time.Time) *models.Integration {
	t.Helper()
	rec := &models.Integration{Platform: "googleAds", Connected: true}
	err := rec.SetCredential(&models.Credential{
		Kind: models.CredentialOAuth,
		OAuth: &models.OAuthToken{
			AccessToken:  "tok",
			RefreshToken: "ref",
			ExpiresAt:    expiresAt,
		},
	})
	if err != nil {
		t.Fatalf("set credential: %v", err)
	}
	return rec
}

func TestResolve_NilAndDisconnected(t *testing.T) {
	now := time.Now()
	if got := Resolve(nil, now); got != NotConnected {
		t.Fatalf("nil record: expected %s, got %s", NotConnected, got)
	}

	rec := oauthRecord(t, now.Add(time.Hour))
	rec.Connected = false
	if got := Resolve(rec, now); got != NotConnected {
		t.Fatalf("disconnected record: expected %s, got %s", NotConnected, got)
	}
}

func TestResolve_ErrorTakesPrecedenceOverExpiry(t *testing.T) {
	now := time.Now()
	rec := oauthRecord(t, now.Add(-time.Hour))
	rec.LastError = "facebook insights returned 500"

	if got := Resolve(rec, now); got != Error {
		t.Fatalf("expected %s, got %s", Error, got)
	}
}

func TestResolve_ExpiryBoundary(t *testing.T) {
	now := time.Now().Truncate(time.Second)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      State
	}{
		{name: "expired an hour ago", expiresAt: now.Add(-time.Hour), want: Expired},
		{name: "expires exactly now", expiresAt: now, want: Expired},
		{name: "expires in one second", expiresAt: now.Add(time.Second), want: Connected},
		{name: "no reported expiry", expiresAt: time.Time{}, want: Connected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := oauthRecord(t, tt.expiresAt)
			if got := Resolve(rec, now); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolve_APIKeyNeverExpires(t *testing.T) {
	rec := &models.Integration{Platform: "google-ai", Connected: true}
	err := rec.SetCredential(&models.Credential{
		Kind:   models.CredentialAPIKey,
		APIKey: &models.APIKey{Key: "AIza-test", KeyType: "gemini"},
	})
	if err != nil {
		t.Fatalf("set credential: %v", err)
	}

	if got := Resolve(rec, time.Now()); got != Connected {
		t.Fatalf("expected %s, got %s", Connected, got)
	}
}

func TestResolve_IsDeterministic(t *testing.T) {
	now := time.Now()
	rec := oauthRecord(t, now.Add(time.Hour))

	first := Resolve(rec, now)
	for i := 0; i < 10; i++ {
		if got := Resolve(rec, now); got != first {
			t.Fatalf("resolution changed between calls: %s then %s", first, got)
		}
	}

	// Flipping only lastError must flip the answer to error regardless of expiry.
	rec.LastError = "quota exceeded"
	if got := Resolve(rec, now); got != Error {
		t.Fatalf("expected %s after setting lastError, got %s", Error, got)
	}
}

func TestResolve_ConnectedWithoutCredential(t *testing.T) {
	rec := &models.Integration{Platform: "googleAds", Connected: true}
	if got := Resolve(rec, time.Now()); got != NotConnected {
		t.Fatalf("connected record without credential: expected %s, got %s", NotConnected, got)
	}
}
