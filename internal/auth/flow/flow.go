// Package flow manages in-flight OAuth authorizations: it builds vendor
// consent URLs and keeps the CSRF state + PKCE verifier server-side until the
// callback returns. Nothing here touches browser storage; the state value in
// the redirect is the only thing the client carries.
package flow

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/oauth2"

	authoauth "github.com/tulenlabs/tulen-connect/internal/auth/oauth"
	"github.com/tulenlabs/tulen-connect/internal/platform"
)

// TTL bounds how long a started authorization stays redeemable. Vendor
// consent screens are interactive, so this is generous but finite.
const TTL = 10 * time.Minute

// Pending is one started authorization, keyed by its state value.
type Pending struct {
	Platform  string
	Verifier  string // PKCE code verifier, empty for non-PKCE platforms
	StartedAt time.Time
}

// Store holds pending authorizations in memory. Entries are single-use and
// expire after TTL.
type Store struct {
	mu      sync.Mutex
	pending map[string]Pending
	now     func() time.Time
}

// NewStore creates an empty flow store.
func NewStore() *Store {
	return &Store{
		pending: make(map[string]Pending),
		now:     time.Now,
	}
}

// Begin registers a new authorization for a platform and returns its state
// value and, when the profile uses PKCE, a freshly generated code verifier.
func (s *Store) Begin(profile platform.TokenEndpointProfile) (state, verifier string) {
	b := make([]byte, 16)
	rand.Read(b)
	state = hex.EncodeToString(b)

	if profile.UsePKCE {
		verifier = oauth2.GenerateVerifier()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.pending[state] = Pending{
		Platform:  profile.Platform,
		Verifier:  verifier,
		StartedAt: s.now(),
	}
	return state, verifier
}

// Consume redeems a state value exactly once. Unknown, reused, or expired
// states fail with CsrfValidationError, before any vendor call is made.
func (s *Store) Consume(state string) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()

	p, ok := s.pending[state]
	if !ok {
		return Pending{}, &authoauth.CsrfValidationError{State: state}
	}
	delete(s.pending, state)
	return p, nil
}

// prune drops expired entries. Caller holds the lock.
func (s *Store) prune() {
	cutoff := s.now().Add(-TTL)
	for state, p := range s.pending {
		if p.StartedAt.Before(cutoff) {
			delete(s.pending, state)
		}
	}
}

// AuthorizeURL builds the vendor consent URL for a started flow. Offline
// access and forced consent are always requested so vendors that support
// refresh tokens issue one; vendors without the concept ignore the params.
func AuthorizeURL(profile platform.TokenEndpointProfile, creds authoauth.ClientCredentials, state, verifier string) string {
	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       profile.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  profile.AuthURL,
			TokenURL: profile.TokenURL,
		},
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
	}
	if profile.UsePKCE {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	for k, v := range profile.AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return cfg.AuthCodeURL(state, opts...)
}
