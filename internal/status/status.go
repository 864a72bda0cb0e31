// Package status derives the connection state shown on dashboard badges and
// used as the pre-flight gate before vendor API calls.
package status

import (
	"time"

	"github.com/tulenlabs/tulen-connect/internal/db/models"
)

// State is the resolved connection state of one integration.
type State string

const (
	NotConnected State = "not-connected"
	Connected    State = "connected"
	Expired      State = "expired"
	Error        State = "error"
)

// Resolve derives the state from a stored record. Pure: no I/O, never fails,
// same inputs give the same answer.
//
// Precedence: missing/disconnected record, then a recorded operational error,
// then token expiry. A token is expired from the instant expiresAt is
// reached (now >= expiresAt). API-key credentials and OAuth tokens without a
// reported expiry resolve as connected.
func Resolve(rec *models.Integration, now time.Time) State {
	if rec == nil || !rec.Connected {
		return NotConnected
	}
	if rec.LastError != "" {
		return Error
	}

	cred, err := rec.DecodeCredential()
	if err != nil || cred == nil {
		// Connected without a readable credential violates the storage
		// invariant; surface it as disconnected rather than usable.
		return NotConnected
	}
	if cred.Kind == models.CredentialOAuth && cred.OAuth != nil {
		if exp := cred.OAuth.ExpiresAt; !exp.IsZero() && !now.Before(exp) {
			return Expired
		}
	}
	return Connected
}
