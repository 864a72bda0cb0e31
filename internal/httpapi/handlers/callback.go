package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/tulenlabs/tulen-connect/internal/auth/creds"
	"github.com/tulenlabs/tulen-connect/internal/auth/flow"
	"github.com/tulenlabs/tulen-connect/internal/auth/oauth"
	"github.com/tulenlabs/tulen-connect/internal/db/models"
	"github.com/tulenlabs/tulen-connect/internal/store"
)

// CallbackHandler finishes the OAuth flow: validates state against the
// pending-flow store, exchanges the code, persists the integration record,
// and sends the browser back to the dashboard frontend.
// GET /oauth/callback
func CallbackHandler(flows *flow.Store, resolver *creds.Resolver, client *oauth.Client, integrations store.IntegrationStoreInterface, appBaseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		// Vendor-side denial arrives as an error query param; the code is
		// absent so there is nothing to exchange.
		if vendorErr := q.Get("error"); vendorErr != "" {
			msg := vendorErr
			if desc := q.Get("error_description"); desc != "" {
				msg = fmt.Sprintf("%s: %s", vendorErr, desc)
			}
			writeError(w, http.StatusBadRequest, "authorization was not granted: %s", msg)
			return
		}

		// State must match a pending flow before the vendor is ever called.
		pending, err := flows.Consume(q.Get("state"))
		if err != nil {
			writeResolvedError(w, err)
			return
		}

		profile, cc, err := resolver.Resolve(pending.Platform, callbackURL(r))
		if err != nil {
			writeResolvedError(w, err)
			return
		}

		result, err := client.Exchange(r.Context(), profile, cc, q.Get("code"), pending.Verifier)
		if err != nil {
			writeResolvedError(w, err)
			return
		}

		rec, err := buildConnectedRecord(integrations, pending.Platform, result, time.Now())
		if err == nil {
			_, err = integrations.Save(rec)
			if errors.Is(err, store.ErrVersionConflict) {
				// A concurrent write (another tab finishing the same flow)
				// landed first; reapply on top of the fresh row.
				if rec, err = buildConnectedRecord(integrations, pending.Platform, result, time.Now()); err == nil {
					_, err = integrations.Save(rec)
				}
			}
		}
		if err != nil {
			// The vendor granted tokens but the save failed; surfaced
			// distinctly so the user retries the connection instead of
			// debugging credentials.
			writeResolvedError(w, &oauth.PersistenceError{Platform: pending.Platform, Err: err})
			return
		}

		log.Printf("✅ Connected %s integration", pending.Platform)

		dest, _ := url.Parse(appBaseURL + "/oauth/callback")
		params := url.Values{}
		params.Set("success", "true")
		params.Set("platform", pending.Platform)
		if result.AccountID != "" {
			params.Set("location_id", result.AccountID)
		}
		dest.RawQuery = params.Encode()
		http.Redirect(w, r, dest.String(), http.StatusFound)
	}
}

// buildConnectedRecord loads (or creates) the platform row and applies the
// exchange result: new credential, bound account, cleared error state.
// Platform metadata survives a reconnect.
func buildConnectedRecord(integrations store.IntegrationStoreInterface, platformName string, result *oauth.TokenResult, now time.Time) (*models.Integration, error) {
	rec, err := integrations.Get(platformName)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &models.Integration{Platform: platformName}
	}

	cred := &models.Credential{
		Kind: models.CredentialOAuth,
		OAuth: &models.OAuthToken{
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			TokenType:    result.TokenType,
			Scope:        result.Scope,
			ExpiresAt:    result.ExpiresAt(now),
		},
	}
	if err := rec.SetCredential(cred); err != nil {
		return nil, err
	}
	if result.AccountID != "" {
		if err := rec.SetAccountInfo(&models.AccountInfo{ID: result.AccountID}); err != nil {
			return nil, err
		}
	}

	rec.Connected = true
	rec.LastSync = &now
	rec.SyncStatus = models.SyncStatusOK
	rec.LastError = ""
	return rec, nil
}
