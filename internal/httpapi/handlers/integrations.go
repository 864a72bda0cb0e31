package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tulenlabs/tulen-connect/internal/auth/token"
	"github.com/tulenlabs/tulen-connect/internal/db/models"
	"github.com/tulenlabs/tulen-connect/internal/platform"
	"github.com/tulenlabs/tulen-connect/internal/status"
	"github.com/tulenlabs/tulen-connect/internal/store"
)

var validate = validator.New()

// IntegrationView is what the dashboard sees: connection state and
// bookkeeping, never raw tokens.
type IntegrationView struct {
	Platform    string              `json:"platform"`
	Label       string              `json:"label"`
	Status      status.State        `json:"status"`
	Connected   bool                `json:"connected"`
	AccountInfo *models.AccountInfo `json:"account_info,omitempty"`
	Metadata    map[string]string   `json:"metadata,omitempty"`
	LastSync    *time.Time          `json:"last_sync,omitempty"`
	SyncStatus  string              `json:"sync_status,omitempty"`
	LastError   string              `json:"last_error,omitempty"`
}

func viewOf(profile platform.TokenEndpointProfile, rec *models.Integration, now time.Time) IntegrationView {
	v := IntegrationView{
		Platform: profile.Platform,
		Label:    profile.Label,
		Status:   status.Resolve(rec, now),
	}
	if rec == nil {
		return v
	}
	v.Connected = rec.Connected
	v.AccountInfo, _ = rec.DecodeAccountInfo()
	if md, err := rec.DecodeMetadata(); err == nil && len(md) > 0 {
		v.Metadata = md
	}
	v.LastSync = rec.LastSync
	v.SyncStatus = rec.SyncStatus
	v.LastError = rec.LastError
	return v
}

// ListIntegrationsHandler returns every supported platform with its state.
// GET /api/integrations
func ListIntegrationsHandler(integrations store.IntegrationStoreInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := integrations.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list integrations: %v", err)
			return
		}
		byPlatform := make(map[string]*models.Integration, len(recs))
		for i := range recs {
			byPlatform[recs[i].Platform] = &recs[i]
		}

		now := time.Now()
		views := make([]IntegrationView, 0)
		for _, profile := range platform.All() {
			views = append(views, viewOf(profile, byPlatform[profile.Platform], now))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"integrations": views,
			"count":        len(views),
		})
	}
}

// GetIntegrationHandler returns one platform's state.
// GET /api/integrations/{platform}
func GetIntegrationHandler(integrations store.IntegrationStoreInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "platform")
		if !knownPlatform(w, name) {
			return
		}
		rec, err := integrations.Get(name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "load integration: %v", err)
			return
		}
		profile, _ := platform.Get(name)
		writeJSON(w, http.StatusOK, viewOf(profile, rec, time.Now()))
	}
}

// StatusHandler returns just the resolved connection state; the frontend
// polls this for badges.
// GET /api/integrations/{platform}/status
func StatusHandler(integrations store.IntegrationStoreInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "platform")
		if !knownPlatform(w, name) {
			return
		}
		rec, err := integrations.Get(name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "load integration: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"platform": name,
			"status":   status.Resolve(rec, time.Now()),
		})
	}
}

// RefreshIntegrationHandler forces a token refresh for one platform
// (the UI's "try again" action; there is no automatic retry elsewhere).
// POST /api/integrations/{platform}/refresh
func RefreshIntegrationHandler(mgr *token.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "platform")
		if !knownPlatform(w, name) {
			return
		}
		tok, err := mgr.Refresh(r.Context(), name)
		if err != nil {
			writeResolvedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"platform":   name,
			"expires_at": tok.ExpiresAt,
		})
	}
}

// DisconnectHandler clears the stored credential but keeps platform metadata
// so a reconnect restores the previous selection. Safe to call repeatedly.
// POST /api/integrations/{platform}/disconnect
func DisconnectHandler(integrations store.IntegrationStoreInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "platform")
		if !knownPlatform(w, name) {
			return
		}
		if _, err := integrations.Disconnect(name); err != nil {
			writeError(w, http.StatusInternalServerError, "disconnect: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "platform": name})
	}
}

// DeleteIntegrationHandler removes the record entirely, metadata included.
// DELETE /api/integrations/{platform}
func DeleteIntegrationHandler(integrations store.IntegrationStoreInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "platform")
		if !knownPlatform(w, name) {
			return
		}
		if err := integrations.Delete(name); err != nil {
			writeError(w, http.StatusInternalServerError, "delete integration: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "platform": name})
	}
}

type metadataRequest struct {
	Metadata map[string]string `json:"metadata" validate:"required"`
}

// UpdateMetadataHandler replaces the platform extras (e.g. the Google Sheets
// spreadsheet selection). Works on disconnected integrations too, so a
// selection can be staged before connecting.
// PUT /api/integrations/{platform}/metadata
func UpdateMetadataHandler(integrations store.IntegrationStoreInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "platform")
		if !knownPlatform(w, name) {
			return
		}
		var req metadataRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request: %v", err)
			return
		}

		rec, err := integrations.Get(name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "load integration: %v", err)
			return
		}
		if rec == nil {
			rec = &models.Integration{Platform: name}
		}
		if err := rec.SetMetadata(req.Metadata); err != nil {
			writeError(w, http.StatusBadRequest, "encode metadata: %v", err)
			return
		}
		if _, err := integrations.Save(rec); err != nil {
			writeError(w, http.StatusInternalServerError, "save integration: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "platform": name})
	}
}

type apiKeyRequest struct {
	APIKey  string `json:"api_key" validate:"required"`
	KeyType string `json:"key_type"`
}

// ConnectAPIKeyHandler connects a platform with a static API key instead of
// an OAuth flow. Only platforms whose profile allows it accept this.
// POST /api/integrations/{platform}/apikey
func ConnectAPIKeyHandler(integrations store.IntegrationStoreInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "platform")
		if !knownPlatform(w, name) {
			return
		}
		profile, _ := platform.Get(name)
		if !profile.SupportsAPIKey {
			writeError(w, http.StatusBadRequest, "platform %q does not support API key credentials", name)
			return
		}

		var req apiKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request: %v", err)
			return
		}

		rec, err := integrations.Get(name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "load integration: %v", err)
			return
		}
		if rec == nil {
			rec = &models.Integration{Platform: name}
		}
		cred := &models.Credential{
			Kind:   models.CredentialAPIKey,
			APIKey: &models.APIKey{Key: req.APIKey, KeyType: req.KeyType},
		}
		if err := rec.SetCredential(cred); err != nil {
			writeError(w, http.StatusInternalServerError, "encode credential: %v", err)
			return
		}
		now := time.Now()
		rec.Connected = true
		rec.AccountInfo = ""
		rec.LastSync = &now
		rec.SyncStatus = models.SyncStatusOK
		rec.LastError = ""

		if _, err := integrations.Save(rec); err != nil {
			writeError(w, http.StatusInternalServerError, "save integration: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "platform": name})
	}
}
