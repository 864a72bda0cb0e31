package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tulenlabs/tulen-connect/internal/db/models"
	"github.com/tulenlabs/tulen-connect/internal/store"
)

// CredentialView redacts the client secret; admins confirm which secret is
// live by its suffix, they never read it back whole.
type CredentialView struct {
	Platform     string    `json:"platform"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"` // masked
	RedirectURI  string    `json:"redirect_uri,omitempty"`
	Scopes       string    `json:"scopes,omitempty"`
	AuthURL      string    `json:"auth_url,omitempty"`
	TokenURL     string    `json:"token_url,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func credentialViewOf(cfg *models.CredentialConfig) CredentialView {
	return CredentialView{
		Platform:     cfg.Platform,
		ClientID:     cfg.ClientID,
		ClientSecret: maskSecret(cfg.ClientSecret),
		RedirectURI:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
		UpdatedAt:    cfg.UpdatedAt,
	}
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// ListCredentialsHandler returns the active admin-managed credential configs.
// GET /api/credentials
func ListCredentialsHandler(credentials store.CredentialStoreInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfgs, err := credentials.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list credentials: %v", err)
			return
		}
		views := make([]CredentialView, 0, len(cfgs))
		for i := range cfgs {
			views = append(views, credentialViewOf(&cfgs[i]))
		}
		writeJSON(w, http.StatusOK, map[string]any{"credentials": views, "count": len(views)})
	}
}

// GetCredentialHandler returns one platform's active credential config.
// GET /api/credentials/{platform}
func GetCredentialHandler(credentials store.CredentialStoreInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "platform")
		if !knownPlatform(w, name) {
			return
		}
		cfg, err := credentials.GetActive(name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "load credential config: %v", err)
			return
		}
		if cfg == nil {
			writeError(w, http.StatusNotFound, "no credential config for platform %q", name)
			return
		}
		writeJSON(w, http.StatusOK, credentialViewOf(cfg))
	}
}

type credentialRequest struct {
	ClientID     string   `json:"client_id" validate:"required"`
	ClientSecret string   `json:"client_secret" validate:"required"`
	RedirectURI  string   `json:"redirect_uri" validate:"omitempty,url"`
	Scopes       []string `json:"scopes" validate:"omitempty,dive,required"`
	AuthURL      string   `json:"auth_url" validate:"omitempty,url"`
	TokenURL     string   `json:"token_url" validate:"omitempty,url"`
}

// UpsertCredentialHandler stores a new active credential config for a
// platform, deactivating the previous one.
// PUT /api/credentials/{platform}
func UpsertCredentialHandler(credentials store.CredentialStoreInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "platform")
		if !knownPlatform(w, name) {
			return
		}
		var req credentialRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request: %v", err)
			return
		}

		cfg, err := credentials.Upsert(&models.CredentialConfig{
			Platform:     name,
			ClientID:     req.ClientID,
			ClientSecret: req.ClientSecret,
			RedirectURI:  req.RedirectURI,
			Scopes:       strings.Join(req.Scopes, " "),
			AuthURL:      req.AuthURL,
			TokenURL:     req.TokenURL,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "save credential config: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, credentialViewOf(cfg))
	}
}

// DeleteCredentialHandler soft-deletes the platform's credential config;
// env-based credentials (if any) take over afterwards.
// DELETE /api/credentials/{platform}
func DeleteCredentialHandler(credentials store.CredentialStoreInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "platform")
		if !knownPlatform(w, name) {
			return
		}
		if err := credentials.Deactivate(name); err != nil {
			writeError(w, http.StatusInternalServerError, "deactivate credential config: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "platform": name})
	}
}
