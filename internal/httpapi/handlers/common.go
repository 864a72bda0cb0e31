package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tulenlabs/tulen-connect/internal/auth/oauth"
	"github.com/tulenlabs/tulen-connect/internal/auth/token"
	"github.com/tulenlabs/tulen-connect/internal/platform"
	"github.com/tulenlabs/tulen-connect/internal/version"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError emits the uniform JSON error shape the frontend expects.
func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"message": fmt.Sprintf(format, args...)})
}

// writeResolvedError maps the error taxonomy onto HTTP statuses:
// CSRF/state problems and caller mistakes are 4xx, missing server
// configuration is 500, vendor rejections are 502, failed persistence after
// a successful vendor call is 500 with a distinct message.
func writeResolvedError(w http.ResponseWriter, err error) {
	var cfgErr *oauth.ConfigurationError
	var csrfErr *oauth.CsrfValidationError
	var exchErr *oauth.TokenExchangeError
	var refrErr *oauth.TokenRefreshError
	var persErr *oauth.PersistenceError

	switch {
	case errors.As(err, &csrfErr):
		writeError(w, http.StatusBadRequest, "%s", csrfErr.Error())
	case errors.As(err, &cfgErr):
		writeError(w, http.StatusInternalServerError, "%s", cfgErr.Error())
	case errors.As(err, &exchErr):
		writeError(w, http.StatusBadGateway, "%s", exchErr.Error())
	case errors.As(err, &refrErr):
		writeError(w, http.StatusBadGateway, "%s", refrErr.Error())
	case errors.As(err, &persErr):
		writeError(w, http.StatusInternalServerError, "%s", persErr.Error())
	case errors.Is(err, token.ErrNotConnected):
		writeError(w, http.StatusConflict, "%s", err.Error())
	case errors.Is(err, token.ErrReauthRequired):
		writeError(w, http.StatusConflict, "%s", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "%s", err.Error())
	}
}

// knownPlatform extracts and validates the {platform} route parameter.
func knownPlatform(w http.ResponseWriter, name string) bool {
	if !platform.IsKnown(name) {
		writeError(w, http.StatusNotFound, "unknown platform: %q", name)
		return false
	}
	return true
}

// callbackURL derives this service's OAuth redirect URI from the incoming
// request, so the same binary works behind any hostname without extra config.
func callbackURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/oauth/callback", scheme, r.Host)
}

// VersionHandler returns version information as JSON
// GET /api/version
func VersionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":    version.Version,
			"commit":     version.Commit,
			"build_time": version.BuildTime,
		})
	}
}

// HealthHandler is the liveness probe.
// GET /healthz
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
