// Package httpapi wires the HTTP surface: the OAuth flow endpoints, the
// integrations API the dashboard frontend consumes, and the admin credential
// API.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tulenlabs/tulen-connect/internal/auth/creds"
	"github.com/tulenlabs/tulen-connect/internal/auth/flow"
	"github.com/tulenlabs/tulen-connect/internal/auth/oauth"
	"github.com/tulenlabs/tulen-connect/internal/auth/token"
	"github.com/tulenlabs/tulen-connect/internal/config"
	"github.com/tulenlabs/tulen-connect/internal/httpapi/handlers"
	"github.com/tulenlabs/tulen-connect/internal/store"
)

// Deps carries everything the routes need.
type Deps struct {
	Config   *config.Config
	Stores   *store.Manager
	Flows    *flow.Store
	Resolver *creds.Resolver
	OAuth    *oauth.Client
	Tokens   *token.Manager
}

// NewRouter builds the chi router. The dashboard and /api group are
// protected with basic auth when CONNECT_ADMIN_PASSWORD is set; the OAuth
// flow endpoints stay public because vendors redirect browsers to them.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	adminPassword := d.Config.AdminPassword
	optionalAdminAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminPassword == "" {
				next.ServeHTTP(w, r)
				return
			}
			_, pass, ok := r.BasicAuth()
			if !ok || pass != adminPassword {
				w.Header().Set("WWW-Authenticate", `Basic realm="Tulen Connect"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Dashboard (protected if CONNECT_ADMIN_PASSWORD is set)
	r.With(optionalAdminAuth).Get("/", handlers.DashboardHandler())
	r.Get("/healthz", handlers.HealthHandler())

	// OAuth flow
	r.Get("/auth/{platform}/login", handlers.LoginHandler(d.Flows, d.Resolver))
	r.Get("/oauth/callback", handlers.CallbackHandler(d.Flows, d.Resolver, d.OAuth, d.Stores.Integrations, d.Config.AppBaseURL))

	// API routes (protected if CONNECT_ADMIN_PASSWORD is set)
	r.Route("/api", func(r chi.Router) {
		r.Use(optionalAdminAuth)

		r.Get("/version", handlers.VersionHandler())

		// Integration management
		r.Get("/integrations", handlers.ListIntegrationsHandler(d.Stores.Integrations))
		r.Get("/integrations/{platform}", handlers.GetIntegrationHandler(d.Stores.Integrations))
		r.Get("/integrations/{platform}/status", handlers.StatusHandler(d.Stores.Integrations))
		r.Post("/integrations/{platform}/refresh", handlers.RefreshIntegrationHandler(d.Tokens))
		r.Post("/integrations/{platform}/disconnect", handlers.DisconnectHandler(d.Stores.Integrations))
		r.Delete("/integrations/{platform}", handlers.DeleteIntegrationHandler(d.Stores.Integrations))
		r.Put("/integrations/{platform}/metadata", handlers.UpdateMetadataHandler(d.Stores.Integrations))
		r.Post("/integrations/{platform}/apikey", handlers.ConnectAPIKeyHandler(d.Stores.Integrations))

		// OAuth client credential management
		r.Get("/credentials", handlers.ListCredentialsHandler(d.Stores.Credentials))
		r.Get("/credentials/{platform}", handlers.GetCredentialHandler(d.Stores.Credentials))
		r.Put("/credentials/{platform}", handlers.UpsertCredentialHandler(d.Stores.Credentials))
		r.Delete("/credentials/{platform}", handlers.DeleteCredentialHandler(d.Stores.Credentials))
	})

	return r
}
