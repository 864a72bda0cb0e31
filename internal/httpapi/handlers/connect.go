package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tulenlabs/tulen-connect/internal/auth/creds"
	"github.com/tulenlabs/tulen-connect/internal/auth/flow"
)

// LoginHandler starts the OAuth flow for a platform: it registers a pending
// authorization (state + PKCE verifier server-side) and redirects the browser
// to the vendor consent page.
// GET /auth/{platform}/login
func LoginHandler(flows *flow.Store, resolver *creds.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "platform")
		if !knownPlatform(w, name) {
			return
		}

		profile, cc, err := resolver.Resolve(name, callbackURL(r))
		if err != nil {
			writeResolvedError(w, err)
			return
		}

		state, verifier := flows.Begin(profile)
		url := flow.AuthorizeURL(profile, cc, state, verifier)
		log.Printf("🔗 Starting %s authorization (state %s)", name, state)
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
	}
}
