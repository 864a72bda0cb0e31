// Package creds resolves the OAuth client identity to use against a vendor:
// an admin-managed credential row when one is active, otherwise the
// environment pair plus the built-in endpoint profile.
package creds

import (
	"fmt"
	"strings"

	"github.com/tulenlabs/tulen-connect/internal/auth/oauth"
	"github.com/tulenlabs/tulen-connect/internal/config"
	"github.com/tulenlabs/tulen-connect/internal/platform"
	"github.com/tulenlabs/tulen-connect/internal/store"
)

// Resolver looks up per-platform client credentials and endpoint profiles.
type Resolver struct {
	cfg         *config.Config
	credentials store.CredentialStoreInterface
}

func NewResolver(cfg *config.Config, credentials store.CredentialStoreInterface) *Resolver {
	return &Resolver{cfg: cfg, credentials: credentials}
}

// Resolve returns the endpoint profile and client credentials for a platform.
// fallbackRedirectURI is used when no admin row pins one (it is derived from
// the incoming request by HTTP handlers). A platform with neither an admin
// row nor env credentials fails with a ConfigurationError naming the missing
// environment variable.
func (r *Resolver) Resolve(name, fallbackRedirectURI string) (platform.TokenEndpointProfile, oauth.ClientCredentials, error) {
	profile, ok := platform.Get(name)
	if !ok {
		return platform.TokenEndpointProfile{}, oauth.ClientCredentials{},
			fmt.Errorf("unknown platform: %q", name)
	}

	row, err := r.credentials.GetActive(name)
	if err != nil {
		return profile, oauth.ClientCredentials{}, fmt.Errorf("load credential config: %w", err)
	}

	if row != nil {
		cc := oauth.ClientCredentials{
			ClientID:     row.ClientID,
			ClientSecret: row.ClientSecret,
			RedirectURI:  row.RedirectURI,
		}
		if cc.RedirectURI == "" {
			cc.RedirectURI = fallbackRedirectURI
		}
		// Admin rows may also pin endpoint URLs and scopes, e.g. to move a
		// platform to a new API version without a redeploy.
		if row.AuthURL != "" {
			profile.AuthURL = row.AuthURL
		}
		if row.TokenURL != "" {
			profile.TokenURL = row.TokenURL
		}
		if row.Scopes != "" {
			profile.Scopes = strings.Fields(row.Scopes)
		}
		return profile, cc, nil
	}

	clientID, clientSecret := r.cfg.ClientCredentials(name)
	if clientID == "" {
		return profile, oauth.ClientCredentials{}, &oauth.ConfigurationError{Field: envName(name, "CLIENT_ID")}
	}
	if clientSecret == "" {
		return profile, oauth.ClientCredentials{}, &oauth.ConfigurationError{Field: envName(name, "CLIENT_SECRET")}
	}
	return profile, oauth.ClientCredentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  fallbackRedirectURI,
	}, nil
}

// envName maps a platform identifier to its env var prefix, e.g.
// facebookAds -> FACEBOOK_ADS_CLIENT_ID.
func envName(name, suffix string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '-':
			b.WriteByte('_')
		case r >= 'A' && r <= 'Z' && i > 0:
			b.WriteByte('_')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	prefix := strings.ToUpper(b.String())
	// GoHighLevel is one brand word; keep the historical variable name.
	if name == platform.GoHighLevel {
		prefix = "GOHIGHLEVEL"
	}
	return prefix + "_" + suffix
}
