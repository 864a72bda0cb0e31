// Package platform declares the supported integration platforms and the
// token-endpoint profile for each one. Vendor quirks (extra headers, extra
// form fields, which response field names the bound account) live here as
// data so the exchange/refresh client stays generic.
package platform

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Platform identifiers, matching the values the dashboard frontend sends.
const (
	FacebookAds  = "facebookAds"
	GoogleAds    = "googleAds"
	GoogleSheets = "googleSheets"
	GoHighLevel  = "goHighLevel"
	GoogleAI     = "google-ai"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
)

// TokenEndpointProfile describes how to drive one vendor's OAuth endpoints.
type TokenEndpointProfile struct {
	Platform string `yaml:"platform"`
	Label    string `yaml:"label"`

	AuthURL  string   `yaml:"auth_url"`
	TokenURL string   `yaml:"token_url"`
	Scopes   []string `yaml:"scopes"`

	// UsePKCE adds a S256 code challenge to the consent URL and a
	// code_verifier to the exchange request.
	UsePKCE bool `yaml:"use_pkce"`

	// AuthParams are extra query parameters on the consent URL.
	AuthParams map[string]string `yaml:"auth_params"`
	// TokenHeaders are extra headers on exchange/refresh requests
	// (e.g. GoHighLevel's API versioning header).
	TokenHeaders map[string]string `yaml:"token_headers"`
	// TokenParams are extra form fields on exchange/refresh requests.
	TokenParams map[string]string `yaml:"token_params"`

	// AccountIDField names the token-response field carrying the vendor's
	// account identifier. When set, a 2xx response without it is an error.
	AccountIDField string `yaml:"account_id_field"`

	// SupportsAPIKey marks platforms that can also connect with a static key.
	SupportsAPIKey bool `yaml:"supports_api_key"`
}

type fileOverrides struct {
	Profiles []TokenEndpointProfile `yaml:"profiles"`
}

var (
	mu       sync.RWMutex
	profiles = builtinProfiles()
)

func builtinProfiles() map[string]TokenEndpointProfile {
	return map[string]TokenEndpointProfile{
		FacebookAds: {
			Platform: FacebookAds,
			Label:    "Facebook Ads",
			AuthURL:  "https://www.facebook.com/v18.0/dialog/oauth",
			TokenURL: "https://graph.facebook.com/v18.0/oauth/access_token",
			Scopes:   []string{"ads_read", "read_insights", "business_management"},
		},
		GoogleAds: {
			Platform: GoogleAds,
			Label:    "Google Ads",
			AuthURL:  googleAuthURL,
			TokenURL: googleTokenURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/adwords",
				"https://www.googleapis.com/auth/spreadsheets.readonly",
				"https://www.googleapis.com/auth/drive.readonly",
			},
			UsePKCE: true,
		},
		GoogleSheets: {
			Platform: GoogleSheets,
			Label:    "Google Sheets",
			AuthURL:  googleAuthURL,
			TokenURL: googleTokenURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/spreadsheets.readonly",
				"https://www.googleapis.com/auth/drive.readonly",
			},
			UsePKCE: true,
		},
		GoHighLevel: {
			Platform: GoHighLevel,
			Label:    "GoHighLevel",
			AuthURL:  "https://marketplace.gohighlevel.com/oauth/chooselocation",
			TokenURL: "https://services.leadconnectorhq.com/oauth/token",
			Scopes: []string{
				"locations.readonly",
				"contacts.readonly",
				"opportunities.readonly",
				"calendars.readonly",
			},
			TokenHeaders:   map[string]string{"Version": "2021-07-28"},
			TokenParams:    map[string]string{"user_type": "Location"},
			AccountIDField: "locationId",
		},
		GoogleAI: {
			Platform: GoogleAI,
			Label:    "Google AI",
			AuthURL:  googleAuthURL,
			TokenURL: googleTokenURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/generative-language.retriever",
			},
			UsePKCE:        true,
			SupportsAPIKey: true,
		},
	}
}

// Get returns the profile for a platform.
func Get(name string) (TokenEndpointProfile, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := profiles[name]
	return p, ok
}

// IsKnown reports whether a platform identifier is supported.
func IsKnown(name string) bool {
	_, ok := Get(name)
	return ok
}

// All returns every profile, sorted by platform for stable listings.
func All() []TokenEndpointProfile {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]TokenEndpointProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}

// LoadOverrides merges profile overrides from a YAML file onto the built-in
// catalog. Unknown platforms are added; known ones are replaced wholesale so
// the file is the single source of truth for that platform.
func LoadOverrides(path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profile overrides: %w", err)
	}
	var f fileOverrides
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse profile overrides: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, p := range f.Profiles {
		if p.Platform == "" {
			return fmt.Errorf("profile override missing platform name")
		}
		profiles[p.Platform] = p
	}
	return nil
}

// ResetForTest restores the built-in catalog so tests can force a clean state.
func ResetForTest() {
	mu.Lock()
	defer mu.Unlock()
	profiles = builtinProfiles()
}
