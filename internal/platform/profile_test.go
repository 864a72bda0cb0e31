package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGet_BuiltinCatalog(t *testing.T) {
	t.Cleanup(ResetForTest)

	tests := []struct {
		name        string
		wantPKCE    bool
		wantAPIKey  bool
		wantAcctKey string
	}{
		{name: FacebookAds},
		{name: GoogleAds, wantPKCE: true},
		{name: GoogleSheets, wantPKCE: true},
		{name: GoHighLevel, wantAcctKey: "locationId"},
		{name: GoogleAI, wantPKCE: true, wantAPIKey: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Get(tt.name)
			if !ok {
				t.Fatalf("profile %q missing", tt.name)
			}
			if p.AuthURL == "" || p.TokenURL == "" || len(p.Scopes) == 0 {
				t.Fatalf("incomplete profile: %+v", p)
			}
			if p.UsePKCE != tt.wantPKCE {
				t.Fatalf("UsePKCE = %v, want %v", p.UsePKCE, tt.wantPKCE)
			}
			if p.SupportsAPIKey != tt.wantAPIKey {
				t.Fatalf("SupportsAPIKey = %v, want %v", p.SupportsAPIKey, tt.wantAPIKey)
			}
			if p.AccountIDField != tt.wantAcctKey {
				t.Fatalf("AccountIDField = %q, want %q", p.AccountIDField, tt.wantAcctKey)
			}
		})
	}

	if IsKnown("tiktokAds") {
		t.Fatal("unexpected platform in catalog")
	}
}

func TestAll_SortedAndComplete(t *testing.T) {
	t.Cleanup(ResetForTest)

	all := All()
	if len(all) != 5 {
		t.Fatalf("expected 5 platforms, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Platform >= all[i].Platform {
			t.Fatalf("listing not sorted: %s before %s", all[i-1].Platform, all[i].Platform)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Cleanup(ResetForTest)

	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `profiles:
  - platform: goHighLevel
    label: GoHighLevel
    auth_url: https://marketplace.gohighlevel.com/oauth/chooselocation
    token_url: https://services.leadconnectorhq.com/oauth/token
    scopes: [locations.readonly]
    token_headers:
      Version: "2021-07-28"
    account_id_field: locationId
  - platform: tiktokAds
    label: TikTok Ads
    auth_url: https://ads.tiktok.com/marketing_api/auth
    token_url: https://business-api.tiktok.com/open_api/oauth2/access_token
    scopes: [ad.read]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write overrides: %v", err)
	}

	if err := LoadOverrides(path); err != nil {
		t.Fatalf("load overrides: %v", err)
	}

	// Known platform replaced wholesale.
	ghl, _ := Get(GoHighLevel)
	if len(ghl.Scopes) != 1 || ghl.Scopes[0] != "locations.readonly" {
		t.Fatalf("expected override to replace scopes, got %v", ghl.Scopes)
	}
	if ghl.TokenHeaders["Version"] != "2021-07-28" {
		t.Fatalf("expected versioning header kept, got %v", ghl.TokenHeaders)
	}

	// New platform added.
	if !IsKnown("tiktokAds") {
		t.Fatal("expected file-defined platform to be added")
	}

	ResetForTest()
	if IsKnown("tiktokAds") {
		t.Fatal("expected reset to drop file-defined platform")
	}
}

func TestLoadOverrides_Errors(t *testing.T) {
	t.Cleanup(ResetForTest)

	if err := LoadOverrides(""); err != nil {
		t.Fatalf("empty path must be a no-op, got %v", err)
	}
	if err := LoadOverrides(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("profiles:\n  - label: nameless\n"), 0o600); err != nil {
		t.Fatalf("write overrides: %v", err)
	}
	if err := LoadOverrides(path); err == nil {
		t.Fatal("expected error for profile without a platform name")
	}
}
