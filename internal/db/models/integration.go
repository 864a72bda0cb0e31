package models

import (
	"encoding/json"
	"time"
)

// CredentialKind discriminates the two credential forms an integration can hold.
type CredentialKind string

const (
	CredentialOAuth  CredentialKind = "oauth"
	CredentialAPIKey CredentialKind = "api_key"
)

// OAuthToken is the token payload obtained from a vendor token endpoint.
// ExpiresAt is an absolute instant; the zero value means the vendor reported
// no expiry (e.g. Facebook long-lived tokens).
type OAuthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// APIKey is the static-key credential form for platforms without OAuth.
type APIKey struct {
	Key     string `json:"key"`
	KeyType string `json:"key_type,omitempty"`
}

// Credential is a tagged union: exactly one of OAuth or APIKey is set,
// selected by Kind. Callers switch on Kind instead of probing fields.
type Credential struct {
	Kind   CredentialKind `json:"kind"`
	OAuth  *OAuthToken    `json:"oauth,omitempty"`
	APIKey *APIKey        `json:"api_key,omitempty"`
}

// AccountInfo describes the remote account bound to an integration.
type AccountInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Sync status values recorded after vendor operations.
const (
	SyncStatusOK    = "ok"
	SyncStatusError = "error"
)

// Integration stores one platform connection. Exactly one row exists per
// platform (unique index); credential, account info and metadata are JSON
// blobs so platform-specific shapes don't leak into the schema.
type Integration struct {
	ID        string `gorm:"primaryKey"` // UUID
	Platform  string `gorm:"uniqueIndex"`
	Connected bool

	AccountInfo string // JSON AccountInfo, empty when disconnected
	Credential  string // JSON Credential union, empty when disconnected
	Metadata    string // JSON blob for platform extras (e.g. spreadsheet selection)

	LastSync   *time.Time
	SyncStatus string
	LastError  string

	// Version guards read-modify-write cycles; every save is a compare-and-swap.
	Version int64 `gorm:"default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DecodeCredential returns the parsed credential union, or nil when the
// integration holds none.
func (i *Integration) DecodeCredential() (*Credential, error) {
	if i == nil || i.Credential == "" {
		return nil, nil
	}
	var c Credential
	if err := json.Unmarshal([]byte(i.Credential), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// SetCredential serializes the union into the row; nil clears it.
func (i *Integration) SetCredential(c *Credential) error {
	if c == nil {
		i.Credential = ""
		return nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	i.Credential = string(raw)
	return nil
}

// DecodeAccountInfo returns the bound remote account, or nil when none is set.
func (i *Integration) DecodeAccountInfo() (*AccountInfo, error) {
	if i == nil || i.AccountInfo == "" {
		return nil, nil
	}
	var a AccountInfo
	if err := json.Unmarshal([]byte(i.AccountInfo), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SetAccountInfo serializes the remote account into the row; nil clears it.
func (i *Integration) SetAccountInfo(a *AccountInfo) error {
	if a == nil {
		i.AccountInfo = ""
		return nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	i.AccountInfo = string(raw)
	return nil
}

// DecodeMetadata returns the platform extras map (never nil).
func (i *Integration) DecodeMetadata() (map[string]string, error) {
	if i == nil || i.Metadata == "" {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(i.Metadata), &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

// SetMetadata serializes the platform extras; an empty map clears the column.
func (i *Integration) SetMetadata(m map[string]string) error {
	if len(m) == 0 {
		i.Metadata = ""
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	i.Metadata = string(raw)
	return nil
}
