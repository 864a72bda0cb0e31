package models

import "time"

// CredentialConfig holds admin-managed OAuth client credentials for one
// platform. Rows are soft-deleted by flipping IsActive so a misconfigured
// update can be rolled back by reactivating the previous row.
type CredentialConfig struct {
	ID           string `gorm:"primaryKey"` // UUID
	Platform     string `gorm:"index"`
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       string // space-delimited, as sent on the consent URL
	AuthURL      string
	TokenURL     string
	IsActive     bool `gorm:"default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
