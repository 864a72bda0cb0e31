package store

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tulenlabs/tulen-connect/internal/db/models"
)

// CredentialStore manages admin-configured OAuth client credentials.
// Updates never destroy history: the previous row is deactivated and a new
// active row is written, and "delete" only deactivates.
type CredentialStore struct {
	db *gorm.DB
}

func NewCredentialStore(db *gorm.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// GetActive returns the active credential config for a platform, or nil.
func (s *CredentialStore) GetActive(platform string) (*models.CredentialConfig, error) {
	var cfg models.CredentialConfig
	err := s.db.Where("platform = ? AND is_active = ?", platform, true).
		Order("updated_at DESC").
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// List returns the active credential config rows, ordered by platform.
func (s *CredentialStore) List() ([]models.CredentialConfig, error) {
	var cfgs []models.CredentialConfig
	err := s.db.Where("is_active = ?", true).Order("platform").Find(&cfgs).Error
	return cfgs, err
}

// Upsert deactivates any existing active rows for the platform and writes a
// new active one, atomically.
func (s *CredentialStore) Upsert(cfg *models.CredentialConfig) (*models.CredentialConfig, error) {
	if cfg.Platform == "" {
		return nil, errors.New("credential config platform is required")
	}
	cfg.ID = uuid.New().String()
	cfg.IsActive = true

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.CredentialConfig{}).
			Where("platform = ? AND is_active = ?", cfg.Platform, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(cfg).Error
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Deactivate soft-deletes the platform's active credential config.
func (s *CredentialStore) Deactivate(platform string) error {
	return s.db.Model(&models.CredentialConfig{}).
		Where("platform = ? AND is_active = ?", platform, true).
		Update("is_active", false).Error
}
