package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tulenlabs/tulen-connect/internal/db/models"
)

// IntegrationStore persists one row per platform and guards every
// read-modify-write cycle with a version compare-and-swap, so two concurrent
// refreshes cannot silently overwrite each other's tokens.
type IntegrationStore struct {
	db *gorm.DB
}

func NewIntegrationStore(db *gorm.DB) *IntegrationStore {
	return &IntegrationStore{db: db}
}

// Get returns the record for a platform, or nil when none exists.
func (s *IntegrationStore) Get(platform string) (*models.Integration, error) {
	var rec models.Integration
	err := s.db.First(&rec, "platform = ?", platform).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns all records ordered by platform.
func (s *IntegrationStore) List() ([]models.Integration, error) {
	var recs []models.Integration
	err := s.db.Order("platform").Find(&recs).Error
	return recs, err
}

// Save upserts the full record keyed by platform. Callers pass the complete
// desired state, not a patch. A record loaded from the store carries its
// version; the update only lands if that version is still current, otherwise
// ErrVersionConflict. New records (ID unset, no existing row) are created.
func (s *IntegrationStore) Save(rec *models.Integration) (*models.Integration, error) {
	if rec.Platform == "" {
		return nil, errors.New("integration platform is required")
	}

	if rec.ID == "" {
		existing, err := s.Get(rec.Platform)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			rec.ID = uuid.New().String()
			rec.Version = 1
			if err := s.db.Create(rec).Error; err != nil {
				return nil, err
			}
			return rec, nil
		}
		// Caller built a fresh record for an existing platform (e.g. a
		// reconnect after exchange); adopt the stored identity and version.
		rec.ID = existing.ID
		rec.Version = existing.Version
	}

	prev := rec.Version
	rec.Version = prev + 1
	res := s.db.Model(&models.Integration{}).
		Where("platform = ? AND version = ?", rec.Platform, prev).
		Updates(map[string]any{
			"connected":    rec.Connected,
			"account_info": rec.AccountInfo,
			"credential":   rec.Credential,
			"metadata":     rec.Metadata,
			"last_sync":    rec.LastSync,
			"sync_status":  rec.SyncStatus,
			"last_error":   rec.LastError,
			"version":      rec.Version,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrVersionConflict
	}
	return rec, nil
}

// Delete removes the record entirely (the explicit user-driven
// "remove integration" action). Deleting a missing record is a no-op.
func (s *IntegrationStore) Delete(platform string) error {
	return s.db.Where("platform = ?", platform).Delete(&models.Integration{}).Error
}

// Disconnect clears the credential and bound account, flips connected off,
// and preserves platform metadata so a later reconnect keeps e.g. a chosen
// spreadsheet selection. Idempotent: disconnecting an already-disconnected
// or missing integration succeeds.
func (s *IntegrationStore) Disconnect(platform string) (*models.Integration, error) {
	rec, err := s.Get(platform)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if !rec.Connected && rec.Credential == "" && rec.AccountInfo == "" {
		return rec, nil
	}

	rec.Connected = false
	rec.Credential = ""
	rec.AccountInfo = ""
	rec.LastError = ""
	return s.Save(rec)
}

// MarkSync records the outcome of a vendor operation. A successful operation
// updates lastSync and clears lastError, moving an errored integration back
// to its credential-derived state. Single UPDATE, so no version bump needed.
func (s *IntegrationStore) MarkSync(platform string, syncErr error) error {
	now := time.Now()
	updates := map[string]any{
		"last_sync":   &now,
		"sync_status": models.SyncStatusOK,
		"last_error":  "",
	}
	if syncErr != nil {
		updates["sync_status"] = models.SyncStatusError
		updates["last_error"] = syncErr.Error()
	}
	return s.db.Model(&models.Integration{}).
		Where("platform = ?", platform).
		Updates(updates).Error
}
