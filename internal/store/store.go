package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/tulenlabs/tulen-connect/internal/db/models"
)

// ErrVersionConflict is returned when a save loses the optimistic-concurrency
// race: the row changed between the caller's read and its write. Callers
// re-read and decide whether their write still applies.
var ErrVersionConflict = errors.New("integration record was modified concurrently")

type IntegrationStoreInterface interface {
	Get(platform string) (*models.Integration, error)
	List() ([]models.Integration, error)
	Save(rec *models.Integration) (*models.Integration, error)
	Delete(platform string) error
	Disconnect(platform string) (*models.Integration, error)
	MarkSync(platform string, syncErr error) error
}

type CredentialStoreInterface interface {
	GetActive(platform string) (*models.CredentialConfig, error)
	List() ([]models.CredentialConfig, error)
	Upsert(cfg *models.CredentialConfig) (*models.CredentialConfig, error)
	Deactivate(platform string) error
}

// Manager bundles the per-entity stores behind one constructor.
type Manager struct {
	Integrations IntegrationStoreInterface
	Credentials  CredentialStoreInterface
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		Integrations: NewIntegrationStore(db),
		Credentials:  NewCredentialStore(db),
	}
}
