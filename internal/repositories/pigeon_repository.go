package repositories

import (
	"context"

	"github.com/farrukhll0/pigeon-management-system/internal/models"
)

// PigeonRepository defines the interface for pigeon data access.
type PigeonRepository interface {
	ListByOwner(ctx context.Context, ownerID string, filter models.PigeonFilter) ([]models.Pigeon, error)
	GetByID(ctx context.Context, id string) (*models.Pigeon, error)
	Create(ctx context.Context, pigeon *models.Pigeon) error
	Update(ctx context.Context, pigeon *models.Pigeon) error
	Delete(ctx context.Context, id string) error
}
