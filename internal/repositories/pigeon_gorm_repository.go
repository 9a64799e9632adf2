package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/farrukhll0/pigeon-management-system/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMPigeonRepository is a GORM implementation of PigeonRepository.
type GORMPigeonRepository struct {
	db *gorm.DB
}

// NewGORMPigeonRepository creates a new instance of GORMPigeonRepository.
func NewGORMPigeonRepository(db *gorm.DB) *GORMPigeonRepository {
	return &GORMPigeonRepository{
		db: db,
	}
}

// ListByOwner retrieves the owner's pigeons, newest first.
func (r *GORMPigeonRepository) ListByOwner(ctx context.Context, ownerID string, filter models.PigeonFilter) ([]models.Pigeon, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + escapeLike(search) + "%"
		// gorm parenthesises OR conditions itself.
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(ring_number) LIKE ? ESCAPE '\\' OR LOWER(strain) LIKE ? ESCAPE '\\'", like, like, like)
	}
	if filter.Sex != "" {
		q = q.Where("sex = ?", filter.Sex)
	}

	pigeons := []models.Pigeon{}
	if err := q.Order("created_at DESC").Find(&pigeons).Error; err != nil {
		return nil, classify(fmt.Sprintf("failed to list pigeons for owner %s", ownerID), err)
	}
	return pigeons, nil
}

// GetByID retrieves a single pigeon by its ID from the database.
func (r *GORMPigeonRepository) GetByID(ctx context.Context, id string) (*models.Pigeon, error) {
	var pigeon models.Pigeon
	if err := r.db.WithContext(ctx).First(&pigeon, "id = ?", id).Error; err != nil {
		return nil, classify(fmt.Sprintf("failed to get pigeon by ID %s", id), err)
	}
	return &pigeon, nil
}

// Create creates a new pigeon in the database.
func (r *GORMPigeonRepository) Create(ctx context.Context, pigeon *models.Pigeon) error {
	if pigeon.ID == "" {
		pigeon.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(pigeon).Error; err != nil {
		return classify("failed to create pigeon", err)
	}
	return nil
}

// Update overwrites an existing pigeon. Concurrent writers race; the last one wins.
func (r *GORMPigeonRepository) Update(ctx context.Context, pigeon *models.Pigeon) error {
	res := r.db.WithContext(ctx).Model(pigeon).Select("*").Omit("created_at").Updates(pigeon)
	if res.Error != nil {
		return classify("failed to update pigeon", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("pigeon with ID %s not found for update: %w", pigeon.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a pigeon by its ID from the database.
func (r *GORMPigeonRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Pigeon{}, "id = ?", id)
	if res.Error != nil {
		return classify("failed to delete pigeon", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("pigeon with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
