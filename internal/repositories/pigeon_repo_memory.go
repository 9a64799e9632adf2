package repositories

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/farrukhll0/pigeon-management-system/internal/models"

	"github.com/google/uuid"
)

// MemoryPigeonRepository is an in-memory implementation of PigeonRepository.
type MemoryPigeonRepository struct {
	pigeons map[string]models.Pigeon
	mu      sync.RWMutex
}

// NewMemoryPigeonRepository creates a new instance of MemoryPigeonRepository.
func NewMemoryPigeonRepository() *MemoryPigeonRepository {
	return &MemoryPigeonRepository{
		pigeons: make(map[string]models.Pigeon),
	}
}

// ListByOwner returns the owner's pigeons, newest first.
func (r *MemoryPigeonRepository) ListByOwner(_ context.Context, ownerID string, filter models.PigeonFilter) ([]models.Pigeon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	pigeonList := make([]models.Pigeon, 0)
	for _, p := range r.pigeons {
		if p.OwnerID != ownerID {
			continue
		}
		if filter.Sex != "" && p.Sex != filter.Sex {
			continue
		}
		if search != "" && !matchesSearch(p, search) {
			continue
		}
		pigeonList = append(pigeonList, clonePigeon(p))
	}
	sort.SliceStable(pigeonList, func(i, j int) bool {
		return pigeonList[i].CreatedAt.After(pigeonList[j].CreatedAt)
	})
	return pigeonList, nil
}

// GetByID returns a pigeon by its ID.
func (r *MemoryPigeonRepository) GetByID(_ context.Context, id string) (*models.Pigeon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pigeon, ok := r.pigeons[id]
	if !ok {
		return nil, fmt.Errorf("pigeon with ID %s: %w", id, ErrNotFound)
	}
	pigeon = clonePigeon(pigeon)
	return &pigeon, nil
}

// Create adds a new pigeon.
func (r *MemoryPigeonRepository) Create(_ context.Context, pigeon *models.Pigeon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pigeon.ID == "" {
		pigeon.ID = uuid.New().String()
	}
	now := time.Now()
	pigeon.CreatedAt = now
	pigeon.UpdatedAt = now
	r.pigeons[pigeon.ID] = clonePigeon(*pigeon)
	return nil
}

// Update replaces an existing pigeon.
func (r *MemoryPigeonRepository) Update(_ context.Context, pigeon *models.Pigeon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.pigeons[pigeon.ID]
	if !ok {
		return fmt.Errorf("pigeon with ID %s not found for update: %w", pigeon.ID, ErrNotFound)
	}
	pigeon.CreatedAt = existing.CreatedAt
	pigeon.UpdatedAt = time.Now()
	r.pigeons[pigeon.ID] = clonePigeon(*pigeon)
	return nil
}

// Delete removes a pigeon by its ID.
func (r *MemoryPigeonRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pigeons[id]; !ok {
		return fmt.Errorf("pigeon with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	delete(r.pigeons, id)
	return nil
}

func matchesSearch(p models.Pigeon, search string) bool {
	for _, field := range []string{p.Name, p.RingNumber, p.Strain} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// clonePigeon copies the slices and pedigree entries so callers never share them with the store.
func clonePigeon(p models.Pigeon) models.Pigeon {
	p.Achievements = slices.Clone(p.Achievements)
	p.RaceResults = slices.Clone(p.RaceResults)
	p.Vaccinations = slices.Clone(p.Vaccinations)
	p.Images = slices.Clone(p.Images)
	for _, slot := range p.Pedigree.Tiers() {
		if *slot != nil {
			a := **slot
			*slot = &a
		}
	}
	return p
}
