package fines

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Fine
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*models.Fine)}
}

func (r *MemoryRepository) clone(f *models.Fine) *models.Fine {
	c := *f
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, fine *models.Fine) (*models.Fine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[fine.ID] = r.clone(fine)
	return fine, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Fine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return r.clone(f), nil
}

func (r *MemoryRepository) Update(_ context.Context, fine *models.Fine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[fine.ID]; !ok {
		return common.ErrNotFound
	}
	r.items[fine.ID] = r.clone(fine)
	return nil
}

func (r *MemoryRepository) collect(match func(*models.Fine) bool) []*models.Fine {
	var result []*models.Fine
	for _, f := range r.items {
		if match(f) {
			result = append(result, r.clone(f))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (r *MemoryRepository) ListByIdentity(_ context.Context, identityID string) ([]*models.Fine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(f *models.Fine) bool { return f.IdentityID == identityID }), nil
}

func (r *MemoryRepository) ListByRecord(_ context.Context, recordID string) ([]*models.Fine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(f *models.Fine) bool { return f.RecordID == recordID }), nil
}

func (r *MemoryRepository) CountByStatus(_ context.Context, status models.FineStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, f := range r.items {
		if f.Status == status {
			n++
		}
	}
	return n, nil
}
