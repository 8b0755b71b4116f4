package copies

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Copy
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*models.Copy)}
}

func (r *MemoryRepository) clone(c *models.Copy) *models.Copy {
	cp := *c
	return &cp
}

func (r *MemoryRepository) Create(_ context.Context, copy *models.Copy) (*models.Copy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[copy.ID] = r.clone(copy)
	return copy, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Copy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return r.clone(c), nil
}

func (r *MemoryRepository) ListByBook(_ context.Context, bookID string) ([]*models.Copy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.Copy
	for _, c := range r.items {
		if c.BookID == bookID {
			result = append(result, r.clone(c))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *MemoryRepository) UpdateStatusCAS(_ context.Context, id string, from, to models.CopyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return common.ErrNotFound
	}
	if c.Status != from {
		return common.ErrConflict
	}
	c.Status = to
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}

func (r *MemoryRepository) CountByStatus(_ context.Context, status models.CopyStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.items {
		if c.Status == status {
			n++
		}
	}
	return n, nil
}
