package identities

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

// MemoryRepository is a mutex-guarded map implementation, used by tests and
// when the server runs without a database DSN.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Identity
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*models.Identity)}
}

func (r *MemoryRepository) clone(i *models.Identity) *models.Identity {
	c := *i
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, identity *models.Identity) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[identity.ID] = r.clone(identity)
	return identity, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return r.clone(i), nil
}

func (r *MemoryRepository) GetByUsername(_ context.Context, username string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, i := range r.items {
		if i.Username == username {
			return r.clone(i), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryRepository) List(_ context.Context) ([]*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*models.Identity, 0, len(r.items))
	for _, i := range r.items {
		result = append(result, r.clone(i))
	}
	return result, nil
}

func (r *MemoryRepository) Update(_ context.Context, identity *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[identity.ID]; !ok {
		return common.ErrNotFound
	}
	r.items[identity.ID] = r.clone(identity)
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

func (r *MemoryRepository) SetOnline(_ context.Context, id string, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.items[id]; ok {
		i.Online = online
	}
	return nil
}

func (r *MemoryRepository) ClearOnline(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.items {
		i.Online = false
	}
	return nil
}

func (r *MemoryRepository) CountActive(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, i := range r.items {
		if i.Status == models.IdentityActive {
			n++
		}
	}
	return n, nil
}
