package books

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Book
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*models.Book)}
}

func (r *MemoryRepository) clone(b *models.Book) *models.Book {
	c := *b
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, book *models.Book) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[book.ID] = r.clone(book)
	return book, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return r.clone(b), nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*models.Book, 0, len(r.items))
	for _, b := range r.items {
		result = append(result, r.clone(b))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (r *MemoryRepository) Search(_ context.Context, filter SearchFilter) ([]*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.Book
	for _, b := range r.items {
		if filter.Title != "" && !containsFold(b.Title, filter.Title) {
			continue
		}
		if filter.Author != "" && !containsFold(b.Author, filter.Author) {
			continue
		}
		if filter.Category != "" && !containsFold(b.Category, filter.Category) {
			continue
		}
		result = append(result, r.clone(b))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result, nil
}

func (r *MemoryRepository) Update(_ context.Context, book *models.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[book.ID]; !ok {
		return common.ErrNotFound
	}
	r.items[book.ID] = r.clone(book)
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
