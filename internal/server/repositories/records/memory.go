package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*models.BorrowRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*models.BorrowRecord)}
}

func (r *MemoryRepository) clone(rec *models.BorrowRecord) *models.BorrowRecord {
	c := *rec
	if rec.ActualReturnDate != nil {
		t := *rec.ActualReturnDate
		c.ActualReturnDate = &t
	}
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, record *models.BorrowRecord) (*models.BorrowRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[record.ID] = r.clone(record)
	return record, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.BorrowRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return r.clone(rec), nil
}

func (r *MemoryRepository) Update(_ context.Context, record *models.BorrowRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[record.ID]; !ok {
		return common.ErrNotFound
	}
	r.items[record.ID] = r.clone(record)
	return nil
}

func (r *MemoryRepository) collect(match func(*models.BorrowRecord) bool) []*models.BorrowRecord {
	var result []*models.BorrowRecord
	for _, rec := range r.items {
		if match(rec) {
			result = append(result, r.clone(rec))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].BorrowDate.After(result[j].BorrowDate)
	})
	return result
}

func (r *MemoryRepository) ListByIdentity(_ context.Context, identityID string) ([]*models.BorrowRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(rec *models.BorrowRecord) bool {
		return rec.IdentityID == identityID
	}), nil
}

func (r *MemoryRepository) ListNonTerminalByIdentity(_ context.Context, identityID string) ([]*models.BorrowRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(rec *models.BorrowRecord) bool {
		return rec.IdentityID == identityID && rec.Status.Returnable()
	}), nil
}

func (r *MemoryRepository) ListDueBefore(_ context.Context, t time.Time) ([]*models.BorrowRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(rec *models.BorrowRecord) bool {
		return rec.Status == models.RecordBorrowed && rec.ExpectedReturnDate.Before(t)
	}), nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*models.BorrowRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(*models.BorrowRecord) bool { return true }), nil
}

func (r *MemoryRepository) CountByStatus(_ context.Context, status models.RecordStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, rec := range r.items {
		if rec.Status == status {
			n++
		}
	}
	return n, nil
}
