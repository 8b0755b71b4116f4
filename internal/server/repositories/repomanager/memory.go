package repomanager

import (
	"context"

	"github.com/dmitrijs2005/libcirc/internal/server/repositories/books"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/copies"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/fines"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/identities"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/records"
)

// MemoryStore backs the repositories with in-process maps. Used by tests and
// when the server runs without a database DSN.
type MemoryStore struct {
	identities *identities.MemoryRepository
	books      *books.MemoryRepository
	copies     *copies.MemoryRepository
	records    *records.MemoryRepository
	fines      *fines.MemoryRepository
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: identities.NewMemoryRepository(),
		books:      books.NewMemoryRepository(),
		copies:     copies.NewMemoryRepository(),
		records:    records.NewMemoryRepository(),
		fines:      fines.NewMemoryRepository(),
	}
}

func (s *MemoryStore) Identities() identities.Repository { return s.identities }
func (s *MemoryStore) Books() books.Repository           { return s.books }
func (s *MemoryStore) Copies() copies.Repository         { return s.copies }
func (s *MemoryStore) Records() records.Repository       { return s.records }
func (s *MemoryStore) Fines() fines.Repository           { return s.fines }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, st Store) error) error {
	return fn(ctx, s)
}
