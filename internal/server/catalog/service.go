// Package catalog manages books and their physical copies.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/books"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/repomanager"
)

// Publisher receives change notifications after successful mutations.
type Publisher interface {
	Publish(event string, payload any)
}

type Service struct {
	store  repomanager.Store
	pub    Publisher
	logger logging.Logger
}

func NewService(store repomanager.Store, pub Publisher, logger logging.Logger) *Service {
	return &Service{store: store, pub: pub, logger: logger.With("module", "catalog")}
}

func (s *Service) publish(event string, payload any) {
	if s.pub != nil {
		s.pub.Publish(event, payload)
	}
}

// BookParams carries the caller-supplied fields of a book.
type BookParams struct {
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	ISBN     string  `json:"isbn"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

func (p BookParams) validate() error {
	if p.Title == "" || p.Author == "" {
		return fmt.Errorf("%w: title and author are required", common.ErrValidation)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", common.ErrValidation)
	}
	return nil
}

func (s *Service) CreateBook(ctx context.Context, params BookParams) (*models.Book, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	book := &models.Book{
		ID:        uuid.NewString(),
		Title:     params.Title,
		Author:    params.Author,
		ISBN:      params.ISBN,
		Category:  params.Category,
		Price:     params.Price,
		CreatedAt: time.Now(),
	}

	if _, err := s.store.Books().Create(ctx, book); err != nil {
		return nil, err
	}

	s.publish(protocol.EventBookAdded, book)
	return book, nil
}

func (s *Service) GetBook(ctx context.Context, id string) (*models.Book, error) {
	return s.store.Books().GetByID(ctx, id)
}

func (s *Service) ListBooks(ctx context.Context) ([]*models.Book, error) {
	return s.store.Books().List(ctx)
}

func (s *Service) SearchBooks(ctx context.Context, filter books.SearchFilter) ([]*models.Book, error) {
	return s.store.Books().Search(ctx, filter)
}

func (s *Service) UpdateBook(ctx context.Context, id string, params BookParams) (*models.Book, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	book, err := s.store.Books().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	book.Title = params.Title
	book.Author = params.Author
	book.ISBN = params.ISBN
	book.Category = params.Category
	book.Price = params.Price

	if err := s.store.Books().Update(ctx, book); err != nil {
		return nil, err
	}

	s.publish(protocol.EventBookUpdated, book)
	return book, nil
}

// DeleteBook removes a catalog entry. Entries that still own copies cannot
// be deleted; stock has to be retired first.
func (s *Service) DeleteBook(ctx context.Context, id string) error {
	if _, err := s.store.Books().GetByID(ctx, id); err != nil {
		return err
	}

	existing, err := s.store.Copies().ListByBook(ctx, id)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: book still has %d copies", common.ErrValidation, len(existing))
	}

	if err := s.store.Books().Delete(ctx, id); err != nil {
		return err
	}

	s.publish(protocol.EventBookDeleted, map[string]string{"id": id})
	return nil
}

// AddCopy puts a new physical copy on the shelf, immediately AVAILABLE.
func (s *Service) AddCopy(ctx context.Context, bookID, shelf string) (*models.Copy, error) {
	if _, err := s.store.Books().GetByID(ctx, bookID); err != nil {
		return nil, err
	}

	copyModel := &models.Copy{
		ID:        uuid.NewString(),
		BookID:    bookID,
		Status:    models.CopyAvailable,
		Shelf:     shelf,
		CreatedAt: time.Now(),
	}

	if _, err := s.store.Copies().Create(ctx, copyModel); err != nil {
		return nil, err
	}

	s.publish(protocol.EventCopyAdded, copyModel)
	return copyModel, nil
}

func (s *Service) ListCopies(ctx context.Context, bookID string) ([]*models.Copy, error) {
	if _, err := s.store.Books().GetByID(ctx, bookID); err != nil {
		return nil, err
	}
	return s.store.Copies().ListByBook(ctx, bookID)
}
