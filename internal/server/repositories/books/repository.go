// Package books persists catalog entries.
package books

import (
	"context"

	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

// SearchFilter narrows a catalog search. Empty fields are ignored; string
// matches are case-insensitive substring matches.
type SearchFilter struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Category string `json:"category,omitempty"`
}

type Repository interface {
	Create(ctx context.Context, book *models.Book) (*models.Book, error)
	GetByID(ctx context.Context, id string) (*models.Book, error)
	List(ctx context.Context) ([]*models.Book, error)
	Search(ctx context.Context, filter SearchFilter) ([]*models.Book, error)
	Update(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
