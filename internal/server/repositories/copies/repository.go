// Package copies persists physical book copies.
package copies

import (
	"context"

	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, copy *models.Copy) (*models.Copy, error)
	GetByID(ctx context.Context, id string) (*models.Copy, error)
	ListByBook(ctx context.Context, bookID string) ([]*models.Copy, error)

	// UpdateStatusCAS moves a copy from one status to another only if it is
	// still in the expected status. Returns common.ErrConflict when the copy
	// was concurrently moved away, common.ErrNotFound when it does not exist.
	UpdateStatusCAS(ctx context.Context, id string, from, to models.CopyStatus) error

	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status models.CopyStatus) (int, error)
}
