// Package records persists borrow records.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, record *models.BorrowRecord) (*models.BorrowRecord, error)
	GetByID(ctx context.Context, id string) (*models.BorrowRecord, error)
	Update(ctx context.Context, record *models.BorrowRecord) error

	// ListByIdentity returns the full borrow history, newest first.
	ListByIdentity(ctx context.Context, identityID string) ([]*models.BorrowRecord, error)

	// ListNonTerminalByIdentity returns records in BORROWED or OVERDUE.
	ListNonTerminalByIdentity(ctx context.Context, identityID string) ([]*models.BorrowRecord, error)

	// ListDueBefore returns BORROWED records whose expected return date is
	// before the given time. Feeds the overdue sweep.
	ListDueBefore(ctx context.Context, t time.Time) ([]*models.BorrowRecord, error)

	List(ctx context.Context) ([]*models.BorrowRecord, error)
	CountByStatus(ctx context.Context, status models.RecordStatus) (int, error)
}
