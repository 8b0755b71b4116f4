// Package fines persists monetary obligations created by lost/damaged
// transitions.
package fines

import (
	"context"

	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, fine *models.Fine) (*models.Fine, error)
	GetByID(ctx context.Context, id string) (*models.Fine, error)
	Update(ctx context.Context, fine *models.Fine) error
	ListByIdentity(ctx context.Context, identityID string) ([]*models.Fine, error)
	ListByRecord(ctx context.Context, recordID string) ([]*models.Fine, error)
	CountByStatus(ctx context.Context, status models.FineStatus) (int, error)
}
