// Package identities persists Identity rows.
package identities

import (
	"context"

	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	GetByUsername(ctx context.Context, username string) (*models.Identity, error)
	List(ctx context.Context) ([]*models.Identity, error)
	Update(ctx context.Context, identity *models.Identity) error
	Delete(ctx context.Context, id string) error

	// SetOnline updates the cached online flag. Best-effort: the session
	// registry, not this flag, decides who is logged in.
	SetOnline(ctx context.Context, id string, online bool) error

	// ClearOnline resets every online flag. Called once at startup so a
	// crash cannot leave identities marked online forever.
	ClearOnline(ctx context.Context) error

	CountActive(ctx context.Context) (int, error)
}
