// Package repomanager bundles the entity repositories behind one Store
// interface, so the engine and services receive a single dependency and can
// run multi-repository mutations inside one transaction where the backend
// supports it.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/libcirc/internal/server/repositories/books"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/copies"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/fines"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/identities"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/records"
)

type Store interface {
	Identities() identities.Repository
	Books() books.Repository
	Copies() copies.Repository
	Records() records.Repository
	Fines() fines.Repository

	// WithinTx runs fn against a store whose repositories share one
	// transaction. The postgres store commits or rolls back as a unit; the
	// memory store runs fn directly, relying on the engine's per-key
	// serialization for atomicity.
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
