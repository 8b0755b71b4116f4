package circulation

import (
	"context"

	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

// Read paths used by the protocol layer. No locking: readers see whatever
// the last committed mutation left behind.

func (e *Engine) GetRecord(ctx context.Context, recordID string) (*models.BorrowRecord, error) {
	return e.store.Records().GetByID(ctx, recordID)
}

// History returns the full borrow history of an identity, newest first.
func (e *Engine) History(ctx context.Context, identityID string) ([]*models.BorrowRecord, error) {
	return e.store.Records().ListByIdentity(ctx, identityID)
}

// CurrentBorrows returns the identity's non-terminal records.
func (e *Engine) CurrentBorrows(ctx context.Context, identityID string) ([]*models.BorrowRecord, error) {
	return e.store.Records().ListNonTerminalByIdentity(ctx, identityID)
}

// AllRecords returns every borrow record (admin listing).
func (e *Engine) AllRecords(ctx context.Context) ([]*models.BorrowRecord, error) {
	return e.store.Records().List(ctx)
}

// FinesOf returns the fines raised against an identity, newest first.
func (e *Engine) FinesOf(ctx context.Context, identityID string) ([]*models.Fine, error) {
	return e.store.Fines().ListByIdentity(ctx, identityID)
}
