package circulation

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/repomanager"
)

// PayFine settles a pending fine owned by identityID. A fine that already
// reached PAID is immutable.
func (e *Engine) PayFine(ctx context.Context, identityID, fineID string) (*models.Fine, error) {
	unlock := e.keys.Lock(identityID)
	defer unlock()

	var paid *models.Fine

	err := e.withConflictRetry(ctx, func(ctx context.Context) error {
		return e.store.WithinTx(ctx, func(ctx context.Context, s repomanager.Store) error {
			fine, err := s.Fines().GetByID(ctx, fineID)
			if err != nil {
				return err
			}
			if fine.IdentityID != identityID {
				return fmt.Errorf("%w: fine belongs to another account", common.ErrAuthorization)
			}

			if err := e.settle(ctx, s, fine, models.FinePaid); err != nil {
				return err
			}

			// the debt is gone and the originating record shows as settled
			rec, err := s.Records().GetByID(ctx, fine.RecordID)
			if err != nil {
				return err
			}
			rec.FinePaid = true
			if err := s.Records().Update(ctx, rec); err != nil {
				return err
			}

			paid = fine
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.publish(protocol.EventRecordUpdated, paid)
	return paid, nil
}

// WaiveFine (admin) forgives a pending fine.
func (e *Engine) WaiveFine(ctx context.Context, fineID string) (*models.Fine, error) {
	return e.closeFine(ctx, fineID, models.FineWaived)
}

// CancelFine (admin) voids a fine raised in error.
func (e *Engine) CancelFine(ctx context.Context, fineID string) (*models.Fine, error) {
	return e.closeFine(ctx, fineID, models.FineCancelled)
}

func (e *Engine) closeFine(ctx context.Context, fineID string, to models.FineStatus) (*models.Fine, error) {
	peek, err := e.store.Fines().GetByID(ctx, fineID)
	if err != nil {
		return nil, err
	}

	unlock := e.keys.Lock(peek.IdentityID)
	defer unlock()

	var closed *models.Fine

	err = e.withConflictRetry(ctx, func(ctx context.Context) error {
		return e.store.WithinTx(ctx, func(ctx context.Context, s repomanager.Store) error {
			fine, err := s.Fines().GetByID(ctx, fineID)
			if err != nil {
				return err
			}
			if err := e.settle(ctx, s, fine, to); err != nil {
				return err
			}
			closed = fine
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.publish(protocol.EventRecordUpdated, closed)
	return closed, nil
}

// settle moves a PENDING fine to its final status and releases the debt from
// the identity's balance.
func (e *Engine) settle(ctx context.Context, s repomanager.Store, fine *models.Fine, to models.FineStatus) error {
	if fine.Status != models.FinePending {
		return fmt.Errorf("%w: fine is already %s", common.ErrValidation, fine.Status)
	}

	fine.Status = to
	if err := s.Fines().Update(ctx, fine); err != nil {
		return err
	}

	identity, err := s.Identities().GetByID(ctx, fine.IdentityID)
	if err != nil {
		return err
	}
	identity.TotalFinesOwed -= fine.Amount
	if identity.TotalFinesOwed < 0 {
		identity.TotalFinesOwed = 0
	}
	return s.Identities().Update(ctx, identity)
}
