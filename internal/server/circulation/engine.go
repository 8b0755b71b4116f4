// Package circulation implements the borrow/return state machine.
//
// A BorrowRecord starts BORROWED and ends in exactly one of RETURNED, LOST
// or DAMAGED; OVERDUE is a non-terminal detour reachable only from BORROWED.
// Every mutating operation is serialized per identity id and per copy id, so
// the read-check-then-write sequences below are atomic with respect to other
// connections touching the same identity or copy.
package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/repomanager"
)

const (
	// MaxConcurrentBorrows caps non-terminal records per identity.
	MaxConcurrentBorrows = 5

	// BorrowPeriod is the initial loan window.
	BorrowPeriod = 14 * 24 * time.Hour

	// ExtensionPeriod is added by the single allowed extension.
	ExtensionPeriod = 7 * 24 * time.Hour

	// conflictRetries bounds internal retries of a contended mutation
	// before the conflict is surfaced to the caller.
	conflictRetries = 3
)

// Publisher receives change notifications after successful mutations.
type Publisher interface {
	Publish(event string, payload any)
}

type Engine struct {
	store  repomanager.Store
	pub    Publisher
	logger logging.Logger
	keys   *keyMutex
	now    func() time.Time
}

func NewEngine(store repomanager.Store, pub Publisher, logger logging.Logger) *Engine {
	return &Engine{
		store:  store,
		pub:    pub,
		logger: logger.With("module", "circulation"),
		keys:   newKeyMutex(),
		now:    time.Now,
	}
}

func (e *Engine) publish(event string, payload any) {
	if e.pub != nil {
		e.pub.Publish(event, payload)
	}
}

// withConflictRetry reruns fn while it fails with ErrConflict, a bounded
// number of times. Conflicts usually resolve once the contending operation
// has committed.
func (e *Engine) withConflictRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(conflictRetries-1, retry.NewConstant(10*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, common.ErrConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Borrow checks the identity, its limits and the copy, then creates the
// record, flips the copy to BORROWED and bumps the identity counters as one
// logical unit.
func (e *Engine) Borrow(ctx context.Context, identityID, bookID, copyID string) (*models.BorrowRecord, error) {
	unlock := e.keys.Lock(identityID, copyID)
	defer unlock()

	var record *models.BorrowRecord

	err := e.withConflictRetry(ctx, func(ctx context.Context) error {
		return e.store.WithinTx(ctx, func(ctx context.Context, s repomanager.Store) error {
			identity, err := s.Identities().GetByID(ctx, identityID)
			if err != nil {
				return err
			}
			if identity.Status != models.IdentityActive {
				return fmt.Errorf("%w: account is not active", common.ErrValidation)
			}

			open, err := s.Records().ListNonTerminalByIdentity(ctx, identityID)
			if err != nil {
				return err
			}
			for _, rec := range open {
				if rec.Status == models.RecordOverdue {
					return fmt.Errorf("%w: account has overdue items, return them first", common.ErrValidation)
				}
			}
			if len(open) >= MaxConcurrentBorrows {
				return fmt.Errorf("%w: borrow limit of %d books reached", common.ErrValidation, MaxConcurrentBorrows)
			}
			cp, err := s.Copies().GetByID(ctx, copyID)
			if err != nil {
				return err
			}
			if cp.BookID != bookID {
				return fmt.Errorf("%w: copy does not belong to this book", common.ErrValidation)
			}
			if cp.Status != models.CopyAvailable {
				return fmt.Errorf("%w: copy is not available", common.ErrValidation)
			}

			for _, rec := range open {
				if rec.BookID == bookID {
					return fmt.Errorf("%w: this title is already on loan to the account", common.ErrValidation)
				}
			}

			// the CAS is the race gate: a concurrent borrow of the same copy
			// fails here even if it slipped past the status read
			if err := s.Copies().UpdateStatusCAS(ctx, copyID, models.CopyAvailable, models.CopyBorrowed); err != nil {
				return err
			}

			now := e.now()
			record = &models.BorrowRecord{
				ID:                 uuid.NewString(),
				IdentityID:         identityID,
				BookID:             bookID,
				CopyID:             copyID,
				BorrowDate:         now,
				ExpectedReturnDate: now.Add(BorrowPeriod),
				Status:             models.RecordBorrowed,
			}
			if _, err := s.Records().Create(ctx, record); err != nil {
				return err
			}

			identity.CurrentBorrowedCount++
			identity.TotalBorrowedCount++
			return s.Identities().Update(ctx, identity)
		})
	})
	if err != nil {
		return nil, err
	}

	e.publish(protocol.EventBorrowed, record)
	e.publish(protocol.EventCopyUpdated, map[string]string{"id": copyID, "status": string(models.CopyBorrowed)})
	return record, nil
}

// Return closes a record in a returnable state and puts the copy back into
// circulation.
func (e *Engine) Return(ctx context.Context, recordID string) (*models.BorrowRecord, error) {
	return e.closeReturn(ctx, recordID, false)
}

// ForceReturn is the staff-initiated variant of Return. It bypasses the
// caller-identity check in the handler layer; the record is annotated so the
// history shows staff intervention.
func (e *Engine) ForceReturn(ctx context.Context, recordID string) (*models.BorrowRecord, error) {
	return e.closeReturn(ctx, recordID, true)
}

func (e *Engine) closeReturn(ctx context.Context, recordID string, staffForced bool) (*models.BorrowRecord, error) {
	// peek to learn the keys, validate again under lock
	peek, err := e.store.Records().GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	unlock := e.keys.Lock(peek.IdentityID, peek.CopyID)
	defer unlock()

	var record *models.BorrowRecord

	err = e.withConflictRetry(ctx, func(ctx context.Context) error {
		return e.store.WithinTx(ctx, func(ctx context.Context, s repomanager.Store) error {
			rec, err := s.Records().GetByID(ctx, recordID)
			if err != nil {
				return err
			}
			if !rec.Status.Returnable() {
				return fmt.Errorf("%w: record is already closed (%s)", common.ErrValidation, rec.Status)
			}

			now := e.now()
			rec.ActualReturnDate = &now
			rec.Status = models.RecordReturned
			if staffForced {
				rec.StaffForced = true
			}
			if err := s.Records().Update(ctx, rec); err != nil {
				return err
			}

			if err := s.Copies().UpdateStatusCAS(ctx, rec.CopyID, models.CopyBorrowed, models.CopyAvailable); err != nil {
				return err
			}

			if err := e.decrementBorrowed(ctx, s, rec.IdentityID); err != nil {
				return err
			}

			record = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.publish(protocol.EventReturned, record)
	e.publish(protocol.EventCopyUpdated, map[string]string{"id": record.CopyID, "status": string(models.CopyAvailable)})
	return record, nil
}

// Extend pushes the expected return date out by one extension period. Each
// record can be extended once, ever; extending an OVERDUE record demotes it
// back to BORROWED.
func (e *Engine) Extend(ctx context.Context, recordID string) (*models.BorrowRecord, error) {
	peek, err := e.store.Records().GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	unlock := e.keys.Lock(peek.IdentityID, peek.CopyID)
	defer unlock()

	var record *models.BorrowRecord

	err = e.withConflictRetry(ctx, func(ctx context.Context) error {
		return e.store.WithinTx(ctx, func(ctx context.Context, s repomanager.Store) error {
			rec, err := s.Records().GetByID(ctx, recordID)
			if err != nil {
				return err
			}
			if !rec.Status.Returnable() {
				return fmt.Errorf("%w: record is already closed (%s)", common.ErrValidation, rec.Status)
			}
			if rec.Extended {
				return fmt.Errorf("%w: record was already extended once", common.ErrValidation)
			}

			rec.ExpectedReturnDate = rec.ExpectedReturnDate.Add(ExtensionPeriod)
			rec.Status = models.RecordBorrowed
			rec.Extended = true
			if err := s.Records().Update(ctx, rec); err != nil {
				return err
			}

			record = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.publish(protocol.EventRecordUpdated, record)
	return record, nil
}

// MarkLost closes the record as LOST, fines the identity the full book price
// and removes the copy from circulation for good.
func (e *Engine) MarkLost(ctx context.Context, recordID, notes string) (*models.BorrowRecord, error) {
	return e.closeWithFine(ctx, recordID, notes, models.RecordLost, models.CopyLost, models.FineLost, 100)
}

// MarkDamaged closes the record as DAMAGED with a fine proportional to the
// damage percentage.
func (e *Engine) MarkDamaged(ctx context.Context, recordID, notes string, damagePercent int) (*models.BorrowRecord, error) {
	if damagePercent < 1 || damagePercent > 100 {
		return nil, fmt.Errorf("%w: damage percent must be between 1 and 100", common.ErrValidation)
	}
	return e.closeWithFine(ctx, recordID, notes, models.RecordDamaged, models.CopyDamaged, models.FineDamaged, damagePercent)
}

func (e *Engine) closeWithFine(
	ctx context.Context,
	recordID, notes string,
	recordStatus models.RecordStatus,
	copyStatus models.CopyStatus,
	fineType models.FineType,
	percent int,
) (*models.BorrowRecord, error) {
	peek, err := e.store.Records().GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	unlock := e.keys.Lock(peek.IdentityID, peek.CopyID)
	defer unlock()

	var record *models.BorrowRecord

	err = e.withConflictRetry(ctx, func(ctx context.Context) error {
		return e.store.WithinTx(ctx, func(ctx context.Context, s repomanager.Store) error {
			rec, err := s.Records().GetByID(ctx, recordID)
			if err != nil {
				return err
			}
			if !rec.Status.Returnable() {
				return fmt.Errorf("%w: record is already closed (%s)", common.ErrValidation, rec.Status)
			}

			book, err := s.Books().GetByID(ctx, rec.BookID)
			if err != nil {
				return err
			}
			amount := book.Price * float64(percent) / 100

			rec.Status = recordStatus
			rec.Notes = notes
			rec.FineAmount = amount
			if err := s.Records().Update(ctx, rec); err != nil {
				return err
			}

			if err := s.Copies().UpdateStatusCAS(ctx, rec.CopyID, models.CopyBorrowed, copyStatus); err != nil {
				return err
			}

			fine := &models.Fine{
				ID:         uuid.NewString(),
				RecordID:   rec.ID,
				IdentityID: rec.IdentityID,
				Type:       fineType,
				Amount:     amount,
				Status:     models.FinePending,
				CreatedAt:  e.now(),
			}
			if _, err := s.Fines().Create(ctx, fine); err != nil {
				return err
			}

			identity, err := s.Identities().GetByID(ctx, rec.IdentityID)
			if err != nil {
				return err
			}
			identity.TotalFinesOwed += amount
			if identity.CurrentBorrowedCount > 0 {
				identity.CurrentBorrowedCount--
			}
			if err := s.Identities().Update(ctx, identity); err != nil {
				return err
			}

			record = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.publish(protocol.EventRecordUpdated, record)
	e.publish(protocol.EventCopyUpdated, map[string]string{"id": record.CopyID, "status": string(copyStatus)})
	return record, nil
}

// LockIdentity serializes the caller with every engine mutation touching the
// same identity. The identity service takes it so admin updates and deletes
// cannot interleave with a borrow or return on the same account.
func (e *Engine) LockIdentity(id string) func() {
	return e.keys.Lock(id)
}

func (e *Engine) decrementBorrowed(ctx context.Context, s repomanager.Store, identityID string) error {
	identity, err := s.Identities().GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	if identity.CurrentBorrowedCount > 0 {
		identity.CurrentBorrowedCount--
	}
	return s.Identities().Update(ctx, identity)
}

// SweepOverdue promotes every BORROWED record past its expected return date
// to OVERDUE. Idempotent: records already OVERDUE are not listed again.
// Returns the number of records promoted.
func (e *Engine) SweepOverdue(ctx context.Context) (int, error) {
	due, err := e.store.Records().ListDueBefore(ctx, e.now())
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, candidate := range due {
		unlock := e.keys.Lock(candidate.IdentityID, candidate.CopyID)

		err := e.store.WithinTx(ctx, func(ctx context.Context, s repomanager.Store) error {
			rec, err := s.Records().GetByID(ctx, candidate.ID)
			if err != nil {
				return err
			}
			// re-check under lock: the record may have been returned or
			// extended since the listing
			if rec.Status != models.RecordBorrowed || !rec.ExpectedReturnDate.Before(e.now()) {
				return nil
			}
			rec.Status = models.RecordOverdue
			if err := s.Records().Update(ctx, rec); err != nil {
				return err
			}
			promoted++
			return nil
		})
		unlock()

		if err != nil {
			e.logger.Error(ctx, "overdue sweep failed for record", "recordID", candidate.ID, "error", err.Error())
		}
	}

	if promoted > 0 {
		e.publish(protocol.EventRefresh, map[string]int{"overdue": promoted})
	}
	return promoted, nil
}
