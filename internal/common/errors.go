// Package common defines the sentinel error kinds shared by client and
// server layers. Callers match them with errors.Is; the protocol layer maps
// them onto {success:false, message} responses.
package common

import "errors"

var (
	// ErrNotFound — unknown identity/book/copy/record/fine id.
	ErrNotFound = errors.New("not found")

	// ErrValidation — a business rule rejected the operation (borrow limit,
	// overdue lockout, duplicate title, already extended, bad state
	// transition). Expected rejections, not faults.
	ErrValidation = errors.New("validation error")

	// ErrAuthentication — unknown username, wrong password or locked account.
	ErrAuthentication = errors.New("authentication failed")

	// ErrAuthorization — no live session for an authenticated action, or the
	// caller's role is insufficient for an admin-only action.
	ErrAuthorization = errors.New("not authorized")

	// ErrConflict — a contended mutation lost a race. Retried internally a
	// bounded number of times before being surfaced.
	ErrConflict = errors.New("concurrency conflict")

	// ErrInternal — unexpected failure; the only kind logged as a fault.
	ErrInternal = errors.New("internal error")
)
