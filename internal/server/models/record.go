package models

import "time"

type RecordStatus string

const (
	RecordBorrowed RecordStatus = "BORROWED"
	RecordOverdue  RecordStatus = "OVERDUE"
	RecordReturned RecordStatus = "RETURNED"
	RecordLost     RecordStatus = "LOST"
	RecordDamaged  RecordStatus = "DAMAGED"
)

// BorrowRecord links an Identity, a Copy, and a time window. It reaches a
// terminal status (RETURNED, LOST, DAMAGED) exactly once; OVERDUE is
// non-terminal and reachable only from BORROWED.
type BorrowRecord struct {
	ID                 string       `json:"id"`
	IdentityID         string       `json:"identityId"`
	BookID             string       `json:"bookId"`
	CopyID             string       `json:"copyId"`
	BorrowDate         time.Time    `json:"borrowDate"`
	ExpectedReturnDate time.Time    `json:"expectedReturnDate"`
	ActualReturnDate   *time.Time   `json:"actualReturnDate,omitempty"`
	Status             RecordStatus `json:"status"`
	Extended           bool         `json:"extended"`
	FineAmount         float64      `json:"fineAmount"`
	FinePaid           bool         `json:"finePaid"`
	Notes              string       `json:"notes,omitempty"`
	StaffForced        bool         `json:"staffForced,omitempty"`
}

// Terminal reports whether the record can no longer transition.
func (s RecordStatus) Terminal() bool {
	return s == RecordReturned || s == RecordLost || s == RecordDamaged
}

// Returnable reports whether the record may still be closed out.
func (s RecordStatus) Returnable() bool {
	return s == RecordBorrowed || s == RecordOverdue
}
