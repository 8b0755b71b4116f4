package models

import "time"

type CopyStatus string

const (
	CopyAvailable CopyStatus = "AVAILABLE"
	CopyBorrowed  CopyStatus = "BORROWED"
	CopyLost      CopyStatus = "LOST"
	CopyDamaged   CopyStatus = "DAMAGED"
)

// Copy is one physical instance of a Book, the unit that is actually
// borrowed. Its status is mutated only by the circulation engine and must
// agree with the presence of a non-terminal BorrowRecord referencing it.
type Copy struct {
	ID        string     `json:"id"`
	BookID    string     `json:"bookId"`
	Status    CopyStatus `json:"status"`
	Shelf     string     `json:"shelf"`
	CreatedAt time.Time  `json:"createdAt"`
}
