package models

import "time"

type FineType string

const (
	FineOverdue FineType = "OVERDUE"
	FineLost    FineType = "LOST"
	FineDamaged FineType = "DAMAGED"
)

type FineStatus string

const (
	FinePending   FineStatus = "PENDING"
	FinePaid      FineStatus = "PAID"
	FineWaived    FineStatus = "WAIVED"
	FineCancelled FineStatus = "CANCELLED"
)

// Fine is a monetary obligation created alongside a LOST/DAMAGED transition.
// Once PAID it is immutable.
type Fine struct {
	ID         string     `json:"id"`
	RecordID   string     `json:"recordId"`
	IdentityID string     `json:"identityId"`
	Type       FineType   `json:"type"`
	Amount     float64    `json:"amount"`
	Status     FineStatus `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
}
