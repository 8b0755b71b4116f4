// Package models holds the persistent domain entities of the circulation
// service. Status transitions live in the circulation engine; these types
// only carry state.
package models

import "time"

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RolePatron Role = "PATRON"
)

type IdentityStatus string

const (
	IdentityActive  IdentityStatus = "ACTIVE"
	IdentityPending IdentityStatus = "PENDING"
	IdentityLocked  IdentityStatus = "LOCKED"
)

// Identity is an authenticated principal (patron or staff member), distinct
// from a live Session.
type Identity struct {
	ID                   string         `json:"id"`
	Username             string         `json:"username"`
	PasswordHash         string         `json:"-"`
	Role                 Role           `json:"role"`
	Status               IdentityStatus `json:"status"`
	CurrentBorrowedCount int            `json:"currentBorrowedCount"`
	TotalBorrowedCount   int            `json:"totalBorrowedCount"`
	TotalFinesOwed       float64        `json:"totalFinesOwed"`
	// Online mirrors the session registry into the store for visibility.
	// It is a cache: the registry is authoritative, this flag is never read
	// to admit or displace a login.
	Online    bool      `json:"online"`
	CreatedAt time.Time `json:"createdAt"`
}

func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
