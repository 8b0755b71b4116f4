package models

import "time"

// Session is a live, authenticated context tied to exactly one Identity.
// Sessions exist only in the registry's memory; they are never persisted.
type Session struct {
	ID             string    `json:"id"`
	IdentityID     string    `json:"identityId"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}
