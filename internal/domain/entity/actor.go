package entity

import "github.com/google/uuid"

// Actor is the authenticated caller of a use case
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}
