package types

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/ordercore-backend/pkg/enums"
)

// Actor is the authenticated caller a service operation runs on behalf of.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.Role
	Username string
}

// IsAdmin reports whether the actor may act on any record.
func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

// CanAccess applies the ownership rule: admins see everything, everyone else only their own rows.
func (a Actor) CanAccess(ownerID uuid.UUID) bool {
	if a.IsAdmin() {
		return true
	}
	return a.UserID != uuid.Nil && a.UserID == ownerID
}

// Operator is the string recorded on history rows.
func (a Actor) Operator() string {
	return a.UserID.String()
}

// DisplayName prefers the username and falls back to the user id.
func (a Actor) DisplayName() string {
	if a.Username != "" {
		return a.Username
	}
	return a.UserID.String()
}
