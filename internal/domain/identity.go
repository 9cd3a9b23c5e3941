package domain

import "github.com/google/uuid"

// Identity is the authenticated actor a cart or order operation runs for.
// A nil *Identity means nobody is signed in.
type Identity struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email"`
	IsAdmin bool      `json:"is_admin"`
}

// RequireIdentity returns ErrAuthRequired for a missing identity.
func RequireIdentity(id *Identity) error {
	if id == nil || id.ID == uuid.Nil {
		return ErrAuthRequired
	}
	return nil
}

// RequireAdmin returns ErrAuthRequired or ErrForbidden unless id is an admin.
func RequireAdmin(id *Identity) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if !id.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// CanAccess reports whether id may read data owned by ownerID.
func (id *Identity) CanAccess(ownerID uuid.UUID) bool {
	return id != nil && (id.IsAdmin || id.ID == ownerID)
}
