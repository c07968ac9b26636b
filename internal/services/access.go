package services

import (
	"fmt"

	"github.com/minhasfinancas/backend/internal/models"
)

// allow is the single capability check shared by every service: admins
// may act on anything, other users only on resources they own.
func allow(actor models.Principal, ownerID int) error {
	if actor.IsAdmin() || actor.ID == ownerID {
		return nil
	}
	return fmt.Errorf("%w: resource belongs to another user", ErrForbidden)
}

// allowAdmin gates admin-only operations.
func allowAdmin(actor models.Principal) error {
	if actor.IsAdmin() {
		return nil
	}
	return fmt.Errorf("%w: administrator role required", ErrForbidden)
}
