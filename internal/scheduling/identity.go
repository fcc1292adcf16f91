package scheduling

import (
	"strings"

	"routelink/internal/models"
)

// Identity is the caller as reported by the session provider.
type Identity struct {
	Authenticated bool
	UserID        uint
	DisplayName   string
}

// RequireAuthenticated fails with ErrForbidden for anonymous callers.
func RequireAuthenticated(id Identity) error {
	if !id.Authenticated {
		return ErrForbidden
	}
	return nil
}

// AuthorizeRemoval allows a caller to remove only a link registered under
// their own display name.
func AuthorizeRemoval(id Identity, l models.Link) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(id.DisplayName), strings.TrimSpace(l.Name)) {
		return ErrForbidden
	}
	return nil
}
