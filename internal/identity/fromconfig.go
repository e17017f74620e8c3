package identity

import (
	"fmt"

	"popcorn/internal/config"
	"popcorn/internal/fields"
)

// FromConfig builds a static authorizer from the configured user list. The
// config validator already checks permission names; the check here guards
// callers that construct configs programmatically.
func FromConfig(cfg *config.Config) (*Static, error) {
	users := make([]User, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		for _, perm := range u.Permissions {
			if perm == fields.PermissionAll {
				continue
			}
			if _, ok := fields.ParseType(perm); !ok {
				return nil, fmt.Errorf("user %q: unknown permission %q", u.ID, perm)
			}
		}
		users = append(users, User{
			ID:          u.ID,
			Name:        u.Name,
			Verifier:    u.Verifier,
			Permissions: u.Permissions,
		})
	}
	return NewStatic(users), nil
}
